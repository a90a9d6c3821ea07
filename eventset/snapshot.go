package eventset

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// A snapshot is a compact binary encoding of a frozen trace, consisting of the event sets of all of its lanes. It
// allows rebuilding indices without running the loader again.
//
// Layout: the magic "TSNP", a version byte, a compression byte, the 16 byte trace ID, followed by the (possibly
// compressed) body. The body stores every event kind column by column, with timestamps delta encoded.

const snapshotVersion = 1

var snapshotMagic = [4]byte{'T', 'S', 'N', 'P'}

var ErrBadSnapshot = errors.New("malformed snapshot")

type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionSnappy
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", c)
	}
}

func ParseCompression(s string) (Compression, error) {
	switch s {
	case "none", "":
		return CompressionNone, nil
	case "snappy":
		return CompressionSnappy, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

type Snapshot struct {
	ID   uuid.UUID
	Sets []*Set
}

func compress(c Compression, body []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return body, nil
	case CompressionSnappy:
		return snappy.Encode(nil, body), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(body, nil), nil
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}
}

func decompress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionSnappy:
		return snappy.Decode(nil, data)
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return nil, fmt.Errorf("unknown compression %d: %w", c, ErrBadSnapshot)
	}
}

func WriteSnapshot(w io.Writer, snap *Snapshot, c Compression) error {
	var e encoder
	e.uvarint(uint64(len(snap.Sets)))
	for _, s := range snap.Sets {
		s.encode(&e)
	}

	payload, err := compress(c, e.buf)
	if err != nil {
		return fmt.Errorf("compressing snapshot: %w", err)
	}

	hdr := make([]byte, 0, 4+2+16)
	hdr = append(hdr, snapshotMagic[:]...)
	hdr = append(hdr, snapshotVersion, byte(c))
	hdr = append(hdr, snap.ID[:]...)
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 22 || !bytes.Equal(data[:4], snapshotMagic[:]) {
		return nil, fmt.Errorf("missing header: %w", ErrBadSnapshot)
	}
	if data[4] != snapshotVersion {
		return nil, fmt.Errorf("unsupported version %d: %w", data[4], ErrBadSnapshot)
	}
	c := Compression(data[5])
	snap := &Snapshot{}
	copy(snap.ID[:], data[6:22])

	body, err := decompress(c, data[22:])
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot: %w", err)
	}

	d := &decoder{buf: body}
	n := d.count()
	for range n {
		s, err := decodeSet(d)
		if err != nil {
			return nil, err
		}
		snap.Sets = append(snap.Sets, s)
	}
	if d.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, d.err)
	}
	return snap, nil
}

func (s *Set) encode(e *encoder) {
	e.varint(int64(s.Lane))

	e.uvarint(uint64(len(s.States)))
	e.column(len(s.States), func(i int) uint64 { return uint64(s.States[i].Start) })
	e.plain(len(s.States), func(i int) uint64 { return uint64(s.States[i].Duration()) })
	e.plain(len(s.States), func(i int) uint64 { return uint64(s.States[i].ID) })
	e.plain(len(s.States), func(i int) uint64 { return s.States[i].Task })
	e.plain(len(s.States), func(i int) uint64 { return s.States[i].Frame })

	e.uvarint(uint64(len(s.Comms)))
	e.column(len(s.Comms), func(i int) uint64 { return uint64(s.Comms[i].Time) })
	e.plain(len(s.Comms), func(i int) uint64 { return uint64(s.Comms[i].Kind) })
	e.plain(len(s.Comms), func(i int) uint64 { return s.Comms[i].Size })
	e.plain(len(s.Comms), func(i int) uint64 { return zigzag(uint64(s.Comms[i].Src)) })
	e.plain(len(s.Comms), func(i int) uint64 { return zigzag(uint64(s.Comms[i].Dst)) })
	e.plain(len(s.Comms), func(i int) uint64 { return s.Comms[i].Task })
	e.plain(len(s.Comms), func(i int) uint64 { return s.Comms[i].Frame })
	e.plain(len(s.Comms), func(i int) uint64 { return s.Comms[i].What })

	e.uvarint(uint64(len(s.Singles)))
	e.column(len(s.Singles), func(i int) uint64 { return uint64(s.Singles[i].Time) })
	e.plain(len(s.Singles), func(i int) uint64 { return uint64(s.Singles[i].Kind) })
	e.plain(len(s.Singles), func(i int) uint64 { return s.Singles[i].Task })
	e.plain(len(s.Singles), func(i int) uint64 { return s.Singles[i].Frame })

	e.uvarint(uint64(len(s.Counters)))
	for ci := range s.Counters {
		c := &s.Counters[ci]
		e.varint(int64(c.ID))
		e.uvarint(uint64(len(c.Samples)))
		e.column(len(c.Samples), func(i int) uint64 { return uint64(c.Samples[i].Time) })
		e.column(len(c.Samples), func(i int) uint64 { return uint64(c.Samples[i].Value) })
		e.plain(len(c.Samples), func(i int) uint64 { return c.Samples[i].Task })
	}

	e.uvarint(uint64(s.annotations.Len()))
	e.column(s.annotations.Len(), func(i int) uint64 { return uint64(s.annotations.Get(i).Time) })
	for _, a := range s.annotations.All(0) {
		e.string(a.Text)
	}
}

func decodeSet(d *decoder) (*Set, error) {
	s := New(int(d.varint()))

	n := d.count()
	starts, durs, ids, tasks, frames := d.column(n), d.plain(n), d.plain(n), d.plain(n), d.plain(n)
	if d.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, d.err)
	}
	for i := range n {
		if ids[i] > MaxStateID {
			return nil, fmt.Errorf("state ID %d: %w", ids[i], ErrBadSnapshot)
		}
		err := s.AddState(State{
			Start: Timestamp(starts[i]),
			End:   Timestamp(starts[i] + durs[i]),
			ID:    int(ids[i]),
			Task:  tasks[i],
			Frame: frames[i],
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
		}
	}

	n = d.count()
	times, kinds, sizes := d.column(n), d.plain(n), d.plain(n)
	srcs, dsts := d.plain(n), d.plain(n)
	tasks, frames, whats := d.plain(n), d.plain(n), d.plain(n)
	for i := range n {
		if kinds[i] > uint64(CommUnknown) {
			return nil, fmt.Errorf("comm kind %d: %w", kinds[i], ErrBadSnapshot)
		}
		s.AddComm(Comm{
			Time:  Timestamp(times[i]),
			Kind:  CommKind(kinds[i]),
			Size:  sizes[i],
			Src:   int(int64(unzigzag(srcs[i]))),
			Dst:   int(int64(unzigzag(dsts[i]))),
			Task:  tasks[i],
			Frame: frames[i],
			What:  whats[i],
		})
	}

	n = d.count()
	times, kinds, tasks, frames = d.column(n), d.plain(n), d.plain(n), d.plain(n)
	for i := range n {
		if kinds[i] > uint64(SingleUnknown) {
			return nil, fmt.Errorf("single kind %d: %w", kinds[i], ErrBadSnapshot)
		}
		s.AddSingle(Single{
			Time:  Timestamp(times[i]),
			Kind:  SingleKind(kinds[i]),
			Task:  tasks[i],
			Frame: frames[i],
		})
	}

	n = d.count()
	for range n {
		id := int(d.varint())
		m := d.count()
		times, values, tasks := d.column(m), d.column(m), d.plain(m)
		if d.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, d.err)
		}
		for i := range m {
			err := s.AddCounterSample(id, CounterSample{
				Time:  Timestamp(times[i]),
				Value: int64(values[i]),
				Task:  tasks[i],
			})
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
			}
		}
	}

	n = d.count()
	times = d.column(n)
	for i := range n {
		s.AddAnnotation(Annotation{Time: Timestamp(times[i]), Text: d.string()})
	}

	if d.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, d.err)
	}
	if len(s.Singles) > 0 {
		if err := s.LinkTaskExecutionBounds(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
		}
	}
	return s, nil
}
