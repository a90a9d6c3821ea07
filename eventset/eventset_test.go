package eventset

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"honnef.co/go/tracestore/arith"
)

// addStates adds n back-to-back state events, the i-th one covering [(i+1)*1000, (i+1)*1000+999] with state ID i %
// numStates.
func addStates(t testing.TB, s *Set, n, numStates int) {
	t.Helper()
	for i := range n {
		start := Timestamp((i + 1) * 1000)
		if err := s.AddState(State{Start: start, End: start + 999, ID: i % numStates}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEmpty(t *testing.T) {
	s := New(0)
	if _, _, ok := s.Bounds(); ok {
		t.Errorf("empty set has bounds")
	}
	if got := s.FirstStateInInterval(0, 1000); got != NoEvent {
		t.Errorf("FirstStateInInterval: got %d, want %d", got, NoEvent)
	}
	if got := s.FirstCommInInterval(0, 1000); got != NoEvent {
		t.Errorf("FirstCommInInterval: got %d, want %d", got, NoEvent)
	}
	if got := s.LastSingleInInterval(0, 1000); got != NoEvent {
		t.Errorf("LastSingleInInterval: got %d, want %d", got, NoEvent)
	}
	if _, ok := s.MajorState(nil, 0, 1000); ok {
		t.Errorf("MajorState on empty set found a state")
	}
	if got := s.FirstAnnotationInInterval(0, 1000); got != NoEvent {
		t.Errorf("FirstAnnotationInInterval: got %d, want %d", got, NoEvent)
	}
}

func TestAddState(t *testing.T) {
	s := New(3)
	if err := s.AddState(State{Start: 10, End: 5}); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("got error %v, want %v", err, ErrInvalidInterval)
	}
	for _, id := range []int{-1, MaxStateID + 1, 1 << 50} {
		if err := s.AddState(State{Start: 10, End: 20, ID: id}); !errors.Is(err, ErrStateID) {
			t.Fatalf("state ID %d: got error %v, want %v", id, err, ErrStateID)
		}
	}
	if len(s.States) != 0 || s.NumStates != 0 {
		t.Fatalf("invalid state was added")
	}
	addStates(t, s, 10, 3)
	start, end, ok := s.Bounds()
	if !ok || start != 1000 || end != 10999 {
		t.Errorf("Bounds: got (%d, %d, %t), want (1000, 10999, true)", start, end, ok)
	}
	if s.NumStates != 3 {
		t.Errorf("NumStates: got %d, want 3", s.NumStates)
	}
	if s.States[0].TexecStart != NoEvent || s.States[0].TexecEnd != NoEvent {
		t.Errorf("links weren't reset")
	}
}

func TestZeroSet(t *testing.T) {
	var s Set
	if _, _, ok := s.Bounds(); ok {
		t.Errorf("zero set has bounds")
	}
	if s.HasCounter(1) || s.Counter(1) != nil {
		t.Errorf("zero set has a counter")
	}
	if err := s.AddCounterSample(1, CounterSample{Time: 500, Value: 3}); err != nil {
		t.Fatal(err)
	}
	if !s.HasCounter(1) {
		t.Errorf("counter wasn't added")
	}
	if got := s.CommByKind(); len(got) != 0 {
		t.Errorf("CommByKind: got %v, want no events", got)
	}
	s.AddComm(Comm{Time: 700, Kind: CommDataWrite})
	s.AddComm(Comm{Time: 800, Kind: CommSteal})
	if got := s.CommByKind(); len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Errorf("CommByKind: got %v, want [1 0]", got)
	}
	if err := s.AddState(State{Start: 100, End: 200}); err != nil {
		t.Fatal(err)
	}
	start, end, ok := s.Bounds()
	if !ok || start != 100 || end != 800 {
		t.Errorf("Bounds: got (%d, %d, %t), want (100, 800, true)", start, end, ok)
	}
}

func TestFirstStateInInterval(t *testing.T) {
	s := New(0)
	addStates(t, s, 10, 10)

	tests := []struct {
		start, end Timestamp
		want       int
	}{
		{0, 999, NoEvent},
		{0, 1000, 0},
		{1500, 1600, 0},
		{1999, 2000, 0},
		{2000, 2000, 1},
		{10999, 20000, 9},
		{11000, 20000, NoEvent},
	}
	for _, tt := range tests {
		if got := s.FirstStateInInterval(tt.start, tt.end); got != tt.want {
			t.Errorf("FirstStateInInterval(%d, %d): got %d, want %d", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestFirstStateStartingInInterval(t *testing.T) {
	s := New(0)
	addStates(t, s, 10, 10)

	for i := range 10 {
		start := Timestamp((i + 1) * 1000)
		if got := s.FirstStateStartingInInterval(start, start); got != i {
			t.Errorf("FirstStateStartingInInterval(%d, %d): got %d, want %d", start, start, got, i)
		}
		if got := s.FirstStateStartingInInterval(start-500, ^Timestamp(0)); got != i {
			t.Errorf("FirstStateStartingInInterval(%d, max): got %d, want %d", start-500, got, i)
		}
	}
	if got := s.FirstStateStartingInInterval(1500, 1999); got != NoEvent {
		t.Errorf("FirstStateStartingInInterval(1500, 1999): got %d, want %d", got, NoEvent)
	}

	if got := s.FirstStateOfTypeStartingInInterval(1500, ^Timestamp(0), 5); got != 5 {
		t.Errorf("FirstStateOfTypeStartingInInterval(1500, max, 5): got %d, want 5", got)
	}
	if got := s.FirstStateOfTypeStartingInInterval(1500, 5000, 5); got != NoEvent {
		t.Errorf("FirstStateOfTypeStartingInInterval(1500, 5000, 5): got %d, want %d", got, NoEvent)
	}
}

func TestNextState(t *testing.T) {
	s := New(0)
	addStates(t, s, 20, 4)

	idx := NoEvent
	var got []int
	for {
		idx = s.NextState(idx, 1)
		if idx == NoEvent {
			break
		}
		got = append(got, idx)
	}
	want := []int{1, 5, 9, 13, 17}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := s.NextState(NoEvent, 7); got != NoEvent {
		t.Errorf("NextState for absent state: got %d, want %d", got, NoEvent)
	}
}

func TestEnclosingState(t *testing.T) {
	s := New(0)
	if err := s.AddState(State{Start: 1000, End: 1999}); err != nil {
		t.Fatal(err)
	}
	for _, tt := range []struct {
		t    Timestamp
		want int
	}{{999, NoEvent}, {1000, 0}, {1500, 0}, {1999, 0}, {2000, NoEvent}} {
		if got := s.EnclosingState(tt.t); got != tt.want {
			t.Errorf("EnclosingState(%d): got %d, want %d", tt.t, got, tt.want)
		}
	}
}

func TestMajorState(t *testing.T) {
	s := New(0)
	if err := s.AddState(State{Start: 1000, End: 1999, ID: 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddState(State{Start: 2000, End: 2999, ID: 1}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		start, end Timestamp
		want       int
		ok         bool
	}{
		{0, 999, 0, false},
		{3000, 4000, 0, false},
		{1000, 1999, 0, true},
		{2000, 2999, 1, true},
		{1001, 2999, 1, true},
		{1000, 2998, 0, true},
		// 500 units each, the lower ID wins the tie
		{1499, 2500, 0, true},
		{1500, 2500, 1, true},
	}
	for _, tt := range tests {
		got, ok := s.MajorState(nil, tt.start, tt.end)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("MajorState(%d, %d): got (%d, %t), want (%d, %t)", tt.start, tt.end, got, ok, tt.want, tt.ok)
		}
	}

	if got, ok := s.MajorState(StateFilter(1), 1000, 2500); !ok || got != 1 {
		t.Errorf("MajorState with filter: got (%d, %t), want (1, true)", got, ok)
	}
}

func TestMajorStateAlternating(t *testing.T) {
	s := New(0)
	for i := range 1001 {
		start := Timestamp((i + 1) * 1000)
		if err := s.AddState(State{Start: start, End: start + 1000, ID: i % 2}); err != nil {
			t.Fatal(err)
		}
	}

	if got, ok := s.MajorState(nil, 1000, 1002000); !ok || got != 0 {
		t.Errorf("full span: got (%d, %t), want (0, true)", got, ok)
	}
	if got, ok := s.MajorState(nil, 2000, 1001000); !ok || got != 1 {
		t.Errorf("without first and last event: got (%d, %t), want (1, true)", got, ok)
	}
}

func bruteStateDurations(s *Set, f Filter, start, end Timestamp) ([]Timestamp, bool) {
	out := make([]Timestamp, s.NumStates)
	found := false
	for i := range s.States {
		ev := &s.States[i]
		if ev.End < start || ev.Start > end || !filterHasState(f, ev) {
			continue
		}
		found = true
		out[ev.ID] += min(ev.End, end) - max(ev.Start, start)
	}
	return out, found
}

func TestStateDurations(t *testing.T) {
	s := New(0)
	addStates(t, s, 100, 7)
	r := rand.New(rand.NewSource(1))
	durations := make([]Timestamp, s.NumStates)
	for range 1000 {
		a, b := Timestamp(r.Intn(110_000)), Timestamp(r.Intn(110_000))
		start, end := min(a, b), max(a, b)
		var f Filter
		if r.Intn(2) == 0 {
			f = StateFilter(1, 3)
		}
		want, wantOK := bruteStateDurations(s, f, start, end)
		ok := s.StateDurations(f, start, end, durations, true, false)
		if ok != wantOK || fmt.Sprint(durations) != fmt.Sprint(want) {
			t.Fatalf("StateDurations(%d, %d): got (%v, %t), want (%v, %t)", start, end, durations, ok, want, wantOK)
		}
		if got := s.HasStateInInterval(f, start, end); got != wantOK {
			t.Fatalf("HasStateInInterval(%d, %d): got %t, want %t", start, end, got, wantOK)
		}
	}
}

func TestStateDurationsBreakHalf(t *testing.T) {
	s := New(0)
	for i := range 10 {
		if err := s.AddState(State{Start: Timestamp(i * 100), End: Timestamp(i*100 + 100), ID: 0}); err != nil {
			t.Fatal(err)
		}
	}
	durations := make([]Timestamp, 1)
	s.StateDurations(nil, 0, 1000, durations, true, true)
	if durations[0] != 600 {
		t.Errorf("got %d, want the scan to stop at 600", durations[0])
	}
	s.StateDurations(nil, 0, 1000, durations, true, false)
	if durations[0] != 1000 {
		t.Errorf("got %d, want 1000", durations[0])
	}
}

func addComms(s *Set, n int) {
	for i := range n {
		s.AddComm(Comm{Time: Timestamp((i + 1) * 1000), Kind: CommKind(i % 4), Size: uint64(i)})
	}
}

func TestCommLookups(t *testing.T) {
	s := New(0)
	addComms(s, 4)

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"first(900, 1000)", s.FirstCommInInterval(900, 1000), 0},
		{"first(1001, 1999)", s.FirstCommInInterval(1001, 1999), NoEvent},
		{"first(1500, 5000)", s.FirstCommInInterval(1500, 5000), 1},
		{"last(500, 3500)", s.LastCommInInterval(500, 3500), 2},
		{"last(0, 999)", s.LastCommInInterval(0, 999), NoEvent},
		{"last(4000, 4000)", s.LastCommInInterval(4000, 4000), 3},
		{"firstOfKind(0, 5000, data read)", s.FirstCommOfKindInInterval(0, 5000, CommDataRead), 2},
		{"firstOfKind(0, 2500, data read)", s.FirstCommOfKindInInterval(0, 2500, CommDataRead), NoEvent},
		{"lastOfKind(0, 5000, steal)", s.LastCommOfKindInInterval(0, 5000, CommSteal), 0},
		{"lastOfKind(1500, 5000, steal)", s.LastCommOfKindInInterval(1500, 5000, CommSteal), NoEvent},
		{"next(-1, push)", s.NextComm(NoEvent, CommPush), 1},
		{"next(1, push)", s.NextComm(1, CommPush), NoEvent},
		{"nextOfKinds(0, {write, push})", s.NextCommOfKinds(0, []CommKind{CommDataWrite, CommPush}), 1},
		{"nextOfKinds(1, {write, push})", s.NextCommOfKinds(1, []CommKind{CommDataWrite, CommPush}), 3},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestCommByKind(t *testing.T) {
	s := New(0)
	addComms(s, 8)
	got := s.CommByKind()
	want := []int{0, 4, 1, 5, 2, 6, 3, 7}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	s.AddComm(Comm{Time: 9000, Kind: CommSteal})
	got = s.CommByKind()
	want = []int{0, 4, 8, 1, 5, 2, 6, 3, 7}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("after AddComm: got %v, want %v", got, want)
	}
}

func TestSingleLookups(t *testing.T) {
	s := New(0)
	for i := range 6 {
		s.AddSingle(Single{Time: Timestamp((i + 1) * 1000), Kind: SingleKind(i % 3)})
	}
	if got := s.NextSingle(NoEvent, SingleTexecEnd); got != 2 {
		t.Errorf("NextSingle(-1, end): got %d, want 2", got)
	}
	if got := s.NextSingle(2, SingleTexecEnd); got != 5 {
		t.Errorf("NextSingle(2, end): got %d, want 5", got)
	}
	if got := s.FirstSingleInInterval(1001, 2000); got != 1 {
		t.Errorf("FirstSingleInInterval(1001, 2000): got %d, want 1", got)
	}
	if got := s.LastSingleInInterval(1001, 4500); got != 3 {
		t.Errorf("LastSingleInInterval(1001, 4500): got %d, want 3", got)
	}
	if got := s.FirstSingleOfKindInInterval(1001, 6000, SingleTaskCreate); got != 3 {
		t.Errorf("FirstSingleOfKindInInterval: got %d, want 3", got)
	}
	if got := s.LastSingleOfKindInInterval(0, 5999, SingleTexecEnd); got != 2 {
		t.Errorf("LastSingleOfKindInInterval: got %d, want 2", got)
	}
}

func TestAnnotations(t *testing.T) {
	s := New(0)
	// Insert out of order; annotations are kept sorted.
	for _, i := range []int{5, 0, 9, 3, 1, 2, 8, 4, 6, 7} {
		s.AddAnnotation(Annotation{Time: Timestamp((i + 1) * 1000), Text: fmt.Sprintf("annotation-%d", i)})
	}
	for i := range s.NumAnnotations() {
		if want := fmt.Sprintf("annotation-%d", i); s.Annotation(i).Text != want {
			t.Fatalf("annotation %d: got %q, want %q", i, s.Annotation(i).Text, want)
		}
	}

	tests := []struct {
		start, end Timestamp
		want       int
	}{
		{100, 200, NoEvent},
		{0, 999, NoEvent},
		{1001, 1999, NoEvent},
		{1000, 1001, 0},
		{999, 1000, 0},
		{999, 2000, 0},
		{1000, 2001, 0},
	}
	for _, tt := range tests {
		if got := s.FirstAnnotationInInterval(tt.start, tt.end); got != tt.want {
			t.Errorf("FirstAnnotationInInterval(%d, %d): got %d, want %d", tt.start, tt.end, got, tt.want)
		}
	}
	for i := range 10 {
		at := Timestamp((i + 1) * 1000)
		if got := s.FirstAnnotationInInterval(at-500, at+500); got != i {
			t.Errorf("FirstAnnotationInInterval(%d, %d): got %d, want %d", at-500, at+500, got, i)
		}
	}
	if got := s.Annotations(1500, 4000); len(got) != 3 || got[0].Text != "annotation-1" {
		t.Errorf("Annotations(1500, 4000): got %v", got)
	}
}

func TestCounters(t *testing.T) {
	s := New(0)
	for i := range 10 {
		if err := s.AddCounterSample(7, CounterSample{Time: Timestamp(i * 100), Value: int64(i * i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AddCounterSample(7, CounterSample{Time: 900, Value: 1}); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("got error %v, want %v", err, ErrOutOfOrder)
	}

	if !s.HasCounter(7) || s.HasCounter(8) {
		t.Errorf("HasCounter is wrong")
	}
	if got := s.CounterIndex(8); got != NoEvent {
		t.Errorf("CounterIndex(8): got %d, want %d", got, NoEvent)
	}
	c := s.Counter(7)
	if c.Samples[0].Slope != 0 {
		t.Errorf("slope of first sample: got %g, want 0", c.Samples[0].Slope)
	}
	if got, want := c.Samples[3].Slope, float64(9-4)/100; got != want {
		t.Errorf("slope of fourth sample: got %g, want %g", got, want)
	}

	if v, ok := c.ValueAt(350); !ok || v != 12 {
		// 9 + (16-9)*50/100 = 12.5, truncated
		t.Errorf("ValueAt(350): got (%d, %t), want (12, true)", v, ok)
	}
	if v, ok := c.ValueAt(400); !ok || v != 16 {
		t.Errorf("ValueAt(400): got (%d, %t), want (16, true)", v, ok)
	}
	if _, ok := c.ValueAt(901); ok {
		t.Errorf("ValueAt past the last sample succeeded")
	}

	if ok, _ := s.CountersMonotonic(); !ok {
		t.Errorf("increasing counter isn't monotonic")
	}
	for i := range 3 {
		if err := s.AddCounterSample(2, CounterSample{Time: Timestamp(i), Value: 5}); err != nil {
			t.Fatal(err)
		}
	}
	if ok, _ := s.CountersMonotonic(); !ok {
		t.Errorf("constant counter isn't monotonic")
	}
	if err := s.AddCounterSample(2, CounterSample{Time: 10, Value: 4}); err != nil {
		t.Fatal(err)
	}
	if ok, id := s.CountersMonotonic(); ok || id != 2 {
		t.Errorf("CountersMonotonic: got (%t, %d), want (false, 2)", ok, id)
	}
}

func TestInterpolateOverflow(t *testing.T) {
	left := CounterSample{Time: 0, Value: -1 << 63}
	right := CounterSample{Time: 10, Value: 1<<63 - 1}
	if _, st := Interpolate(&left, &right, 5); st == arith.Exact {
		t.Errorf("interpolating across the full int64 range succeeded")
	}
}

// addTasks adds texec start and end events for len(durations) executions separated by gap, starting at t.
func addTasks(t testing.TB, s *Set, durations []Timestamp, gap, at Timestamp) {
	t.Helper()
	for _, d := range durations {
		s.AddSingle(Single{Time: at, Kind: SingleTexecStart})
		at += d
		s.AddSingle(Single{Time: at, Kind: SingleTexecEnd})
		at += gap
	}
	if err := s.LinkTaskExecutionBounds(); err != nil {
		t.Fatal(err)
	}
}

func TestLinkTaskExecutionBounds(t *testing.T) {
	s := New(0)
	if err := s.AddState(State{Start: 1000, End: 1500}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddState(State{Start: 1500, End: 3500}); err != nil {
		t.Fatal(err)
	}
	s.AddComm(Comm{Time: 1200})
	s.AddComm(Comm{Time: 2500})
	s.AddSingle(Single{Time: 500, Kind: SingleTaskCreate})
	addTasks(t, s, []Timestamp{1000, 1000}, 1000, 1000)

	// singles: 0 create@500, 1 start@1000, 2 end@2000, 3 start@3000, 4 end@4000
	type links struct{ prevStart, prevEnd, nextStart, nextEnd int }
	want := []links{
		{NoEvent, NoEvent, 1, 2},
		{NoEvent, NoEvent, 3, 2},
		{1, NoEvent, 3, NoEvent},
		{1, 2, NoEvent, 4},
		{3, 2, NoEvent, NoEvent},
	}
	for i, w := range want {
		ev := &s.Singles[i]
		got := links{ev.PrevTexecStart, ev.PrevTexecEnd, ev.NextTexecStart, ev.NextTexecEnd}
		if got != w {
			t.Errorf("single %d: got %+v, want %+v", i, got, w)
		}
	}

	if st := s.States[0]; st.TexecStart != 1 || st.TexecEnd != 2 {
		t.Errorf("state 0: got links (%d, %d), want (1, 2)", st.TexecStart, st.TexecEnd)
	}
	if st := s.States[1]; st.TexecStart != 1 || st.TexecEnd != 2 {
		t.Errorf("state 1: got links (%d, %d), want (1, 2)", st.TexecStart, st.TexecEnd)
	}
	if c := s.Comms[0]; c.TexecStart != 1 {
		t.Errorf("comm 0: got texec start %d, want 1", c.TexecStart)
	}
	if c := s.Comms[1]; c.TexecStart != NoEvent {
		t.Errorf("comm 1: got texec start %d, want %d", c.TexecStart, NoEvent)
	}
	if n := len(s.Executions()); n != 2 {
		t.Errorf("got %d executions, want 2", n)
	}
}

func TestLinkTaskExecutionBoundsErrors(t *testing.T) {
	s := New(0)
	s.AddSingle(Single{Time: 0, Kind: SingleTexecStart})
	if err := s.LinkTaskExecutionBounds(); !errors.Is(err, ErrUnterminatedExecution) {
		t.Errorf("got %v, want %v", err, ErrUnterminatedExecution)
	}

	s = New(0)
	s.AddSingle(Single{Time: 0, Kind: SingleTexecStart, Frame: 1})
	s.AddSingle(Single{Time: 1, Kind: SingleTexecEnd, Frame: 2})
	if err := s.LinkTaskExecutionBounds(); !errors.Is(err, ErrFrameMismatch) {
		t.Errorf("got %v, want %v", err, ErrFrameMismatch)
	}
}

func TestNextTexecStartForFrame(t *testing.T) {
	const ntasks = 11
	const nframes = 3

	s := New(0)
	durations := make([]Timestamp, ntasks)
	for i := range durations {
		durations[i] = 1000
	}
	at := Timestamp(0)
	for i := range ntasks {
		frame := uint64(i % nframes)
		s.AddSingle(Single{Time: at, Kind: SingleTexecStart, Frame: frame})
		s.AddSingle(Single{Time: at + 1000, Kind: SingleTexecEnd, Frame: frame})
		at += 2000
	}
	if err := s.LinkTaskExecutionBounds(); err != nil {
		t.Fatal(err)
	}

	if got := s.NextTexecStartForFrame(0, 0xc0ffee); got != NoEvent {
		t.Errorf("unused frame: got %d, want %d", got, NoEvent)
	}
	if got := s.NextTexecStartForFrame(2*ntasks*1000, 0); got != NoEvent {
		t.Errorf("after last execution: got %d, want %d", got, NoEvent)
	}

	for i := range ntasks {
		this := i % nframes
		for j := range nframes {
			if i+j >= ntasks {
				continue
			}
			next := uint64((this + j) % nframes)
			want := Timestamp(2 * (i + j) * 1000)

			idx := s.NextTexecStartForFrame(Timestamp(2*i*1000), next)
			if idx == NoEvent || s.Singles[idx].Time != want {
				t.Fatalf("NextTexecStartForFrame(%d, %d): got event %d, want time %d", 2*i*1000, next, idx, want)
			}
			if i > 0 {
				idx = s.NextTexecStartForFrame(Timestamp(2*i*1000-1), next)
				if idx == NoEvent || s.Singles[idx].Time != want {
					t.Fatalf("NextTexecStartForFrame(%d, %d): got event %d, want time %d", 2*i*1000-1, next, idx, want)
				}
			}
		}
		if i+nframes < ntasks {
			idx := s.NextTexecStartForFrame(Timestamp(2*i*1000+1), uint64(this))
			if want := Timestamp(2 * (i + nframes) * 1000); idx == NoEvent || s.Singles[idx].Time != want {
				t.Fatalf("NextTexecStartForFrame(%d, %d): got event %d, want time %d", 2*i*1000+1, this, idx, want)
			}
		}
	}
}

func TestAverageTaskLength(t *testing.T) {
	s := New(0)
	addTasks(t, s, []Timestamp{1000, 1000, 100, 200, 300}, 1000, 1000)

	tests := []struct {
		start, end Timestamp
		avg        Timestamp
		count      float64
	}{
		{0, 999, 0, 0},
		{1000, 2000, 1000, 1},
		{1000, 1900, 1000, 0.9},
		{1100, 2000, 1000, 0.9},
		{999, 2001, 1000, 1},
		{1000, 4000, 1000, 2},
		{1000, 3900, 1000, 1.9},
		{1100, 4000, 1000, 1.9},
		{999, 4001, 1000, 2},
		{3000, 5100, (1000 + 100) / 2, 2},
		{3500, 5100, ((1000/2 + 100) * 2) / 3, 1.5},
		{1000, 7600, 520, 5},
	}
	for _, tt := range tests {
		avg, count := s.AverageTaskLength(nil, tt.start, tt.end)
		if avg != tt.avg || count < tt.count-0.00001 || count > tt.count+0.00001 {
			t.Errorf("AverageTaskLength(%d, %d): got (%d, %g), want (%d, %g)", tt.start, tt.end, avg, count, tt.avg, tt.count)
		}
	}
}

func TestMinMaxTaskDuration(t *testing.T) {
	s := New(0)
	addTasks(t, s, []Timestamp{1000, 999, 100, 200, 300}, 1000, 1000)

	tests := []struct {
		start, end Timestamp
		lo, hi     Timestamp
		ok         bool
	}{
		{0, 100, 0, 0, false},
		{1001, 1999, 0, 0, false},
		{1000, 1999, 0, 0, false},
		{999, 1999, 0, 0, false},
		{1000, 2000, 1000, 1000, true},
		{1000, 3100, 1000, 1000, true},
		{1000, 3999, 999, 1000, true},
		{2500, 3999, 999, 999, true},
		{1000, 5099, 100, 1000, true},
		{1000, 15099, 100, 1000, true},
	}
	for _, tt := range tests {
		lo, hi, ok := s.MinMaxTaskDuration(nil, tt.start, tt.end)
		if ok != tt.ok || lo != tt.lo || hi != tt.hi {
			t.Errorf("MinMaxTaskDuration(%d, %d): got (%d, %d, %t), want (%d, %d, %t)", tt.start, tt.end, lo, hi, ok, tt.lo, tt.hi, tt.ok)
		}
		if lo2, ok2 := s.MinTaskDuration(nil, tt.start, tt.end); lo2 != lo || ok2 != ok {
			t.Errorf("MinTaskDuration(%d, %d) disagrees with MinMaxTaskDuration", tt.start, tt.end)
		}
		if hi2, ok2 := s.MaxTaskDuration(nil, tt.start, tt.end); hi2 != hi || ok2 != ok {
			t.Errorf("MaxTaskDuration(%d, %d) disagrees with MinMaxTaskDuration", tt.start, tt.end)
		}
	}
}

func TestTaskDurations(t *testing.T) {
	s := New(0)
	for i, task := range []uint64{1, 2, 1} {
		at := Timestamp(i * 2000)
		s.AddSingle(Single{Time: at, Kind: SingleTexecStart, Task: task})
		s.AddSingle(Single{Time: at + 1000, Kind: SingleTexecEnd, Task: task})
	}
	if err := s.LinkTaskExecutionBounds(); err != nil {
		t.Fatal(err)
	}

	out := map[uint64]Timestamp{}
	s.TaskDurations(nil, 500, 4500, out)
	if out[1] != 500+500 || out[2] != 1000 {
		t.Errorf("got %v, want map[1:1000 2:1000]", out)
	}

	out = map[uint64]Timestamp{}
	s.TaskDurations(TaskFilter(2), 0, 10000, out)
	if len(out) != 1 || out[2] != 1000 {
		t.Errorf("with filter: got %v, want map[2:1000]", out)
	}
}

func TestNUMABytes(t *testing.T) {
	s := New(0)
	for i := range 10 {
		s.AddComm(Comm{Time: Timestamp(i * 100), Kind: CommDataRead + CommKind(i%2), Size: 10, What: uint64(i % 3)})
	}
	nodeOf := func(addr uint64) (int, bool) {
		if addr == 2 {
			return 0, false
		}
		return int(addr), true
	}

	bytes := make([]uint64, 2)
	if !s.NUMABytes(nil, []CommKind{CommDataRead}, 0, 1000, nodeOf, bytes) {
		t.Fatalf("no bytes accounted for")
	}
	// reads at i = 0, 2, 4, 6, 8 with addresses 0, 2, 1, 0, 2
	if bytes[0] != 20 || bytes[1] != 10 {
		t.Errorf("got %v, want [20 10]", bytes)
	}

	if node, ok := s.MajorNUMANode(nil, []CommKind{CommDataRead, CommDataWrite}, 0, 1000, nodeOf, 2); !ok || node != 0 {
		t.Errorf("MajorNUMANode: got (%d, %t), want (0, true)", node, ok)
	}
	if _, ok := s.MajorNUMANode(nil, []CommKind{CommSteal}, 0, 1000, nodeOf, 2); ok {
		t.Errorf("MajorNUMANode found a node without steals")
	}
}

func BenchmarkStateDurations(b *testing.B) {
	s := New(0)
	addStates(b, s, 100_000, 8)
	durations := make([]Timestamp, s.NumStates)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.StateDurations(nil, 50_000_000, 60_000_000, durations, true, false)
	}
}
