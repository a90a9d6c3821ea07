package main

import (
	"fmt"
	"math/rand"
	"os"

	"honnef.co/go/tracestore/eventset"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"honnef.co/go/stuff/math/mathutil"
)

type genOptions struct {
	lanes     int
	states    int
	numStates int
	tasks     int
	comms     int
	counters  int
	samples   int
	seed      int64
}

func (a *app) genCmd() *cobra.Command {
	var (
		opts        genOptions
		out         string
		compression string
	)
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Write a snapshot of a synthetic trace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if compression == "" {
				compression = a.cfg.Snapshot.Compression
			}
			c, err := eventset.ParseCompression(compression)
			if err != nil {
				return err
			}
			snap, err := generate(opts)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := eventset.WriteSnapshot(f, snap, c); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			level.Info(a.logger).Log("msg", "wrote snapshot", "path", out, "trace", snap.ID, "compression", c)
			fmt.Fprintln(cmd.OutOrStdout(), snap.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "trace.tsnp", "Output file")
	cmd.Flags().StringVar(&compression, "compression", "", "Snapshot compression (snappy, zstd, none); defaults to snapshot.compression")
	cmd.Flags().IntVar(&opts.lanes, "lanes", 4, "Number of lanes")
	cmd.Flags().IntVar(&opts.states, "states", 10000, "State events per lane")
	cmd.Flags().IntVar(&opts.numStates, "num-states", 4, "Number of distinct states")
	cmd.Flags().IntVar(&opts.tasks, "tasks", 1000, "Task executions per lane")
	cmd.Flags().IntVar(&opts.comms, "comms", 2000, "Communication events per lane")
	cmd.Flags().IntVar(&opts.counters, "counters", 2, "Counters per lane")
	cmd.Flags().IntVar(&opts.samples, "samples", 5000, "Samples per counter")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "Random seed")
	return cmd
}

// generate builds a random trace. State events of a lane follow each other without overlapping. Every task execution
// coincides with a state event, and counters ramp linearly between random levels.
func generate(opts genOptions) (*eventset.Snapshot, error) {
	if opts.lanes < 1 || opts.numStates < 1 || opts.states < 0 || opts.tasks > opts.states {
		return nil, fmt.Errorf("invalid generator options %+v", opts)
	}
	r := rand.New(rand.NewSource(opts.seed))
	snap := &eventset.Snapshot{ID: uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%+v", opts))}
	for lane := range opts.lanes {
		s := eventset.New(lane)
		if err := generateLane(r, s, opts); err != nil {
			return nil, fmt.Errorf("lane %d: %w", lane, err)
		}
		snap.Sets = append(snap.Sets, s)
	}
	return snap, nil
}

func generateLane(r *rand.Rand, s *eventset.Set, opts genOptions) error {
	t := eventset.Timestamp(r.Intn(1000))
	every := 0
	if opts.tasks > 0 {
		every = opts.states / opts.tasks
	}
	for i := range opts.states {
		start := t
		end := start + eventset.Timestamp(500+r.Intn(2000))
		task := uint64(0)
		if every > 0 && i%every == 0 && i/every < opts.tasks {
			task = 0x1000 + uint64(r.Intn(16))*0x40
			s.AddSingle(eventset.Single{Time: start, Kind: eventset.SingleTexecStart, Task: task, Frame: task})
			s.AddSingle(eventset.Single{Time: end, Kind: eventset.SingleTexecEnd, Task: task, Frame: task})
		}
		if err := s.AddState(eventset.State{Start: start, End: end, ID: r.Intn(opts.numStates), Task: task, Frame: task}); err != nil {
			return err
		}
		t = end + eventset.Timestamp(1+r.Intn(100))
	}
	span := max(t, 1)

	ct := eventset.Timestamp(0)
	for range opts.comms {
		ct += eventset.Timestamp(r.Int63n(int64(2*span/eventset.Timestamp(opts.comms) + 1)))
		s.AddComm(eventset.Comm{
			Time: ct,
			Kind: eventset.CommKind(r.Intn(int(eventset.CommUnknown))),
			Size: uint64(64 << r.Intn(8)),
			Src:  s.Lane,
			Dst:  r.Intn(opts.lanes),
			What: uint64(r.Intn(1 << 20)),
		})
	}

	for c := range opts.counters {
		if opts.samples == 0 {
			break
		}
		const segment = 50
		step := max(span/eventset.Timestamp(opts.samples), 1)
		from, to := int64(r.Intn(1000)), int64(r.Intn(1000))
		for i := range opts.samples {
			if i%segment == 0 && i > 0 {
				from, to = to, int64(r.Intn(1000))
			}
			v := mathutil.Lerp(from, to, float64(i%segment)/segment)
			if err := s.AddCounterSample(c, eventset.CounterSample{Time: eventset.Timestamp(i) * step, Value: v}); err != nil {
				return err
			}
		}
	}

	for i := range 3 {
		s.AddAnnotation(eventset.Annotation{Time: span / 4 * eventset.Timestamp(i+1), Text: fmt.Sprintf("marker %d", i+1)})
	}
	return nil
}
