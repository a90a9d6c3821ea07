package main

import (
	"io"
	"time"

	"honnef.co/go/tracestore/eventset"
	"honnef.co/go/tracestore/query"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newProgressBar(w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(1000,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (a *app) statCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "stat <snapshot>",
		Short: "Build indices and print per-lane statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var progress func(float64)
			if !quiet {
				bar := newProgressBar(cmd.ErrOrStderr(), "building indices")
				defer bar.Finish()
				progress = func(f float64) { bar.Set(int(f * 1000)) }
			}
			tr, err := a.loadTrace(cmd.Context(), args[0], nil, progress)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), tr)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Don't show progress")
	return cmd
}

func printStats(w io.Writer, tr *query.Trace) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "trace %s\n", tr.ID)
	if start, end, ok := tr.Bounds(); ok {
		p.Fprintf(w, "span [%d, %d], %d lanes, %d states, counters %v\n", start, end, len(tr.Lanes), tr.NumStates, tr.CounterIDs())
	}
	for _, l := range tr.Lanes {
		s := l.Events
		p.Fprintf(w, "lane %d: %d states, %d comms, %d singles, %d counters, %d annotations, %d executions, %d state index rows\n",
			s.Lane, len(s.States), len(s.Comms), len(s.Singles), len(s.Counters), s.NumAnnotations(), len(s.Executions()), l.States.Rows().Rows())

		start, end, ok := s.Bounds()
		if !ok {
			continue
		}
		if avg, n := s.AverageTaskLength(nil, start, end); n > 0 {
			lo, hi, _ := s.MinMaxTaskDuration(nil, start, end)
			p.Fprintf(w, "  tasks: %.1f executions, average %d, min %d, max %d\n", n, avg, lo, hi)
		}
		if ok, id := s.CountersMonotonic(); !ok {
			p.Fprintf(w, "  counter %d is not monotonic\n", id)
		}
		durations := make([]eventset.Timestamp, tr.NumStates)
		if l.States.StateDurations(start, end, durations, true, false) {
			for id, d := range durations {
				p.Fprintf(w, "  state %d: %d (%.1f%%)\n", id, d, 100*float64(d)/float64(max(end-start, 1)))
			}
		}
	}
}
