package main

import (
	"fmt"

	"honnef.co/go/tracestore/eventset"

	"github.com/spf13/cobra"
)

type rangeFlags struct {
	lane       int
	start, end int64
}

func (rf *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&rf.lane, "lane", 0, "Lane to query")
	cmd.Flags().Int64Var(&rf.start, "start", 0, "Start of the interval")
	cmd.Flags().Int64Var(&rf.end, "end", 0, "End of the interval")
	cmd.MarkFlagRequired("end")
}

// timestamps converts the interval for state queries, which don't accept negative bounds.
func (rf *rangeFlags) timestamps() (eventset.Timestamp, eventset.Timestamp, error) {
	if rf.start < 0 || rf.end < rf.start {
		return 0, 0, fmt.Errorf("[%d, %d]: %w", rf.start, rf.end, eventset.ErrInvalidInterval)
	}
	return eventset.Timestamp(rf.start), eventset.Timestamp(rf.end), nil
}

func (a *app) queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run range queries against a snapshot",
	}
	cmd.AddCommand(a.queryCounterCmd(), a.queryStatesCmd(), a.queryMajorCmd())
	return cmd
}

func (a *app) queryCounterCmd() *cobra.Command {
	var (
		rf      rangeFlags
		counter int
		slope   bool
	)
	cmd := &cobra.Command{
		Use:   "counter <snapshot>",
		Short: "Print the minimum and maximum value or slope of a counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := a.loadTrace(cmd.Context(), args[0], nil, nil)
			if err != nil {
				return err
			}
			if slope {
				lo, hi, err := tr.CounterSlopeMinMax(rf.lane, counter, rf.start, rf.end)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%g %g\n", lo, hi)
				return nil
			}
			lo, hi, err := tr.CounterMinMax(rf.lane, counter, rf.start, rf.end)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %d\n", lo, hi)
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().IntVar(&counter, "counter", 0, "Counter ID")
	cmd.Flags().BoolVar(&slope, "slope", false, "Query the slope instead of the value")
	return cmd
}

func (a *app) queryStatesCmd() *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "states <snapshot>",
		Short: "Print the time spent in each state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := rf.timestamps()
			if err != nil {
				return err
			}
			tr, err := a.loadTrace(cmd.Context(), args[0], nil, nil)
			if err != nil {
				return err
			}
			durations, ok, err := tr.StateDurations(rf.lane, start, end)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no states")
				return nil
			}
			for id, d := range durations {
				fmt.Fprintf(cmd.OutOrStdout(), "%d %d\n", id, d)
			}
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func (a *app) queryMajorCmd() *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "major <snapshot>",
		Short: "Print the state occupying most of the interval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := rf.timestamps()
			if err != nil {
				return err
			}
			tr, err := a.loadTrace(cmd.Context(), args[0], nil, nil)
			if err != nil {
				return err
			}
			state, err := tr.MajorState(rf.lane, start, end)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), state)
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func (a *app) dumpTaskCountersCmd() *cobra.Command {
	var counter int
	cmd := &cobra.Command{
		Use:   "dump-task-counters <snapshot>",
		Short: "Print the change of a counter during every task execution",
		Long: `Print one line per task execution on lanes that sample the counter:

  task counter lane duration nb_events

counter is the change of the counter's value over the execution and nb_events
the number of samples taken during it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := a.loadTrace(cmd.Context(), args[0], nil, nil)
			if err != nil {
				return err
			}
			return tr.DumpTaskCounters(cmd.OutOrStdout(), counter)
		},
	}
	cmd.Flags().IntVar(&counter, "counter", 0, "Counter ID")
	return cmd
}
