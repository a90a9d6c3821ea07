// Command tracestore generates, inspects and queries trace snapshots.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"honnef.co/go/tracestore/config"
	"honnef.co/go/tracestore/eventset"
	"honnef.co/go/tracestore/query"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger log.Logger
	stdout io.Writer
	stderr io.Writer
}

func newLogger(w io.Writer, lvl string) (log.Logger, error) {
	var opt level.Option
	switch lvl {
	case "debug":
		opt = level.AllowDebug()
	case "info":
		opt = level.AllowInfo()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	case "none":
		opt = level.AllowNone()
	default:
		return nil, fmt.Errorf("unknown log level %q", lvl)
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	return level.NewFilter(logger, opt), nil
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "tracestore",
		Short:         "Store and query execution traces of task-parallel programs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if a.logger, err = newLogger(a.stderr, a.logLevel); err != nil {
				return err
			}
			if a.cfg, err = config.Load(a.configPath); err != nil {
				return err
			}
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error, none)")

	root.AddCommand(
		a.genCmd(),
		a.statCmd(),
		a.queryCmd(),
		a.dumpTaskCountersCmd(),
		a.serveCmd(),
	)
	return root
}

// loadTrace reads a snapshot and builds its indices.
func (a *app) loadTrace(ctx context.Context, path string, reg prometheus.Registerer, progress func(float64)) (*query.Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	snap, err := eventset.ReadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	level.Debug(a.logger).Log("msg", "read snapshot", "path", path, "trace", snap.ID, "lanes", len(snap.Sets))

	tr := query.FromSnapshot(snap, query.Options{
		Config:     a.cfg,
		Logger:     a.logger,
		Registerer: reg,
	})
	if err := tr.BuildIndexes(ctx, progress); err != nil {
		return nil, err
	}
	return tr, nil
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tracestore:", err)
		os.Exit(1)
	}
}
