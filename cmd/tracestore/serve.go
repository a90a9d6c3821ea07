package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"honnef.co/go/tracestore/counterindex"
	"honnef.co/go/tracestore/eventset"
	"honnef.co/go/tracestore/query"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve <snapshot>",
		Short: "Serve range queries and metrics over HTTP",
		Long: `Serve range queries and metrics over HTTP.

Endpoints:
  /metrics                                   Prometheus metrics
  /query/counter?lane=&counter=&start=&end=  counter value range, add slope=1 for slopes
  /query/states?lane=&start=&end=            time per state
  /query/major?lane=&start=&end=             major state`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Serve.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			tr, err := a.loadTrace(ctx, args[0], reg, nil)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           newHandler(tr, reg, a.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			level.Info(a.logger).Log("msg", "serving", "addr", addr, "trace", tr.ID)

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			level.Info(a.logger).Log("msg", "shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address; defaults to serve.addr")
	return cmd
}

type counterResponse struct {
	Lane    int   `json:"lane"`
	Counter int   `json:"counter"`
	Start   int64 `json:"start"`
	End     int64 `json:"end"`
	// Either Min and Max or MinSlope and MaxSlope are set.
	Min      *int64   `json:"min,omitempty"`
	Max      *int64   `json:"max,omitempty"`
	MinSlope *float64 `json:"min_slope,omitempty"`
	MaxSlope *float64 `json:"max_slope,omitempty"`
}

type statesResponse struct {
	Lane      int                  `json:"lane"`
	Start     eventset.Timestamp   `json:"start"`
	End       eventset.Timestamp   `json:"end"`
	HasState  bool                 `json:"has_state"`
	Durations []eventset.Timestamp `json:"durations"`
}

type majorResponse struct {
	Lane  int                `json:"lane"`
	Start eventset.Timestamp `json:"start"`
	End   eventset.Timestamp `json:"end"`
	State int                `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type params struct {
	r   *http.Request
	err error
}

func (p *params) int(name string) int64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(p.r.URL.Query().Get(name), 10, 64)
	if err != nil {
		p.err = fmt.Errorf("parameter %q: %w", name, err)
	}
	return v
}

func (p *params) timestamp(name string) eventset.Timestamp {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(p.r.URL.Query().Get(name), 10, 64)
	if err != nil {
		p.err = fmt.Errorf("parameter %q: %w", name, err)
	}
	return eventset.Timestamp(v)
}

func newHandler(tr *query.Trace, reg *prometheus.Registry, logger log.Logger) http.Handler {
	reply := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(v); err != nil {
			level.Warn(logger).Log("msg", "writing response failed", "err", err)
		}
	}
	fail := func(w http.ResponseWriter, err error) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, strconv.ErrSyntax), errors.Is(err, strconv.ErrRange), errors.Is(err, eventset.ErrInvalidInterval):
			status = http.StatusBadRequest
		case errors.Is(err, query.ErrNoLane), errors.Is(err, query.ErrNoCounter),
			errors.Is(err, counterindex.ErrNoData), errors.Is(err, query.ErrNoStateData):
			status = http.StatusNotFound
		}
		reply(w, status, errorResponse{err.Error()})
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /query/counter", func(w http.ResponseWriter, r *http.Request) {
		p := &params{r: r}
		resp := counterResponse{
			Lane:    int(p.int("lane")),
			Counter: int(p.int("counter")),
			Start:   p.int("start"),
			End:     p.int("end"),
		}
		if p.err != nil {
			fail(w, p.err)
			return
		}
		if r.URL.Query().Get("slope") == "1" {
			lo, hi, err := tr.CounterSlopeMinMax(resp.Lane, resp.Counter, resp.Start, resp.End)
			if err != nil {
				fail(w, err)
				return
			}
			resp.MinSlope, resp.MaxSlope = &lo, &hi
		} else {
			lo, hi, err := tr.CounterMinMax(resp.Lane, resp.Counter, resp.Start, resp.End)
			if err != nil {
				fail(w, err)
				return
			}
			resp.Min, resp.Max = &lo, &hi
		}
		reply(w, http.StatusOK, resp)
	})
	mux.HandleFunc("GET /query/states", func(w http.ResponseWriter, r *http.Request) {
		p := &params{r: r}
		resp := statesResponse{Lane: int(p.int("lane")), Start: p.timestamp("start"), End: p.timestamp("end")}
		if p.err != nil {
			fail(w, p.err)
			return
		}
		var err error
		resp.Durations, resp.HasState, err = tr.StateDurations(resp.Lane, resp.Start, resp.End)
		if err != nil {
			fail(w, err)
			return
		}
		reply(w, http.StatusOK, resp)
	})
	mux.HandleFunc("GET /query/major", func(w http.ResponseWriter, r *http.Request) {
		p := &params{r: r}
		resp := majorResponse{Lane: int(p.int("lane")), Start: p.timestamp("start"), End: p.timestamp("end")}
		if p.err != nil {
			fail(w, p.err)
			return
		}
		var err error
		if resp.State, err = tr.MajorState(resp.Lane, resp.Start, resp.End); err != nil {
			fail(w, err)
			return
		}
		reply(w, http.StatusOK, resp)
	})
	return mux
}
