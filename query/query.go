// Package query ties the event sets of a trace to their indices and answers range queries against them, caching
// results.
package query

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"honnef.co/go/tracestore/config"
	"honnef.co/go/tracestore/container"
	"honnef.co/go/tracestore/counterindex"
	"honnef.co/go/tracestore/eventset"
	"honnef.co/go/tracestore/mysync"
	"honnef.co/go/tracestore/stateindex"
	"honnef.co/go/tracestore/tinylfu"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoLane      = errors.New("no such lane")
	ErrNoCounter   = errors.New("no such counter")
	ErrNotIndexed  = errors.New("indices haven't been built")
	ErrNoStateData = errors.New("no state events in interval")
)

// Lane is the event set of one lane together with its indices. BuildIndexes replaces States and Counters; reading
// them directly must not overlap with a build. Queries through Trace are safe at any time.
type Lane struct {
	Events   *eventset.Set
	States   *stateindex.Index
	Counters map[int]*counterindex.Index
}

type Trace struct {
	ID    uuid.UUID
	Lanes []*Lane
	// Number of distinct states across all lanes.
	NumStates int

	cfg     *config.Config
	logger  log.Logger
	metrics *Metrics
	cache   *mysync.Mutex[*tinylfu.T[cacheKey, result]]
	linked  []sync.Once

	// mu guards indexed and the indices of all lanes. gen counts published builds and is part of every cache key.
	mu      sync.RWMutex
	indexed bool
	gen     atomic.Uint64
}

type Options struct {
	Config *config.Config
	Logger log.Logger
	// Metrics are registered with Registerer if it is not nil.
	Registerer prometheus.Registerer
}

// New returns a trace consisting of the given event sets, one per lane. A zero ID is replaced with a random one.
// Call BuildIndexes before issuing queries.
func New(id uuid.UUID, sets []*eventset.Set, opts Options) *Trace {
	if id == uuid.Nil {
		id = uuid.New()
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	tr := &Trace{
		ID:      id,
		cfg:     opts.Config,
		logger:  log.With(opts.Logger, "trace", id),
		metrics: NewMetrics(opts.Registerer),
	}
	for _, s := range sets {
		tr.Lanes = append(tr.Lanes, &Lane{Events: s})
		tr.NumStates = max(tr.NumStates, s.NumStates)
	}
	tr.linked = make([]sync.Once, len(tr.Lanes))
	if size := opts.Config.Cache.Size; size > 0 {
		tr.cache = mysync.NewMutex(tinylfu.New[cacheKey, result](size, opts.Config.Cache.Samples))
	}
	return tr
}

func FromSnapshot(snap *eventset.Snapshot, opts Options) *Trace {
	return New(snap.ID, snap.Sets, opts)
}

func (tr *Trace) Snapshot() *eventset.Snapshot {
	snap := &eventset.Snapshot{ID: tr.ID}
	for _, l := range tr.Lanes {
		snap.Sets = append(snap.Sets, l.Events)
	}
	return snap
}

func (tr *Trace) Config() *config.Config { return tr.cfg }
func (tr *Trace) Metrics() *Metrics      { return tr.metrics }

// Bounds returns the interval spanned by all lanes.
func (tr *Trace) Bounds() (start, end eventset.Timestamp, ok bool) {
	for _, l := range tr.Lanes {
		s, e, lok := l.Events.Bounds()
		if !lok {
			continue
		}
		if !ok {
			start, end, ok = s, e, true
			continue
		}
		start, end = min(start, s), max(end, e)
	}
	return start, end, ok
}

// CounterIDs returns the sorted IDs of all counters that have samples on any lane.
func (tr *Trace) CounterIDs() []int {
	ids := container.Set[int]{}
	for _, l := range tr.Lanes {
		for i := range l.Events.Counters {
			ids.Add(l.Events.Counters[i].ID)
		}
	}
	return container.Sorted(ids)
}

func (tr *Trace) Lane(i int) (*Lane, error) {
	if i < 0 || i >= len(tr.Lanes) {
		return nil, fmt.Errorf("lane %d of %d: %w", i, len(tr.Lanes), ErrNoLane)
	}
	return tr.Lanes[i], nil
}

func (tr *Trace) isIndexed() bool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return tr.indexed
}

// indexedLane returns a copy of lane i as of the latest published build.
func (tr *Trace) indexedLane(i int) (Lane, error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if !tr.indexed {
		return Lane{}, ErrNotIndexed
	}
	l, err := tr.Lane(i)
	if err != nil {
		return Lane{}, err
	}
	return *l, nil
}

// BuildIndexes links task executions and builds the state index and all counter indices of every lane. Lanes are
// processed concurrently by up to build.workers goroutines. progress, if not nil, is called with the fraction of
// completed lanes; calls are serialized.
//
// Queries may run concurrently with BuildIndexes. They use the previously built indices until all lanes have been
// rebuilt, which replaces them at once and discards cached results. If building fails, the previous indices stay in
// place.
func (tr *Trace) BuildIndexes(ctx context.Context, progress func(float64)) error {
	t0 := time.Now()
	workers := tr.cfg.Build.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var progressMu sync.Mutex
	done := 0
	report := func() {
		if progress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		done++
		progress(float64(done) / float64(len(tr.Lanes)))
	}

	built := make([]Lane, len(tr.Lanes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, l := range tr.Lanes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := tr.buildLane(ctx, i, &built[i]); err != nil {
				return fmt.Errorf("lane %d: %w", l.Events.Lane, err)
			}
			report()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		level.Error(tr.logger).Log("msg", "building indices failed", "err", err)
		return err
	}

	tr.mu.Lock()
	for i, l := range tr.Lanes {
		l.States, l.Counters = built[i].States, built[i].Counters
	}
	tr.indexed = true
	tr.gen.Add(1)
	tr.mu.Unlock()
	tr.purge()
	level.Info(tr.logger).Log("msg", "built indices", "lanes", len(tr.Lanes), "workers", workers, "duration", time.Since(t0))
	return nil
}

// buildLane builds the indices of lane i into out.
func (tr *Trace) buildLane(ctx context.Context, i int, out *Lane) error {
	l := tr.Lanes[i]
	logger := log.With(tr.logger, "lane", l.Events.Lane)
	tr.linked[i].Do(func() {
		if err := l.Events.LinkTaskExecutionBounds(); err != nil {
			// Executions are only needed for task statistics; the indices don't depend on them.
			level.Warn(logger).Log("msg", "couldn't link task executions", "err", err)
		}
	})

	t0 := time.Now()
	states, err := stateindex.New(l.Events, tr.NumStates, tr.cfg.StateIndex.Factor)
	if err != nil {
		return err
	}
	states.Update(nil)
	tr.metrics.BuildDuration.WithLabelValues("state").Observe(time.Since(t0).Seconds())

	counters := make(map[int]*counterindex.Index, len(l.Events.Counters))
	for ci := range l.Events.Counters {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := &l.Events.Counters[ci]
		t0 := time.Now()
		idx, err := counterindex.Build(c.Samples, tr.cfg.CounterIndex.FanOut)
		if err != nil {
			return fmt.Errorf("counter %d: %w", c.ID, err)
		}
		tr.metrics.BuildDuration.WithLabelValues("counter").Observe(time.Since(t0).Seconds())
		counters[c.ID] = idx
	}

	out.States = states
	out.Counters = counters
	level.Debug(logger).Log("msg", "built lane indices",
		"states", len(l.Events.States),
		"state_rows", states.Rows().Rows(),
		"counters", len(counters))
	return nil
}
