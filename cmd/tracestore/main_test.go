package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"honnef.co/go/tracestore/config"
	"honnef.co/go/tracestore/eventset"
	"honnef.co/go/tracestore/query"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

var smallTrace = []string{"--lanes", "2", "--states", "500", "--tasks", "50", "--comms", "100", "--samples", "300"}

// genTrace writes a small synthetic snapshot and returns its path together with the trace it contains.
func genTrace(t *testing.T, extra ...string) (string, *query.Trace) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.tsnp")
	args := append([]string{"gen", "-o", path}, smallTrace...)
	out, err := run(t, append(args, extra...)...)
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(out))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	snap, err := eventset.ReadSnapshot(f)
	require.NoError(t, err)
	require.Equal(t, strings.TrimSpace(out), snap.ID.String())
	tr := query.FromSnapshot(snap, query.Options{})
	require.NoError(t, tr.BuildIndexes(context.Background(), nil))
	return path, tr
}

func TestGenDeterministic(t *testing.T) {
	opts := genOptions{lanes: 2, states: 100, numStates: 3, tasks: 10, comms: 20, counters: 1, samples: 100, seed: 7}
	a, err := generate(opts)
	require.NoError(t, err)
	b, err := generate(opts)
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)
	require.Len(t, a.Sets, 2)
	for i := range a.Sets {
		require.Equal(t, a.Sets[i].States, b.Sets[i].States)
		require.Equal(t, a.Sets[i].Counters, b.Sets[i].Counters)
		require.Len(t, a.Sets[i].States, 100)
		require.Len(t, a.Sets[i].Singles, 20)
		for j := 1; j < len(a.Sets[i].States); j++ {
			require.Greater(t, a.Sets[i].States[j].Start, a.Sets[i].States[j-1].End)
		}
	}

	_, err = generate(genOptions{lanes: 1, numStates: 1, states: 5, tasks: 10})
	require.Error(t, err)
}

func TestGenCompression(t *testing.T) {
	for _, c := range []string{"none", "snappy", "zstd"} {
		t.Run(c, func(t *testing.T) {
			genTrace(t, "--compression", c)
		})
	}
	_, err := run(t, "gen", "-o", filepath.Join(t.TempDir(), "x"), "--compression", "lz4")
	require.ErrorContains(t, err, "lz4")
}

func TestStat(t *testing.T) {
	path, tr := genTrace(t)
	out, err := run(t, "stat", "--quiet", path)
	require.NoError(t, err)
	require.Contains(t, out, "trace "+tr.ID.String())
	require.Contains(t, out, "lane 0: 500 states, 100 comms, 100 singles, 2 counters, 3 annotations, 50 executions")
	require.Contains(t, out, "lane 1:")
}

func TestStatRejectsHugeStateID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tsnp")
	f, err := os.Create(path)
	require.NoError(t, err)
	set := &eventset.Set{States: []eventset.State{{Start: 0, End: 10, ID: 1 << 50}}}
	require.NoError(t, eventset.WriteSnapshot(f, &eventset.Snapshot{Sets: []*eventset.Set{set}}, eventset.CompressionSnappy))
	require.NoError(t, f.Close())

	_, err = run(t, "stat", "--quiet", path)
	require.ErrorIs(t, err, eventset.ErrBadSnapshot)
}

func TestQueryCommands(t *testing.T) {
	path, tr := genTrace(t)
	start, end, ok := tr.Lanes[1].Events.Bounds()
	require.True(t, ok)
	mid := start + (end-start)/2
	s, e := fmt.Sprint(start+(end-start)/10), fmt.Sprint(mid)

	lo, hi, err := tr.CounterMinMax(1, 1, int64(start+(end-start)/10), int64(mid))
	require.NoError(t, err)
	out, err := run(t, "query", "counter", path, "--lane", "1", "--counter", "1", "--start", s, "--end", e)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("%d %d\n", lo, hi), out)

	_, err = run(t, "query", "counter", path, "--lane", "1", "--counter", "1", "--start", s, "--end", e, "--slope")
	require.NoError(t, err)

	durations, _, err := tr.StateDurations(1, start+(end-start)/10, mid)
	require.NoError(t, err)
	out, err = run(t, "query", "states", path, "--lane", "1", "--start", s, "--end", e)
	require.NoError(t, err)
	var want strings.Builder
	for id, d := range durations {
		fmt.Fprintf(&want, "%d %d\n", id, d)
	}
	require.Equal(t, want.String(), out)

	state, err := tr.MajorState(1, start+(end-start)/10, mid)
	require.NoError(t, err)
	out, err = run(t, "query", "major", path, "--lane", "1", "--start", s, "--end", e)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintln(state), out)

	_, err = run(t, "query", "states", path, "--start", "10", "--end", "5")
	require.ErrorIs(t, err, eventset.ErrInvalidInterval)
	_, err = run(t, "query", "major", path, "--lane", "9", "--end", "5")
	require.ErrorIs(t, err, query.ErrNoLane)
	_, err = run(t, "query", "major", path)
	require.ErrorContains(t, err, "end")
}

func TestDumpTaskCounters(t *testing.T) {
	path, tr := genTrace(t)
	var want bytes.Buffer
	require.NoError(t, tr.DumpTaskCounters(&want, 0))
	out, err := run(t, "dump-task-counters", path, "--counter", "0")
	require.NoError(t, err)
	require.Equal(t, want.String(), out)
	require.NotEmpty(t, out)
}

func TestConfigAndLogLevel(t *testing.T) {
	path, _ := genTrace(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("state_index: {factor: 0}\n"), 0o644))
	_, err := run(t, "--config", cfgPath, "stat", "-q", path)
	require.ErrorContains(t, err, "state_index.factor")

	_, err = run(t, "--log-level", "loud", "stat", "-q", path)
	require.ErrorContains(t, err, "loud")

	_, err = run(t, "--log-level", "debug", "stat", "-q", path)
	require.NoError(t, err)
}

func TestServeHandler(t *testing.T) {
	path, _ := genTrace(t)
	reg := prometheus.NewRegistry()
	a := &app{cfg: config.Default(), logger: log.NewNopLogger()}
	tr, err := a.loadTrace(context.Background(), path, reg, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(newHandler(tr, reg, a.logger))
	defer srv.Close()

	get := func(path string, v any) int {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		if v != nil {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
		}
		return resp.StatusCode
	}

	start, end, _ := tr.Lanes[0].Events.Bounds()
	var cr counterResponse
	require.Equal(t, http.StatusOK, get(fmt.Sprintf("/query/counter?lane=0&counter=0&start=%d&end=%d", start, end), &cr))
	require.NotNil(t, cr.Min)
	require.NotNil(t, cr.Max)
	require.LessOrEqual(t, *cr.Min, *cr.Max)

	var sr statesResponse
	require.Equal(t, http.StatusOK, get(fmt.Sprintf("/query/states?lane=0&start=%d&end=%d", start, end), &sr))
	require.True(t, sr.HasState)
	require.Len(t, sr.Durations, tr.NumStates)

	var mr majorResponse
	require.Equal(t, http.StatusOK, get(fmt.Sprintf("/query/major?lane=0&start=%d&end=%d", start, end), &mr))
	require.Less(t, mr.State, tr.NumStates)

	var er errorResponse
	require.Equal(t, http.StatusBadRequest, get("/query/major?lane=x&start=0&end=1", &er))
	require.Contains(t, er.Error, "lane")
	require.Equal(t, http.StatusNotFound, get("/query/major?lane=7&start=0&end=1", &er))
	require.Equal(t, http.StatusNotFound, get(fmt.Sprintf("/query/counter?lane=0&counter=0&start=%d&end=%d", end+1000, end+2000), nil))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Contains(t, body.String(), "tracestore_queries_total")
}
