package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/astar-playground/pathfind/engine"
)

func TestRunCounters(t *testing.T) {
	m := New()

	m.RunStarted()
	m.RunStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.activeRuns))

	m.RunFinished(engine.Result{Outcome: engine.OutcomeFound, TotalCost: 56, Elapsed: 3 * time.Millisecond})
	m.RunFinished(engine.Result{Outcome: engine.OutcomeStopped, TotalCost: engine.Unknown})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeRuns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsFinished.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsFinished.WithLabelValues("stopped")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runsFinished.WithLabelValues("no_path")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.runDuration))
}

func TestSinkCountsExpansions(t *testing.T) {
	m := New()
	eng, err := engine.New(5, 3,
		engine.WithStart(engine.Coordinate{X: 0, Y: 1}),
		engine.WithDestination(engine.Coordinate{X: 4, Y: 1}),
		engine.WithDiagonal(false),
	)
	require.NoError(t, err)

	m.RunStarted()
	res, err := eng.CalcPath(context.Background(), engine.RunOptions{Sink: m.Sink()})
	require.NoError(t, err)

	assert.Equal(t, float64(res.Steps), testutil.ToFloat64(m.expansions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsFinished.WithLabelValues("found")))
}

func TestGauges(t *testing.T) {
	m := New()
	m.SetActiveSessions(3)
	m.ClientConnected()
	m.ClientConnected()
	m.ClientDisconnected()
	m.EventDropped()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wsClients))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsDropped))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RunStarted()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "astar_runs_started_total 1")
	assert.Contains(t, string(body), "astar_active_runs 1")

	err = testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP astar_ws_events_dropped_total WebSocket events dropped because a queue was full
# TYPE astar_ws_events_dropped_total counter
astar_ws_events_dropped_total 0
`), "astar_ws_events_dropped_total")
	assert.NoError(t, err)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RunStarted()
		m.RunFinished(engine.Result{})
		m.Expanded()
		m.SetActiveSessions(1)
		m.EventDropped()
		m.ClientConnected()
		m.ClientDisconnected()
		sink := m.Sink()
		sink.OnStep(engine.StepEvent{})
		sink.OnFinish(engine.Result{})
	})
	assert.Nil(t, m.Registry())
}
