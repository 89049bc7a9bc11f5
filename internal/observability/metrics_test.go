package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.ObservePipeline("ok")
	m.ObserveStage(StageTotal, time.Second)
	m.ObserveStoreOp("memory", "save", errors.New("boom"))
	m.ObserveHydration("found")
	m.SetCachedTranscripts(3)
	m.ObserveBotEvent("chat")
	assert.NotNil(t, m.SnapshotStages().Stages)
}

func TestMetricsHandlerExposesInstruments(t *testing.T) {
	// Two instances with the same namespace must not panic on registration.
	_ = NewMetrics("tojibot_test")
	m := NewMetrics("tojibot_test")

	m.ObservePipeline("ok")
	m.ObserveStoreOp("postgres", "save", nil)
	m.ObserveStage(StageCompletion, 120*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `tojibot_test_pipeline_runs_total{outcome="ok"} 1`), text)
	assert.True(t, strings.Contains(text, `tojibot_test_store_operations_total{op="save",outcome="ok",store="postgres"} 1`), text)

	snap := m.SnapshotStages()
	require.Len(t, snap.Stages, 1)
	assert.Equal(t, StageCompletion, snap.Stages[0].Stage)
	assert.Equal(t, 120.0, snap.Stages[0].LastMS)
}
