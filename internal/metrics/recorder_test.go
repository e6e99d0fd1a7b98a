package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveExportDuration("text", time.Second)
	r.ObserveStageDuration("compose", time.Millisecond)
	r.IncExportOutcome("text", "completed")
	r.SetQueueDepth(3)
	r.IncArtifactEvicted()
}

func TestPrometheusRecorderRegisters(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveExportDuration("markdown", 2*time.Second)
	pr.ObserveStageDuration("render", 100*time.Millisecond)
	pr.IncExportOutcome("markdown", "completed")
	pr.IncExportOutcome("markdown", "failed")
	pr.SetQueueDepth(7)
	pr.IncArtifactEvicted()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"bookbinder_export_duration_seconds",
		"bookbinder_export_stage_duration_seconds",
		"bookbinder_export_outcomes_total",
		"bookbinder_export_queue_depth",
		"bookbinder_artifacts_evicted_total",
	} {
		require.True(t, names[want], "missing metric family %s", want)
	}
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveExportDuration("text", time.Second)
	pr.IncExportOutcome("text", "failed")
	pr.SetQueueDepth(0)
	pr.IncArtifactEvicted()
}
