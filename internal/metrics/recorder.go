// Package metrics defines the observability hooks for the export pipeline.
package metrics

import "time"

// Recorder defines hooks for export and stage metrics. Implementations may
// forward to Prometheus; all methods must tolerate nil receivers when using
// NoopRecorder so injection stays optional.
type Recorder interface {
	ObserveExportDuration(format string, d time.Duration)
	ObserveStageDuration(stage string, d time.Duration)
	IncExportOutcome(format, outcome string) // outcome: completed|failed
	SetQueueDepth(n int)
	IncArtifactEvicted()
}

// NoopRecorder is the default Recorder when metrics are not configured.
type NoopRecorder struct{}

func (NoopRecorder) ObserveExportDuration(string, time.Duration) {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration)  {}
func (NoopRecorder) IncExportOutcome(string, string)             {}
func (NoopRecorder) SetQueueDepth(int)                           {}
func (NoopRecorder) IncArtifactEvicted()                         {}
