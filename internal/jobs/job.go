package jobs

import (
	"time"

	"github.com/inkfeather/bookbinder/internal/compose"
)

// Status is the export job lifecycle state. The only legal path is
// pending → processing → completed|failed; terminal states never change.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress milestones. Progress is advisory and coarse-grained, not a
// byte-level counter; it only ever increases while a job is live.
const (
	progressSubmitted = 0
	progressStarted   = 10
	progressComposed  = 50
	progressRendered  = 90
	progressPersisted = 100
)

// Job is the tracking record for one asynchronous export. The job manager
// exclusively owns these records; artifact bytes live with the delivery
// store, referenced by job id.
type Job struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Format    string `json:"format"`
	Status    Status `json:"status"`
	Progress  int    `json:"progress"`

	// Set on completion.
	FileName string `json:"file_name,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`

	// Set on failure; sanitized, never an internal fault string.
	Error string `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// The validated configuration the job was submitted with. Kept off the
	// wire; clients only ever see the format id.
	config compose.Config
}

// Config returns the job's export configuration.
func (j *Job) Config() compose.Config {
	return j.config
}
