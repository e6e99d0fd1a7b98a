// Package delivery owns rendered artifact bytes. Artifacts are keyed by job
// id and stored independently of job metadata: evicting an artifact never
// changes the owning job's status.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Artifact is a stored export result.
type Artifact struct {
	JobID     string
	FileName  string
	Size      int64
	Data      []byte
	CreatedAt time.Time
}

// ErrNotFound is returned when no artifact exists for a job id. Callers must
// surface this distinctly from job failure: a completed job whose artifact
// was evicted still reads as completed.
type ErrNotFound struct {
	JobID string
}

func (e ErrNotFound) Error() string {
	return "artifact not found for job " + e.JobID
}

// IsNotFound reports whether err is an artifact ErrNotFound.
func IsNotFound(err error) bool {
	_, ok := err.(ErrNotFound)
	return ok
}

type artifactMeta struct {
	FileName  string    `json:"file_name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a filesystem artifact store:
//
//	<base>/
//	  artifacts/
//	    ab/
//	      cdef-... (first 2 chars of the job id = subdir)
//	      cdef-....meta.json
//
// Writes happen exactly once per job id; reads are safe concurrently once
// written.
type Store struct {
	basePath string
	mu       sync.RWMutex
}

// NewStore creates the artifact directory layout under basePath.
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(basePath, "artifacts"), 0o750); err != nil {
		return nil, fmt.Errorf("create artifacts directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// Put stores an artifact for a job. A second Put for the same job id is a
// contract violation and fails.
func (s *Store) Put(ctx context.Context, jobID, fileName string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.artifactPath(jobID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("artifact for job %s already exists", jobID)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	meta := artifactMeta{FileName: fileName, Size: int64(len(data)), CreatedAt: time.Now().UTC()}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal artifact metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(jobID), raw, 0o600); err != nil {
		return fmt.Errorf("write artifact metadata: %w", err)
	}
	return nil
}

// Get retrieves an artifact by job id.
func (s *Store) Get(ctx context.Context, jobID string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.artifactPath(jobID)) // #nosec G304 - path derived from the job id under basePath
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound{JobID: jobID}
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	artifact := &Artifact{JobID: jobID, Size: int64(len(data)), Data: data}
	if raw, err := os.ReadFile(s.metaPath(jobID)); err == nil { // #nosec G304
		var meta artifactMeta
		if err := json.Unmarshal(raw, &meta); err == nil {
			artifact.FileName = meta.FileName
			artifact.CreatedAt = meta.CreatedAt
		}
	}
	if artifact.FileName == "" {
		artifact.FileName = jobID
	}
	return artifact, nil
}

// Evict removes an artifact. Returns ErrNotFound when nothing is stored for
// the job id.
func (s *Store) Evict(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictLocked(jobID)
}

func (s *Store) evictLocked(jobID string) error {
	path := s.artifactPath(jobID)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound{JobID: jobID}
		}
		return fmt.Errorf("remove artifact: %w", err)
	}
	_ = os.Remove(s.metaPath(jobID)) // best effort
	_ = os.Remove(filepath.Dir(path))
	return nil
}

// SweepOlderThan evicts artifacts created before the retention window and
// returns the number removed.
func (s *Store) SweepOlderThan(ctx context.Context, age time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-age)
	removed := 0

	root := filepath.Join(s.basePath, "artifacts")
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".meta.json") {
			return nil
		}
		raw, rerr := os.ReadFile(path) // #nosec G304 - walked under basePath
		if rerr != nil {
			return nil
		}
		var meta artifactMeta
		if json.Unmarshal(raw, &meta) != nil || !meta.CreatedAt.Before(cutoff) {
			return nil
		}
		jobID := s.jobIDFromMetaPath(path)
		if jobID == "" {
			return nil
		}
		if eerr := s.evictLocked(jobID); eerr == nil {
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("walk artifacts: %w", err)
	}
	return removed, nil
}

func (s *Store) artifactPath(jobID string) string {
	if len(jobID) < 2 {
		return filepath.Join(s.basePath, "artifacts", jobID)
	}
	return filepath.Join(s.basePath, "artifacts", jobID[:2], jobID[2:])
}

func (s *Store) metaPath(jobID string) string {
	return s.artifactPath(jobID) + ".meta.json"
}

// jobIDFromMetaPath reverses artifactPath for a .meta.json file.
func (s *Store) jobIDFromMetaPath(path string) string {
	rel, err := filepath.Rel(filepath.Join(s.basePath, "artifacts"), strings.TrimSuffix(path, ".meta.json"))
	if err != nil {
		return ""
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + parts[1]
	}
	return ""
}
