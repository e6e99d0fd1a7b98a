package book

import (
	"context"

	"github.com/inkfeather/bookbinder/internal/errors"
)

// MemorySource is an in-memory Source used by tests and demos.
type MemorySource struct {
	Projects map[string]*Project
	Content  map[string][]Chapter
}

// NewMemorySource creates an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		Projects: make(map[string]*Project),
		Content:  make(map[string][]Chapter),
	}
}

// Add registers a project and its chapters.
func (m *MemorySource) Add(p *Project, chapters []Chapter) {
	m.Projects[p.ID] = p
	m.Content[p.ID] = chapters
}

// Project implements Source.
func (m *MemorySource) Project(ctx context.Context, id string) (*Project, error) {
	p, ok := m.Projects[id]
	if !ok {
		return nil, errors.NotFound("project not found").WithContext("project_id", id)
	}
	cp := *p
	return &cp, nil
}

// Chapters implements Source.
func (m *MemorySource) Chapters(ctx context.Context, id string) ([]Chapter, error) {
	if _, ok := m.Projects[id]; !ok {
		return nil, errors.NotFound("project not found").WithContext("project_id", id)
	}
	out := make([]Chapter, len(m.Content[id]))
	copy(out, m.Content[id])
	return out, nil
}
