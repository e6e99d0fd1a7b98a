package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkfeather/bookbinder/internal/book"
	"github.com/inkfeather/bookbinder/internal/compose"
	"github.com/inkfeather/bookbinder/internal/delivery"
	"github.com/inkfeather/bookbinder/internal/errors"
	"github.com/inkfeather/bookbinder/internal/render"
)

func testSource(t *testing.T) *book.MemorySource {
	t.Helper()
	src := book.NewMemorySource()
	src.Add(
		&book.Project{ID: "novel", Title: "The Long Road", Author: "R. Castellan", CopyrightYear: 2024},
		[]book.Chapter{
			{Number: 1, Title: "Arrival", Body: "The train came in at dusk.\n\n***\n\nNobody was waiting."},
			{Number: 2, Title: "Departure", Body: "She left before sunrise."},
		},
	)
	src.Add(
		&book.Project{ID: "untitled", Author: "Anonymous"},
		[]book.Chapter{{Number: 1, Title: "One", Body: "Words."}},
	)
	return src
}

func newTestManager(t *testing.T) (*Manager, *delivery.Store) {
	t.Helper()
	store, err := delivery.NewStore(t.TempDir())
	require.NoError(t, err)
	m := NewManager(10, 2, testSource(t), render.NewRegistry(), store)
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	t.Cleanup(func() {
		m.Stop(context.Background())
		cancel()
	})
	return m, store
}

func waitTerminal(t *testing.T, m *Manager, id string) *Job {
	t.Helper()
	var last *Job
	require.Eventually(t, func() bool {
		snap, ok := m.Snapshot(id)
		if !ok {
			return false
		}
		last = snap
		return snap.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return last
}

func TestSubmitReturnsPendingJob(t *testing.T) {
	m, _ := newTestManager(t)

	job, err := m.Submit(context.Background(), "novel", compose.Config{Format: "text"})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "novel", job.ProjectID)
	assert.Equal(t, "text", job.Format)
	assert.False(t, job.CreatedAt.IsZero())
	// Workers may already have picked it up; pending is not guaranteed to
	// be observable, but a terminal status at submit time would be a bug.
	assert.NotEqual(t, StatusFailed, job.Status)
}

func TestJobRunsToCompletion(t *testing.T) {
	m, store := newTestManager(t)

	job, err := m.Submit(context.Background(), "novel", compose.Config{Format: "text"})
	require.NoError(t, err)

	done := waitTerminal(t, m, job.ID)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, "the-long-road.txt", done.FileName)
	assert.Positive(t, done.FileSize)
	assert.Empty(t, done.Error)
	require.NotNil(t, done.StartedAt)
	require.NotNil(t, done.CompletedAt)

	art, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, done.FileName, art.FileName)
	assert.Equal(t, done.FileSize, int64(len(art.Data)))
}

func TestValidationFailureLeavesNoJob(t *testing.T) {
	m, _ := newTestManager(t)

	cases := []struct {
		name     string
		project  string
		cfg      compose.Config
		category errors.Category
	}{
		{"unknown format", "novel", compose.Config{Format: "docx"}, errors.CategoryValidation},
		{"unavailable format", "novel", compose.Config{Format: "epub"}, errors.CategoryValidation},
		{"bad chapter style", "novel", compose.Config{Format: "text", Formatting: compose.Formatting{ChapterStyle: "fancy"}}, errors.CategoryValidation},
		{"missing project", "ghost", compose.Config{Format: "text"}, errors.CategoryNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job, err := m.Submit(context.Background(), tc.project, tc.cfg)
			require.Error(t, err)
			assert.Nil(t, job)
			assert.True(t, errors.IsCategory(err, tc.category))
		})
	}
	assert.Empty(t, m.List(0), "rejected submissions must not leave job records")
}

func TestCompositionFailureIsIsolated(t *testing.T) {
	m, _ := newTestManager(t)

	bad, err := m.Submit(context.Background(), "untitled", compose.Config{Format: "text"})
	require.NoError(t, err)
	good, err := m.Submit(context.Background(), "novel", compose.Config{Format: "markdown"})
	require.NoError(t, err)

	badDone := waitTerminal(t, m, bad.ID)
	assert.Equal(t, StatusFailed, badDone.Status)
	assert.NotEmpty(t, badDone.Error)
	assert.Empty(t, badDone.FileName)
	require.NotNil(t, badDone.CompletedAt)

	goodDone := waitTerminal(t, m, good.ID)
	assert.Equal(t, StatusCompleted, goodDone.Status)
}

func TestRenderFailureProducesFailedJob(t *testing.T) {
	m, _ := newTestManager(t)

	cfg := compose.Config{
		Format:     "markdown",
		Formatting: compose.Formatting{SceneBreakStyle: compose.SceneBreakBlank},
	}
	job, err := m.Submit(context.Background(), "novel", cfg)
	require.NoError(t, err)

	done := waitTerminal(t, m, job.ID)
	assert.Equal(t, StatusFailed, done.Status)
	assert.Contains(t, done.Error, "scene_break_style")
	assert.Less(t, done.Progress, 100)
}

func TestProgressIsMonotonic(t *testing.T) {
	m, _ := newTestManager(t)

	job, err := m.Submit(context.Background(), "novel", compose.Config{Format: "html"})
	require.NoError(t, err)

	prev := -1
	require.Eventually(t, func() bool {
		snap, ok := m.Snapshot(job.ID)
		require.True(t, ok)
		require.GreaterOrEqual(t, snap.Progress, prev)
		prev = snap.Progress
		return snap.Status.Terminal()
	}, 5*time.Second, time.Millisecond)
}

func TestTerminalSnapshotsAreStable(t *testing.T) {
	m, _ := newTestManager(t)

	job, err := m.Submit(context.Background(), "novel", compose.Config{Format: "text"})
	require.NoError(t, err)
	first := waitTerminal(t, m, job.ID)

	for range 5 {
		again, ok := m.Snapshot(job.ID)
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
}

func TestSnapshotUnknownJob(t *testing.T) {
	m, _ := newTestManager(t)
	_, ok := m.Snapshot("no-such-job")
	assert.False(t, ok)
}

func TestQueueFullRollbackKeepsIndexConsistent(t *testing.T) {
	store, err := delivery.NewStore(t.TempDir())
	require.NoError(t, err)
	m := NewManager(1, 1, testSource(t), render.NewRegistry(), store)
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	t.Cleanup(func() {
		m.Stop(context.Background())
		cancel()
	})

	// Saturate the 1-slot queue from many goroutines so rejected submits
	// roll back while other submits are appending their own records.
	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = m.Submit(context.Background(), "novel", compose.Config{Format: "text"})
			}()
		}
		wg.Wait()

		m.mu.RLock()
		require.Len(t, m.order, len(m.jobs))
		for _, id := range m.order {
			require.Contains(t, m.jobs, id, "order references a job with no record")
		}
		m.mu.RUnlock()
	}

	// List walks the order index; it must not hit a missing record.
	for _, j := range m.List(0) {
		require.NotEmpty(t, j.ID)
	}
}

func TestListNewestFirst(t *testing.T) {
	m, _ := newTestManager(t)

	a, err := m.Submit(context.Background(), "novel", compose.Config{Format: "text"})
	require.NoError(t, err)
	b, err := m.Submit(context.Background(), "novel", compose.Config{Format: "markdown"})
	require.NoError(t, err)

	all := m.List(0)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)
	assert.Equal(t, a.ID, all[1].ID)

	one := m.List(1)
	require.Len(t, one, 1)
	assert.Equal(t, b.ID, one[0].ID)
}
