package book

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inkfeather/bookbinder/internal/errors"
)

// Library is a filesystem-backed Source. Each project lives under its own
// directory:
//
//	<root>/
//	  <project-id>/
//	    project.yaml
//	    chapters/
//	      001-title.md
//	      002-title.md
//
// Chapters are ordered by file name. A chapter file may start with a
// "# Title" heading line; it becomes the chapter title and is stripped from
// the body. An "> epigraph" quote block directly after the heading becomes
// the chapter epigraph.
type Library struct {
	root string
}

// NewLibrary creates a Library rooted at dir.
func NewLibrary(dir string) (*Library, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat library root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root %s is not a directory", dir)
	}
	return &Library{root: dir}, nil
}

// Project implements Source.
func (l *Library) Project(ctx context.Context, id string) (*Project, error) {
	path := filepath.Join(l.root, id, "project.yaml")
	data, err := os.ReadFile(path) // #nosec G304 - path rooted at the configured library dir
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("project not found").WithContext("project_id", id)
		}
		return nil, fmt.Errorf("read project metadata: %w", err)
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project metadata: %w", err)
	}
	if p.ID == "" {
		p.ID = id
	}
	return &p, nil
}

// Chapters implements Source.
func (l *Library) Chapters(ctx context.Context, id string) ([]Chapter, error) {
	dir := filepath.Join(l.root, id, "chapters")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// Distinguish a missing project from a project without chapters.
			if _, serr := os.Stat(filepath.Join(l.root, id)); os.IsNotExist(serr) {
				return nil, errors.NotFound("project not found").WithContext("project_id", id)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("read chapters directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	chapters := make([]Chapter, 0, len(names))
	for i, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name)) // #nosec G304 - name comes from ReadDir
		if err != nil {
			return nil, fmt.Errorf("read chapter %s: %w", name, err)
		}
		ch := parseChapterFile(string(data))
		ch.Number = i + 1
		if ch.Title == "" {
			ch.Title = titleFromFileName(name)
		}
		chapters = append(chapters, ch)
	}
	return chapters, nil
}

// parseChapterFile splits an optional leading "# Title" heading and an
// optional following "> ..." epigraph block from the chapter body.
func parseChapterFile(content string) Chapter {
	var ch Chapter
	lines := strings.Split(content, "\n")
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i < len(lines) && strings.HasPrefix(lines[i], "# ") {
		ch.Title = strings.TrimSpace(strings.TrimPrefix(lines[i], "# "))
		i++
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
		var quote []string
		for i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), ">") {
			quote = append(quote, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[i]), ">")))
			i++
		}
		if len(quote) > 0 {
			ch.Epigraph = strings.TrimSpace(strings.Join(quote, "\n"))
		}
	}
	ch.Body = strings.TrimSpace(strings.Join(lines[i:], "\n"))
	return ch
}

// titleFromFileName derives a fallback title from "003-the-long-road.md".
func titleFromFileName(name string) string {
	base := strings.TrimSuffix(name, ".md")
	if idx := strings.IndexByte(base, '-'); idx >= 0 && idx+1 < len(base) {
		if isDigits(base[:idx]) {
			base = base[idx+1:]
		}
	}
	return strings.TrimSpace(strings.ReplaceAll(base, "-", " "))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
