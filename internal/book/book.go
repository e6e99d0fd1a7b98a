// Package book defines the content source: project metadata and the ordered
// chapter list an export consumes. The source is read-only; chapter
// generation happens elsewhere and is treated as opaque input here.
package book

import "context"

// Project holds the metadata an export draws front and back matter from.
// Optional fields left empty cause the corresponding sections to be omitted
// rather than failing the export.
type Project struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Author      string `yaml:"author" json:"author"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	CopyrightYear int    `yaml:"copyright_year,omitempty" json:"copyright_year,omitempty"`
	Publisher     string `yaml:"publisher,omitempty" json:"publisher,omitempty"`
	ISBN          string `yaml:"isbn,omitempty" json:"isbn,omitempty"`

	Dedication          string `yaml:"dedication,omitempty" json:"dedication,omitempty"`
	Epigraph            string `yaml:"epigraph,omitempty" json:"epigraph,omitempty"`
	EpigraphAttribution string `yaml:"epigraph_attribution,omitempty" json:"epigraph_attribution,omitempty"`
	Acknowledgments     string `yaml:"acknowledgments,omitempty" json:"acknowledgments,omitempty"`

	AuthorBio    string   `yaml:"author_bio,omitempty" json:"author_bio,omitempty"`
	AlsoBy       []string `yaml:"also_by,omitempty" json:"also_by,omitempty"`
	Excerpt      string   `yaml:"excerpt,omitempty" json:"excerpt,omitempty"`
	ExcerptTitle string   `yaml:"excerpt_title,omitempty" json:"excerpt_title,omitempty"`
}

// Chapter is a single generated chapter in stored order. Body text may
// contain scene-break markers ("***" on its own line) that renderers turn
// into the configured separator.
type Chapter struct {
	Number   int    `yaml:"number" json:"number"`
	Title    string `yaml:"title" json:"title"`
	Body     string `yaml:"body" json:"body"`
	Epigraph string `yaml:"epigraph,omitempty" json:"epigraph,omitempty"`
}

// Source fetches project content by id. Implementations must not cache
// across calls: preview and export each re-fetch to avoid staleness.
type Source interface {
	// Project returns project metadata, or a not_found error.
	Project(ctx context.Context, id string) (*Project, error)

	// Chapters returns the project's chapters in stored order, or a
	// not_found error when the project does not exist.
	Chapters(ctx context.Context, id string) ([]Chapter, error)
}
