// Package preview derives manuscript summary statistics from a composed
// Document without rendering it.
package preview

import "github.com/inkfeather/bookbinder/internal/compose"

// Estimation constants. Documented and tested; changing them changes the
// API contract for estimated_pages and reading_time_minutes.
const (
	WordsPerPage   = 250
	WordsPerMinute = 200
)

// Preview is the manuscript summary returned by the preview endpoint.
type Preview struct {
	Title               string   `json:"title"`
	Author              string   `json:"author"`
	TotalWords          int      `json:"total_words"`
	ChapterCount        int      `json:"chapter_count"`
	FrontMatterSections []string `json:"front_matter_sections"`
	BackMatterSections  []string `json:"back_matter_sections"`
	EstimatedPages      int      `json:"estimated_pages"`
	ReadingTimeMinutes  int      `json:"reading_time_minutes"`
}

// Calculate is a pure function over the Document tree: no I/O, cheap to call
// repeatedly, never triggers a render.
func Calculate(doc *compose.Document) Preview {
	p := Preview{
		Title:               doc.Title,
		Author:              doc.Author,
		TotalWords:          doc.TotalWords,
		ChapterCount:        len(doc.Chapters),
		FrontMatterSections: sectionNames(doc.FrontMatter),
		BackMatterSections:  sectionNames(doc.BackMatter),
		EstimatedPages:      (doc.TotalWords + WordsPerPage - 1) / WordsPerPage,
		ReadingTimeMinutes:  doc.TotalWords / WordsPerMinute,
	}
	if p.ReadingTimeMinutes < 1 {
		p.ReadingTimeMinutes = 1
	}
	return p
}

func sectionNames(sections []compose.Section) []string {
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, string(s.Kind))
	}
	return names
}
