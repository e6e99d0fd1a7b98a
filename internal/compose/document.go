package compose

import "fmt"

// SectionKind identifies a front or back matter section.
type SectionKind string

const (
	SectionTitlePage       SectionKind = "title_page"
	SectionCopyright       SectionKind = "copyright"
	SectionDedication      SectionKind = "dedication"
	SectionEpigraph        SectionKind = "epigraph"
	SectionAcknowledgments SectionKind = "acknowledgments"
	SectionTOC             SectionKind = "table_of_contents"
	SectionAuthorBio       SectionKind = "author_bio"
	SectionAlsoBy          SectionKind = "also_by"
	SectionExcerpt         SectionKind = "excerpt"
	SectionMetadata        SectionKind = "metadata"
)

// Section is a composed front or back matter section. The engine flattens
// each section's structured payload into ordered lines; renderers only add
// format syntax around them.
type Section struct {
	Kind       SectionKind
	Title      string
	Lines      []string
	TOCVisible bool
}

// Chapter is a composed chapter. Scenes holds the body split on the
// source's scene-break markers; the separator between them is a rendering
// concern.
type Chapter struct {
	Number    int
	Title     string
	Epigraph  string
	Scenes    []string
	WordCount int
}

// Document is the canonical composed manuscript. It is built fresh per
// composition request and never mutated afterwards.
type Document struct {
	Title  string
	Author string

	FrontMatter []Section
	Chapters    []Chapter
	BackMatter  []Section

	// TotalWords sums chapter word counts only; front and back matter are
	// excluded from the canonical count.
	TotalWords int

	// Formatting choices the renderer must honor.
	Formatting Formatting
}

// Heading returns the chapter heading text for the given style.
func (c Chapter) Heading(style ChapterStyle) string {
	numbered := fmt.Sprintf("Chapter %d", c.Number)
	switch style {
	case ChapterTitled:
		if c.Title != "" {
			return c.Title
		}
		return numbered
	case ChapterBoth:
		if c.Title != "" {
			return fmt.Sprintf("%s: %s", numbered, c.Title)
		}
		return numbered
	default:
		return numbered
	}
}
