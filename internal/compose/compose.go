// Package compose assembles project content and an export configuration
// into the canonical Document tree consumed by renderers and the preview
// calculator.
//
// Composition is deterministic: the same content and configuration always
// produce a structurally identical Document. Optional sections whose source
// data is missing are silently omitted (the leniency policy); a missing
// title or an empty chapter list blocks composition entirely.
package compose

import (
	"fmt"
	"strings"

	"github.com/inkfeather/bookbinder/internal/book"
	"github.com/inkfeather/bookbinder/internal/errors"
)

// sceneBreakMarkers are the body-text lines recognized as scene breaks.
var sceneBreakMarkers = map[string]bool{
	"***":   true,
	"* * *": true,
	"---":   true,
}

// Compose builds a Document from project content and a validated Config.
func Compose(p *book.Project, chapters []book.Chapter, cfg Config) (*Document, error) {
	if p == nil || strings.TrimSpace(p.Title) == "" {
		return nil, errors.Composition("project has no title")
	}
	if len(chapters) == 0 {
		return nil, errors.Composition("project has no chapters")
	}

	doc := &Document{
		Title:      p.Title,
		Author:     p.Author,
		Formatting: cfg.Formatting,
	}

	for _, ch := range chapters {
		scenes := splitScenes(ch.Body)
		composed := Chapter{
			Number:    ch.Number,
			Title:     ch.Title,
			Scenes:    scenes,
			WordCount: countWords(scenes),
		}
		if cfg.Formatting.IncludeChapterEpigraphs {
			composed.Epigraph = ch.Epigraph
		}
		doc.Chapters = append(doc.Chapters, composed)
		doc.TotalWords += composed.WordCount
	}

	doc.FrontMatter = composeFrontMatter(p, doc, cfg)
	doc.BackMatter = composeBackMatter(p, doc, cfg)
	return doc, nil
}

// composeFrontMatter synthesizes enabled front matter sections in canonical
// order. The TOC is derived last, once chapters and the other sections are
// known.
func composeFrontMatter(p *book.Project, doc *Document, cfg Config) []Section {
	var sections []Section
	add := func(s Section, ok bool) {
		if ok {
			sections = append(sections, s)
		}
	}

	if enabled(cfg.FrontMatter, "include_title_page") {
		add(titlePage(p))
	}
	if enabled(cfg.FrontMatter, "include_copyright") {
		add(copyrightPage(p))
	}
	if enabled(cfg.FrontMatter, "include_dedication") {
		add(dedication(p))
	}
	if enabled(cfg.FrontMatter, "include_epigraph") {
		add(epigraph(p))
	}
	if enabled(cfg.FrontMatter, "include_acknowledgments") {
		add(acknowledgments(p))
	}
	if enabled(cfg.FrontMatter, "include_toc") {
		add(tableOfContents(sections, doc.Chapters, cfg.Formatting.ChapterStyle))
	}
	return sections
}

func composeBackMatter(p *book.Project, doc *Document, cfg Config) []Section {
	var sections []Section
	add := func(s Section, ok bool) {
		if ok {
			sections = append(sections, s)
		}
	}

	if enabled(cfg.BackMatter, "include_author_bio") {
		add(authorBio(p))
	}
	if enabled(cfg.BackMatter, "include_also_by") {
		add(alsoBy(p))
	}
	if enabled(cfg.BackMatter, "include_excerpt") {
		add(excerpt(p))
	}
	if cfg.IncludeMetadata {
		add(metadataPage(doc), true)
	}
	return sections
}

func titlePage(p *book.Project) (Section, bool) {
	lines := []string{p.Title}
	if p.Author != "" {
		lines = append(lines, "", "by "+p.Author)
	}
	return Section{Kind: SectionTitlePage, Title: p.Title, Lines: lines}, true
}

func copyrightPage(p *book.Project) (Section, bool) {
	if p.Author == "" && p.CopyrightYear == 0 {
		return Section{}, false
	}
	notice := "Copyright ©"
	if p.CopyrightYear > 0 {
		notice = fmt.Sprintf("%s %d", notice, p.CopyrightYear)
	}
	if p.Author != "" {
		notice = notice + " " + p.Author
	}
	lines := []string{notice, "All rights reserved."}
	if p.ISBN != "" {
		lines = append(lines, "ISBN "+p.ISBN)
	}
	if p.Publisher != "" {
		lines = append(lines, "Published by "+p.Publisher)
	}
	return Section{Kind: SectionCopyright, Title: "Copyright", Lines: lines}, true
}

func dedication(p *book.Project) (Section, bool) {
	if strings.TrimSpace(p.Dedication) == "" {
		return Section{}, false
	}
	return Section{Kind: SectionDedication, Title: "Dedication", Lines: []string{p.Dedication}}, true
}

func epigraph(p *book.Project) (Section, bool) {
	if strings.TrimSpace(p.Epigraph) == "" {
		return Section{}, false
	}
	lines := []string{p.Epigraph}
	if p.EpigraphAttribution != "" {
		lines = append(lines, "— "+p.EpigraphAttribution)
	}
	return Section{Kind: SectionEpigraph, Title: "Epigraph", Lines: lines}, true
}

func acknowledgments(p *book.Project) (Section, bool) {
	if strings.TrimSpace(p.Acknowledgments) == "" {
		return Section{}, false
	}
	return Section{
		Kind:       SectionAcknowledgments,
		Title:      "Acknowledgments",
		Lines:      []string{p.Acknowledgments},
		TOCVisible: true,
	}, true
}

// tableOfContents lists TOC-visible front matter first, then every chapter
// heading in the configured style.
func tableOfContents(front []Section, chapters []Chapter, style ChapterStyle) (Section, bool) {
	var lines []string
	for _, s := range front {
		if s.TOCVisible {
			lines = append(lines, s.Title)
		}
	}
	for _, ch := range chapters {
		lines = append(lines, ch.Heading(style))
	}
	return Section{Kind: SectionTOC, Title: "Contents", Lines: lines}, true
}

func authorBio(p *book.Project) (Section, bool) {
	if strings.TrimSpace(p.AuthorBio) == "" {
		return Section{}, false
	}
	return Section{Kind: SectionAuthorBio, Title: "About the Author", Lines: []string{p.AuthorBio}}, true
}

func alsoBy(p *book.Project) (Section, bool) {
	if len(p.AlsoBy) == 0 || p.Author == "" {
		return Section{}, false
	}
	lines := make([]string, 0, len(p.AlsoBy))
	lines = append(lines, p.AlsoBy...)
	return Section{Kind: SectionAlsoBy, Title: "Also by " + p.Author, Lines: lines}, true
}

func excerpt(p *book.Project) (Section, bool) {
	if strings.TrimSpace(p.Excerpt) == "" {
		return Section{}, false
	}
	title := "Excerpt"
	if p.ExcerptTitle != "" {
		title = "Excerpt from " + p.ExcerptTitle
	}
	return Section{Kind: SectionExcerpt, Title: title, Lines: []string{p.Excerpt}}, true
}

// metadataPage records composition statistics. Deliberately no wall-clock
// fields: composing the same content twice must be byte-identical.
func metadataPage(doc *Document) Section {
	return Section{
		Kind:  SectionMetadata,
		Title: "About This Edition",
		Lines: []string{
			fmt.Sprintf("Chapters: %d", len(doc.Chapters)),
			fmt.Sprintf("Words: %d", doc.TotalWords),
		},
	}
}

// splitScenes splits a chapter body on scene-break marker lines. Markers
// themselves are dropped; each scene is trimmed.
func splitScenes(body string) []string {
	var scenes []string
	var current []string
	flush := func() {
		scene := strings.TrimSpace(strings.Join(current, "\n"))
		if scene != "" {
			scenes = append(scenes, scene)
		}
		current = current[:0]
	}
	for _, line := range strings.Split(body, "\n") {
		if sceneBreakMarkers[strings.TrimSpace(line)] {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	if scenes == nil {
		scenes = []string{""}
	}
	return scenes
}

// countWords tokenizes on whitespace, scene markers already removed.
func countWords(scenes []string) int {
	total := 0
	for _, scene := range scenes {
		total += len(strings.Fields(scene))
	}
	return total
}
