package render

import (
	"strings"

	"github.com/inkfeather/bookbinder/internal/compose"
)

// MarkdownRenderer emits a single Markdown manuscript: the title as an H1,
// sections and chapters as H2, epigraphs as blockquotes.
type MarkdownRenderer struct{}

// Render implements Renderer. A blank-line scene break cannot be honored in
// Markdown (it is indistinguishable from a paragraph break), so requesting
// it is an UnsupportedFeature error.
func (m *MarkdownRenderer) Render(doc *compose.Document) ([]byte, error) {
	if doc.Formatting.SceneBreakStyle == compose.SceneBreakBlank {
		return nil, UnsupportedFeature("markdown", "scene_break_style=blank")
	}

	var b strings.Builder
	b.WriteString("# " + doc.Title + "\n\n")
	if doc.Author != "" {
		b.WriteString("*by " + doc.Author + "*\n\n")
	}

	for _, s := range doc.FrontMatter {
		writeMarkdownSection(&b, s)
	}

	for _, ch := range doc.Chapters {
		b.WriteString("## " + ch.Heading(doc.Formatting.ChapterStyle) + "\n\n")
		if ch.Epigraph != "" {
			b.WriteString("> " + strings.ReplaceAll(ch.Epigraph, "\n", "\n> ") + "\n\n")
		}
		for i, scene := range ch.Scenes {
			if i > 0 {
				b.WriteString(markdownSceneBreak(doc.Formatting.SceneBreakStyle))
			}
			b.WriteString(scene + "\n\n")
		}
	}

	for _, s := range doc.BackMatter {
		writeMarkdownSection(&b, s)
	}

	return []byte(b.String()), nil
}

func writeMarkdownSection(b *strings.Builder, s compose.Section) {
	if s.Kind == compose.SectionTitlePage {
		// The H1 and byline above already cover the title page.
		return
	}
	b.WriteString("## " + s.Title + "\n\n")
	for _, line := range s.Lines {
		if line == "" {
			b.WriteString("\n")
			continue
		}
		if s.Kind == compose.SectionTOC || s.Kind == compose.SectionAlsoBy {
			b.WriteString("- " + line + "\n")
			continue
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

func markdownSceneBreak(style compose.SceneBreakStyle) string {
	if style == compose.SceneBreakOrnamental {
		return SeparatorOrnamental + "\n\n"
	}
	return SeparatorAsterisks + "\n\n"
}
