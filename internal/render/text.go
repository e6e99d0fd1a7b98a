package render

import (
	"strings"

	"github.com/inkfeather/bookbinder/internal/compose"
)

// TextRenderer emits a plain-text manuscript. Section titles are underlined,
// chapters separated by blank lines, scene breaks emitted verbatim.
type TextRenderer struct{}

// Render implements Renderer. Plain text honors every scene-break style.
func (t *TextRenderer) Render(doc *compose.Document) ([]byte, error) {
	var b strings.Builder

	for _, s := range doc.FrontMatter {
		writeTextSection(&b, s)
	}

	for _, ch := range doc.Chapters {
		heading := ch.Heading(doc.Formatting.ChapterStyle)
		b.WriteString(heading + "\n")
		b.WriteString(strings.Repeat("=", len([]rune(heading))) + "\n\n")
		if ch.Epigraph != "" {
			b.WriteString("    " + ch.Epigraph + "\n\n")
		}
		for i, scene := range ch.Scenes {
			if i > 0 {
				b.WriteString(textSceneBreak(doc.Formatting.SceneBreakStyle))
			}
			b.WriteString(scene + "\n")
		}
		b.WriteString("\n")
	}

	for _, s := range doc.BackMatter {
		writeTextSection(&b, s)
	}

	return []byte(b.String()), nil
}

func writeTextSection(b *strings.Builder, s compose.Section) {
	// The title page carries the title in its own lines already.
	if s.Kind != compose.SectionTitlePage {
		b.WriteString(s.Title + "\n")
		b.WriteString(strings.Repeat("-", len([]rune(s.Title))) + "\n\n")
	}
	for _, line := range s.Lines {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

func textSceneBreak(style compose.SceneBreakStyle) string {
	switch style {
	case compose.SceneBreakBlank:
		return "\n\n"
	case compose.SceneBreakOrnamental:
		return "\n" + SeparatorOrnamental + "\n\n"
	default:
		return "\n" + SeparatorAsterisks + "\n\n"
	}
}
