package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/inkfeather/bookbinder/internal/compose"
)

// HTMLRenderer emits a single-file HTML manuscript. Chapter prose is treated
// as Markdown and converted with Goldmark; section payload lines are escaped
// verbatim.
type HTMLRenderer struct {
	md goldmark.Markdown
}

// NewHTMLRenderer creates the HTML renderer with a GFM-enabled Goldmark
// instance. The instance is safe for concurrent use.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render implements Renderer. Like Markdown, a blank scene break collapses
// into paragraph spacing in HTML and cannot be honored.
func (h *HTMLRenderer) Render(doc *compose.Document) ([]byte, error) {
	if doc.Formatting.SceneBreakStyle == compose.SceneBreakBlank {
		return nil, UnsupportedFeature("html", "scene_break_style=blank")
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<title>" + html.EscapeString(doc.Title) + "</title>\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString("<h1>" + html.EscapeString(doc.Title) + "</h1>\n")
	if doc.Author != "" {
		b.WriteString("<p class=\"byline\">by " + html.EscapeString(doc.Author) + "</p>\n")
	}

	for _, s := range doc.FrontMatter {
		h.writeSection(&b, s)
	}

	sep := h.sceneBreak(doc.Formatting.SceneBreakStyle)
	for _, ch := range doc.Chapters {
		b.WriteString("<h2>" + html.EscapeString(ch.Heading(doc.Formatting.ChapterStyle)) + "</h2>\n")
		if ch.Epigraph != "" {
			b.WriteString("<blockquote class=\"epigraph\">" + html.EscapeString(ch.Epigraph) + "</blockquote>\n")
		}
		for i, scene := range ch.Scenes {
			if i > 0 {
				b.WriteString(sep)
			}
			rendered, err := h.convert(scene)
			if err != nil {
				return nil, fmt.Errorf("render chapter %d: %w", ch.Number, err)
			}
			b.WriteString(rendered)
		}
	}

	for _, s := range doc.BackMatter {
		h.writeSection(&b, s)
	}

	b.WriteString("</body>\n</html>\n")
	return []byte(b.String()), nil
}

// convert runs a scene's Markdown prose through Goldmark.
func (h *HTMLRenderer) convert(scene string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(scene), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (h *HTMLRenderer) writeSection(b *strings.Builder, s compose.Section) {
	b.WriteString("<section class=\"" + string(s.Kind) + "\">\n")
	if s.Kind != compose.SectionTitlePage {
		b.WriteString("<h2>" + html.EscapeString(s.Title) + "</h2>\n")
	}
	if s.Kind == compose.SectionTOC || s.Kind == compose.SectionAlsoBy {
		b.WriteString("<ul>\n")
		for _, line := range s.Lines {
			b.WriteString("<li>" + html.EscapeString(line) + "</li>\n")
		}
		b.WriteString("</ul>\n")
	} else {
		for _, line := range s.Lines {
			if line == "" {
				continue
			}
			b.WriteString("<p>" + html.EscapeString(line) + "</p>\n")
		}
	}
	b.WriteString("</section>\n")
}

func (h *HTMLRenderer) sceneBreak(style compose.SceneBreakStyle) string {
	if style == compose.SceneBreakOrnamental {
		return "<p class=\"scene-break\">" + SeparatorOrnamental + "</p>\n"
	}
	return "<p class=\"scene-break\">" + SeparatorAsterisks + "</p>\n"
}
