package compose

import (
	"fmt"
	"sort"

	"github.com/inkfeather/bookbinder/internal/errors"
)

// ChapterStyle controls how chapter headings are written.
type ChapterStyle string

const (
	ChapterNumbered ChapterStyle = "numbered" // "Chapter 3"
	ChapterTitled   ChapterStyle = "titled"   // "The Long Road"
	ChapterBoth     ChapterStyle = "both"     // "Chapter 3: The Long Road"
)

// SceneBreakStyle controls the separator emitted between scene segments.
type SceneBreakStyle string

const (
	SceneBreakAsterisks  SceneBreakStyle = "asterisks"
	SceneBreakBlank      SceneBreakStyle = "blank"
	SceneBreakOrnamental SceneBreakStyle = "ornamental"
)

// Recognized front/back matter toggle names, in canonical section order.
var (
	FrontMatterToggles = []string{
		"include_title_page",
		"include_copyright",
		"include_dedication",
		"include_epigraph",
		"include_acknowledgments",
		"include_toc",
	}
	BackMatterToggles = []string{
		"include_author_bio",
		"include_also_by",
		"include_excerpt",
	}
)

// Formatting carries the per-export typography choices.
type Formatting struct {
	ChapterStyle            ChapterStyle    `json:"chapter_style" yaml:"chapter_style"`
	SceneBreakStyle         SceneBreakStyle `json:"scene_break_style" yaml:"scene_break_style"`
	IncludeChapterEpigraphs bool            `json:"include_chapter_epigraphs" yaml:"include_chapter_epigraphs"`
}

// Config is the client-supplied export configuration. It is pure data: no
// storage paths, no job ids.
type Config struct {
	Format          string          `json:"format" yaml:"format"`
	FrontMatter     map[string]bool `json:"front_matter,omitempty" yaml:"front_matter,omitempty"`
	BackMatter      map[string]bool `json:"back_matter,omitempty" yaml:"back_matter,omitempty"`
	Formatting      Formatting      `json:"formatting" yaml:"formatting"`
	IncludeMetadata bool            `json:"include_metadata,omitempty" yaml:"include_metadata,omitempty"`
}

// Normalize fills enum defaults on a zero-valued Formatting block.
func (c *Config) Normalize() {
	if c.Formatting.ChapterStyle == "" {
		c.Formatting.ChapterStyle = ChapterNumbered
	}
	if c.Formatting.SceneBreakStyle == "" {
		c.Formatting.SceneBreakStyle = SceneBreakAsterisks
	}
}

// Validate checks toggle names and enum values. Format availability is the
// renderer registry's concern and is checked separately at submission.
func (c *Config) Validate() error {
	switch c.Formatting.ChapterStyle {
	case ChapterNumbered, ChapterTitled, ChapterBoth:
	default:
		return errors.Validation(fmt.Sprintf("unknown chapter_style %q", c.Formatting.ChapterStyle)).
			WithContext("allowed", []string{"numbered", "titled", "both"})
	}
	switch c.Formatting.SceneBreakStyle {
	case SceneBreakAsterisks, SceneBreakBlank, SceneBreakOrnamental:
	default:
		return errors.Validation(fmt.Sprintf("unknown scene_break_style %q", c.Formatting.SceneBreakStyle)).
			WithContext("allowed", []string{"asterisks", "blank", "ornamental"})
	}
	if err := validateToggles(c.FrontMatter, FrontMatterToggles, "front_matter"); err != nil {
		return err
	}
	return validateToggles(c.BackMatter, BackMatterToggles, "back_matter")
}

func validateToggles(got map[string]bool, recognized []string, group string) error {
	if len(got) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(recognized))
	for _, name := range recognized {
		allowed[name] = true
	}
	var unknown []string
	for name := range got {
		if !allowed[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return errors.Validation(fmt.Sprintf("unknown %s toggle %q", group, unknown[0])).
		WithContext("unknown", unknown).
		WithContext("allowed", recognized)
}

// enabled reports whether a toggle is set in the given map.
func enabled(toggles map[string]bool, name string) bool {
	return toggles[name]
}
