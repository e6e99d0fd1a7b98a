// Package render turns a composed Document into bytes for a specific output
// format. Renderers are stateless; one instance serves all jobs for its
// format. Formats are selected through a registry that also carries an
// availability flag, so unavailable formats are rejected at validation time
// and never reach a renderer.
package render

import (
	"fmt"

	"github.com/inkfeather/bookbinder/internal/compose"
	"github.com/inkfeather/bookbinder/internal/errors"
)

// Renderer serializes a Document into a format's bytes.
type Renderer interface {
	Render(doc *compose.Document) ([]byte, error)
}

// Format describes a catalog entry. Unavailable formats are still listed so
// clients can discover them.
type Format struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Extension   string `json:"extension"`
	Available   bool   `json:"available"`
}

// Scene break separators emitted verbatim between scene segments.
const (
	SeparatorAsterisks  = "* * *"
	SeparatorOrnamental = "⁂"
)

// UnsupportedFeature builds the render error for a formatting option a
// format cannot honor.
func UnsupportedFeature(format, feature string) error {
	return errors.Render(fmt.Sprintf("format %q cannot honor %s", format, feature)).
		WithContext("format", format).
		WithContext("feature", feature)
}
