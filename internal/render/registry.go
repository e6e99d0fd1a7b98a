package render

import (
	"fmt"
	"sync"

	"github.com/inkfeather/bookbinder/internal/errors"
)

// Registry maps format identifiers to renderers and availability flags.
// Availability can change at runtime (config reload); renderer registration
// happens once at construction.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	formats   map[string]Format
	renderers map[string]Renderer
}

// NewRegistry builds the default registry: text, markdown, and html are
// available; epub and pdf are catalogued for discoverability but have no
// renderer yet.
func NewRegistry() *Registry {
	r := &Registry{
		formats:   make(map[string]Format),
		renderers: make(map[string]Renderer),
	}
	r.register(Format{ID: "text", Name: "Plain Text", Description: "Unadorned plain text manuscript", Extension: ".txt", Available: true}, &TextRenderer{})
	r.register(Format{ID: "markdown", Name: "Markdown", Description: "CommonMark manuscript with heading structure", Extension: ".md", Available: true}, &MarkdownRenderer{})
	r.register(Format{ID: "html", Name: "HTML", Description: "Single-file HTML manuscript", Extension: ".html", Available: true}, NewHTMLRenderer())
	r.register(Format{ID: "epub", Name: "EPUB", Description: "Packaged e-book (not yet supported)", Extension: ".epub", Available: false}, nil)
	r.register(Format{ID: "pdf", Name: "PDF", Description: "Typeset PDF (not yet supported)", Extension: ".pdf", Available: false}, nil)
	return r
}

func (r *Registry) register(f Format, renderer Renderer) {
	r.order = append(r.order, f.ID)
	r.formats[f.ID] = f
	if renderer != nil {
		r.renderers[f.ID] = renderer
	}
}

// Formats returns the catalog in registration order.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.formats[id])
	}
	return out
}

// Validate rejects unknown and unavailable format identifiers.
func (r *Registry) Validate(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formats[id]
	if !ok {
		return errors.Validation(fmt.Sprintf("unknown format %q", id)).WithContext("format", id)
	}
	if !f.Available {
		return errors.Validation(fmt.Sprintf("format %q is not available", id)).WithContext("format", id)
	}
	return nil
}

// Renderer returns the renderer for an available format. Callers are
// expected to have validated the format at submission; hitting an
// unavailable format here is a contract violation reported as internal.
func (r *Registry) Renderer(id string) (Renderer, error) {
	if err := r.Validate(id); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.renderers[id]
	if !ok {
		return nil, errors.New(errors.CategoryInternal, fmt.Sprintf("format %q has no renderer", id))
	}
	return renderer, nil
}

// SetAvailable flips a format's availability flag. Unknown ids are ignored.
func (r *Registry) SetAvailable(id string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.formats[id]; ok {
		f.Available = available
		r.formats[id] = f
	}
}

// Extension returns the file extension for a format id ("" when unknown).
func (r *Registry) Extension(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.formats[id].Extension
}
