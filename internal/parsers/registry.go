// Package parsers extracts plain text from uploaded policy documents.
package parsers

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry implements ParserRegistry with priority-based selection.
// When multiple parsers accept an extension, the highest priority one is used.
type Registry struct {
	mu      sync.RWMutex
	parsers []driven.Parser
}

// NewRegistry creates a new parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make([]driven.Parser, 0),
	}
}

// Register registers a parser.
func (r *Registry) Register(parser driven.Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parsers = append(r.parsers, parser)
}

// Get retrieves the best parser for a filename.
// Returns nil if no parser accepts its extension.
func (r *Registry) Get(filename string) driven.Parser {
	ext := Extension(filename)
	if ext == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best driven.Parser
	for _, p := range r.parsers {
		if !accepts(p, ext) {
			continue
		}
		if best == nil || p.Priority() > best.Priority() {
			best = p
		}
	}
	return best
}

// List returns all registered extensions, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{})
	for _, p := range r.parsers {
		for _, ext := range p.SupportedExtensions() {
			set[strings.ToLower(ext)] = struct{}{}
		}
	}

	exts := make([]string, 0, len(set))
	for ext := range set {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extension returns the lower-cased extension of filename including the dot.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
}

func accepts(p driven.Parser, ext string) bool {
	for _, supported := range p.SupportedExtensions() {
		if strings.EqualFold(supported, ext) {
			return true
		}
	}
	return false
}

// DefaultRegistry creates a registry with the built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&PDFParser{})
	r.Register(&DOCXParser{})
	r.Register(&PlaintextParser{})
	r.Register(NewMarkdownParser())
	return r
}
