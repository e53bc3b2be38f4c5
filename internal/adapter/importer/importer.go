// Package importer turns bank statement exports into statement rows.
package importer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

// FormatGeneric is the delimited parser with auto-detected columns.
const FormatGeneric = "generic"

// Registry holds named parsers.
type Registry struct {
	parsers map[string]usecase.StatementParser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]usecase.StatementParser)}
}

// Register adds a parser under one or more format names. Panics on duplicate format.
func (r *Registry) Register(p usecase.StatementParser, formats ...string) {
	for _, f := range formats {
		key := strings.ToLower(strings.TrimSpace(f))
		if _, ok := r.parsers[key]; ok {
			panic("duplicate parser format: " + key)
		}
		r.parsers[key] = p
	}
}

// Get returns the parser for format.
func (r *Registry) Get(format string) (usecase.StatementParser, error) {
	p, ok := r.parsers[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", domain.ErrUnsupportedFormat, format, strings.Join(r.Formats(), ", "))
	}
	return p, nil
}

// Formats lists the registered format names.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewDelimitedParser(0), FormatGeneric, "csv")
	r.Register(NewDelimitedParser('\t'), "tsv")
	return r
}
