// Package tools provides a metadata-driven registry for MCP tool definitions.
// Tools are declared once in AllTools and bound to the GLEIF dispatcher by
// name, so adding an endpoint means adding a descriptor and a ToolSpec.
package tools

import (
	"fmt"

	"github.com/olgasafonova/gleif-mcp-server/internal/gleif"
)

// ToolSpec defines a tool's metadata for declarative registration.
// Each spec maps to the gleif.Descriptor with the same name.
type ToolSpec struct {
	// Name is the MCP tool name (e.g., "get_lei_record")
	Name string

	// Description is the tool description shown to LLMs
	Description string

	// Title is the human-readable tool title for annotations
	Title string

	// Category groups tools logically (lei_records, completions, reference, etc.)
	Category string

	// ReadOnly indicates the tool doesn't modify upstream state
	ReadOnly bool

	// Destructive indicates the tool can delete or overwrite data
	Destructive bool

	// Idempotent indicates repeated calls have the same effect
	Idempotent bool

	// OpenWorld indicates the tool accesses external resources
	OpenWorld bool
}

// Lookup returns the ToolSpec registered under name.
func Lookup(name string) (ToolSpec, bool) {
	for _, spec := range AllTools {
		if spec.Name == name {
			return spec, true
		}
	}
	return ToolSpec{}, false
}

// Validate checks that AllTools and the catalog describe the same set of tools.
func Validate(catalog *gleif.Catalog) error {
	seen := make(map[string]bool, len(AllTools))
	for _, spec := range AllTools {
		if seen[spec.Name] {
			return fmt.Errorf("duplicate tool spec %q", spec.Name)
		}
		seen[spec.Name] = true
		if _, ok := catalog.Lookup(spec.Name); !ok {
			return fmt.Errorf("tool spec %q has no descriptor", spec.Name)
		}
	}
	for _, name := range catalog.Names() {
		if !seen[name] {
			return fmt.Errorf("descriptor %q has no tool spec", name)
		}
	}
	return nil
}

// ptr is a helper to create a pointer to a value.
func ptr[T any](v T) *T {
	return &v
}

// ToolsByCategory returns the specs in the given category.
func ToolsByCategory(category string) []ToolSpec {
	var out []ToolSpec
	for _, spec := range AllTools {
		if spec.Category == category {
			out = append(out, spec)
		}
	}
	return out
}
