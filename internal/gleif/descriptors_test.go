package gleif

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	want := []string{
		"list_lei_records",
		"get_lei_record",
		"search_lei_records",
		"fuzzy_completions",
		"auto_completions",
		"list_lei_issuers",
		"get_lei_issuer",
		"list_countries",
		"get_country",
		"list_entity_legal_forms",
		"get_entity_legal_form",
		"list_fields",
		"get_field_details",
	}
	assert.Equal(t, want, c.Names())
	assert.Equal(t, len(want), c.Len())
}

func TestDescriptorsAreWellFormed(t *testing.T) {
	for _, d := range DefaultCatalog().All() {
		t.Run(d.Name, func(t *testing.T) {
			assert.Equal(t, http.MethodGet, d.Method)
			assert.True(t, strings.HasPrefix(d.Path, "/"), "path must be absolute")
			assert.NotEmpty(t, d.Description)

			// Every placeholder has a matching path parameter and vice versa.
			placeholders := strings.Count(d.Path, "{")
			assert.Equal(t, placeholders, len(d.PathParams))
			for _, p := range d.PathParams {
				assert.Contains(t, d.Path, "{"+p.Name+"}")
			}

			seen := make(map[string]bool)
			for _, q := range d.QueryParams {
				assert.False(t, seen[q.Name], "duplicate argument %q", q.Name)
				seen[q.Name] = true
				assert.NotEmpty(t, q.Key)
				assert.NotEmpty(t, q.Kind)
			}
		})
	}
}

func TestCatalogLookup(t *testing.T) {
	c := DefaultCatalog()

	d, ok := c.Lookup("get_country")
	require.True(t, ok)
	assert.Equal(t, "/countries/{code}", d.Path)

	_, ok = c.Lookup("get_company")
	assert.False(t, ok)
}

func TestCatalogAllReturnsCopy(t *testing.T) {
	c := DefaultCatalog()

	all := c.All()
	all[0].Name = "mutated"

	assert.Equal(t, "list_lei_records", c.All()[0].Name)
}

func TestNewCatalog_Rejects(t *testing.T) {
	_, err := NewCatalog(
		Descriptor{Name: "a", Path: "/a"},
		Descriptor{Name: "a", Path: "/b"},
	)
	assert.Error(t, err, "duplicate names")

	_, err = NewCatalog(Descriptor{Name: "no_path"})
	assert.Error(t, err, "missing path")
}

func TestNewCatalog_DefaultsMethod(t *testing.T) {
	c, err := NewCatalog(Descriptor{Name: "ping", Path: "/ping"})
	require.NoError(t, err)

	d, ok := c.Lookup("ping")
	require.True(t, ok)
	assert.Equal(t, http.MethodGet, d.Method)
}
