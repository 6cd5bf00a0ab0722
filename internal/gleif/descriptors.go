// Package gleif maps MCP tool invocations onto the GLEIF REST API v1.0.
//
// Each tool is a Descriptor: an immutable row in the Catalog naming the
// upstream path template and the arguments it accepts. The Dispatcher turns
// a tool name plus arguments into exactly one GET request and passes the
// upstream JSON document through unchanged.
package gleif

import (
	"fmt"
	"net/http"
)

// ParamKind is the JSON type an argument is advertised as.
type ParamKind string

const (
	KindString  ParamKind = "string"
	KindInteger ParamKind = "integer"
	KindBoolean ParamKind = "boolean"
	KindArray   ParamKind = "array"
)

// PathParam is a placeholder substituted into the path template.
// Path parameters are always required.
type PathParam struct {
	Name        string
	Description string
	Normalize   func(string) string
	Validate    func(string) error
}

// QueryParam maps a tool argument onto an upstream query key.
type QueryParam struct {
	// Name is the argument name exposed to callers
	Name string

	// Key is the upstream query key, e.g. "page[size]" or "filter[entity.legalName]"
	Key string

	Required    bool
	Kind        ParamKind
	Description string
	Enum        []string
	Normalize   func(string) string
	Validate    func(string) error
}

// Descriptor describes one tool and the GLEIF endpoint it forwards to.
type Descriptor struct {
	Name        string
	Description string
	Method      string

	// Path is the endpoint template with {placeholders}
	Path string

	PathParams  []PathParam
	QueryParams []QueryParam

	// Headers are static request headers sent with every call
	Headers map[string]string

	// AllowFilters accepts a free-form "filters" object forwarded as filter[<key>]
	AllowFilters bool
}

// FiltersArgument is the argument name of the free-form filter object.
const FiltersArgument = "filters"

// Catalog is the immutable, ordered table of tool descriptors.
type Catalog struct {
	descriptors []Descriptor
	index       map[string]int
}

// NewCatalog builds a catalog, rejecting duplicate or incomplete descriptors.
func NewCatalog(descriptors ...Descriptor) (*Catalog, error) {
	c := &Catalog{
		descriptors: make([]Descriptor, 0, len(descriptors)),
		index:       make(map[string]int, len(descriptors)),
	}
	for _, d := range descriptors {
		if d.Name == "" || d.Path == "" {
			return nil, fmt.Errorf("descriptor %q: name and path are required", d.Name)
		}
		if _, dup := c.index[d.Name]; dup {
			return nil, fmt.Errorf("duplicate descriptor %q", d.Name)
		}
		if d.Method == "" {
			d.Method = http.MethodGet
		}
		c.index[d.Name] = len(c.descriptors)
		c.descriptors = append(c.descriptors, d)
	}
	return c, nil
}

// Lookup returns the descriptor registered under name.
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	i, ok := c.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return c.descriptors[i], true
}

// All returns every descriptor in registration order.
func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Names returns the tool names in registration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.descriptors))
	for i, d := range c.descriptors {
		names[i] = d.Name
	}
	return names
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int {
	return len(c.descriptors)
}

var defaultCatalog = mustCatalog(Descriptors()...)

// DefaultCatalog returns the catalog of all GLEIF tools.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

func mustCatalog(descriptors ...Descriptor) *Catalog {
	c, err := NewCatalog(descriptors...)
	if err != nil {
		panic(err)
	}
	return c
}

// Pagination arguments shared by every collection endpoint.
var (
	pageParam = QueryParam{
		Name:        "page",
		Key:         "page[number]",
		Kind:        KindInteger,
		Description: "Page number, starting at 1",
		Validate:    ValidatePage,
	}
	sizeParam = QueryParam{
		Name:        "size",
		Key:         "page[size]",
		Kind:        KindInteger,
		Description: fmt.Sprintf("Results per page (1-%d)", MaxPageSize),
		Validate:    ValidateSize,
	}
	sortParam = QueryParam{
		Name:        "sort",
		Key:         "sort",
		Kind:        KindString,
		Description: "Sort field, prefix with '-' for descending (e.g. 'entity.legalName')",
	}
)

func completionParams() []QueryParam {
	return []QueryParam{
		{
			Name:        "field",
			Key:         "field",
			Required:    true,
			Kind:        KindString,
			Description: "Field to complete against, e.g. 'entity.legalName' or 'fulltext'",
		},
		{
			Name:        "q",
			Key:         "q",
			Required:    true,
			Kind:        KindString,
			Description: "Partial text to complete",
		},
	}
}

func idParam(description string) PathParam {
	return PathParam{Name: "id", Description: description}
}

// Descriptors returns the GLEIF tool table in registration order.
func Descriptors() []Descriptor {
	return []Descriptor{
		{
			Name:         "list_lei_records",
			Description:  "List LEI records with pagination, sorting and GLEIF filters",
			Path:         "/lei-records",
			QueryParams:  []QueryParam{pageParam, sizeParam, sortParam},
			AllowFilters: true,
		},
		{
			Name:        "get_lei_record",
			Description: "Get a single LEI record by its 20-character LEI code",
			Path:        "/lei-records/{lei}",
			PathParams: []PathParam{{
				Name:        "lei",
				Description: "20-character Legal Entity Identifier",
				Validate:    ValidateLEI,
			}},
		},
		{
			Name:        "search_lei_records",
			Description: "Search LEI records by entity name, location, status and identifiers",
			Path:        "/lei-records",
			QueryParams: []QueryParam{
				{Name: "legal_name", Key: "filter[entity.legalName]", Kind: KindString, Description: "Legal name, '*' wildcards allowed"},
				{Name: "fulltext", Key: "filter[fulltext]", Kind: KindString, Description: "Full-text search across names and addresses"},
				{Name: "lei_list", Key: "filter[lei]", Kind: KindArray, Description: "LEI codes to fetch in one request"},
				{Name: "country", Key: "filter[entity.legalAddress.country]", Kind: KindString, Description: "Legal address country (ISO 3166 alpha-2)", Normalize: NormalizeCountryCode},
				{Name: "headquarters_country", Key: "filter[entity.headquartersAddress.country]", Kind: KindString, Description: "Headquarters country (ISO 3166 alpha-2)", Normalize: NormalizeCountryCode},
				{Name: "registration_status", Key: "filter[registration.status]", Kind: KindString, Description: "Registration status", Enum: []string{"ISSUED", "LAPSED", "PENDING_TRANSFER", "PENDING_ARCHIVAL", "RETIRED", "ANNULLED", "DUPLICATE", "MERGED", "TRANSFERRED", "CANCELLED"}},
				{Name: "entity_status", Key: "filter[entity.status]", Kind: KindString, Description: "Entity status", Enum: []string{"ACTIVE", "INACTIVE", "NULL"}},
				{Name: "entity_category", Key: "filter[entity.category]", Kind: KindString, Description: "Entity category", Enum: []string{"GENERAL", "BRANCH", "FUND", "SOLE_PROPRIETOR", "RESIDENT_GOVERNMENT_ENTITY", "INTERNATIONAL_ORGANIZATION"}},
				{Name: "legal_form", Key: "filter[entity.legalForm.id]", Kind: KindString, Description: "Entity Legal Form (ELF) code"},
				{Name: "managing_lou", Key: "filter[registration.managingLou]", Kind: KindString, Description: "LEI of the managing LOU"},
				{Name: "bic", Key: "filter[bic]", Kind: KindString, Description: "Business Identifier Code mapped to the LEI"},
				{Name: "isin", Key: "filter[isin]", Kind: KindString, Description: "ISIN mapped to the LEI"},
				pageParam,
				sizeParam,
				sortParam,
			},
			AllowFilters: true,
		},
		{
			Name:        "fuzzy_completions",
			Description: "Fuzzy name matching that tolerates typos",
			Path:        "/fuzzycompletions",
			QueryParams: completionParams(),
		},
		{
			Name:        "auto_completions",
			Description: "Prefix autocompletion for entity names and identifiers",
			Path:        "/autocompletions",
			QueryParams: completionParams(),
		},
		{
			Name:        "list_lei_issuers",
			Description: "List LEI issuers (Local Operating Units)",
			Path:        "/lei-issuers",
			QueryParams: []QueryParam{pageParam, sizeParam},
		},
		{
			Name:        "get_lei_issuer",
			Description: "Get a single LEI issuer by id (the issuer's own LEI)",
			Path:        "/lei-issuers/{id}",
			PathParams:  []PathParam{idParam("LEI issuer id")},
		},
		{
			Name:        "list_countries",
			Description: "List countries known to GLEIF",
			Path:        "/countries",
			QueryParams: []QueryParam{pageParam, sizeParam},
		},
		{
			Name:        "get_country",
			Description: "Get a country by ISO 3166 alpha-2 code",
			Path:        "/countries/{code}",
			PathParams: []PathParam{{
				Name:        "code",
				Description: "ISO 3166 alpha-2 country code, e.g. 'DE'",
				Normalize:   NormalizeCountryCode,
			}},
		},
		{
			Name:        "list_entity_legal_forms",
			Description: "List Entity Legal Forms (ISO 20275 ELF codes)",
			Path:        "/entity-legal-forms",
			QueryParams: []QueryParam{
				pageParam,
				sizeParam,
				{Name: "country_code", Key: "filter[countryCode]", Kind: KindString, Description: "Restrict to one country (ISO 3166 alpha-2)", Normalize: NormalizeCountryCode},
			},
		},
		{
			Name:        "get_entity_legal_form",
			Description: "Get an Entity Legal Form by ELF code",
			Path:        "/entity-legal-forms/{id}",
			PathParams:  []PathParam{idParam("ELF code, e.g. '8888' or 'XTIQ'")},
		},
		{
			Name:        "list_fields",
			Description: "List the fields available for filtering and sorting",
			Path:        "/fields",
			QueryParams: []QueryParam{pageParam, sizeParam},
		},
		{
			Name:        "get_field_details",
			Description: "Get details for one filterable field",
			Path:        "/fields/{id}",
			PathParams:  []PathParam{idParam("Field id, e.g. 'LEIREC_LEGAL_NAME'")},
		},
	}
}
