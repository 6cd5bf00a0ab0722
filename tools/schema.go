package tools

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/olgasafonova/gleif-mcp-server/internal/gleif"
)

// InputSchema builds the MCP input schema for a descriptor.
// Path parameters and required query parameters are listed as required;
// undeclared properties are tolerated and dropped by the dispatcher.
func InputSchema(desc gleif.Descriptor) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema),
	}

	for _, p := range desc.PathParams {
		prop := &jsonschema.Schema{
			Type:        "string",
			Description: p.Description,
			MinLength:   ptr(1),
		}
		if p.Name == "lei" {
			prop.Pattern = "^[A-Z0-9]{20}$"
			prop.MinLength = ptr(20)
			prop.MaxLength = ptr(20)
		}
		schema.Properties[p.Name] = prop
		schema.Required = append(schema.Required, p.Name)
	}

	for _, q := range desc.QueryParams {
		schema.Properties[q.Name] = queryParamSchema(q)
		if q.Required {
			schema.Required = append(schema.Required, q.Name)
		}
	}

	if desc.AllowFilters {
		schema.Properties[gleif.FiltersArgument] = &jsonschema.Schema{
			Type:                 "object",
			Description:          "Extra GLEIF filters keyed by field path, sent as filter[<key>]=<value> (e.g. {\"entity.legalAddress.country\": \"NO\"})",
			AdditionalProperties: &jsonschema.Schema{},
		}
	}

	return schema
}

func queryParamSchema(q gleif.QueryParam) *jsonschema.Schema {
	prop := &jsonschema.Schema{
		Type:        string(q.Kind),
		Description: q.Description,
	}

	switch q.Kind {
	case gleif.KindArray:
		prop.Items = &jsonschema.Schema{Type: "string"}
	case gleif.KindInteger:
		switch q.Key {
		case "page[number]":
			prop.Minimum = ptr(float64(gleif.MinPage))
		case "page[size]":
			prop.Minimum = ptr(1.0)
			prop.Maximum = ptr(float64(gleif.MaxPageSize))
		}
	}

	for _, v := range q.Enum {
		prop.Enum = append(prop.Enum, v)
	}

	return prop
}
