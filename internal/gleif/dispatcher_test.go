package gleif

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olgasafonova/gleif-mcp-server/internal/base"
	apierrors "github.com/olgasafonova/gleif-mcp-server/internal/errors"
)

const testLEI = "5493001KJTIIGC8Y1R12"

// requiredArgs holds a minimal valid argument set for every tool.
var requiredArgs = map[string]map[string]any{
	"list_lei_records":        {},
	"get_lei_record":          {"lei": testLEI},
	"search_lei_records":      {},
	"fuzzy_completions":       {"field": "entity.legalName", "q": "deutsche"},
	"auto_completions":        {"field": "fulltext", "q": "appl"},
	"list_lei_issuers":        {},
	"get_lei_issuer":          {"id": "EVK05KS7XY1DEII3R011"},
	"list_countries":          {},
	"get_country":             {"code": "DE"},
	"list_entity_legal_forms": {},
	"get_entity_legal_form":   {"id": "8888"},
	"list_fields":             {},
	"get_field_details":       {"id": "LEIREC_LEGAL_NAME"},
}

type capturedRequest struct {
	Path     string
	RawQuery string
	Query    url.Values
	Header   http.Header
}

// mockGLEIF starts a server that records requests and replies with status and body.
func mockGLEIF(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, func() capturedRequest) {
	t.Helper()
	var (
		calls atomic.Int32
		mu    sync.Mutex
		last  capturedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		mu.Lock()
		last = capturedRequest{
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Query:    r.URL.Query(),
			Header:   r.Header.Clone(),
		}
		mu.Unlock()
		w.Header().Set("Content-Type", "application/vnd.api+json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	return server, &calls, func() capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func newTestDispatcher(t *testing.T, baseURL string, opts ...DispatcherOption) *Dispatcher {
	t.Helper()
	client := base.NewClient(
		base.WithBaseURL(baseURL),
		base.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	t.Cleanup(client.Close)
	return NewDispatcher(client, opts...)
}

func errorMessage(t *testing.T, doc json.RawMessage) string {
	t.Helper()
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(doc, &decoded), "result must be JSON: %s", doc)
	require.Len(t, decoded, 1, "error document must only carry the error key")
	msg, ok := decoded["error"].(string)
	require.True(t, ok, "expected {\"error\": string}, got %s", doc)
	return msg
}

func TestEveryToolPassesBodyThrough(t *testing.T) {
	body := "{\"data\": [{\"id\": \"x\"}],\n  \"meta\": {\"pagination\": {\"total\": 1}}}\n"
	server, _, _ := mockGLEIF(t, http.StatusOK, body)
	d := newTestDispatcher(t, server.URL)

	require.Len(t, requiredArgs, d.Catalog().Len(), "fixture must cover every tool")

	for _, name := range d.Catalog().Names() {
		t.Run(name, func(t *testing.T) {
			args, ok := requiredArgs[name]
			require.True(t, ok, "no fixture for %s", name)

			got, err := d.Invoke(context.Background(), name, args)
			require.NoError(t, err)
			assert.Equal(t, body, string(got), "body must be returned byte-for-byte")
		})
	}
}

func TestPathPlaceholderMissing_NoNetworkCall(t *testing.T) {
	server, calls, _ := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	for _, desc := range d.Catalog().All() {
		if len(desc.PathParams) == 0 {
			continue
		}
		for _, empty := range []any{nil, "", "   "} {
			t.Run(fmt.Sprintf("%s/%v", desc.Name, empty), func(t *testing.T) {
				args := map[string]any{}
				if empty != nil {
					args[desc.PathParams[0].Name] = empty
				}

				_, err := d.Invoke(context.Background(), desc.Name, args)
				require.Error(t, err)
				assert.True(t, apierrors.IsMissingParameter(err), "expected missing parameter, got %v", err)

				msg := errorMessage(t, d.Call(context.Background(), desc.Name, args))
				assert.Contains(t, msg, desc.PathParams[0].Name)
			})
		}
	}

	assert.Equal(t, int32(0), calls.Load(), "no request may be sent when a placeholder is missing")
}

func TestNotFound(t *testing.T) {
	server, _, _ := mockGLEIF(t, http.StatusNotFound, `{"errors":[{"status":"404","title":"Not Found"}]}`)
	d := newTestDispatcher(t, server.URL)

	_, err := d.Invoke(context.Background(), "get_country", map[string]any{"code": "XX"})
	require.Error(t, err)
	assert.True(t, apierrors.IsNotFound(err))

	msg := errorMessage(t, d.Call(context.Background(), "get_country", map[string]any{"code": "XX"}))
	assert.Contains(t, msg, "not found")
	assert.Contains(t, msg, "404")
}

func TestServerErrorIncludesStatus(t *testing.T) {
	server, calls, _ := mockGLEIF(t, http.StatusBadGateway, "upstream unavailable")
	d := newTestDispatcher(t, server.URL)

	msg := errorMessage(t, d.Call(context.Background(), "list_countries", nil))
	assert.Contains(t, msg, "502")
	assert.Contains(t, msg, "upstream unavailable")
	assert.Equal(t, int32(1), calls.Load(), "failed requests are not retried")
}

func TestMalformedJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated object", `{"data":`},
		{"html", "<html><body>maintenance</body></html>"},
		{"empty body", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _, _ := mockGLEIF(t, http.StatusOK, tt.body)
			d := newTestDispatcher(t, server.URL)

			_, err := d.Invoke(context.Background(), "list_fields", nil)
			require.Error(t, err)
			assert.True(t, apierrors.IsMalformedResponse(err), "expected malformed response, got %v", err)

			errorMessage(t, d.Call(context.Background(), "list_fields", nil))
		})
	}
}

func TestGetCountryDE(t *testing.T) {
	body := `{"data":{"id":"DE","type":"countries"}}`
	server, _, last := mockGLEIF(t, http.StatusOK, body)
	d := newTestDispatcher(t, server.URL)

	got := d.Call(context.Background(), "get_country", map[string]any{"code": "DE"})

	assert.Equal(t, body, string(got))
	assert.Equal(t, "/countries/DE", last().Path)
	assert.Empty(t, last().RawQuery)
}

func TestGetCountryUpperCasesCode(t *testing.T) {
	server, _, last := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	_, err := d.Invoke(context.Background(), "get_country", map[string]any{"code": "de"})
	require.NoError(t, err)
	assert.Equal(t, "/countries/DE", last().Path)
}

func TestSearchWithoutFiltersMatchesList(t *testing.T) {
	server, _, last := mockGLEIF(t, http.StatusOK, `{"data":[]}`)
	d := newTestDispatcher(t, server.URL)

	_, err := d.Invoke(context.Background(), "search_lei_records", map[string]any{})
	require.NoError(t, err)
	search := last()

	_, err = d.Invoke(context.Background(), "list_lei_records", map[string]any{})
	require.NoError(t, err)
	list := last()

	assert.Equal(t, "/lei-records", search.Path)
	assert.Empty(t, search.RawQuery, "no filters should be appended")
	assert.Equal(t, list.Path, search.Path)
	assert.Equal(t, list.RawQuery, search.RawQuery)
}

func TestUnrecognizedArgumentsDropped(t *testing.T) {
	server, _, last := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	for _, name := range d.Catalog().Names() {
		t.Run(name, func(t *testing.T) {
			args := map[string]any{
				"bogus":        "should-not-leak",
				"filter[evil]": "x",
			}
			for k, v := range requiredArgs[name] {
				args[k] = v
			}

			_, err := d.Invoke(context.Background(), name, args)
			require.NoError(t, err)

			req := last()
			assert.NotContains(t, req.RawQuery, "bogus")
			assert.NotContains(t, req.RawQuery, "should-not-leak")
			assert.NotContains(t, req.RawQuery, "evil")
			assert.NotContains(t, req.Path, "should-not-leak")
		})
	}
}

func TestPaginationMapping(t *testing.T) {
	server, _, last := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	// JSON numbers decode as float64
	_, err := d.Invoke(context.Background(), "list_lei_issuers", map[string]any{"page": float64(2), "size": float64(50)})
	require.NoError(t, err)

	q := last().Query
	assert.Equal(t, "2", q.Get("page[number]"))
	assert.Equal(t, "50", q.Get("page[size]"))
	assert.Len(t, q, 2)
}

func TestPaginationBounds(t *testing.T) {
	server, calls, _ := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"page zero", map[string]any{"page": float64(0)}},
		{"negative page", map[string]any{"page": float64(-1)}},
		{"size too large", map[string]any{"size": float64(MaxPageSize + 1)}},
		{"size zero", map[string]any{"size": float64(0)}},
		{"fractional page", map[string]any{"page": 1.5}},
		{"non-numeric size", map[string]any{"size": "ten"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Invoke(context.Background(), "list_countries", tt.args)
			require.Error(t, err)
			assert.True(t, apierrors.IsValidation(err), "expected validation error, got %v", err)
		})
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestGetLEIRecordValidation(t *testing.T) {
	server, calls, last := mockGLEIF(t, http.StatusOK, `{"data":{}}`)
	d := newTestDispatcher(t, server.URL)

	_, err := d.Invoke(context.Background(), "get_lei_record", map[string]any{"lei": "INVALID"})
	require.Error(t, err)
	assert.True(t, apierrors.IsValidation(err))
	assert.Contains(t, errorMessage(t, apierrors.Document(err)), "invalid LEI format")

	_, err = d.Invoke(context.Background(), "get_lei_record", map[string]any{"lei": "5493001kjtiigc8y1r12"})
	require.Error(t, err, "lower-case LEIs are rejected")
	assert.Equal(t, int32(0), calls.Load())

	_, err = d.Invoke(context.Background(), "get_lei_record", map[string]any{"lei": " " + testLEI + " "})
	require.NoError(t, err, "surrounding whitespace is trimmed")
	assert.Equal(t, "/lei-records/"+testLEI, last().Path)
}

func TestCompletionsRequireFieldAndQuery(t *testing.T) {
	server, calls, last := mockGLEIF(t, http.StatusOK, `{"data":[]}`)
	d := newTestDispatcher(t, server.URL)

	for _, tool := range []string{"fuzzy_completions", "auto_completions"} {
		t.Run(tool, func(t *testing.T) {
			_, err := d.Invoke(context.Background(), tool, map[string]any{"q": "apple"})
			require.Error(t, err)
			assert.True(t, apierrors.IsMissingParameter(err))
			assert.Contains(t, err.Error(), "field")

			_, err = d.Invoke(context.Background(), tool, map[string]any{"field": "fulltext"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), `"q"`)
		})
	}
	assert.Equal(t, int32(0), calls.Load())

	_, err := d.Invoke(context.Background(), "fuzzy_completions", map[string]any{"field": "entity.legalName", "q": "deutsche bank"})
	require.NoError(t, err)
	assert.Equal(t, "/fuzzycompletions", last().Path)
	assert.Equal(t, "entity.legalName", last().Query.Get("field"))
	assert.Equal(t, "deutsche bank", last().Query.Get("q"))
}

func TestSearchNamedFilters(t *testing.T) {
	server, _, last := mockGLEIF(t, http.StatusOK, `{"data":[]}`)
	d := newTestDispatcher(t, server.URL)

	_, err := d.Invoke(context.Background(), "search_lei_records", map[string]any{
		"legal_name":          "*Apple*",
		"country":             "us",
		"registration_status": "ISSUED",
		"lei_list":            []any{testLEI, "HWUPKR0MPOU8FGXBT394"},
		"size":                float64(5),
	})
	require.NoError(t, err)

	q := last().Query
	assert.Equal(t, "*Apple*", q.Get("filter[entity.legalName]"))
	assert.Equal(t, "US", q.Get("filter[entity.legalAddress.country]"))
	assert.Equal(t, "ISSUED", q.Get("filter[registration.status]"))
	assert.Equal(t, testLEI+",HWUPKR0MPOU8FGXBT394", q.Get("filter[lei]"))
	assert.Equal(t, "5", q.Get("page[size]"))
}

func TestFreeFormFilters(t *testing.T) {
	server, _, last := mockGLEIF(t, http.StatusOK, `{"data":[]}`)
	d := newTestDispatcher(t, server.URL)

	_, err := d.Invoke(context.Background(), "list_lei_records", map[string]any{
		"filters": map[string]any{
			"entity.legalAddress.country": "NO",
			"filter[entity.category]":     "FUND",
			"entity.status":               nil,
			"conformityFlag":              true,
		},
	})
	require.NoError(t, err)

	q := last().Query
	assert.Equal(t, "NO", q.Get("filter[entity.legalAddress.country]"))
	assert.Equal(t, "FUND", q.Get("filter[entity.category]"))
	assert.Equal(t, "true", q.Get("filter[conformityFlag]"))
	assert.NotContains(t, q, "filter[entity.status]", "nil filter values are absent")
}

func TestNamedFilterOverridesFreeForm(t *testing.T) {
	server, _, last := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	_, err := d.Invoke(context.Background(), "search_lei_records", map[string]any{
		"country": "DE",
		"filters": map[string]any{"entity.legalAddress.country": "FR"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"DE"}, last().Query["filter[entity.legalAddress.country]"])
}

func TestFiltersMustBeObject(t *testing.T) {
	server, calls, _ := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	_, err := d.Invoke(context.Background(), "list_lei_records", map[string]any{"filters": "country=NO"})
	require.Error(t, err)
	assert.True(t, apierrors.IsValidation(err))
	assert.Equal(t, int32(0), calls.Load())
}

func TestFiltersIgnoredWhereNotAllowed(t *testing.T) {
	server, _, last := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	_, err := d.Invoke(context.Background(), "list_countries", map[string]any{
		"filters": map[string]any{"name": "Germany"},
	})
	require.NoError(t, err)
	assert.Empty(t, last().RawQuery)
}

func TestEntityLegalFormsCountryFilter(t *testing.T) {
	server, _, last := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	_, err := d.Invoke(context.Background(), "list_entity_legal_forms", map[string]any{"country_code": "no"})
	require.NoError(t, err)
	assert.Equal(t, "NO", last().Query.Get("filter[countryCode]"))
}

func TestPathValuesAreEscaped(t *testing.T) {
	server, _, last := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	_, err := d.Invoke(context.Background(), "get_field_details", map[string]any{"id": "a/b c"})
	require.NoError(t, err)
	assert.Equal(t, "/fields/a/b c", last().Path, "decoded path round-trips")

	cfg, err := d.BuildRequest("get_field_details", map[string]any{"id": "a/b c"})
	require.NoError(t, err)
	assert.Equal(t, "/fields/a%2Fb%20c", cfg.Path)
	assert.Equal(t, "/fields/{id}", cfg.Endpoint)
}

func TestDotSegmentPathValuesRejected(t *testing.T) {
	server, calls, _ := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	cases := []struct {
		tool string
		args map[string]any
	}{
		{"get_field_details", map[string]any{"id": ".."}},
		{"get_field_details", map[string]any{"id": "."}},
		{"get_entity_legal_form", map[string]any{"id": "."}},
		{"get_entity_legal_form", map[string]any{"id": ".."}},
	}
	for _, tc := range cases {
		_, err := d.Invoke(context.Background(), tc.tool, tc.args)
		require.Error(t, err, "%s %v", tc.tool, tc.args)
		assert.True(t, apierrors.IsValidation(err), "%s %v: %v", tc.tool, tc.args, err)

		msg := errorMessage(t, d.Call(context.Background(), tc.tool, tc.args))
		assert.Contains(t, msg, "relative path segment")
	}
	assert.Equal(t, int32(0), calls.Load())

	_, err := d.Invoke(context.Background(), "get_field_details", map[string]any{"id": "..."})
	require.NoError(t, err, "only exact dot segments are rejected")
	assert.Equal(t, int32(1), calls.Load())
}

func TestUnknownTool(t *testing.T) {
	server, calls, _ := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	_, err := d.Invoke(context.Background(), "get_company", nil)
	require.Error(t, err)
	assert.True(t, apierrors.IsUnknownTool(err))

	msg := errorMessage(t, d.Call(context.Background(), "get_company", nil))
	assert.Contains(t, msg, "get_company")
	assert.Equal(t, int32(0), calls.Load())
}

func TestUnsupportedArgumentType(t *testing.T) {
	server, _, _ := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	_, err := d.Invoke(context.Background(), "get_country", map[string]any{"code": map[string]any{"iso": "DE"}})
	require.Error(t, err)
	assert.True(t, apierrors.IsValidation(err))
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	d := newTestDispatcher(t, serverURL)

	_, err := d.Invoke(context.Background(), "list_countries", nil)
	require.Error(t, err)
	assert.True(t, apierrors.IsTransport(err))

	errorMessage(t, d.Call(context.Background(), "list_countries", nil))
}

func TestContextCanceled(t *testing.T) {
	server, _, _ := mockGLEIF(t, http.StatusOK, `{}`)
	d := newTestDispatcher(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Invoke(ctx, "list_countries", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticHeaders(t *testing.T) {
	server, _, last := mockGLEIF(t, http.StatusOK, `{}`)

	catalog, err := NewCatalog(Descriptor{
		Name:    "list_fields_localized",
		Path:    "/fields",
		Headers: map[string]string{"Accept-Language": "de"},
	})
	require.NoError(t, err)

	d := newTestDispatcher(t, server.URL, WithCatalog(catalog))

	_, err = d.Invoke(context.Background(), "list_fields_localized", nil)
	require.NoError(t, err)
	assert.Equal(t, "de", last().Header.Get("Accept-Language"))
	assert.Equal(t, base.DefaultAccept, last().Header.Get("Accept"))
}

func TestConcurrentInvocations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"data":{"path":%q}}`, r.URL.Path)
	}))
	t.Cleanup(server.Close)

	d := newTestDispatcher(t, server.URL)

	codes := []string{"DE", "FR", "NO", "SE", "DK", "FI", "US", "GB", "JP", "CH"}
	results := make([]string, len(codes))

	var wg sync.WaitGroup
	for i, code := range codes {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			results[i] = string(d.Call(context.Background(), "get_country", map[string]any{"code": code}))
		}(i, code)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, fmt.Sprintf(`{"data":{"path":"/countries/%s"}}`, code), results[i])
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name        string
		in          any
		want        string
		wantPresent bool
	}{
		{"nil", nil, "", false},
		{"string", "ISSUED", "ISSUED", true},
		{"trimmed string", "  DE ", "DE", true},
		{"blank string", "   ", "", false},
		{"integral float", float64(25), "25", true},
		{"fractional float", 2.5, "2.5", true},
		{"int", 7, "7", true},
		{"json number", json.Number("12"), "12", true},
		{"integral json number", json.Number("3.0"), "3", true},
		{"fractional json number", json.Number("0.25"), "0.25", true},
		{"bool", false, "false", true},
		{"list", []any{"A", float64(1), true}, "A,1,true", true},
		{"string list", []string{"A", " ", "B"}, "A,B", true},
		{"empty list", []any{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, present, err := formatValue("arg", tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantPresent, present)
		})
	}

	_, _, err := formatValue("arg", []any{[]any{"nested"}})
	assert.Error(t, err)
}
