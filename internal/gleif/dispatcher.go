package gleif

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/olgasafonova/gleif-mcp-server/internal/base"
	apierrors "github.com/olgasafonova/gleif-mcp-server/internal/errors"
	"github.com/olgasafonova/gleif-mcp-server/tracing"
)

// maxErrorBody bounds the upstream body excerpt carried in error messages
const maxErrorBody = 300

// Dispatcher executes catalog tools against the GLEIF API.
// It holds no per-call state and is safe for concurrent use.
type Dispatcher struct {
	client  *base.Client
	catalog *Catalog
	logger  *slog.Logger
}

// DispatcherOption configures the Dispatcher
type DispatcherOption func(*Dispatcher)

// WithCatalog replaces the default tool catalog
func WithCatalog(c *Catalog) DispatcherOption {
	return func(d *Dispatcher) {
		d.catalog = c
	}
}

// WithDispatcherLogger sets the logger used for request tracing
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher creates a dispatcher over client using the default catalog.
func NewDispatcher(client *base.Client, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		client:  client,
		catalog: DefaultCatalog(),
		logger:  client.Logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Catalog returns the dispatcher's tool catalog.
func (d *Dispatcher) Catalog() *Catalog {
	return d.catalog
}

// BuildRequest resolves a tool invocation into an upstream request without
// performing any I/O. Unrecognized arguments are ignored.
func (d *Dispatcher) BuildRequest(name string, args map[string]any) (base.RequestConfig, error) {
	desc, ok := d.catalog.Lookup(name)
	if !ok {
		return base.RequestConfig{}, &apierrors.UnknownToolError{Tool: name}
	}
	return desc.buildRequest(args)
}

// Invoke runs a tool and returns the upstream JSON document unchanged.
// Errors are typed; see internal/errors.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	cfg, err := d.BuildRequest(name, args)
	if err != nil {
		return nil, err
	}

	tracing.AddUpstreamAttributes(trace.SpanFromContext(ctx), cfg.Endpoint, cfg.Path)
	d.logger.Debug("Dispatching GLEIF request",
		"tool", name,
		"path", cfg.Path,
		"query", cfg.Query)

	body, status, err := d.client.DoRequest(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		return nil, &apierrors.UpstreamHTTPError{
			StatusCode: status,
			Path:       cfg.Path,
			Body:       base.Truncate(strings.TrimSpace(string(body)), maxErrorBody),
		}
	}

	if !json.Valid(body) {
		return nil, &apierrors.MalformedResponseError{
			Path: cfg.Path,
			Body: base.Truncate(string(body), maxErrorBody),
		}
	}

	return json.RawMessage(body), nil
}

// Call runs a tool and always returns a JSON document: the upstream body on
// success, {"error": "..."} on any failure.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) json.RawMessage {
	doc, err := d.Invoke(ctx, name, args)
	if err != nil {
		return apierrors.Document(err)
	}
	return doc
}

// buildRequest interpolates path placeholders and encodes query arguments.
func (desc Descriptor) buildRequest(args map[string]any) (base.RequestConfig, error) {
	path := desc.Path
	for _, p := range desc.PathParams {
		value, present, err := formatValue(p.Name, args[p.Name])
		if err != nil {
			return base.RequestConfig{}, err
		}
		if !present {
			return base.RequestConfig{}, apierrors.NewMissingParameterError(desc.Name, p.Name, "path")
		}
		if p.Normalize != nil {
			value = p.Normalize(value)
		}
		if p.Validate != nil {
			if err := p.Validate(value); err != nil {
				return base.RequestConfig{}, err
			}
		}
		// PathEscape leaves dot segments intact and the URL resolver collapses them
		if value == "." || value == ".." {
			return base.RequestConfig{}, apierrors.NewValidationError(p.Name, value, "must not be a relative path segment")
		}
		path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(value))
	}

	query := url.Values{}

	// Named arguments are applied after the free-form filters and win on conflict.
	if desc.AllowFilters {
		if err := applyFilters(query, args[FiltersArgument]); err != nil {
			return base.RequestConfig{}, err
		}
	}

	for _, q := range desc.QueryParams {
		value, present, err := formatValue(q.Name, args[q.Name])
		if err != nil {
			return base.RequestConfig{}, err
		}
		if !present {
			if q.Required {
				return base.RequestConfig{}, apierrors.NewMissingParameterError(desc.Name, q.Name, "query")
			}
			continue
		}
		if q.Normalize != nil {
			value = q.Normalize(value)
		}
		if q.Validate != nil {
			if err := q.Validate(value); err != nil {
				return base.RequestConfig{}, err
			}
		}
		query.Set(q.Key, value)
	}

	return base.RequestConfig{
		Path:     path,
		Query:    query.Encode(),
		Endpoint: desc.Path,
		Headers:  desc.Headers,
	}, nil
}

// applyFilters forwards each entry of the filters object as filter[<key>].
func applyFilters(query url.Values, raw any) error {
	if raw == nil {
		return nil
	}
	filters, ok := raw.(map[string]any)
	if !ok {
		return apierrors.NewValidationError(FiltersArgument, fmt.Sprint(raw), "must be an object of GLEIF filter names to values")
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		field := strings.TrimSpace(k)
		if field == "" {
			continue
		}
		value, present, err := formatValue(FiltersArgument+"."+field, filters[k])
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		query.Set(filterKey(field), value)
	}
	return nil
}

// filterKey wraps a GLEIF field path as filter[<path>], accepting keys that are already wrapped.
func filterKey(field string) string {
	if strings.HasPrefix(field, "filter[") && strings.HasSuffix(field, "]") {
		return field
	}
	return "filter[" + field + "]"
}

// formatValue renders a decoded JSON argument as a query or path value.
// The boolean result is false when the value counts as absent.
func formatValue(name string, v any) (string, bool, error) {
	switch val := v.(type) {
	case nil:
		return "", false, nil
	case string:
		s := strings.TrimSpace(val)
		return s, s != "", nil
	case bool:
		return strconv.FormatBool(val), true, nil
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10), true, nil
		}
		return strconv.FormatFloat(val, 'f', -1, 64), true, nil
	case int:
		return strconv.Itoa(val), true, nil
	case int64:
		return strconv.FormatInt(val, 10), true, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true, nil
		}
		if f, err := val.Float64(); err == nil {
			return formatValue(name, f)
		}
		return val.String(), true, nil
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return formatList(name, items)
	case []any:
		return formatList(name, val)
	default:
		return "", false, apierrors.NewValidationError(name, fmt.Sprint(v), fmt.Sprintf("unsupported value type %T", v))
	}
}

// formatList joins list items with commas, GLEIF's multi-value syntax.
func formatList(name string, items []any) (string, bool, error) {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if _, nested := item.([]any); nested {
			return "", false, apierrors.NewValidationError(name, fmt.Sprint(item), "nested lists are not supported")
		}
		s, present, err := formatValue(name, item)
		if err != nil {
			return "", false, err
		}
		if present {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", false, nil
	}
	return strings.Join(parts, ","), true, nil
}
