package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apierrors "github.com/olgasafonova/gleif-mcp-server/internal/errors"
	"github.com/olgasafonova/gleif-mcp-server/internal/gleif"
	"github.com/olgasafonova/gleif-mcp-server/metrics"
	"github.com/olgasafonova/gleif-mcp-server/tracing"
)

// HandlerRegistry binds ToolSpecs to the GLEIF dispatcher and registers
// them with an MCP server.
type HandlerRegistry struct {
	dispatcher *gleif.Dispatcher
	logger     *slog.Logger
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(dispatcher *gleif.Dispatcher, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterAll registers all tools with the MCP server.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server) {
	registered := 0
	for _, spec := range AllTools {
		if h.registerByName(server, spec) {
			registered++
		}
	}
	h.logger.Info("Registered all tools", "count", registered)
}

// registerByName looks up the descriptor for spec and registers its handler.
func (h *HandlerRegistry) registerByName(server *mcp.Server, spec ToolSpec) bool {
	desc, ok := h.dispatcher.Catalog().Lookup(spec.Name)
	if !ok {
		h.logger.Error("Unknown tool, not registered", "tool", spec.Name)
		return false
	}

	server.AddTool(h.buildTool(spec, desc), h.handler(spec))
	return true
}

// buildTool creates an mcp.Tool from a ToolSpec and its descriptor.
func (h *HandlerRegistry) buildTool(spec ToolSpec, desc gleif.Descriptor) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	} else {
		annotations.DestructiveHint = ptr(false)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	description := spec.Description
	if description == "" {
		description = desc.Description
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Title:       spec.Title,
		Description: description,
		InputSchema: InputSchema(desc),
		Annotations: annotations,
	}
}

// handler wraps the dispatcher with panic recovery, metrics, tracing, and logging.
// Failures are returned as tool results carrying {"error": "..."}, never as protocol errors.
func (h *HandlerRegistry) handler(spec ToolSpec) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (result *mcp.CallToolResult, _ error) {
		callID := uuid.NewString()
		defer h.recoverPanic(spec.Name, callID, &result)

		// Start trace span
		ctx, span := tracing.StartSpan(ctx, "mcp.tool."+spec.Name)
		defer span.End()

		tracing.AddToolAttributes(span, spec.Name, spec.Category)
		span.SetAttributes(attribute.Bool("mcp.tool.readonly", spec.ReadOnly))

		// Track in-flight requests
		metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
		defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

		start := time.Now()
		args, err := decodeArguments(req.Params.Arguments)
		var doc json.RawMessage
		if err == nil {
			doc, err = h.dispatcher.Invoke(ctx, spec.Name, args)
		}
		duration := time.Since(start).Seconds()

		span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))
		tracing.AddCallAttributes(span, callID, err != nil)

		if err != nil {
			kind := apierrors.Kind(err)
			tracing.RecordError(span, err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest(spec.Name, duration, false)
			metrics.RecordToolError(spec.Name, kind)
			h.logger.Warn("Tool failed",
				"tool", spec.Name,
				"call_id", callID,
				"kind", kind,
				"error", err,
				"duration_ms", int64(duration*1000))
			return ErrorResult(err), nil
		}

		span.SetStatus(codes.Ok, "")
		metrics.RecordRequest(spec.Name, duration, true)
		metrics.RecordResponseSize(spec.Name, len(doc))
		h.logExecution(spec, callID, args, doc, duration)
		return DocumentResult(doc), nil
	}
}

// decodeArguments parses raw tool arguments into a map.
// Absent or null arguments are an empty map.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	args := make(map[string]any)
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return args, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, apierrors.NewValidationError("arguments", "", "must be a JSON object")
	}
	return args, nil
}

// DocumentResult wraps an upstream JSON document as a tool result.
// Object documents are also exposed as structured content.
func DocumentResult(doc json.RawMessage) *mcp.CallToolResult {
	result := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(doc)}},
	}
	if trimmed := bytes.TrimSpace(doc); len(trimmed) > 0 && trimmed[0] == '{' {
		result.StructuredContent = doc
	}
	return result
}

// ErrorResult renders err as an {"error": "..."} tool result.
func ErrorResult(err error) *mcp.CallToolResult {
	doc := json.RawMessage(apierrors.Document(err))
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(doc)}},
		StructuredContent: doc,
		IsError:           true,
	}
}

// recoverPanic recovers from panics in tool handlers and reports them as error results.
func (h *HandlerRegistry) recoverPanic(toolName, callID string, result **mcp.CallToolResult) {
	if rec := recover(); rec != nil {
		metrics.PanicsRecovered.WithLabelValues(toolName).Inc()
		metrics.RecordToolError(toolName, "internal")
		h.logger.Error("Panic recovered",
			"tool", toolName,
			"call_id", callID,
			"panic", rec,
			"stack", string(debug.Stack()))
		*result = ErrorResult(fmt.Errorf("internal error in %s: %v", toolName, rec))
	}
}

// logExecution logs tool execution details.
func (h *HandlerRegistry) logExecution(spec ToolSpec, callID string, args map[string]any, doc json.RawMessage, duration float64) {
	attrs := []any{
		"tool", spec.Name,
		"call_id", callID,
		"duration_ms", int64(duration * 1000),
		"bytes", len(doc),
	}

	// Identifying arguments
	for _, key := range []string{"lei", "id", "code", "q", "legal_name", "fulltext", "country"} {
		if v, ok := args[key]; ok {
			attrs = append(attrs, key, v)
		}
	}

	// Summary fields from the JSON:API document
	data := gjson.GetBytes(doc, "data")
	switch {
	case data.IsArray():
		attrs = append(attrs, "results_count", len(data.Array()))
	case data.IsObject():
		attrs = append(attrs, "data_id", data.Get("id").String(), "data_type", data.Get("type").String())
	}
	if total := gjson.GetBytes(doc, "meta.pagination.total"); total.Exists() {
		attrs = append(attrs, "total_results", total.Int())
	}
	if last := gjson.GetBytes(doc, "meta.pagination.lastPage"); last.Exists() {
		attrs = append(attrs, "last_page", last.Int())
	}

	h.logger.Info("Tool executed", attrs...)
}
