// Package errors provides the error taxonomy shared by the GLEIF tool dispatcher.
// Every error produced while serving a tool call is one of these types and is
// rendered to the caller as a {"error": "<message>"} document.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/sjson"
)

// MissingParameterError indicates a required path placeholder or query value was absent.
type MissingParameterError struct {
	Tool      string
	Parameter string
	Location  string // "path" or "query"
}

func (e *MissingParameterError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("missing required %s parameter %q for %s", e.Location, e.Parameter, e.Tool)
	}
	return fmt.Sprintf("missing required parameter %q for %s", e.Parameter, e.Tool)
}

// NewMissingParameterError creates a MissingParameterError.
func NewMissingParameterError(tool, parameter, location string) *MissingParameterError {
	return &MissingParameterError{
		Tool:      tool,
		Parameter: parameter,
		Location:  location,
	}
}

// ValidationError indicates a parameter was present but malformed.
type ValidationError struct {
	Field   string // argument name that failed validation
	Value   string // the invalid value (may be empty)
	Message string // human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// UnknownToolError indicates a call named a tool that is not in the catalog.
type UnknownToolError struct {
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %q", e.Tool)
}

// UpstreamHTTPError indicates GLEIF answered with a non-2xx status.
type UpstreamHTTPError struct {
	StatusCode int
	Path       string
	Body       string // truncated response body
}

func (e *UpstreamHTTPError) Error() string {
	var sb strings.Builder
	if e.StatusCode == http.StatusNotFound {
		sb.WriteString(fmt.Sprintf("not found: GLEIF API returned HTTP %d for %s", e.StatusCode, e.Path))
	} else {
		sb.WriteString(fmt.Sprintf("GLEIF API returned HTTP %d %s for %s", e.StatusCode, http.StatusText(e.StatusCode), e.Path))
	}
	if e.Body != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Body)
	}
	return sb.String()
}

// UpstreamTransportError indicates the request never produced an HTTP response
// (DNS, connection, TLS, timeout or cancellation).
type UpstreamTransportError struct {
	Path string
	Err  error
}

func (e *UpstreamTransportError) Error() string {
	return fmt.Sprintf("request error for %s: %v", e.Path, e.Err)
}

func (e *UpstreamTransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError indicates a 2xx response whose body is not valid JSON.
type MalformedResponseError struct {
	Path string
	Body string // truncated response body
}

func (e *MalformedResponseError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("malformed response from %s: empty body is not valid JSON", e.Path)
	}
	return fmt.Sprintf("malformed response from %s: body is not valid JSON: %s", e.Path, e.Body)
}

// IsMissingParameter returns true if err is or wraps a MissingParameterError.
func IsMissingParameter(err error) bool {
	var target *MissingParameterError
	return errors.As(err, &target)
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsUnknownTool returns true if err is or wraps an UnknownToolError.
func IsUnknownTool(err error) bool {
	var target *UnknownToolError
	return errors.As(err, &target)
}

// IsNotFound returns true if err is an upstream 404.
func IsNotFound(err error) bool {
	var target *UpstreamHTTPError
	return errors.As(err, &target) && target.StatusCode == http.StatusNotFound
}

// IsUpstreamHTTP returns true if err is or wraps an UpstreamHTTPError.
func IsUpstreamHTTP(err error) bool {
	var target *UpstreamHTTPError
	return errors.As(err, &target)
}

// IsTransport returns true if err is or wraps an UpstreamTransportError.
func IsTransport(err error) bool {
	var target *UpstreamTransportError
	return errors.As(err, &target)
}

// IsMalformedResponse returns true if err is or wraps a MalformedResponseError.
func IsMalformedResponse(err error) bool {
	var target *MalformedResponseError
	return errors.As(err, &target)
}

// Kind returns a short, stable label for err, used for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsMissingParameter(err):
		return "missing_parameter"
	case IsValidation(err):
		return "validation"
	case IsUnknownTool(err):
		return "unknown_tool"
	case IsUpstreamHTTP(err):
		return "upstream_http"
	case IsTransport(err):
		return "upstream_transport"
	case IsMalformedResponse(err):
		return "malformed_response"
	default:
		return "internal"
	}
}

// Document renders err as the uniform {"error": "<message>"} JSON object.
func Document(err error) []byte {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	doc, setErr := sjson.Set("{}", "error", msg)
	if setErr != nil {
		// sjson only fails on invalid paths; "error" is a constant key
		return []byte(`{"error":"internal error"}`)
	}
	return []byte(doc)
}
