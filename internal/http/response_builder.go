package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"moneysaver/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ServiceUnavailableError creates a 503 Service Unavailable error response.
func ServiceUnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// ErrorFor maps a ledger error onto its HTTP response.
func ErrorFor(err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, core.ErrGoalNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, core.ErrInvalidTimestamp):
		return BadRequestError(err.Error())
	case errors.Is(err, core.ErrRejected),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidDayOfMonth),
		errors.Is(err, core.ErrEmptyName):
		return UnprocessableEntityError(err.Error())
	case errors.Is(err, core.ErrStorageUnavailable):
		return ServiceUnavailableError("storage unavailable")
	default:
		return InternalServerError("internal error")
	}
}
