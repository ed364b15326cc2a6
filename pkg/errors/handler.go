package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const internalMessage = "An internal error occurred"

// ErrorResponse represents the API error response format
type ErrorResponse struct {
	Error          bool                   `json:"error"`
	Type           string                 `json:"type"`
	Message        string                 `json:"message"`
	Code           string                 `json:"code,omitempty"`
	Details        map[string]interface{} `json:"details,omitempty"`
	RetryAfterDays *int                   `json:"retryAfterDays,omitempty"`
	RequestID      string                 `json:"request_id,omitempty"`
}

// ErrorHandler turns errors into JSON responses
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorHandler creates a new error handler. In debug mode server errors
// keep their message and carry the stack trace.
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
		debug:  debug,
	}
}

// Handle logs err and writes it as a JSON error response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	appErr := GetAppError(err)
	if appErr == nil {
		appErr = NewInternalError(internalMessage).WithCause(err)
	}

	requestID := middleware.GetReqID(r.Context())
	status, body := h.render(appErr, requestID)
	h.logError(r, appErr, status, requestID)

	if body.RetryAfterDays != nil {
		w.Header().Set("Retry-After", strconv.Itoa(*body.RetryAfterDays*24*60*60))
	}
	h.sendJSON(w, status, body)
}

// render builds the status and body for an application error
func (h *ErrorHandler) render(appErr *AppError, requestID string) (int, ErrorResponse) {
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	body := ErrorResponse{
		Error:     true,
		Type:      string(appErr.Type),
		Message:   appErr.Message,
		Code:      appErr.Code,
		Details:   appErr.Details,
		RequestID: requestID,
	}
	if days, ok := appErr.RetryAfterDays(); ok {
		body.RetryAfterDays = &days
	}

	if status < http.StatusInternalServerError {
		return status, body
	}

	// Server errors never leak store or driver detail outside debug mode
	if !h.debug {
		body.Message = internalMessage
		body.Details = nil
		return status, body
	}
	if appErr.Cause != nil {
		body.Message = fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
	}
	if appErr.StackTrace != "" {
		body.Details = map[string]interface{}{"stack_trace": appErr.StackTrace}
		for k, v := range appErr.Details {
			body.Details[k] = v
		}
	}
	return status, body
}

func (h *ErrorHandler) logError(r *http.Request, err *AppError, status int, requestID string) {
	fields := []zap.Field{
		zap.String("error_type", string(err.Type)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", requestID),
	}
	if err.Code != "" {
		fields = append(fields, zap.String("error_code", err.Code))
	}
	if err.Cause != nil {
		fields = append(fields, zap.Error(err.Cause))
	}
	if len(err.Details) > 0 {
		fields = append(fields, zap.Any("details", err.Details))
	}

	// Taxonomy errors are expected outcomes of client requests
	if status >= http.StatusInternalServerError {
		fields = append(fields, zap.String("stack_trace", err.StackTrace))
		h.logger.Error(err.Message, fields...)
		return
	}
	h.logger.Warn(err.Message, fields...)
}

func (h *ErrorHandler) sendJSON(w http.ResponseWriter, status int, data ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// Middleware converts panics in downstream handlers into 500 responses
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
