package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/wamux/pkg/binder"
	"github.com/dmitrymomot/wamux/pkg/logger"
	"github.com/dmitrymomot/wamux/pkg/requestid"
)

// ErrorInfo is the classified form of an error.
type ErrorInfo struct {
	StatusCode int
	Code       string
	Message    string
}

// Classifier maps an error to ErrorInfo. It reports false for errors it
// does not recognise.
type Classifier func(err error) (ErrorInfo, bool)

// Renderer writes an already classified error.
type Renderer func(ctx Context, info ErrorInfo)

type ErrorHandlerOption func(*errorHandlerConfig)

type errorHandlerConfig struct {
	classifiers []Classifier
	render      Renderer
}

// WithClassifier adds a classifier tried before the built-in ones.
func WithClassifier(c Classifier) ErrorHandlerOption {
	return func(cfg *errorHandlerConfig) {
		if c != nil {
			cfg.classifiers = append(cfg.classifiers, c)
		}
	}
}

// WithRenderer replaces the default {"error":{...}} body.
func WithRenderer(r Renderer) ErrorHandlerOption {
	return func(cfg *errorHandlerConfig) {
		if r != nil {
			cfg.render = r
		}
	}
}

// DefaultErrorHandler classifies with the built-in rules, renders the
// default body and does not log.
var DefaultErrorHandler = NewErrorHandler(logger.Nop())

// NewErrorHandler logs each error with the request id and renders it.
// 4xx errors log at warn level, everything else at error.
func NewErrorHandler(log *slog.Logger, opts ...ErrorHandlerOption) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}
	cfg := &errorHandlerConfig{render: renderJSONError}
	for _, opt := range opts {
		opt(cfg)
	}
	classifiers := append(cfg.classifiers, classifyBuiltin)

	return func(ctx Context, err error) {
		info := ErrorInfo{StatusCode: http.StatusInternalServerError, Code: ErrInternalServerError.Key}
		for _, classify := range classifiers {
			if ci, ok := classify(err); ok {
				info = ci
				break
			}
		}

		level := slog.LevelError
		if info.StatusCode < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		r := ctx.Request()
		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", info.StatusCode),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		cfg.render(ctx, info)
	}
}

func classifyBuiltin(err error) (ErrorInfo, bool) {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return ErrorInfo{StatusCode: httpErr.Code, Code: httpErr.Key, Message: http.StatusText(httpErr.Code)}, true
	case errors.Is(err, binder.ErrUnsupportedMediaType):
		return ErrorInfo{StatusCode: http.StatusUnsupportedMediaType, Code: ErrUnsupportedMediaType.Key, Message: err.Error()}, true
	case errors.Is(err, binder.ErrBodyTooLarge):
		return ErrorInfo{StatusCode: http.StatusRequestEntityTooLarge, Code: ErrRequestTooLarge.Key, Message: err.Error()}, true
	case errors.Is(err, binder.ErrInvalidJSON),
		errors.Is(err, binder.ErrInvalidQuery),
		errors.Is(err, binder.ErrInvalidPath):
		return ErrorInfo{StatusCode: http.StatusBadRequest, Code: ErrBadRequest.Key, Message: err.Error()}, true
	}
	return ErrorInfo{}, false
}

func renderJSONError(ctx Context, info ErrorInfo) {
	w := ctx.ResponseWriter()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(info.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: ErrorDetail{Code: info.Code, Message: info.Message}})
}
