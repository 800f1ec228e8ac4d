package transport

import (
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/wamux/pkg/binder"
	"github.com/dmitrymomot/wamux/pkg/handler"
	"github.com/dmitrymomot/wamux/pkg/logger"
	"github.com/dmitrymomot/wamux/pkg/ratelimiter"
	"github.com/dmitrymomot/wamux/pkg/supervisor"
)

// KindRateLimited is reported when a tenant sends faster than allowed.
const KindRateLimited = "rate_limited"

type SendMessageRequest struct {
	TenantID  string `json:"tenant_id"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
}

// Result is the body of POST /api/messages.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) sendMessage() http.HandlerFunc {
	return handler.Wrap(func(ctx handler.Context, req SendMessageRequest) handler.Response {
		if err := s.sessions.SendMessage(ctx, req.TenantID, req.Recipient, req.Body); err != nil {
			return handler.JSONError(err)
		}
		return handler.JSON(Result{Success: true})
	},
		handler.WithBinders[SendMessageRequest](binder.JSONWithLimit(s.cfg.MaxBodySize)),
		handler.WithErrorHandler[SendMessageRequest](s.errs),
		handler.WithDecorators[SendMessageRequest](s.limitSends),
	)
}

// limitSends applies the per-tenant send budget. Limiter failures let the
// message through.
func (s *Server) limitSends(next handler.HandlerFunc[SendMessageRequest]) handler.HandlerFunc[SendMessageRequest] {
	if s.sendLimiter == nil {
		return next
	}
	return func(ctx handler.Context, req SendMessageRequest) handler.Response {
		if req.TenantID == "" {
			return next(ctx, req)
		}
		res, err := s.sendLimiter.Allow(ctx, req.TenantID)
		if err != nil {
			s.log.WarnContext(ctx, "send limiter unavailable", logger.Error(err))
			return next(ctx, req)
		}
		ratelimiter.SetHeaders(ctx.ResponseWriter(), res)
		if !res.Allowed() {
			return handler.JSONError(ratelimiter.ErrRateLimited)
		}
		return next(ctx, req)
	}
}

type ListSessionsRequest struct {
	Status []string `query:"status"`
}

func (s *Server) listSessions() http.HandlerFunc {
	return handler.Wrap(func(_ handler.Context, req ListSessionsRequest) handler.Response {
		all := s.sessions.Sessions()
		if len(req.Status) > 0 {
			all = slices.DeleteFunc(all, func(info supervisor.SessionInfo) bool {
				return !slices.Contains(req.Status, string(info.Status))
			})
		}
		if all == nil {
			all = []supervisor.SessionInfo{}
		}
		return handler.JSON(all)
	},
		handler.WithBinders[ListSessionsRequest](binder.Query()),
		handler.WithErrorHandler[ListSessionsRequest](s.errs),
	)
}

type StopSessionRequest struct {
	TenantID string `path:"tenantID"`
}

func (s *Server) stopSession() http.HandlerFunc {
	return handler.Wrap(func(ctx handler.Context, req StopSessionRequest) handler.Response {
		if err := s.sessions.Stop(ctx, req.TenantID); err != nil {
			return handler.JSONError(err)
		}
		return handler.Empty()
	},
		handler.WithBinders[StopSessionRequest](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[StopSessionRequest](s.errs),
	)
}

// classifySupervisorError maps supervisor and binding errors to the status
// codes of the HTTP API. The Code is the wire kind.
func classifySupervisorError(err error) (handler.ErrorInfo, bool) {
	switch kind := supervisor.Kind(err); kind {
	case supervisor.KindInvalidInput:
		return handler.ErrorInfo{StatusCode: http.StatusBadRequest, Code: kind}, true
	case supervisor.KindSessionNotFound:
		return handler.ErrorInfo{StatusCode: http.StatusNotFound, Code: kind}, true
	case supervisor.KindSessionNotReady:
		return handler.ErrorInfo{StatusCode: http.StatusConflict, Code: kind}, true
	case supervisor.KindDeliveryFailed:
		return handler.ErrorInfo{StatusCode: http.StatusBadGateway, Code: kind}, true
	}
	switch {
	case errors.Is(err, binder.ErrBodyTooLarge):
		return handler.ErrorInfo{StatusCode: http.StatusRequestEntityTooLarge, Code: supervisor.KindInvalidInput}, true
	case errors.Is(err, binder.ErrUnsupportedMediaType):
		return handler.ErrorInfo{StatusCode: http.StatusUnsupportedMediaType, Code: supervisor.KindInvalidInput}, true
	case errors.Is(err, binder.ErrInvalidJSON),
		errors.Is(err, binder.ErrInvalidQuery),
		errors.Is(err, binder.ErrInvalidPath):
		return handler.ErrorInfo{StatusCode: http.StatusBadRequest, Code: supervisor.KindInvalidInput}, true
	case errors.Is(err, ratelimiter.ErrRateLimited):
		return handler.ErrorInfo{StatusCode: http.StatusTooManyRequests, Code: KindRateLimited}, true
	case errors.Is(err, supervisor.ErrShuttingDown):
		return handler.ErrorInfo{StatusCode: http.StatusServiceUnavailable, Code: "shutting_down"}, true
	}
	return handler.ErrorInfo{StatusCode: http.StatusInternalServerError, Code: "internal_error"}, true
}

func renderFailure(ctx handler.Context, info handler.ErrorInfo) {
	_ = handler.JSON(Result{Success: false, Error: info.Code}, handler.WithJSONStatus(info.StatusCode)).
		Render(ctx.ResponseWriter(), ctx.Request())
}
