// Package handler turns typed functions into http.HandlerFuncs.
//
// A HandlerFunc receives the request already bound into its own struct and
// returns a Response. Binding failures and error responses go through one
// ErrorHandler, which classifies the error, logs it with the request id and
// renders it:
//
//	type StopRequest struct {
//		TenantID string `path:"tenantID"`
//	}
//
//	stop := func(ctx handler.Context, req StopRequest) handler.Response {
//		if err := sup.Stop(ctx, req.TenantID); err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.Empty()
//	}
//
//	errs := handler.NewErrorHandler(log, handler.WithClassifier(classifyDomainErrors))
//	r.Delete("/api/sessions/{tenantID}", handler.Wrap(stop,
//		handler.WithBinders[StopRequest](binder.Path(chi.URLParam)),
//		handler.WithErrorHandler[StopRequest](errs),
//	))
package handler
