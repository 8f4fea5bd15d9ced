// Package middleware provides the HTTP middleware of the growth API server:
// panic recovery, request IDs, access logging and request deadlines.
//
//	handler := middleware.Chain(mux,
//	    middleware.RecoveryMiddleware(logger),
//	    middleware.RequestIDMiddleware,
//	    middleware.LoggingMiddleware(logger),
//	    middleware.TimeoutMiddleware(30*time.Second),
//	)
package middleware
