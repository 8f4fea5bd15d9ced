// Package server exposes the growth service over HTTP.
//
// Routes:
//
//	POST /v1/experiments/{experiment}/assignments   assign a subject
//	GET  /v1/experiments/{experiment}/comparison    compare variants (?from=&to=)
//	POST /v1/events                                 record a funnel event
//	GET  /v1/funnel                                 stage counts (?days=&bucket=)
//	PUT  /v1/strategies/{type}/versions/{version}   register or activate
//	GET  /v1/strategies/{type}/versions             list versions
//	POST /v1/strategies/{type}/rollback             reactivate latest baseline
//	GET  /v1/strategies/{type}/active               active version
//	GET  /health, /ready, /version                  probes
//	GET  /metrics                                   Prometheus exposition
//
// Responses wrap their payload in a named field. Absent results, such as
// no active strategy, are encoded as null:
//
//	{"active": null}
//
// Errors use {"error": {"type", "message", "field"}}. Validation failures
// return 400, storage failures 503 and request deadline overruns 504.
//
// Usage:
//
//	srv := server.NewServer(&cfg.Server, svc, &server.Options{Metrics: collector})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
package server
