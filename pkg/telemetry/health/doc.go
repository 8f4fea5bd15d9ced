// Package health provides liveness, readiness and version endpoints.
//
//   - /health: the process is running
//   - /ready: every registered check passes (storage ping, for example)
//   - /version: build information
//
// Usage:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("storage", health.PingCheck(store))
//	health.Register(mux, checker, version, commit, buildTime)
package health
