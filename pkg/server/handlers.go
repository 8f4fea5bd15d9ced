package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"mercator-hq/growth/pkg/config"
	"mercator-hq/growth/pkg/growth"
	"mercator-hq/growth/pkg/growth/assignment"
	"mercator-hq/growth/pkg/growth/funnel"
	"mercator-hq/growth/pkg/growth/rollout"
	"mercator-hq/growth/pkg/growth/service"
)

// handlers adapts the service facade to JSON over HTTP.
type handlers struct {
	svc    *service.Service
	logger *slog.Logger
}

// AssignRequest is the body of POST /v1/experiments/{experiment}/assignments.
// Omitting variants selects the configured defaults; an empty list is
// rejected.
type AssignRequest struct {
	SubjectID       string   `json:"subject_id"`
	Variants        []string `json:"variants,omitempty"`
	StrategyVersion string   `json:"strategy_version,omitempty"`
}

// EventRequest is the body of POST /v1/events.
type EventRequest struct {
	SubjectID       string `json:"subject_id"`
	Stage           string `json:"stage"`
	ExperimentID    string `json:"experiment_id,omitempty"`
	Variant         string `json:"variant,omitempty"`
	StrategyVersion string `json:"strategy_version,omitempty"`
}

// SetVersionRequest is the optional body of
// PUT /v1/strategies/{type}/versions/{version}.
type SetVersionRequest struct {
	Active   bool `json:"active"`
	Baseline bool `json:"baseline"`
}

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (h *handlers) assignVariant(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	a, err := h.svc.AssignVariant(r.Context(), assignment.Request{
		ExperimentID:    r.PathValue("experiment"),
		SubjectID:       req.SubjectID,
		Variants:        req.Variants,
		StrategyVersion: req.StrategyVersion,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if a.NewAssignment {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"assignment": a})
}

func (h *handlers) recordEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	e, err := h.svc.RecordEvent(r.Context(), funnel.EventRequest{
		SubjectID:       req.SubjectID,
		Stage:           req.Stage,
		ExperimentID:    req.ExperimentID,
		Variant:         req.Variant,
		StrategyVersion: req.StrategyVersion,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"event": e})
}

func (h *handlers) funnelStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	days := config.DefaultFunnelDays
	if raw := q.Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, growth.NewValidationError("days", fmt.Sprintf("%q is not an integer", raw)))
			return
		}
		days = n
	}

	bucket := q.Get("bucket")
	if bucket == "" {
		bucket = growth.BucketDay
	}

	stats, err := h.svc.FunnelStats(r.Context(), days, bucket)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"funnel": stats})
}

func (h *handlers) compareVariants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cmp, err := h.svc.CompareVariants(r.Context(), r.PathValue("experiment"), q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comparison": cmp})
}

func (h *handlers) setStrategyVersion(w http.ResponseWriter, r *http.Request) {
	var req SetVersionRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	active, err := h.svc.SetStrategyVersion(r.Context(), r.PathValue("type"), r.PathValue("version"),
		rollout.SetOptions{Active: req.Active, Baseline: req.Baseline})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": active})
}

func (h *handlers) strategyVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.svc.StrategyVersions(r.Context(), r.PathValue("type"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if versions == nil {
		versions = []*growth.StrategyVersion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (h *handlers) rollback(w http.ResponseWriter, r *http.Request) {
	restored, err := h.svc.RollbackToBaseline(r.Context(), r.PathValue("type"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rolled_back": restored})
}

func (h *handlers) activeStrategy(w http.ResponseWriter, r *http.Request) {
	active, err := h.svc.GetActiveStrategy(r.Context(), r.PathValue("type"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": active})
}

// decode reads a JSON body into v. When optional is set an empty body is
// accepted. It writes a 400 and returns false on malformed input.
func (h *handlers) decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, requestBodyLimit))
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}

	writeJSON(w, http.StatusBadRequest, map[string]any{"error": ErrorBody{
		Type:    "invalid_request",
		Message: "malformed JSON body: " + err.Error(),
	}})
	return false
}

// writeError maps an engine error to a status code:
// validation → 400, storage → 503, deadline → 504, anything else → 500.
func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		body   ErrorBody
		verr   *growth.ValidationError
	)

	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body = ErrorBody{Type: service.KindInvalidInput, Message: verr.Message, Field: verr.Field}
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		body = ErrorBody{Type: "timeout", Message: "request timed out"}
	case growth.IsStorageUnavailable(err):
		status = http.StatusServiceUnavailable
		body = ErrorBody{Type: "storage_unavailable", Message: "storage is unavailable"}
	default:
		status = http.StatusInternalServerError
		body = ErrorBody{Type: service.KindInternal, Message: "An internal error occurred"}
		h.logger.ErrorContext(r.Context(), "Unhandled error", "error", err)
	}

	writeJSON(w, status, map[string]any{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
