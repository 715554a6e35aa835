// Package httptransport is the thin HTTP layer over the machine service. It
// owns request decoding, BSN validation and error envelopes; business logic
// stays behind the service interface.
package httptransport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"machinelaw/internal/delegation"
	"machinelaw/internal/engine"
	"machinelaw/internal/machine"
	"machinelaw/internal/platform/middleware"
)

//go:generate mockgen -source=handlers.go -destination=mocks/service-mocks.go -package=mocks MachineService

// MachineService is the slice of the machine service the handlers need.
type MachineService interface {
	ProfileScan(ctx context.Context, bsn string, reference time.Time) (*machine.ScanResult, error)
	EvaluateLaw(ctx context.Context, req machine.EvaluateRequest) (*engine.EvaluationResult, error)
	DelegationsFor(ctx context.Context, bsn string, reference time.Time) (delegation.DelegationContext, error)
	CanActOnBehalf(ctx context.Context, bsn, subjectID string, reference time.Time) (bool, error)
	Laws(ctx context.Context) []machine.LawInfo
	MinimizationExport(ctx context.Context, daysBack int) (map[string]any, error)
}

// Handler wires the evaluation endpoints to the machine service.
type Handler struct {
	service MachineService
	logger  *slog.Logger
	now     func() time.Time
}

func NewHandler(service MachineService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{service: service, logger: logger, now: time.Now}
}

// Register mounts the authenticated endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/laws", h.handleLaws)
	r.Post("/laws/evaluate", h.handleEvaluate)
	r.Post("/profile/scan", h.handleProfileScan)
	r.Post("/delegations", h.handleDelegations)
	r.Post("/delegations/check", h.handleDelegationCheck)
	r.Get("/metrics/minimization", h.handleMinimizationExport)
}

type evaluateRequest struct {
	Law           string         `json:"law"`
	Decision      string         `json:"decision,omitempty"`
	ReferenceDate string         `json:"reference_date,omitempty"`
	Parameters    map[string]any `json:"parameters"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decode[evaluateRequest](w, r)
	if !ok {
		return
	}
	if req.Law == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "law is required")
		return
	}
	reference, err := parseReference(req.ReferenceDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	start := time.Now()
	result, err := h.service.EvaluateLaw(ctx, machine.EvaluateRequest{
		Law:       req.Law,
		Decision:  req.Decision,
		Reference: reference,
		Params:    req.Parameters,
	})
	if err != nil {
		if errors.Is(err, machine.ErrUnknownLaw) {
			writeError(w, http.StatusNotFound, "unknown_law", err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "law evaluation failed",
			"request_id", middleware.GetRequestID(ctx),
			"law", req.Law,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal", "evaluation failed")
		return
	}

	h.logger.InfoContext(ctx, "law evaluated",
		"request_id", middleware.GetRequestID(ctx),
		"service_id", middleware.GetServiceID(ctx),
		"law", req.Law,
		"requirements_met", result.RequirementsMet,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, result)
}

type scanRequest struct {
	BSN           string `json:"bsn"`
	ReferenceDate string `json:"reference_date,omitempty"`
}

func (h *Handler) handleProfileScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decode[scanRequest](w, r)
	if !ok {
		return
	}
	if err := ValidateBSN(req.BSN); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_bsn", err.Error())
		return
	}
	reference, err := parseReference(req.ReferenceDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if reference.IsZero() {
		reference = h.now().UTC()
	}

	result, err := h.service.ProfileScan(ctx, req.BSN, reference)
	if err != nil {
		h.logger.ErrorContext(ctx, "profile scan failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal", "profile scan failed")
		return
	}

	h.logger.InfoContext(ctx, "profile scanned",
		"request_id", middleware.GetRequestID(ctx),
		"session_id", result.SessionID,
		"laws_total", result.Session.LawsTotal,
		"laws_eliminated", result.Session.LawsEliminated,
	)
	writeJSON(w, http.StatusOK, result)
}

type delegationsRequest struct {
	BSN           string `json:"bsn"`
	ReferenceDate string `json:"reference_date,omitempty"`
}

func (h *Handler) handleDelegations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decode[delegationsRequest](w, r)
	if !ok {
		return
	}
	if err := ValidateBSN(req.BSN); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_bsn", err.Error())
		return
	}
	reference, err := parseReference(req.ReferenceDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if reference.IsZero() {
		reference = h.now().UTC()
	}

	dc, err := h.service.DelegationsFor(ctx, req.BSN, reference)
	if err != nil {
		h.logger.ErrorContext(ctx, "delegation resolution failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal", "delegation resolution failed")
		return
	}
	writeJSON(w, http.StatusOK, dc)
}

type delegationCheckRequest struct {
	BSN           string `json:"bsn"`
	SubjectID     string `json:"subject_id"`
	ReferenceDate string `json:"reference_date,omitempty"`
}

func (h *Handler) handleDelegationCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decode[delegationCheckRequest](w, r)
	if !ok {
		return
	}
	if err := ValidateBSN(req.BSN); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_bsn", err.Error())
		return
	}
	if req.SubjectID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "subject_id is required")
		return
	}
	reference, err := parseReference(req.ReferenceDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if reference.IsZero() {
		reference = h.now().UTC()
	}

	allowed, err := h.service.CanActOnBehalf(ctx, req.BSN, req.SubjectID, reference)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "delegation check failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subject_id":        req.SubjectID,
		"can_act_on_behalf": allowed,
	})
}

func (h *Handler) handleLaws(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"laws": h.service.Laws(r.Context()),
	})
}

func (h *Handler) handleMinimizationExport(w http.ResponseWriter, r *http.Request) {
	daysBack := 30
	if raw := r.URL.Query().Get("days_back"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", "days_back must be a positive integer")
			return
		}
		daysBack = parsed
	}

	export, err := h.service.MinimizationExport(r.Context(), daysBack)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "minimization export failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal", "export failed")
		return
	}
	writeJSON(w, http.StatusOK, export)
}

// parseReference parses an optional ISO date. Empty means the zero time; the
// caller decides whether that defaults to "now".
func parseReference(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	reference, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("reference_date must be YYYY-MM-DD")
	}
	return reference, nil
}
