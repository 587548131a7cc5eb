package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/polypredict/dashd/internal/dispatch"
	"github.com/polypredict/dashd/internal/domain"
)

// AdminService exposes the admin-gated market lifecycle operations.
type AdminService interface {
	CreateMarket(ctx context.Context, req dispatch.CreateMarketRequest) (domain.ActionResult, error)
	ResolveMarket(ctx context.Context, req dispatch.ResolveMarketRequest) (domain.ActionResult, error)
	CancelMarket(ctx context.Context, marketID uint64) (domain.ActionResult, error)
}

// AdminHandler serves market creation, resolution, and cancellation. The
// dispatcher enforces the admin gate; the handler only shapes requests.
type AdminHandler struct {
	svc    AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(svc AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		svc:    svc,
		logger: logHandler(logger, "admin"),
	}
}

func (h *AdminHandler) writeResult(w http.ResponseWriter, res domain.ActionResult, err error) {
	if err != nil {
		h.logger.Warn("admin action failed",
			slog.String("kind", string(res.Kind)),
			slog.String("error", err.Error()),
		)
		writeJSON(w, errorStatus(err), res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// createMarketRequest describes a new market. The trading window is given as
// a duration in seconds from now, matching the contract's createMarket input.
type createMarketRequest struct {
	Question        string   `json:"question"`
	Outcomes        []string `json:"outcomes"`
	DurationSeconds int64    `json:"duration_seconds"`
}

// CreateMarket registers a new market on the registry contract.
// POST /api/admin/markets
func (h *AdminHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	res, err := h.svc.CreateMarket(r.Context(), dispatch.CreateMarketRequest{
		Question: req.Question,
		Outcomes: req.Outcomes,
		Duration: time.Duration(req.DurationSeconds) * time.Second,
	})
	h.writeResult(w, res, err)
}

// resolveMarketRequest names the winning outcome by its index.
type resolveMarketRequest struct {
	OutcomeIndex uint64 `json:"outcome_index"`
}

// ResolveMarket settles an ended market on a winning outcome.
// POST /api/admin/markets/{id}/resolve
func (h *AdminHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	marketID, err := pathID(r, "id")
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	var req resolveMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	res, err := h.svc.ResolveMarket(r.Context(), dispatch.ResolveMarketRequest{
		MarketID:     marketID,
		OutcomeIndex: req.OutcomeIndex,
	})
	h.writeResult(w, res, err)
}

// CancelMarket voids an active market so traders can recover their funds.
// POST /api/admin/markets/{id}/cancel
func (h *AdminHandler) CancelMarket(w http.ResponseWriter, r *http.Request) {
	marketID, err := pathID(r, "id")
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	res, err := h.svc.CancelMarket(r.Context(), marketID)
	h.writeResult(w, res, err)
}
