package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/polypredict/dashd/internal/domain"
	"github.com/polypredict/dashd/internal/units"
)

// ProfileService exposes the trader profile aggregation.
type ProfileService interface {
	Profile(ctx context.Context, trader string) (domain.ProfileView, error)
}

// ProfileHandler serves the connected trader's profile endpoint.
type ProfileHandler struct {
	svc      ProfileService
	identity Identity
	logger   *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(svc ProfileService, identity Identity, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		svc:      svc,
		identity: identity,
		logger:   logHandler(logger, "profile"),
	}
}

// orderItem is one row of the order history with a derived display status.
type orderItem struct {
	domain.Order
	StatusLabel string `json:"status_label"`
}

// positionItem is one row of the positions table with a derived direction
// label. The aggregator omits flat positions, so every row is long or short.
type positionItem struct {
	domain.Position
	Direction string `json:"direction"`
}

// profileResponse wraps the view-model with a formatted balance and display
// rows for orders and positions.
type profileResponse struct {
	domain.ProfileView
	BalanceEther string         `json:"balance_ether"`
	Orders       []orderItem    `json:"orders"`
	Positions    []positionItem `json:"positions"`
}

// GetProfile returns the connected trader's balance, order history (newest
// first) and open positions. Returns 409 when no wallet is connected.
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	pv, err := h.svc.Profile(r.Context(), h.identity.Address())
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("profile fetch failed", slog.String("error", err.Error()))
			writeError(w, status, "failed to load profile")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	resp := profileResponse{
		ProfileView:  pv,
		BalanceEther: units.FormatEther(pv.Balance),
		Orders:       make([]orderItem, 0, len(pv.Orders)),
		Positions:    make([]positionItem, 0, len(pv.Positions)),
	}
	for _, o := range pv.Orders {
		resp.Orders = append(resp.Orders, orderItem{Order: o, StatusLabel: o.DisplayStatus()})
	}
	for _, p := range pv.Positions {
		dir := "short"
		if p.IsLong() {
			dir = "long"
		}
		resp.Positions = append(resp.Positions, positionItem{Position: p, Direction: dir})
	}

	writeJSON(w, http.StatusOK, resp)
}
