package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/polypredict/dashd/internal/domain"
	"github.com/polypredict/dashd/internal/units"
	"github.com/polypredict/dashd/internal/view"
)

// MarketService defines the read-side operations the market handler requires
// from the aggregator. It is declared locally so the handler package does not
// depend on the concrete implementation.
type MarketService interface {
	Markets(ctx context.Context, f view.MarketFilter) ([]domain.Market, error)
	MarketDetail(ctx context.Context, marketID uint64, trader string) (domain.MarketView, error)
}

// MarketHandler serves the market list and detail endpoints.
type MarketHandler struct {
	svc      MarketService
	identity Identity
	logger   *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(svc MarketService, identity Identity, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		svc:      svc,
		identity: identity,
		logger:   logHandler(logger, "market"),
	}
}

// marketItem is one row of the market list with a derived status label.
type marketItem struct {
	domain.Market
	StatusLabel string `json:"status_label"`
}

// ListMarkets returns all discovered markets. Resolved and cancelled markets
// are hidden unless requested with include_resolved / include_cancelled.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	f := view.MarketFilter{
		IncludeResolved:  queryBool(r, "include_resolved"),
		IncludeCancelled: queryBool(r, "include_cancelled"),
	}

	markets, err := h.svc.Markets(r.Context(), f)
	if err != nil {
		h.logger.Error("list markets failed", slog.String("error", err.Error()))
		writeError(w, errorStatus(err), "failed to list markets")
		return
	}

	items := make([]marketItem, 0, len(markets))
	for _, m := range markets {
		items = append(items, marketItem{Market: m, StatusLabel: m.Status.String()})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"markets": items,
		"count":   len(items),
	})
}

// marketDetailResponse augments the raw view-model with display fields so
// page shells do not re-implement the fixed-point price math. HasBid and
// HasAsk distinguish an empty book side from a genuine 0 / MaxPrice quote so
// the detail page can grey the side out instead of rendering it.
type marketDetailResponse struct {
	domain.MarketView
	BidChance string `json:"bid_chance"`
	AskChance string `json:"ask_chance"`
	HasBid    bool   `json:"has_bid"`
	HasAsk    bool   `json:"has_ask"`
	Resolved  string `json:"resolved_outcome,omitempty"`
}

// GetMarket returns the aggregated detail view for one market. Trader-scoped
// fields (position, balance) are filled only when a wallet is connected.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	mv, err := h.svc.MarketDetail(r.Context(), id, h.identity.Address())
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("market detail failed",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, status, "failed to load market")
		return
	}

	resp := marketDetailResponse{
		MarketView: mv,
		BidChance:  units.FormatProbability(mv.Prices.Bid),
		AskChance:  units.FormatProbability(mv.Prices.Ask),
		HasBid:     mv.Prices.HasBid(),
		HasAsk:     mv.Prices.HasAsk(),
	}
	if outcome, ok := mv.Market.ResolvedOutcome(); ok {
		resp.Resolved = outcome
	}

	writeJSON(w, http.StatusOK, resp)
}
