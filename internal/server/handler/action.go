package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/polypredict/dashd/internal/dispatch"
	"github.com/polypredict/dashd/internal/domain"
	"github.com/polypredict/dashd/internal/units"
)

// ActionService exposes the trader-facing write operations of the dispatcher.
type ActionService interface {
	Deposit(ctx context.Context, req dispatch.DepositRequest) (domain.ActionResult, error)
	PlaceLimitOrder(ctx context.Context, req dispatch.PlaceLimitOrderRequest) (domain.ActionResult, error)
	PlaceMarketOrder(ctx context.Context, req dispatch.PlaceMarketOrderRequest) (domain.ActionResult, error)
	CancelOrder(ctx context.Context, orderID, marketID uint64) (domain.ActionResult, error)
	ClaimProfit(ctx context.Context, marketID uint64) (domain.ActionResult, error)
}

// ActionHandler serves the trader action endpoints. Each request blocks until
// the transaction is mined or fails; in-flight progress streams over the
// WebSocket actions channel.
type ActionHandler struct {
	svc    ActionService
	logger *slog.Logger
}

// NewActionHandler creates an ActionHandler.
func NewActionHandler(svc ActionService, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{
		svc:    svc,
		logger: logHandler(logger, "action"),
	}
}

// writeResult sends a terminal action result, choosing the status code from
// the dispatch error. The result body is included even on failure so clients
// see the invocation id, tx hash, and normalized error message.
func (h *ActionHandler) writeResult(w http.ResponseWriter, res domain.ActionResult, err error) {
	if err != nil {
		h.logger.Warn("action failed",
			slog.String("kind", string(res.Kind)),
			slog.String("error", err.Error()),
		)
		writeJSON(w, errorStatus(err), res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// depositRequest carries the deposit amount as a decimal ether string.
type depositRequest struct {
	Amount string `json:"amount"`
}

// Deposit moves funds into the trader's exchange balance.
// POST /api/actions/deposit
func (h *ActionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	wei, err := units.ParseEther(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal ether value")
		return
	}

	res, err := h.svc.Deposit(r.Context(), dispatch.DepositRequest{AmountWei: wei})
	h.writeResult(w, res, err)
}

// placeOrderRequest carries a limit or market order. Price is in fixed-point
// ticks and ignored for market orders; Amount is a decimal ether string.
type placeOrderRequest struct {
	MarketID uint64 `json:"market_id"`
	Type     string `json:"type"` // "limit" or "market"
	Side     string `json:"side"` // "buy" or "sell"
	Price    uint64 `json:"price,omitempty"`
	Amount   string `json:"amount"`
}

// PlaceOrder places a limit or market order funded from the wallet balance.
// POST /api/actions/orders
func (h *ActionHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	amount, err := units.ParseEther(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal ether value")
		return
	}
	side := domain.OrderSide(strings.ToLower(req.Side))

	var res domain.ActionResult
	switch strings.ToLower(req.Type) {
	case "limit":
		res, err = h.svc.PlaceLimitOrder(r.Context(), dispatch.PlaceLimitOrderRequest{
			MarketID: req.MarketID,
			Side:     side,
			Price:    req.Price,
			Amount:   amount,
		})
	case "market":
		res, err = h.svc.PlaceMarketOrder(r.Context(), dispatch.PlaceMarketOrderRequest{
			MarketID: req.MarketID,
			Side:     side,
			Amount:   amount,
		})
	default:
		writeError(w, http.StatusBadRequest, "type must be limit or market")
		return
	}
	h.writeResult(w, res, err)
}

// cancelOrderRequest names the market the order belongs to, which the view
// layer needs to refresh the right book after confirmation.
type cancelOrderRequest struct {
	MarketID uint64 `json:"market_id"`
}

// CancelOrder cancels a resting order and refunds its unfilled remainder.
// POST /api/actions/orders/{id}/cancel
func (h *ActionHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	var req cancelOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	res, err := h.svc.CancelOrder(r.Context(), orderID, req.MarketID)
	h.writeResult(w, res, err)
}

// ClaimProfit settles the trader's winnings on a resolved market.
// POST /api/actions/markets/{id}/claim
func (h *ActionHandler) ClaimProfit(w http.ResponseWriter, r *http.Request) {
	marketID, err := pathID(r, "id")
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	res, err := h.svc.ClaimProfit(r.Context(), marketID)
	h.writeResult(w, res, err)
}
