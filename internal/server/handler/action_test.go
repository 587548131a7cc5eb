package handler

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polypredict/dashd/internal/dispatch"
	"github.com/polypredict/dashd/internal/domain"
)

type fakeActionSvc struct {
	result domain.ActionResult
	err    error

	deposits     []dispatch.DepositRequest
	limitOrders  []dispatch.PlaceLimitOrderRequest
	marketOrders []dispatch.PlaceMarketOrderRequest
	cancels      [][2]uint64
	claims       []uint64
}

func (f *fakeActionSvc) Deposit(_ context.Context, req dispatch.DepositRequest) (domain.ActionResult, error) {
	f.deposits = append(f.deposits, req)
	return f.result, f.err
}

func (f *fakeActionSvc) PlaceLimitOrder(_ context.Context, req dispatch.PlaceLimitOrderRequest) (domain.ActionResult, error) {
	f.limitOrders = append(f.limitOrders, req)
	return f.result, f.err
}

func (f *fakeActionSvc) PlaceMarketOrder(_ context.Context, req dispatch.PlaceMarketOrderRequest) (domain.ActionResult, error) {
	f.marketOrders = append(f.marketOrders, req)
	return f.result, f.err
}

func (f *fakeActionSvc) CancelOrder(_ context.Context, orderID, marketID uint64) (domain.ActionResult, error) {
	f.cancels = append(f.cancels, [2]uint64{orderID, marketID})
	return f.result, f.err
}

func (f *fakeActionSvc) ClaimProfit(_ context.Context, marketID uint64) (domain.ActionResult, error) {
	f.claims = append(f.claims, marketID)
	return f.result, f.err
}

func okResult(kind domain.ActionKind) domain.ActionResult {
	return domain.ActionResult{
		ID:     "inv-1",
		Kind:   kind,
		State:  domain.ActionStateSucceeded,
		TxHash: "0xdead",
	}
}

func TestDeposit(t *testing.T) {
	svc := &fakeActionSvc{result: okResult(domain.ActionDeposit)}
	h := NewActionHandler(svc, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/actions/deposit",
		jsonBody(t, map[string]string{"amount": "1.5"}))
	w := httptest.NewRecorder()
	h.Deposit(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.deposits, 1)
	assert.Equal(t, "1500000000000000000", svc.deposits[0].AmountWei.String())

	var res domain.ActionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "0xdead", res.TxHash)
}

func TestDeposit_BadAmount(t *testing.T) {
	svc := &fakeActionSvc{}
	h := NewActionHandler(svc, discardLogger())

	for _, amount := range []string{"", "abc", "-1"} {
		r := httptest.NewRequest(http.MethodPost, "/api/actions/deposit",
			jsonBody(t, map[string]string{"amount": amount}))
		w := httptest.NewRecorder()
		h.Deposit(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	assert.Empty(t, svc.deposits)
}

func TestDeposit_UnknownField(t *testing.T) {
	svc := &fakeActionSvc{}
	h := NewActionHandler(svc, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/actions/deposit",
		jsonBody(t, map[string]string{"ammount": "1"}))
	w := httptest.NewRecorder()
	h.Deposit(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.deposits)
}

func TestPlaceOrder_Limit(t *testing.T) {
	svc := &fakeActionSvc{result: okResult(domain.ActionPlaceLimitOrder)}
	h := NewActionHandler(svc, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/actions/orders", jsonBody(t, map[string]any{
		"market_id": 4,
		"type":      "limit",
		"side":      "buy",
		"price":     550_000,
		"amount":    "0.25",
	}))
	w := httptest.NewRecorder()
	h.PlaceOrder(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.limitOrders, 1)
	got := svc.limitOrders[0]
	assert.Equal(t, uint64(4), got.MarketID)
	assert.Equal(t, domain.OrderSideBuy, got.Side)
	assert.Equal(t, uint64(550_000), got.Price)
	assert.Equal(t, big.NewInt(250_000_000_000_000_000).String(), got.Amount.String())
	assert.Empty(t, svc.marketOrders)
}

func TestPlaceOrder_Market(t *testing.T) {
	svc := &fakeActionSvc{result: okResult(domain.ActionPlaceMarketOrder)}
	h := NewActionHandler(svc, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/actions/orders", jsonBody(t, map[string]any{
		"market_id": 4,
		"type":      "market",
		"side":      "sell",
		"amount":    "1",
	}))
	w := httptest.NewRecorder()
	h.PlaceOrder(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.marketOrders, 1)
	assert.Equal(t, domain.OrderSideSell, svc.marketOrders[0].Side)
	assert.Empty(t, svc.limitOrders)
}

func TestPlaceOrder_UnknownType(t *testing.T) {
	svc := &fakeActionSvc{}
	h := NewActionHandler(svc, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/actions/orders", jsonBody(t, map[string]any{
		"market_id": 4,
		"type":      "stop",
		"side":      "buy",
		"amount":    "1",
	}))
	w := httptest.NewRecorder()
	h.PlaceOrder(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.limitOrders)
	assert.Empty(t, svc.marketOrders)
}

func TestCancelOrder(t *testing.T) {
	svc := &fakeActionSvc{result: okResult(domain.ActionCancelOrder)}
	h := NewActionHandler(svc, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/actions/orders/9/cancel",
		jsonBody(t, map[string]any{"market_id": 4}))
	r.SetPathValue("id", "9")
	w := httptest.NewRecorder()
	h.CancelOrder(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.cancels, 1)
	assert.Equal(t, [2]uint64{9, 4}, svc.cancels[0])
}

func TestClaimProfit(t *testing.T) {
	svc := &fakeActionSvc{result: okResult(domain.ActionClaimProfit)}
	h := NewActionHandler(svc, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/actions/markets/6/claim", nil)
	r.SetPathValue("id", "6")
	w := httptest.NewRecorder()
	h.ClaimProfit(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uint64{6}, svc.claims)
}

func TestAction_RevertSurfaced(t *testing.T) {
	svc := &fakeActionSvc{
		result: domain.ActionResult{
			ID:    "inv-2",
			Kind:  domain.ActionDeposit,
			State: domain.ActionStateFailed,
			Error: "insufficient balance",
		},
		err: &domain.RevertError{Reason: "insufficient balance"},
	}
	h := NewActionHandler(svc, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/actions/deposit",
		jsonBody(t, map[string]string{"amount": "1"}))
	w := httptest.NewRecorder()
	h.Deposit(w, r)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var res domain.ActionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "insufficient balance", res.Error)
	assert.Equal(t, domain.ActionStateFailed, res.State)
}

func TestAction_InFlightConflict(t *testing.T) {
	svc := &fakeActionSvc{err: domain.ErrActionInFlight}
	h := NewActionHandler(svc, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/actions/deposit",
		jsonBody(t, map[string]string{"amount": "1"}))
	w := httptest.NewRecorder()
	h.Deposit(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
}

type fakeAdminSvc struct {
	result domain.ActionResult
	err    error

	creates  []dispatch.CreateMarketRequest
	resolves []dispatch.ResolveMarketRequest
	cancels  []uint64
}

func (f *fakeAdminSvc) CreateMarket(_ context.Context, req dispatch.CreateMarketRequest) (domain.ActionResult, error) {
	f.creates = append(f.creates, req)
	return f.result, f.err
}

func (f *fakeAdminSvc) ResolveMarket(_ context.Context, req dispatch.ResolveMarketRequest) (domain.ActionResult, error) {
	f.resolves = append(f.resolves, req)
	return f.result, f.err
}

func (f *fakeAdminSvc) CancelMarket(_ context.Context, marketID uint64) (domain.ActionResult, error) {
	f.cancels = append(f.cancels, marketID)
	return f.result, f.err
}

func TestCreateMarket(t *testing.T) {
	svc := &fakeAdminSvc{result: okResult(domain.ActionCreateMarket)}
	h := NewAdminHandler(svc, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/admin/markets", jsonBody(t, map[string]any{
		"question":         "Will ETH flip BTC?",
		"outcomes":         []string{"Yes", "No"},
		"duration_seconds": 3600,
	}))
	w := httptest.NewRecorder()
	h.CreateMarket(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.creates, 1)
	assert.Equal(t, "Will ETH flip BTC?", svc.creates[0].Question)
	assert.Equal(t, float64(3600), svc.creates[0].Duration.Seconds())
}

func TestCreateMarket_NotAdmin(t *testing.T) {
	svc := &fakeAdminSvc{err: domain.ErrNotAdmin}
	h := NewAdminHandler(svc, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/admin/markets", jsonBody(t, map[string]any{
		"question":         "q",
		"outcomes":         []string{"a", "b"},
		"duration_seconds": 60,
	}))
	w := httptest.NewRecorder()
	h.CreateMarket(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestResolveMarket(t *testing.T) {
	svc := &fakeAdminSvc{result: okResult(domain.ActionResolveMarket)}
	h := NewAdminHandler(svc, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/admin/markets/5/resolve",
		jsonBody(t, map[string]any{"outcome_index": 1}))
	r.SetPathValue("id", "5")
	w := httptest.NewRecorder()
	h.ResolveMarket(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.resolves, 1)
	assert.Equal(t, uint64(5), svc.resolves[0].MarketID)
	assert.Equal(t, uint64(1), svc.resolves[0].OutcomeIndex)
}

func TestCancelMarket(t *testing.T) {
	svc := &fakeAdminSvc{result: okResult(domain.ActionCancelMarket)}
	h := NewAdminHandler(svc, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/admin/markets/5/cancel", nil)
	r.SetPathValue("id", "5")
	w := httptest.NewRecorder()
	h.CancelMarket(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uint64{5}, svc.cancels)
}
