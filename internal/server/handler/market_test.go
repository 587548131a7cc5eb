package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polypredict/dashd/internal/domain"
	"github.com/polypredict/dashd/internal/view"
)

type fakeMarketSvc struct {
	markets    []domain.Market
	marketsErr error
	detail     domain.MarketView
	detailErr  error
	lastFilter view.MarketFilter
	lastID     uint64
	lastTrader string
}

func (f *fakeMarketSvc) Markets(_ context.Context, filter view.MarketFilter) ([]domain.Market, error) {
	f.lastFilter = filter
	return f.markets, f.marketsErr
}

func (f *fakeMarketSvc) MarketDetail(_ context.Context, id uint64, trader string) (domain.MarketView, error) {
	f.lastID = id
	f.lastTrader = trader
	return f.detail, f.detailErr
}

type fakeIdentity struct {
	addr string
}

func (f fakeIdentity) Address() string { return f.addr }

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func sampleMarket(id uint64, status domain.MarketStatus) domain.Market {
	return domain.Market{
		ID:       id,
		Question: "Will it rain tomorrow?",
		Outcomes: []string{"Yes", "No"},
		EndTime:  time.Now().Add(24 * time.Hour),
		Status:   status,
	}
}

func TestListMarkets(t *testing.T) {
	svc := &fakeMarketSvc{markets: []domain.Market{
		sampleMarket(1, domain.MarketStatusActive),
		sampleMarket(2, domain.MarketStatusResolved),
	}}
	h := NewMarketHandler(svc, fakeIdentity{}, discardLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/markets?include_resolved=true", nil)
	w := httptest.NewRecorder()
	h.ListMarkets(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.lastFilter.IncludeResolved)
	assert.False(t, svc.lastFilter.IncludeCancelled)

	var body struct {
		Markets []marketItem `json:"markets"`
		Count   int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "active", body.Markets[0].StatusLabel)
	assert.Equal(t, "resolved", body.Markets[1].StatusLabel)
}

func TestListMarkets_ServiceError(t *testing.T) {
	svc := &fakeMarketSvc{marketsErr: assert.AnError}
	h := NewMarketHandler(svc, fakeIdentity{}, discardLogger())

	w := httptest.NewRecorder()
	h.ListMarkets(w, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetMarket(t *testing.T) {
	m := sampleMarket(3, domain.MarketStatusResolved)
	m.ResolvedOutcomeIndex = 1
	svc := &fakeMarketSvc{detail: domain.MarketView{
		Market:   m,
		Prices:   domain.BestPrices{Bid: 500_000, Ask: 750_000},
		Position: big.NewInt(10),
	}}
	h := NewMarketHandler(svc, fakeIdentity{addr: "0xabc"}, discardLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/markets/3", nil)
	r.SetPathValue("id", "3")
	w := httptest.NewRecorder()
	h.GetMarket(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(3), svc.lastID)
	assert.Equal(t, "0xabc", svc.lastTrader)

	var body marketDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "50.0", body.BidChance)
	assert.Equal(t, "75.0", body.AskChance)
	assert.True(t, body.HasBid)
	assert.True(t, body.HasAsk)
	assert.Equal(t, "No", body.Resolved)
}

func TestGetMarket_EmptyBook(t *testing.T) {
	svc := &fakeMarketSvc{detail: domain.MarketView{
		Market: sampleMarket(4, domain.MarketStatusActive),
		Prices: domain.EmptyBook(),
	}}
	h := NewMarketHandler(svc, fakeIdentity{}, discardLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/markets/4", nil)
	r.SetPathValue("id", "4")
	w := httptest.NewRecorder()
	h.GetMarket(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var body marketDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.HasBid)
	assert.False(t, body.HasAsk)
	assert.Equal(t, "0.0", body.BidChance)
	assert.Equal(t, "100.0", body.AskChance)
}

func TestGetMarket_NotFound(t *testing.T) {
	svc := &fakeMarketSvc{detailErr: domain.ErrNotFound}
	h := NewMarketHandler(svc, fakeIdentity{}, discardLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/markets/99", nil)
	r.SetPathValue("id", "99")
	w := httptest.NewRecorder()
	h.GetMarket(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMarket_BadID(t *testing.T) {
	h := NewMarketHandler(&fakeMarketSvc{}, fakeIdentity{}, discardLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/markets/zero", nil)
	r.SetPathValue("id", "zero")
	w := httptest.NewRecorder()
	h.GetMarket(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeProfileSvc struct {
	profile domain.ProfileView
	err     error
}

func (f *fakeProfileSvc) Profile(_ context.Context, trader string) (domain.ProfileView, error) {
	if f.err != nil {
		return domain.ProfileView{}, f.err
	}
	p := f.profile
	p.Address = trader
	return p, nil
}

func TestGetProfile(t *testing.T) {
	svc := &fakeProfileSvc{profile: domain.ProfileView{
		Balance: big.NewInt(1_500_000_000_000_000_000),
		Orders: []domain.Order{
			{ID: 2, IsActive: true, Amount: big.NewInt(1), Filled: big.NewInt(0)},
			{ID: 1, IsSettled: true, Amount: big.NewInt(1), Filled: big.NewInt(1)},
		},
		Positions: []domain.Position{
			{MarketID: 1, Amount: big.NewInt(50)},
			{MarketID: 2, Amount: big.NewInt(-30)},
		},
	}}
	h := NewProfileHandler(svc, fakeIdentity{addr: "0xabc"}, discardLogger())

	w := httptest.NewRecorder()
	h.GetProfile(w, httptest.NewRequest(http.MethodGet, "/api/profile", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body profileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "0xabc", body.Address)
	assert.Equal(t, "1.5", body.BalanceEther)
	require.Len(t, body.Orders, 2)
	assert.Equal(t, "active", body.Orders[0].StatusLabel)
	assert.Equal(t, "settled", body.Orders[1].StatusLabel)
	require.Len(t, body.Positions, 2)
	assert.Equal(t, "long", body.Positions[0].Direction)
	assert.Equal(t, "short", body.Positions[1].Direction)
}

func TestGetProfile_NotConnected(t *testing.T) {
	svc := &fakeProfileSvc{err: domain.ErrNotConnected}
	h := NewProfileHandler(svc, fakeIdentity{}, discardLogger())

	w := httptest.NewRecorder()
	h.GetProfile(w, httptest.NewRequest(http.MethodGet, "/api/profile", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
}

type fakeSession struct {
	addr      string
	connected bool
	chainID   *big.Int
	version   uint64
	switchErr error
	lastKey   string
}

func (f *fakeSession) Address() string   { return f.addr }
func (f *fakeSession) Connected() bool   { return f.connected }
func (f *fakeSession) ChainID() *big.Int { return f.chainID }
func (f *fakeSession) Version() uint64   { return f.version }
func (f *fakeSession) SwitchAccount(key string) error {
	f.lastKey = key
	if f.switchErr != nil {
		return f.switchErr
	}
	f.version++
	return nil
}

type fakeAdminChecker struct {
	admin string
}

func (f fakeAdminChecker) IsAdmin(_ context.Context, addr string) (bool, error) {
	return addr == f.admin, nil
}

func TestSessionStatus(t *testing.T) {
	sess := &fakeSession{addr: "0xadmin", connected: true, chainID: big.NewInt(31337), version: 2}
	h := NewSessionHandler(sess, fakeAdminChecker{admin: "0xadmin"}, discardLogger())

	w := httptest.NewRecorder()
	h.Status(w, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Connected)
	assert.Equal(t, "0xadmin", body.Address)
	assert.Equal(t, int64(31337), body.ChainID)
	assert.Equal(t, uint64(2), body.Version)
	assert.True(t, body.IsAdmin)
}

func TestSessionSwitch(t *testing.T) {
	sess := &fakeSession{connected: true, chainID: big.NewInt(31337), version: 1}
	h := NewSessionHandler(sess, fakeAdminChecker{}, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/session/switch",
		jsonBody(t, map[string]string{"private_key": "deadbeef"}))
	w := httptest.NewRecorder()
	h.Switch(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deadbeef", sess.lastKey)
	assert.Equal(t, uint64(2), sess.version)
}

func TestSessionSwitch_BadKey(t *testing.T) {
	sess := &fakeSession{switchErr: assert.AnError}
	h := NewSessionHandler(sess, fakeAdminChecker{}, discardLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/session/switch",
		jsonBody(t, map[string]string{"private_key": "nope"}))
	w := httptest.NewRecorder()
	h.Switch(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
