package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
)

// Identity exposes the connected wallet address. An empty address means the
// daemon runs read-only.
type Identity interface {
	Address() string
}

// WalletSession is the session surface the session endpoints operate on.
type WalletSession interface {
	Identity
	Connected() bool
	ChainID() *big.Int
	Version() uint64
	SwitchAccount(privateKeyHex string) error
}

// AdminChecker reports whether an address is the contract admin.
type AdminChecker interface {
	IsAdmin(ctx context.Context, address string) (bool, error)
}

// SessionHandler serves wallet session status and account switching.
type SessionHandler struct {
	session WalletSession
	admin   AdminChecker
	logger  *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(session WalletSession, admin AdminChecker, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		session: session,
		admin:   admin,
		logger:  logHandler(logger, "session"),
	}
}

// sessionResponse is the wallet status snapshot served to page shells.
type sessionResponse struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
	ChainID   int64  `json:"chain_id"`
	Version   uint64 `json:"version"`
	IsAdmin   bool   `json:"is_admin"`
}

// Status returns the current wallet session snapshot, including whether the
// connected account is the market admin.
// GET /api/session
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{
		Connected: h.session.Connected(),
		Address:   h.session.Address(),
		Version:   h.session.Version(),
	}
	if id := h.session.ChainID(); id != nil {
		resp.ChainID = id.Int64()
	}
	if resp.Connected {
		isAdmin, err := h.admin.IsAdmin(r.Context(), resp.Address)
		if err != nil {
			h.logger.Warn("admin check failed", slog.String("error", err.Error()))
		}
		resp.IsAdmin = isAdmin
	}
	writeJSON(w, http.StatusOK, resp)
}

// switchRequest carries the replacement signing key. An empty key demotes
// the session to read-only.
type switchRequest struct {
	PrivateKey string `json:"private_key"`
}

// Switch swaps the signing account without restarting the daemon. Dependent
// view state is refreshed through the session's identity-change hooks.
// POST /api/session/switch
func (h *SessionHandler) Switch(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	if err := h.session.SwitchAccount(req.PrivateKey); err != nil {
		h.logger.Error("account switch failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid private key")
		return
	}

	h.logger.Info("account switched",
		slog.String("address", h.session.Address()),
		slog.Uint64("version", h.session.Version()),
	)
	h.Status(w, r)
}
