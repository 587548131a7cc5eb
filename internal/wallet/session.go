// Package wallet manages the signing identity and the JSON-RPC connection
// that every chain read and write flows through. A Session is either
// read-only (no key) or connected (key loaded and transact opts available);
// listeners can subscribe to identity changes to drop per-account state.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/polypredict/dashd/internal/domain"
)

// Config holds what Connect needs to establish a session.
type Config struct {
	RPCURL  string
	ChainID int64

	// Key source. All three may be empty for a read-only session.
	PrivateKey       string
	EncryptedKeyPath string
	KeyPassword      string
}

// Session wraps an ethclient connection plus an optional signing key.
// The identity (key + address) can be swapped at runtime; each swap bumps
// the session version so downstream holders of per-account state can tell
// their snapshots are stale.
type Session struct {
	client  *ethclient.Client
	chainID *big.Int
	logger  *slog.Logger

	mu       sync.RWMutex
	key      *ecdsa.PrivateKey // nil in read-only sessions
	address  common.Address
	version  uint64
	onChange []func(version uint64)
}

// Connect dials the RPC endpoint and, if a key source is configured, loads
// the signing key. With no key source the returned session is read-only.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Session, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("wallet: dialing %s: %w", cfg.RPCURL, err)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID <= 0 {
		chainID, err = client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("wallet: querying chain id: %w", err)
		}
	}

	s := &Session{
		client:  client,
		chainID: chainID,
		logger:  logger.With("component", "wallet"),
		version: 1,
	}

	if cfg.PrivateKey != "" || cfg.EncryptedKeyPath != "" {
		keyHex, err := LoadKey(KeyConfig{
			RawPrivateKey:    cfg.PrivateKey,
			EncryptedKeyPath: cfg.EncryptedKeyPath,
			KeyPassword:      cfg.KeyPassword,
		})
		if err != nil {
			client.Close()
			return nil, err
		}
		key, err := crypto.HexToECDSA(keyHex)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("wallet: parsing private key: %w", err)
		}
		s.key = key
		s.address = crypto.PubkeyToAddress(key.PublicKey)
		s.logger.Info("session connected",
			"address", s.address.Hex(),
			"chain_id", chainID.String())
	} else {
		s.logger.Info("session connected read-only", "chain_id", chainID.String())
	}

	return s, nil
}

// Close releases the underlying RPC connection.
func (s *Session) Close() {
	s.client.Close()
}

// Client returns the shared ethclient connection.
func (s *Session) Client() *ethclient.Client {
	return s.client
}

// ChainID returns the chain id the session was established against.
func (s *Session) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Connected reports whether the session holds a signing key.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

// Address returns the checksummed hex address of the signing identity, or
// the empty string for a read-only session.
func (s *Session) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return ""
	}
	return s.address.Hex()
}

// Version returns the current identity version. It starts at 1 and is
// bumped on every SwitchAccount, so view-model snapshots tagged with a
// version can be discarded when the identity moves on.
func (s *Session) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// TransactOpts builds signed-transaction options bound to ctx. It returns
// domain.ErrNotConnected for read-only sessions. Gas price and nonce are
// left nil so the bound contract estimates them per call.
func (s *Session) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	s.mu.RLock()
	key := s.key
	s.mu.RUnlock()
	if key == nil {
		return nil, domain.ErrNotConnected
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("wallet: building transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// SwitchAccount replaces the signing identity with the given hex private
// key, bumps the session version, and notifies subscribers. Passing an
// empty key demotes the session to read-only.
func (s *Session) SwitchAccount(privateKeyHex string) error {
	var (
		key  *ecdsa.PrivateKey
		addr common.Address
	)
	if privateKeyHex != "" {
		keyHex, err := LoadKey(KeyConfig{RawPrivateKey: privateKeyHex})
		if err != nil {
			return err
		}
		key, err = crypto.HexToECDSA(keyHex)
		if err != nil {
			return fmt.Errorf("wallet: parsing private key: %w", err)
		}
		addr = crypto.PubkeyToAddress(key.PublicKey)
	}

	s.mu.Lock()
	s.key = key
	s.address = addr
	s.version++
	version := s.version
	hooks := make([]func(uint64), len(s.onChange))
	copy(hooks, s.onChange)
	s.mu.Unlock()

	if key != nil {
		s.logger.Info("identity switched", "address", addr.Hex(), "version", version)
	} else {
		s.logger.Info("identity cleared", "version", version)
	}

	for _, fn := range hooks {
		fn(version)
	}
	return nil
}

// OnIdentityChange registers fn to be called (synchronously) with the new
// version after every identity switch.
func (s *Session) OnIdentityChange(fn func(version uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}
