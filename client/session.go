package client

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/vctt94/mindvault/contract"
)

// SessionState is the wallet session lifecycle state.
type SessionState int32

const (
	SessionDisconnected SessionState = iota
	SessionConnecting
	SessionConnected
)

func (s SessionState) String() string {
	switch s {
	case SessionDisconnected:
		return "disconnected"
	case SessionConnecting:
		return "connecting"
	case SessionConnected:
		return "connected"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Session is the process-scoped wallet/session handle: one signing key,
// one backend connection, explicit connect/disconnect lifecycle. State
// transitions (disconnected -> connecting -> connected) are observable
// through the notification manager. There is no ambient global; pass
// the handle to whatever needs it.
type Session struct {
	mu    sync.RWMutex
	log   slog.Logger
	ntfns *NotificationManager

	key  *ecdsa.PrivateKey
	addr common.Address

	state   SessionState
	backend contract.Backend
	chainID *big.Int
}

// NewSession parses the hex-encoded signing key and returns a
// disconnected session.
func NewSession(log slog.Logger, keyHex string, ntfns *NotificationManager) (*Session, error) {
	if log == nil {
		return nil, fmt.Errorf("session must have logger")
	}
	key, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	if ntfns == nil {
		ntfns = NewNotificationManager()
	}
	return &Session{
		log:   log,
		ntfns: ntfns,
		key:   key,
		addr:  ethcrypto.PubkeyToAddress(key.PublicKey),
		state: SessionDisconnected,
	}, nil
}

// Connect attaches the session to a backend and verifies the node
// answers (chain id probe). Connecting while already connected is an
// error; Disconnect first.
func (s *Session) Connect(ctx context.Context, backend contract.Backend) error {
	s.mu.Lock()
	if s.state != SessionDisconnected {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("session is %s", st)
	}
	s.state = SessionConnecting
	s.mu.Unlock()
	s.ntfns.notifySessionState(SessionConnecting)

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = SessionDisconnected
		s.mu.Unlock()
		s.ntfns.notifySessionState(SessionDisconnected)
		return &contract.RPCError{Op: "chain id", Err: err}
	}

	s.mu.Lock()
	s.backend = backend
	s.chainID = chainID
	s.state = SessionConnected
	s.mu.Unlock()
	s.log.Infof("session connected: addr=%s chain=%s", s.addr, chainID)
	s.ntfns.notifySessionState(SessionConnected)
	return nil
}

// Disconnect resets the session wholesale.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.backend = nil
	s.chainID = nil
	s.state = SessionDisconnected
	s.mu.Unlock()
	s.log.Infof("session disconnected")
	s.ntfns.notifySessionState(SessionDisconnected)
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Address() common.Address { return s.addr }

func (s *Session) Key() *ecdsa.PrivateKey { return s.key }

func (s *Session) Backend() contract.Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

func (s *Session) ChainID() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainID
}
