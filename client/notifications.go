package client

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vctt94/mindvault"
)

// NotificationManager tracks handlers for client events. Handlers are
// called synchronously in registration order from the goroutine that
// produced the event; keep them short.
type NotificationManager struct {
	mu sync.RWMutex

	sessionState []func(SessionState)
	roomPhase    []func(roomID *big.Int, phase mindvault.RoomPhase)
	result       []func(roomID *big.Int, turnIndex uint32, res GuessResult)
	gameFinished []func(roomID *big.Int, winner common.Address, amount *big.Int)
	degraded     []func(degraded bool)
	message      []func(msg string)
}

func NewNotificationManager() *NotificationManager {
	return &NotificationManager{}
}

func (nm *NotificationManager) RegisterSessionState(h func(SessionState)) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.sessionState = append(nm.sessionState, h)
}

func (nm *NotificationManager) RegisterRoomPhase(h func(*big.Int, mindvault.RoomPhase)) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.roomPhase = append(nm.roomPhase, h)
}

func (nm *NotificationManager) RegisterResult(h func(*big.Int, uint32, GuessResult)) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.result = append(nm.result, h)
}

func (nm *NotificationManager) RegisterGameFinished(h func(*big.Int, common.Address, *big.Int)) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.gameFinished = append(nm.gameFinished, h)
}

func (nm *NotificationManager) RegisterDegraded(h func(bool)) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.degraded = append(nm.degraded, h)
}

func (nm *NotificationManager) RegisterMessage(h func(string)) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.message = append(nm.message, h)
}

func (nm *NotificationManager) notifySessionState(s SessionState) {
	nm.mu.RLock()
	hs := append([]func(SessionState){}, nm.sessionState...)
	nm.mu.RUnlock()
	for _, h := range hs {
		h(s)
	}
}

func (nm *NotificationManager) notifyRoomPhase(roomID *big.Int, phase mindvault.RoomPhase) {
	nm.mu.RLock()
	hs := append([]func(*big.Int, mindvault.RoomPhase){}, nm.roomPhase...)
	nm.mu.RUnlock()
	for _, h := range hs {
		h(roomID, phase)
	}
}

func (nm *NotificationManager) notifyResult(roomID *big.Int, turnIndex uint32, res GuessResult) {
	nm.mu.RLock()
	hs := append([]func(*big.Int, uint32, GuessResult){}, nm.result...)
	nm.mu.RUnlock()
	for _, h := range hs {
		h(roomID, turnIndex, res)
	}
}

func (nm *NotificationManager) notifyGameFinished(roomID *big.Int, winner common.Address, amount *big.Int) {
	nm.mu.RLock()
	hs := append([]func(*big.Int, common.Address, *big.Int){}, nm.gameFinished...)
	nm.mu.RUnlock()
	for _, h := range hs {
		h(roomID, winner, amount)
	}
}

func (nm *NotificationManager) notifyDegraded(d bool) {
	nm.mu.RLock()
	hs := append([]func(bool){}, nm.degraded...)
	nm.mu.RUnlock()
	for _, h := range hs {
		h(d)
	}
}

func (nm *NotificationManager) notifyMessage(msg string) {
	nm.mu.RLock()
	hs := append([]func(string){}, nm.message...)
	nm.mu.RUnlock()
	for _, h := range hs {
		h(msg)
	}
}
