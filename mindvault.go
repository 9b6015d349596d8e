package mindvault

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RoomPhase mirrors the contract's room phase encoding. The values must
// match the on-chain enum exactly.
type RoomPhase uint8

const (
	PhaseWaitingForJoin RoomPhase = 0
	PhaseInProgress     RoomPhase = 1
	PhaseCompleted      RoomPhase = 2
	PhaseCancelled      RoomPhase = 3
)

func (p RoomPhase) String() string {
	switch p {
	case PhaseWaitingForJoin:
		return "waiting for join"
	case PhaseInProgress:
		return "in progress"
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

// ValidPhaseTransition reports whether a room may move from one phase to
// another. Transitions are one-directional: waiting -> in progress ->
// completed, with cancelled reachable from waiting or in progress. A
// room never regresses, and staying in the same phase is always fine.
func ValidPhaseTransition(from, to RoomPhase) bool {
	if from == to {
		return true
	}
	switch from {
	case PhaseWaitingForJoin:
		return to == PhaseInProgress || to == PhaseCancelled
	case PhaseInProgress:
		return to == PhaseCompleted || to == PhaseCancelled
	default:
		// Completed and cancelled are terminal.
		return false
	}
}

// RoomState is the local mirror of one on-chain game session.
type RoomState struct {
	ID              *big.Int
	Creator         common.Address
	Opponent        common.Address // zero until joined
	Wager           *big.Int       // wei
	Phase           RoomPhase
	TurnCount       uint32
	EncryptedWinner [32]byte
	Winner          common.Address // zero until decrypted
	CreatedAt       time.Time
	LastActiveAt    time.Time
}

// HasOpponent reports whether someone has joined the room.
func (r *RoomState) HasOpponent() bool {
	return r.Opponent != (common.Address{})
}

// TurnOwnedByCreator reports which side owns a given turn. Even turns
// belong to the room creator, odd turns to the opponent. Turn ownership
// is derived from the index alone; it is never stored or transmitted.
func TurnOwnedByCreator(turnIndex uint32) bool {
	return turnIndex%2 == 0
}

// TurnOwnedBy reports whether the viewer owns turnIndex, given which
// side of the room the viewer is on.
func TurnOwnedBy(turnIndex uint32, viewerIsCreator bool) bool {
	return TurnOwnedByCreator(turnIndex) == viewerIsCreator
}
