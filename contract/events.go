package contract

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// EventKind identifies a decoded contract event.
type EventKind string

const (
	EvRoomCreated         EventKind = "RoomCreated"
	EvRoomJoined          EventKind = "RoomJoined"
	EvProbeSubmitted      EventKind = "ProbeSubmitted"
	EvResultComputed      EventKind = "ResultComputed"
	EvDecryptionRequested EventKind = "DecryptionRequested"
	EvWinnerDecrypted     EventKind = "WinnerDecrypted"
	EvGameFinished        EventKind = "GameFinished"
	EvRoomCancelled       EventKind = "RoomCancelled"
)

// Event is one decoded contract log. Only the fields relevant to Kind
// are populated. At is assigned locally at observation time, not chain
// time.
type Event struct {
	Kind   EventKind
	RoomID *big.Int
	TxHash common.Hash
	Block  uint64
	At     time.Time

	Creator   common.Address // RoomCreated
	Wager     *big.Int       // RoomCreated
	Opponent  common.Address // RoomJoined
	Who       common.Address // ProbeSubmitted
	TurnIndex uint32         // ResultComputed
	Submitter common.Address // ResultComputed
	IsWin     bool           // ResultComputed
	Breaches  uint8          // ResultComputed
	Signals   uint8          // ResultComputed
	RequestID *big.Int       // DecryptionRequested
	Winner    common.Address // WinnerDecrypted, GameFinished
	Amount    *big.Int       // GameFinished
	By        common.Address // RoomCancelled
}

// DecodeLog decodes a raw log into a typed Event. Logs that don't match
// a known event, or that are malformed, report ok=false; the chain may
// emit events this client doesn't model, so that is not an error.
func DecodeLog(l ethtypes.Log) (Event, bool) {
	if len(l.Topics) == 0 {
		return Event{}, false
	}
	var name string
	for n, ev := range GameABI.Events {
		if ev.ID == l.Topics[0] {
			name = n
			break
		}
	}
	if name == "" {
		return Event{}, false
	}
	// roomId is the first indexed arg on every event.
	if len(l.Topics) < 2 {
		return Event{}, false
	}

	ev := Event{
		Kind:   EventKind(name),
		RoomID: new(big.Int).SetBytes(l.Topics[1].Bytes()),
		TxHash: l.TxHash,
		Block:  l.BlockNumber,
		At:     time.Now(),
	}

	vals, err := GameABI.Unpack(name, l.Data)
	if err != nil {
		return Event{}, false
	}

	ok := true
	switch ev.Kind {
	case EvRoomCreated:
		if len(l.Topics) < 3 || len(vals) < 1 {
			return Event{}, false
		}
		ev.Creator = common.BytesToAddress(l.Topics[2].Bytes())
		ev.Wager, ok = vals[0].(*big.Int)
	case EvRoomJoined:
		if len(vals) < 1 {
			return Event{}, false
		}
		ev.Opponent, ok = vals[0].(common.Address)
	case EvProbeSubmitted:
		if len(l.Topics) < 3 {
			return Event{}, false
		}
		ev.Who = common.BytesToAddress(l.Topics[2].Bytes())
	case EvResultComputed:
		if len(vals) < 5 {
			return Event{}, false
		}
		turn, ok1 := vals[0].(uint32)
		sub, ok2 := vals[1].(common.Address)
		isWin, ok3 := vals[2].(bool)
		breaches, ok4 := vals[3].(uint8)
		signals, ok5 := vals[4].(uint8)
		if !(ok1 && ok2 && ok3 && ok4 && ok5) {
			return Event{}, false
		}
		ev.TurnIndex = turn
		ev.Submitter = sub
		ev.IsWin = isWin
		ev.Breaches = breaches
		ev.Signals = signals
	case EvDecryptionRequested:
		if len(vals) < 1 {
			return Event{}, false
		}
		ev.RequestID, ok = vals[0].(*big.Int)
	case EvWinnerDecrypted:
		if len(vals) < 1 {
			return Event{}, false
		}
		ev.Winner, ok = vals[0].(common.Address)
	case EvGameFinished:
		if len(vals) < 2 {
			return Event{}, false
		}
		winner, ok1 := vals[0].(common.Address)
		amount, ok2 := vals[1].(*big.Int)
		if !(ok1 && ok2) {
			return Event{}, false
		}
		ev.Winner = winner
		ev.Amount = amount
	case EvRoomCancelled:
		if len(vals) < 1 {
			return Event{}, false
		}
		ev.By, ok = vals[0].(common.Address)
	}
	if !ok {
		return Event{}, false
	}
	return ev, true
}
