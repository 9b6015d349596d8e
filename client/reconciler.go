package client

import (
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vctt94/mindvault"
)

// GuessResult is the contract's score for one probe. Once set on a
// guess it never changes.
type GuessResult struct {
	Breached uint8 // right digit, right position
	Injured  uint8 // right digit, wrong position
	IsWin    bool
}

// Guess is one turn's probe in the local view. Lifecycle:
// absent -> pending -> confirmed. Pending guesses have no result and
// may be removed if their transaction fails; confirmed is terminal.
type Guess struct {
	TurnIndex uint32
	Digits    [mindvault.CodeLen]uint8
	HasDigits bool // false until digits are known locally
	Result    *GuessResult
	Pending   bool
	TxHash    common.Hash
	LocalID   string // local id assigned before a tx hash exists
	At        time.Time
}

// Confirmed reports whether a result has been recorded for this guess.
func (g *Guess) Confirmed() bool { return g.Result != nil }

// Reconciler maintains the convergent local view of one room's guesses
// from three input streams: optimistic local submissions, confirmed
// probe events, and confirmed result events. All merges are idempotent
// and keyed by turn index, so the streams may interleave in any order.
//
// Mutations happen under one lock per call; there is no yield between
// read and write, so back-to-back events cannot lose updates.
type Reconciler struct {
	mu  sync.RWMutex
	log slog.Logger

	localAddr common.Address
	room      *mindvault.RoomState
	guesses   map[uint32]*Guess
}

func NewReconciler(log slog.Logger, localAddr common.Address) *Reconciler {
	return &Reconciler{
		log:       log,
		localAddr: localAddr,
		guesses:   make(map[uint32]*Guess),
	}
}

// SetActiveRoom switches the reconciliation target. Switching to a
// different room, or to none, clears the accumulated guesses. At most
// one room is active at a time.
func (r *Reconciler) SetActiveRoom(room *mindvault.RoomState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sameRoom := room != nil && r.room != nil && r.room.ID.Cmp(room.ID) == 0
	if !sameRoom {
		r.guesses = make(map[uint32]*Guess)
	}
	if room == nil {
		r.room = nil
		return
	}
	cp := *room
	r.room = &cp
}

// Room returns a copy of the active room state, or nil.
func (r *Reconciler) Room() *mindvault.RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.room == nil {
		return nil
	}
	cp := *r.room
	return &cp
}

// ActiveRoomID reports whether roomID is the active room.
func (r *Reconciler) IsActiveRoom(roomID *big.Int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.room != nil && roomID != nil && r.room.ID.Cmp(roomID) == 0
}

// IsCreator reports whether the local player created the active room.
func (r *Reconciler) IsCreator() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.room != nil && r.room.Creator == r.localAddr
}

// AddOptimisticGuess inserts a guess keyed by turn index before chain
// confirmation is known. If a guess already exists at that index the
// new fields are merged over the old, last write wins per field; a
// recorded result is never touched.
func (r *Reconciler) AddOptimisticGuess(g Guess) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.guesses[g.TurnIndex]
	if !ok {
		cp := g
		if cp.Result == nil {
			cp.Pending = true
		}
		r.guesses[g.TurnIndex] = &cp
		return
	}
	if g.HasDigits {
		existing.Digits = g.Digits
		existing.HasDigits = true
	}
	if g.TxHash != (common.Hash{}) {
		existing.TxHash = g.TxHash
	}
	if g.LocalID != "" {
		existing.LocalID = g.LocalID
	}
	if !g.At.IsZero() {
		existing.At = g.At
	}
	if existing.Result == nil {
		existing.Pending = true
	}
}

// SetGuessTxHash records the transaction hash for a pending guess once
// the submission has been accepted by the node.
func (r *Reconciler) SetGuessTxHash(turnIndex uint32, hash common.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.guesses[turnIndex]; ok {
		g.TxHash = hash
	}
}

// RemoveGuess rolls back an optimistic guess whose submission failed.
// localID must match the entry's local id (an empty localID matches
// any), so a stale rollback cannot delete a re-submitted guess that
// took over the same turn index. A confirmed entry is never removed.
func (r *Reconciler) RemoveGuess(turnIndex uint32, localID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guesses[turnIndex]
	if !ok {
		return
	}
	if localID != "" && g.LocalID != localID {
		return
	}
	if g.Result != nil {
		return
	}
	delete(r.guesses, turnIndex)
}

// MergeResult applies a result-computed event. If an entry exists at
// that turn index its result is set and pending cleared; if none exists
// (the event outran the optimistic add, or the probe is the opponent's)
// a new non-pending entry is created. Digits, when provided and not
// already known locally, are merged in. Re-applying a result for a turn
// that already has one is a no-op.
func (r *Reconciler) MergeResult(turnIndex uint32, res GuessResult, digits *[mindvault.CodeLen]uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guesses[turnIndex]
	if !ok {
		g = &Guess{TurnIndex: turnIndex, At: time.Now()}
		r.guesses[turnIndex] = g
	}
	if digits != nil && !g.HasDigits {
		g.Digits = *digits
		g.HasDigits = true
	}
	if g.Result != nil {
		// Result is immutable once merged; duplicate events are
		// expected from overlapping poll windows.
		return
	}
	rc := res
	g.Result = &rc
	g.Pending = false
}

// HasDigits reports whether digits are already known for a turn.
func (r *Reconciler) HasDigits(turnIndex uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guesses[turnIndex]
	return ok && g.HasDigits
}

// Guesses returns a copy of all guesses sorted by turn index.
func (r *Reconciler) Guesses() []Guess {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Guess, 0, len(r.guesses))
	for _, g := range r.guesses {
		cp := *g
		if g.Result != nil {
			rc := *g.Result
			cp.Result = &rc
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnIndex < out[j].TurnIndex })
	return out
}

// Mine returns the local player's guesses, derived purely from
// turn-index parity against which side of the room the player is on.
func (r *Reconciler) Mine() []Guess {
	return r.partition(true)
}

// Theirs returns the opponent's guesses.
func (r *Reconciler) Theirs() []Guess {
	return r.partition(false)
}

func (r *Reconciler) partition(mine bool) []Guess {
	isCreator := r.IsCreator()
	all := r.Guesses()
	out := make([]Guess, 0, len(all))
	for _, g := range all {
		if mindvault.TurnOwnedBy(g.TurnIndex, isCreator) == mine {
			out = append(out, g)
		}
	}
	return out
}

// CurrentTurn is the count of guesses recorded so far. Turn order is an
// emergent property of guess count; entries are keyed by index, so a
// duplicate event cannot inflate it.
func (r *Reconciler) CurrentTurn() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint32(len(r.guesses))
}

// IsMyTurn reports whether the local player moves next.
func (r *Reconciler) IsMyTurn() bool {
	turn := r.CurrentTurn()
	return mindvault.TurnOwnedBy(turn, r.IsCreator())
}

// ApplyPhase advances the active room's phase. Regressions are ignored
// and logged; phase transitions are strictly one-directional.
func (r *Reconciler) ApplyPhase(phase mindvault.RoomPhase) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.room == nil {
		return false
	}
	if !mindvault.ValidPhaseTransition(r.room.Phase, phase) {
		r.log.Warnf("ignoring phase regression %s -> %s for room %s",
			r.room.Phase, phase, r.room.ID)
		return false
	}
	if r.room.Phase != phase {
		r.log.Infof("room %s: %s -> %s", r.room.ID, r.room.Phase, phase)
		r.room.Phase = phase
		r.room.LastActiveAt = time.Now()
	}
	return true
}

// SetOpponent records the joining opponent on the active room.
func (r *Reconciler) SetOpponent(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.room != nil {
		r.room.Opponent = addr
	}
}

// SetWinner records the decrypted winner on the active room.
func (r *Reconciler) SetWinner(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.room != nil {
		r.room.Winner = addr
	}
}

// UpdateFromChain reconciles a fresh getRoom read into the local view.
// Opponent, turn count and timestamps are taken as-is; the phase still
// goes through the monotonic guard.
func (r *Reconciler) UpdateFromChain(room *mindvault.RoomState) {
	r.mu.Lock()
	if r.room == nil || r.room.ID.Cmp(room.ID) != 0 {
		r.mu.Unlock()
		return
	}
	r.room.Opponent = room.Opponent
	r.room.TurnCount = room.TurnCount
	r.room.EncryptedWinner = room.EncryptedWinner
	r.room.LastActiveAt = room.LastActiveAt
	r.mu.Unlock()

	r.ApplyPhase(room.Phase)
}
