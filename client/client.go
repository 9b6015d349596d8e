package client

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vctt94/mindvault"
	"github.com/vctt94/mindvault/chainwatcher"
	"github.com/vctt94/mindvault/contract"
)

// UpdatedMsg tells the UI the local view changed and should re-render.
type UpdatedMsg struct{}

// RoomSummary is a room observed via a RoomCreated event this session.
// Display only; assembled in memory, never persisted.
type RoomSummary struct {
	ID      *big.Int
	Creator common.Address
	Wager   *big.Int
	SeenAt  time.Time
}

// Client drives one player's game: it submits transactions through the
// contract binding, pumps watcher events into the reconciler, and
// exposes the merged view to the UI.
type Client struct {
	sync.RWMutex

	log    slog.Logger
	appCfg *AppConfig

	session  *Session
	contract *contract.Contract
	watcher  *chainwatcher.ChainWatcher
	rec      *Reconciler
	ntfns    *NotificationManager

	UpdatesCh chan tea.Msg
	ErrorsCh  chan error

	knownRooms map[string]RoomSummary

	unsub    func()
	degraded bool
}

// NewClient wires a client from a connected session. The configured
// contract address must parse; the logger is required.
func NewClient(cfg *ClientCfg) (*Client, error) {
	if cfg.Log == nil {
		return nil, fmt.Errorf("client must have logger")
	}
	if cfg.Session == nil || cfg.Session.State() != SessionConnected {
		return nil, fmt.Errorf("client needs a connected session")
	}
	if !common.IsHexAddress(cfg.AppCfg.ContractAddr) {
		return nil, fmt.Errorf("bad contract address %q", cfg.AppCfg.ContractAddr)
	}
	addr := common.HexToAddress(cfg.AppCfg.ContractAddr)

	ntfns := cfg.Notifications
	if ntfns == nil {
		ntfns = NewNotificationManager()
	}

	backend := cfg.Session.Backend()
	ct, err := contract.New(cfg.Log, backend, addr, cfg.Session.Key())
	if err != nil {
		return nil, err
	}

	w := chainwatcher.New(cfg.Log, backend, addr)
	if cfg.AppCfg.PollInterval > 0 {
		w.SetPollInterval(cfg.AppCfg.PollInterval)
	}
	if cfg.AppCfg.LookbackBlocks > 0 {
		w.SetLookback(cfg.AppCfg.LookbackBlocks)
	}

	return &Client{
		log:        cfg.Log,
		appCfg:     cfg.AppCfg,
		session:    cfg.Session,
		contract:   ct,
		watcher:    w,
		rec:        NewReconciler(cfg.Log, cfg.Session.Address()),
		ntfns:      ntfns,
		UpdatesCh:  make(chan tea.Msg, 64),
		ErrorsCh:   make(chan error, 8),
		knownRooms: make(map[string]RoomSummary),
	}, nil
}

// Start launches the watcher and the event pump. Both stop when ctx is
// cancelled or Stop is called.
func (c *Client) Start(ctx context.Context) {
	evCh, unsub := c.watcher.Subscribe()
	c.Lock()
	c.unsub = unsub
	c.Unlock()

	go c.watcher.Run(ctx)
	go c.pumpEvents(ctx, evCh)
	go c.pollDegraded(ctx)
}

// Stop tears the watcher down. A stale tick after Stop is a no-op.
func (c *Client) Stop() {
	c.Lock()
	unsub := c.unsub
	c.unsub = nil
	c.Unlock()
	if unsub != nil {
		unsub()
	}
	c.watcher.Stop()
}

// Reconciler exposes the merged room/guess view.
func (c *Client) Reconciler() *Reconciler { return c.rec }

// Address returns the local player's address.
func (c *Client) Address() common.Address { return c.session.Address() }

// InviteLink builds the shareable link for the active room.
func (c *Client) InviteLink() string {
	room := c.rec.Room()
	if room == nil {
		return ""
	}
	return mindvault.BuildInviteLink(c.appCfg.Origin, room.ID)
}

// KnownRooms lists rooms seen via RoomCreated events this session,
// most recent first.
func (c *Client) KnownRooms() []RoomSummary {
	c.RLock()
	defer c.RUnlock()
	out := make([]RoomSummary, 0, len(c.knownRooms))
	for _, s := range c.knownRooms {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeenAt.After(out[j].SeenAt) })
	return out
}

// FeedDegraded reports whether the event feed is currently stale.
func (c *Client) FeedDegraded() bool { return c.watcher.Degraded() }

func (c *Client) pumpEvents(ctx context.Context, evCh <-chan contract.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-evCh:
			if !ok {
				return
			}
			c.handleEvent(ctx, ev)
		}
	}
}

// pollDegraded mirrors the watcher's degraded flag into notifications
// so the UI can show a stale-data indicator.
func (c *Client) pollDegraded(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d := c.watcher.Degraded()
			c.Lock()
			changed := d != c.degraded
			c.degraded = d
			c.Unlock()
			if changed {
				c.ntfns.notifyDegraded(d)
				c.pushUpdate()
			}
		}
	}
}

// handleEvent merges one decoded contract event into the local view.
// Duplicates are expected (overlapping poll windows) and must be
// no-ops; everything here funnels through the reconciler's idempotent
// merges.
func (c *Client) handleEvent(ctx context.Context, ev contract.Event) {
	if ev.Kind == contract.EvRoomCreated {
		c.Lock()
		c.knownRooms[ev.RoomID.String()] = RoomSummary{
			ID:      ev.RoomID,
			Creator: ev.Creator,
			Wager:   ev.Wager,
			SeenAt:  ev.At,
		}
		c.Unlock()
		c.pushUpdate()
		return
	}

	if !c.rec.IsActiveRoom(ev.RoomID) {
		return
	}

	switch ev.Kind {
	case contract.EvRoomJoined:
		c.rec.SetOpponent(ev.Opponent)
		if c.rec.ApplyPhase(mindvault.PhaseInProgress) {
			c.ntfns.notifyRoomPhase(ev.RoomID, mindvault.PhaseInProgress)
		}
	case contract.EvProbeSubmitted:
		// Informational; the merge happens on ResultComputed, which
		// carries the turn index.
		c.ntfns.notifyMessage(fmt.Sprintf("probe submitted by %s", ev.Who))
	case contract.EvResultComputed:
		c.mergeResult(ctx, ev)
	case contract.EvDecryptionRequested:
		c.ntfns.notifyMessage(fmt.Sprintf("winner decryption requested (request %s)", ev.RequestID))
	case contract.EvWinnerDecrypted:
		c.rec.SetWinner(ev.Winner)
		c.ntfns.notifyMessage(fmt.Sprintf("winner decrypted: %s", ev.Winner))
	case contract.EvGameFinished:
		c.rec.SetWinner(ev.Winner)
		if c.rec.ApplyPhase(mindvault.PhaseCompleted) {
			c.ntfns.notifyRoomPhase(ev.RoomID, mindvault.PhaseCompleted)
		}
		c.ntfns.notifyGameFinished(ev.RoomID, ev.Winner, ev.Amount)
	case contract.EvRoomCancelled:
		if c.rec.ApplyPhase(mindvault.PhaseCancelled) {
			c.ntfns.notifyRoomPhase(ev.RoomID, mindvault.PhaseCancelled)
		}
	}
	c.pushUpdate()
}

// mergeResult applies a ResultComputed event, backfilling digits from
// getProbe when the local view never saw them (the opponent's probe, or
// a result that outran our own optimistic add).
func (c *Client) mergeResult(ctx context.Context, ev contract.Event) {
	res := GuessResult{Breached: ev.Breaches, Injured: ev.Signals, IsWin: ev.IsWin}

	var digits *[mindvault.CodeLen]uint8
	if !c.rec.HasDigits(ev.TurnIndex) {
		_, d, err := c.contract.GetProbe(ctx, ev.RoomID, ev.TurnIndex)
		if err != nil {
			// Merge the result anyway; digits can be backfilled by a
			// later duplicate of this event.
			c.log.Warnf("getProbe(%s, %d) failed: %v", ev.RoomID, ev.TurnIndex, err)
		} else {
			digits = &d
		}
	}

	c.rec.MergeResult(ev.TurnIndex, res, digits)
	c.ntfns.notifyResult(ev.RoomID, ev.TurnIndex, res)
}

// pushUpdate nudges the UI without blocking the pump.
func (c *Client) pushUpdate() {
	select {
	case c.UpdatesCh <- UpdatedMsg{}:
	default:
	}
}
