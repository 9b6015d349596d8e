package chainwatcher

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/vctt94/mindvault/contract"
)

const (
	// DefaultPollInterval is how often the watcher scans for new logs.
	DefaultPollInterval = 5 * time.Second

	// DefaultLookback is how many blocks behind the tip each scan
	// starts. Small enough to bound query cost, large enough to
	// tolerate brief polling gaps. It does NOT recover events missed
	// during a disconnect longer than the time to produce this many
	// blocks; there is no catch-up.
	DefaultLookback = uint64(10)

	// degradedAfter is how many consecutive failed scans flip the
	// watcher into the degraded state.
	degradedAfter = 5
)

// Backend is the log-querying subset of an Ethereum JSON-RPC client.
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
}

// ChainWatcher is a minimal pusher: each tick it queries contract logs
// over a recent block window, decodes them, and broadcasts the typed
// events to every subscriber. No per-subscriber state is retained, and
// a log inside two overlapping windows is dispatched twice; receivers
// dedupe.
type ChainWatcher struct {
	log     slog.Logger
	backend Backend
	addr    common.Address

	interval time.Duration
	lookback uint64

	mu       sync.RWMutex
	tip      uint64
	subs     map[chan contract.Event]struct{}
	failures int
	degraded bool

	quit     chan struct{}
	stopOnce sync.Once
}

func New(log slog.Logger, backend Backend, addr common.Address) *ChainWatcher {
	return &ChainWatcher{
		log:      log,
		backend:  backend,
		addr:     addr,
		interval: DefaultPollInterval,
		lookback: DefaultLookback,
		subs:     make(map[chan contract.Event]struct{}),
		quit:     make(chan struct{}),
	}
}

// SetPollInterval overrides the scan interval. Call before Run.
func (w *ChainWatcher) SetPollInterval(d time.Duration) { w.interval = d }

// SetLookback overrides the block lookback window. Call before Run.
func (w *ChainWatcher) SetLookback(n uint64) { w.lookback = n }

// Stop terminates the poll loop. Safe to call more than once.
func (w *ChainWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}

func (w *ChainWatcher) Run(ctx context.Context) {
	w.log.Infof("watcher: started (interval=%s lookback=%d)", w.interval, w.lookback)
	t := time.NewTicker(w.interval)
	defer t.Stop()
	defer w.log.Infof("watcher: stopped")
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.quit:
			return
		case <-t.C:
			w.pollOnce(ctx)
		}
	}
}

// pollOnce runs one scan cycle. RPC failures are logged and counted but
// never stop the loop; the next cycle is attempted unconditionally.
func (w *ChainWatcher) pollOnce(ctx context.Context) {
	tip, err := w.backend.BlockNumber(ctx)
	if err != nil {
		w.log.Debugf("watcher: BlockNumber failed: %v", err)
		w.recordFailure()
		return
	}
	w.mu.Lock()
	w.tip = tip
	w.mu.Unlock()

	from := uint64(0)
	if tip > w.lookback {
		from = tip - w.lookback
	}
	logs, err := w.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(tip),
		Addresses: []common.Address{w.addr},
	})
	if err != nil {
		w.log.Debugf("watcher: FilterLogs(%d..%d) failed: %v", from, tip, err)
		w.recordFailure()
		return
	}
	w.recordSuccess()

	// Dispatch in the order the node returned them (chain log order).
	// Unknown or malformed logs are skipped silently.
	for _, l := range logs {
		ev, ok := contract.DecodeLog(l)
		if !ok {
			continue
		}
		w.broadcast(ev)
	}
}

func (w *ChainWatcher) recordFailure() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failures++
	if w.failures >= degradedAfter && !w.degraded {
		w.degraded = true
		w.log.Warnf("watcher: %d consecutive scan failures; feed degraded", w.failures)
	}
}

func (w *ChainWatcher) recordSuccess() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.degraded {
		w.log.Infof("watcher: feed recovered")
	}
	w.failures = 0
	w.degraded = false
}

// Degraded reports whether the last several scans all failed, meaning
// the local view may be stale.
func (w *ChainWatcher) Degraded() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.degraded
}

// CurrentTip returns the last observed chain tip.
func (w *ChainWatcher) CurrentTip() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tip
}

// Subscribe adds a listener and returns the channel + unsubscribe.
// No initial snapshot is sent; first data arrives on the next tick.
func (w *ChainWatcher) Subscribe() (<-chan contract.Event, func()) {
	ch := make(chan contract.Event, 16)

	w.mu.Lock()
	w.subs[ch] = struct{}{}
	n := len(w.subs)
	w.mu.Unlock()
	w.log.Infof("watcher: subscribed (subs=%d)", n)

	unsub := func() {
		w.mu.Lock()
		delete(w.subs, ch)
		remaining := len(w.subs)
		w.mu.Unlock()
		w.log.Infof("watcher: unsubscribed (subs=%d)", remaining)
		// Do not close(ch): the producer may still try to send; let
		// the receiver stop by context.
	}
	return ch, unsub
}

// broadcast snapshots subscribers, then best-effort sends (non-blocking).
func (w *ChainWatcher) broadcast(ev contract.Event) {
	w.mu.RLock()
	chs := make([]chan contract.Event, 0, len(w.subs))
	for ch := range w.subs {
		chs = append(chs, ch)
	}
	w.mu.RUnlock()

	for _, ch := range chs {
		select {
		case ch <- ev:
		default:
			// Drop if receiver is slow.
		}
	}
}
