package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"

	"github.com/vctt94/mindvault"
	"github.com/vctt94/mindvault/client"
	"github.com/vctt94/mindvault/logging"
)

var (
	datadir      = flag.String("datadir", "", "Directory to load config file from")
	rpcURL       = flag.String("rpcurl", "", "JSON-RPC endpoint of the node")
	contractAddr = flag.String("contractaddr", "", "Address of the mind vault contract")
	keyFile      = flag.String("keyfile", "", "Path to the hex signing key file")
	origin       = flag.String("origin", "", "Origin used when building invite links")
	debugLevel   = flag.String("debuglevel", "", "Log level or per-subsystem levels")
)

func realMain() error {
	flag.Parse()

	cfg, err := client.LoadAppConfig(*datadir, client.ConfigOverrides{
		RPCURL:       *rpcURL,
		ContractAddr: *contractAddr,
		KeyFile:      *keyFile,
		Origin:       *origin,
		DebugLevel:   *debugLevel,
	})
	if err != nil {
		return err
	}

	lb, err := logging.NewLogBackend(filepath.Join(cfg.DataDir, "logs", "mindvault.log"), cfg.DebugLevel)
	if err != nil {
		return err
	}
	defer lb.Close()
	log := lb.Logger("MVUI")

	keyHex, err := cfg.ReadKeyHex()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ntfns := client.NewNotificationManager()
	sess, err := client.NewSession(lb.Logger("SESS"), keyHex, ntfns)
	if err != nil {
		return err
	}

	ec, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}
	defer ec.Close()
	if err := sess.Connect(ctx, ec); err != nil {
		return err
	}
	defer sess.Disconnect()

	c, err := client.NewClient(&client.ClientCfg{
		AppCfg:        cfg,
		Log:           lb.Logger("CLNT"),
		Session:       sess,
		Notifications: ntfns,
	})
	if err != nil {
		return err
	}

	// Route notification text into the UI update stream.
	push := func(msg tea.Msg) {
		select {
		case c.UpdatesCh <- msg:
		default:
		}
	}
	ntfns.RegisterMessage(func(s string) { push(s) })
	ntfns.RegisterRoomPhase(func(roomID *big.Int, phase mindvault.RoomPhase) {
		push(fmt.Sprintf("room %s is now %s", roomID, phase))
	})
	ntfns.RegisterResult(func(roomID *big.Int, turn uint32, res client.GuessResult) {
		push(fmt.Sprintf("turn %d scored: %d breached, %d injured", turn, res.Breached, res.Injured))
	})
	ntfns.RegisterGameFinished(func(roomID *big.Int, winner common.Address, amount *big.Int) {
		push(fmt.Sprintf("game over: %s wins %s", winner, mindvault.FormatWei(amount)))
	})
	ntfns.RegisterDegraded(func(d bool) {
		if d {
			push("event feed degraded; data may be stale")
		} else {
			push("event feed recovered")
		}
	})

	c.Start(ctx)
	defer c.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m := newAppState(gctx, c, log)
		p := tea.NewProgram(m, tea.WithAltScreen())
		_, err := p.Run()
		cancel()
		return err
	})
	return g.Wait()
}

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
