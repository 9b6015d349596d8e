package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/decred/slog"

	"github.com/vctt94/mindvault"
	"github.com/vctt94/mindvault/client"
)

type appMode int

const (
	modeIdle appMode = iota
	modeCreateRoom
	modeJoinRoom
	modeGame
	modeLogs
)

type appstate struct {
	sync.Mutex
	ctx context.Context
	c   *client.Client
	log slog.Logger

	mode         appMode
	msgCh        chan tea.Msg
	viewport     viewport.Model
	notification string
	logBuffer    []string

	// createRoom inputs: step 0 = digits, step 1 = wager.
	createStep   int
	createDigits string
	createWager  string

	// joinRoom inputs: step 0 = invite link or id, step 1 = digits.
	joinStep   int
	joinTarget string
	joinDigits string

	// gameMode probe input.
	probeDigits string
}

func newAppState(ctx context.Context, c *client.Client, log slog.Logger) *appstate {
	return &appstate{ctx: ctx, c: c, log: log, mode: modeIdle}
}

func (m *appstate) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		go func() {
			for msg := range m.c.UpdatesCh {
				m.msgCh <- msg
			}
		}()
		return nil
	}
}

func (m *appstate) listenForErrors() tea.Cmd {
	return func() tea.Msg {
		go func() {
			for err := range m.c.ErrorsCh {
				m.msgCh <- fmt.Sprintf("Error: %v", err)
			}
		}()
		return nil
	}
}

func (m *appstate) waitForMsg() tea.Cmd {
	return func() tea.Msg { return <-m.msgCh }
}

func (m *appstate) Init() tea.Cmd {
	m.msgCh = make(chan tea.Msg)
	m.viewport = viewport.New(0, 0)
	m.logBuffer = make([]string, 0)
	// Alt screen is set by the program option in main.
	return tea.Batch(
		m.listenForUpdates(),
		m.listenForErrors(),
		m.waitForMsg(),
	)
}

func (m *appstate) note(s string) {
	m.notification = s
	m.logBuffer = append(m.logBuffer, s)
	if len(m.logBuffer) > 200 {
		m.logBuffer = m.logBuffer[len(m.logBuffer)-200:]
	}
}

func (m *appstate) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Lock()
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 6
		m.Unlock()
		return m, nil
	case client.UpdatedMsg:
		return m, m.waitForMsg()
	case string:
		m.Lock()
		m.note(msg)
		m.Unlock()
		return m, m.waitForMsg()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, m.waitForMsg()
}

func (m *appstate) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.Lock()
	defer m.Unlock()

	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.mode {
	case modeIdle:
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "c":
			m.mode = modeCreateRoom
			m.createStep, m.createDigits, m.createWager = 0, "", ""
			m.note("create room: enter four distinct digits")
		case "j":
			m.mode = modeJoinRoom
			m.joinStep, m.joinTarget, m.joinDigits = 0, "", ""
			m.note("join room: paste invite link or room id")
		case "g":
			if m.c.Reconciler().Room() != nil {
				m.mode = modeGame
			}
		case "l":
			m.mode = modeLogs
		}
	case modeCreateRoom:
		return m.handleCreateKey(msg)
	case modeJoinRoom:
		return m.handleJoinKey(msg)
	case modeGame:
		return m.handleGameKey(msg)
	case modeLogs:
		switch msg.String() {
		case "esc", "q":
			m.mode = modeIdle
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// editLine applies typing keys to a digit/text buffer.
func editLine(buf string, msg tea.KeyMsg, max int) string {
	switch msg.Type {
	case tea.KeyBackspace:
		if len(buf) > 0 {
			return buf[:len(buf)-1]
		}
	case tea.KeyRunes:
		if len(buf) < max {
			return buf + string(msg.Runes)
		}
	}
	return buf
}

func (m *appstate) handleCreateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeIdle
		return m, nil
	case "enter":
		if m.createStep == 0 {
			if _, err := mindvault.ParseDigits(m.createDigits); err != nil {
				m.note(err.Error())
				return m, nil
			}
			m.createStep = 1
			m.note("enter wager (e.g. 0.01)")
			return m, nil
		}
		digits, err := mindvault.ParseDigits(m.createDigits)
		if err != nil {
			m.note(err.Error())
			return m, nil
		}
		wager, err := mindvault.ParseWager(m.createWager)
		if err != nil {
			m.note(err.Error())
			return m, nil
		}
		m.note("creating room…")
		return m, func() tea.Msg {
			room, err := m.c.CreateRoom(m.ctx, digits, wager)
			if err != nil {
				return fmt.Sprintf("create failed: %v", err)
			}
			m.Lock()
			m.mode = modeGame
			m.Unlock()
			return fmt.Sprintf("room %s created; invite: %s", room.ID, m.c.InviteLink())
		}
	}
	if m.createStep == 0 {
		m.createDigits = editLine(m.createDigits, msg, 8)
	} else {
		m.createWager = editLine(m.createWager, msg, 16)
	}
	return m, nil
}

func (m *appstate) handleJoinKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeIdle
		return m, nil
	case "enter":
		if m.joinStep == 0 {
			if _, err := mindvault.ParseInviteLink(m.joinTarget); err != nil {
				m.note(err.Error())
				return m, nil
			}
			m.joinStep = 1
			m.note("enter your four secret digits")
			return m, nil
		}
		roomID, err := mindvault.ParseInviteLink(m.joinTarget)
		if err != nil {
			m.note(err.Error())
			return m, nil
		}
		digits, err := mindvault.ParseDigits(m.joinDigits)
		if err != nil {
			m.note(err.Error())
			return m, nil
		}
		m.note("joining room…")
		return m, func() tea.Msg {
			room, err := m.c.JoinRoom(m.ctx, roomID, digits)
			if err != nil {
				return fmt.Sprintf("join failed: %v", err)
			}
			m.Lock()
			m.mode = modeGame
			m.Unlock()
			return fmt.Sprintf("joined room %s (wager %s)", room.ID, mindvault.FormatWei(room.Wager))
		}
	}
	if m.joinStep == 0 {
		m.joinTarget = editLine(m.joinTarget, msg, 128)
	} else {
		m.joinDigits = editLine(m.joinDigits, msg, 8)
	}
	return m, nil
}

func (m *appstate) handleGameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeIdle
		return m, nil
	case "x":
		m.note("cancelling room…")
		return m, func() tea.Msg {
			if err := m.c.CancelRoom(m.ctx); err != nil {
				return fmt.Sprintf("cancel failed: %v", err)
			}
			return "room cancelled"
		}
	case "r":
		return m, func() tea.Msg {
			if err := m.c.RefreshRoom(m.ctx); err != nil {
				return fmt.Sprintf("refresh failed: %v", err)
			}
			return client.UpdatedMsg{}
		}
	case "enter":
		digits, err := mindvault.ParseDigits(m.probeDigits)
		if err != nil {
			m.note(err.Error())
			return m, nil
		}
		m.probeDigits = ""
		return m, func() tea.Msg {
			if err := m.c.SubmitProbe(m.ctx, digits); err != nil {
				return fmt.Sprintf("probe failed: %v", err)
			}
			return client.UpdatedMsg{}
		}
	}
	m.probeDigits = editLine(m.probeDigits, msg, 8)
	return m, nil
}

func formatGuess(g client.Guess) string {
	digits := "????"
	if g.HasDigits {
		digits = fmt.Sprintf("%d%d%d%d", g.Digits[0], g.Digits[1], g.Digits[2], g.Digits[3])
	}
	status := "pending"
	if g.Result != nil {
		status = fmt.Sprintf("%d breached, %d injured", g.Result.Breached, g.Result.Injured)
		if g.Result.IsWin {
			status += "  VAULT BREACHED"
		}
	}
	return fmt.Sprintf("  turn %2d  %s  %s", g.TurnIndex, digits, status)
}

func (m *appstate) View() string {
	m.Lock()
	defer m.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "mindvault — %s\n", m.c.Address())
	if m.c.FeedDegraded() {
		b.WriteString("!! event feed degraded; shown data may be stale !!\n")
	}

	switch m.mode {
	case modeIdle:
		b.WriteString("\n[c]reate room  [j]oin room  [g]ame view  [l]ogs  [q]uit\n\n")
		rooms := m.c.KnownRooms()
		if len(rooms) > 0 {
			b.WriteString("rooms seen this session:\n")
			for _, r := range rooms {
				fmt.Fprintf(&b, "  room %s  creator %s  wager %s\n",
					r.ID, r.Creator, mindvault.FormatWei(r.Wager))
			}
		}
	case modeCreateRoom:
		b.WriteString("\ncreate room (esc to abort)\n")
		fmt.Fprintf(&b, "  secret digits: %s\n", m.createDigits)
		if m.createStep == 1 {
			fmt.Fprintf(&b, "  wager: %s\n", m.createWager)
		}
	case modeJoinRoom:
		b.WriteString("\njoin room (esc to abort)\n")
		fmt.Fprintf(&b, "  invite link / room id: %s\n", m.joinTarget)
		if m.joinStep == 1 {
			fmt.Fprintf(&b, "  secret digits: %s\n", m.joinDigits)
		}
	case modeGame:
		m.viewGame(&b)
	case modeLogs:
		b.WriteString("\nlogs (esc to return)\n")
		m.viewport.SetContent(strings.Join(m.logBuffer, "\n"))
		b.WriteString(m.viewport.View())
	}

	if m.notification != "" {
		fmt.Fprintf(&b, "\n%s\n", m.notification)
	}
	return b.String()
}

func (m *appstate) viewGame(b *strings.Builder) {
	rec := m.c.Reconciler()
	room := rec.Room()
	if room == nil {
		b.WriteString("\nno active room\n")
		return
	}
	fmt.Fprintf(b, "\nroom %s — %s — wager %s\n", room.ID, room.Phase, mindvault.FormatWei(room.Wager))
	if room.Phase == mindvault.PhaseWaitingForJoin {
		fmt.Fprintf(b, "waiting for opponent; share: %s\n", m.c.InviteLink())
	}

	b.WriteString("\nmy probes:\n")
	for _, g := range rec.Mine() {
		b.WriteString(formatGuess(g) + "\n")
	}
	b.WriteString("opponent's probes:\n")
	for _, g := range rec.Theirs() {
		b.WriteString(formatGuess(g) + "\n")
	}

	switch {
	case room.Phase == mindvault.PhaseCompleted:
		fmt.Fprintf(b, "\ngame over — winner %s\n", room.Winner)
	case room.Phase == mindvault.PhaseCancelled:
		b.WriteString("\nroom cancelled\n")
	case rec.IsMyTurn():
		fmt.Fprintf(b, "\nyour turn — probe digits: %s  (enter to submit)\n", m.probeDigits)
	default:
		b.WriteString("\nwaiting for opponent's probe…\n")
	}
	b.WriteString("[r]efresh  [x] cancel room  [esc] menu\n")
}
