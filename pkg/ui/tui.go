package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
	"github.com/fd1az/launchpad-wallet/internal/apperror"
)

// Wallet is the slice of app.Binding the TUI drives.
type Wallet interface {
	Snapshot() domain.ConnectionSnapshot
	IsConnecting() bool
	Network() (domain.NetworkDescriptor, bool)
	Networks() []domain.NetworkDescriptor
	Connect(ctx context.Context) (domain.ConnectionSnapshot, error)
	Disconnect()
	SwitchNetwork(ctx context.Context, chainID uint64) error
}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Warning   bool
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	ctx    context.Context
	wallet Wallet
	keys   KeyMap

	spinner spinner.Model
	help    help.Model

	snapshot domain.ConnectionSnapshot
	busy     string // action in flight, empty when idle

	quitting bool
	width    int
	errors   []ErrorEntry // last 3
	logs     []string     // last 5
}

// New creates a new TUI model over w. Actions run on ctx.
func New(ctx context.Context, w Wallet) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = StatusConnecting

	return Model{
		ctx:      ctx,
		wallet:   w,
		keys:     DefaultKeyMap(),
		spinner:  sp,
		help:     help.New(),
		snapshot: w.Snapshot(),
		errors:   make([]ErrorEntry, 0, 3),
		logs:     make([]string, 0, 5),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SnapshotMsg:
		// Deliveries from the store may overtake each other on the way in.
		if msg.Snapshot.Version >= m.snapshot.Version {
			m.snapshot = msg.Snapshot
		}

	case ActionMsg:
		m.busy = ""
		if msg.Err != nil {
			m = m.addError(msg.Err)
			m.logs = addLog(m.logs, "error", msg.Action+" failed")
			break
		}
		m.logs = addLog(m.logs, "info", msg.Action+" done")

	case ErrorMsg:
		m = m.addError(msg.Error)

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Clear):
		m.errors = m.errors[:0]

	case key.Matches(msg, m.keys.Connect):
		if m.busy != "" || m.snapshot.Connected {
			return m, nil
		}
		m.busy = "connect"
		return m, connectCmd(m.ctx, m.wallet)

	case key.Matches(msg, m.keys.Disconnect):
		if !m.snapshot.Connected {
			return m, nil
		}
		return m, disconnectCmd(m.wallet)

	case key.Matches(msg, m.keys.Switch):
		networks := m.wallet.Networks()
		idx := int(msg.String()[0] - '1')
		if idx < 0 || idx >= len(networks) || m.busy != "" {
			return m, nil
		}
		m.busy = "switch"
		return m, switchCmd(m.ctx, m.wallet, networks[idx].ChainID)
	}

	return m, nil
}

func connectCmd(ctx context.Context, w Wallet) tea.Cmd {
	return func() tea.Msg {
		_, err := w.Connect(ctx)
		return ActionMsg{Action: "connect", Err: err}
	}
}

func disconnectCmd(w Wallet) tea.Cmd {
	return func() tea.Msg {
		w.Disconnect()
		return ActionMsg{Action: "disconnect"}
	}
}

func switchCmd(ctx context.Context, w Wallet, chainID uint64) tea.Cmd {
	return func() tea.Msg {
		err := w.SwitchNetwork(ctx, chainID)
		return ActionMsg{Action: "switch", Err: err}
	}
}

// addError records err in the error panel. Rejections are shown as warnings.
func (m Model) addError(err error) Model {
	if err == nil {
		return m
	}
	m.errors = append(m.errors, ErrorEntry{
		Message:   displayError(err),
		Warning:   domain.IsUserRejected(err) || domain.IsRequestPending(err),
		Timestamp: time.Now(),
	})
	if len(m.errors) > 3 {
		m.errors = m.errors[len(m.errors)-3:]
	}
	return m
}

func displayError(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logs = append(logs, fmt.Sprintf("[%s] %s: %s", timestamp, level, message))
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Launchpad Wallet "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	account := m.renderAccount()
	networks := m.renderNetworks()
	if m.width > 80 {
		left := BoxStyle.Width(m.width/2 - 2).Render(account)
		right := BoxStyle.Width(m.width/2 - 2).Render(networks)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(BoxStyle.Render(account))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(networks))
	}
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(ColorDanger).Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, e := range m.errors {
			style := ErrorStyle
			if e.Warning {
				style = WarningStyle
			}
			ago := time.Since(e.Timestamp).Round(time.Second)
			b.WriteString(style.Render("  • " + e.Message + " "))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	for _, line := range m.logs {
		b.WriteString(MutedValue.Render("  " + line))
		b.WriteString("\n")
	}
	if len(m.logs) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderStatus() string {
	switch {
	case m.busy == "connect" || m.wallet.IsConnecting():
		return m.spinner.View() + " " + StatusConnecting.Render("Connecting... confirm in your wallet")
	case m.snapshot.Connected:
		return StatusConnected.Render("● Connected")
	default:
		return StatusDisconnected.Render("○ Disconnected")
	}
}

func (m Model) renderAccount() string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("ACCOUNT"))
	sb.WriteString("\n\n")

	if !m.snapshot.Connected {
		sb.WriteString(MutedValue.Render("Press c to connect a wallet"))
		return sb.String()
	}

	network := fmt.Sprintf("Unsupported chain %s", domain.FormatChainID(m.snapshot.ChainID))
	symbol := ""
	if n, ok := m.wallet.Network(); ok {
		network = n.Name
		symbol = " " + n.NativeCurrency.Symbol
	}

	balance := m.snapshot.BalanceDisplay
	if balance == "" {
		balance = "n/a"
		symbol = ""
	}

	rows := [][2]string{
		{"Address", m.snapshot.ShortAddress()},
		{"Network", network},
		{"Balance", balance + symbol},
	}
	for _, r := range rows {
		sb.WriteString(LabelStyle.Render(r[0]))
		sb.WriteString(ValueStyle.Render(r[1]))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderNetworks() string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("NETWORKS"))
	sb.WriteString("\n\n")

	for i, n := range m.wallet.Networks() {
		line := fmt.Sprintf("[%d] %s", i+1, n.Name)
		if m.snapshot.Connected && n.ChainID == m.snapshot.ChainID {
			sb.WriteString(ActiveNetwork.Render(line + " ●"))
		} else {
			sb.WriteString(MutedValue.Render(line))
		}
		sb.WriteString("\n")
	}
	if m.busy == "switch" {
		sb.WriteString(m.spinner.View() + " " + WarningStyle.Render("switching..."))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
