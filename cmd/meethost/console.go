package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	host "github.com/koscakluka/meethost/core"
	"github.com/koscakluka/meethost/core/commands"
	"github.com/koscakluka/meethost/core/events"
	"github.com/koscakluka/meethost/core/intent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
)

const maxLogLines = 200

var consoleCmd = &cobra.Command{
	Use:   "console [url-or-room]",
	Short: "Join a conference with an interactive terminal console",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConsole,
}

func init() {
	consoleCmd.Flags().String("log-file", "", "write logs to this file")
	rootCmd.AddCommand(consoleCmd)
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).PaddingRight(1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8A8A8"))
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	kindStyle   = lipgloss.NewStyle().Bold(true)
)

type consoleKeys struct {
	Audio        key.Binding
	Video        key.Binding
	ScreenShare  key.Binding
	Chat         key.Binding
	Participants key.Binding
	HangUp       key.Binding
	Quit         key.Binding
}

func (k consoleKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Audio, k.Video, k.ScreenShare, k.Chat, k.Participants, k.HangUp, k.Quit}
}

func (k consoleKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func defaultConsoleKeys() consoleKeys {
	return consoleKeys{
		Audio:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute audio")),
		Video:        key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "mute video")),
		ScreenShare:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "screen share")),
		Chat:         key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "chat")),
		Participants: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "participants")),
		HangUp:       key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hang up")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type engineEventMsg struct {
	kind events.Kind
	data map[string]any
	at   time.Time
}

type hostFinishedMsg struct{ reason string }

// commandSender is the part of the host runtime the console drives.
type commandSender interface {
	SendCommand(in *intent.Intent) bool
}

type consoleModel struct {
	host  commandSender
	keys  consoleKeys
	help  help.Model
	lines []string
	width int

	joined       bool
	audioMuted   bool
	videoMuted   bool
	screenShared bool
	chatOpen     bool
	finished     string
}

func newConsoleModel(sender commandSender) consoleModel {
	return consoleModel{host: sender, keys: defaultConsoleKeys(), help: help.New(), width: 80}
}

func (m consoleModel) Init() tea.Cmd { return nil }

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
	case tea.KeyMsg:
		return m.handleKey(msg)
	case engineEventMsg:
		m.apply(msg)
	case hostFinishedMsg:
		m.finished = msg.reason
		return m, tea.Quit
	}
	return m, nil
}

func (m consoleModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Audio):
		m.send(commands.SetAudioMuted(!m.audioMuted))
	case key.Matches(msg, m.keys.Video):
		m.send(commands.SetVideoMuted(!m.videoMuted))
	case key.Matches(msg, m.keys.ScreenShare):
		m.send(commands.ToggleScreenShare(!m.screenShared))
	case key.Matches(msg, m.keys.Chat):
		if m.chatOpen {
			m.send(commands.CloseChat())
		} else {
			m.send(commands.OpenChat(""))
		}
	case key.Matches(msg, m.keys.Participants):
		m.send(commands.RetrieveParticipantsInfo(""))
	case key.Matches(msg, m.keys.HangUp):
		m.send(commands.HangUp())
	}
	return m, nil
}

func (m *consoleModel) send(in *intent.Intent) {
	if !m.host.SendCommand(in) {
		m.appendLine(offStyle.Render("command not delivered: " + in.Action))
	}
}

func (m *consoleModel) apply(msg engineEventMsg) {
	switch msg.kind {
	case events.KindConferenceJoined:
		m.joined = true
	case events.KindConferenceTerminated:
		m.joined = false
	case events.KindAudioMutedChanged:
		m.audioMuted, _ = msg.data["muted"].(bool)
	case events.KindVideoMutedChanged:
		m.videoMuted, _ = msg.data["muted"].(bool)
	case events.KindScreenShareToggled:
		m.screenShared, _ = msg.data["sharing"].(bool)
	case events.KindChatToggled:
		m.chatOpen, _ = msg.data["isOpen"].(bool)
	}
	m.appendLine(timeStyle.Render(msg.at.Format("15:04:05")) + " " + kindStyle.Render(msg.kind.String()) + " " + formatData(msg.data))
}

func (m *consoleModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
}

func (m consoleModel) View() string {
	var b strings.Builder

	status := offStyle.Render("not in a conference")
	if m.joined {
		status = onStyle.Render("in conference")
	}
	b.WriteString(titleStyle.Render("meethost") + status + "  " +
		statusStyle.Render(fmt.Sprintf("audio %s  video %s  chat %s",
			toggle(!m.audioMuted), toggle(!m.videoMuted), toggle(m.chatOpen))))
	b.WriteString("\n\n")

	for _, line := range m.lines {
		b.WriteString(wordwrap.String(line, max(m.width, 20)))
		b.WriteString("\n")
	}
	if m.finished != "" {
		b.WriteString("\n" + statusStyle.Render(m.finished) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func toggle(on bool) string {
	if on {
		return onStyle.Render("on")
	}
	return offStyle.Render("off")
}

func formatData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return strings.Join(parts, " ")
}

// runtimeSender lets the model be built before the runtime exists.
type runtimeSender struct {
	rt *hostRuntime
}

func (s *runtimeSender) SendCommand(in *intent.Intent) bool {
	if s.rt == nil {
		return false
	}
	return s.rt.SendCommand(in)
}

func runConsole(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var logOutput io.Writer = io.Discard
	if path, _ := cmd.Flags().GetString("log-file"); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer file.Close()
		logOutput = file
	}
	logger := slog.New(slog.NewTextHandler(logOutput, nil))

	var launch *intent.Intent
	if len(args) == 1 {
		launch = host.LaunchURLIntent(args[0])
	}

	sender := &runtimeSender{}
	program := tea.NewProgram(newConsoleModel(sender), tea.WithContext(ctx))

	// Callbacks run on the looper and block it until the program reads the
	// message, which keeps the event log in order.
	var opts []host.ActivityOption
	for _, kind := range events.Kinds() {
		opts = append(opts, host.WithEventCallback(kind, func(data map[string]any) {
			program.Send(engineEventMsg{kind: kind, data: data, at: time.Now()})
		}))
	}

	rt, err := startHost(ctx, cfg, launch, logger, opts...)
	if err != nil {
		return err
	}
	sender.rt = rt

	done := make(chan struct{})
	go func() {
		select {
		case <-rt.Finished():
			program.Send(hostFinishedMsg{reason: "conference closed"})
		case <-rt.EngineGone():
			program.Send(hostFinishedMsg{reason: "engine connection closed"})
		case <-done:
		}
	}()

	_, runErr := program.Run()
	close(done)

	_ = rt.Do(func(a *host.Activity) { a.Finish() })
	if err := rt.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("running console: %w", runErr)
	}
	return nil
}
