package main

import (
	"context"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vang/capture"
	"vang/heritage"
	"vang/stream"
)

// Surface message types, sent by the EventSink adapter.
type StreamFrameMsg struct {
	ID       string
	Text     string
	Speaking bool
}
type StreamDoneMsg struct{ ID, Final string }
type EmotionMsg struct{ E stream.Emotion }
type LevelMsg struct{ Level float64 }
type SilenceWarnMsg struct{ Active bool }
type RecordingStateMsg struct{ Recording, Transcribing bool }
type TranscriptMsg struct{ Text string }
type HistoryMsg struct{ Messages []heritage.Message }
type MessageAddedMsg struct{ Message heritage.Message }
type LoadingMsg struct{ On bool }
type NoticeMsg struct{ Text string }
type ErrorMsg struct{ Text string }
type tickMsg time.Time
type clearNoticeMsg struct{}

var (
	uiProgram *tea.Program
	uiMu      sync.Mutex
)

func uiSend(msg tea.Msg) {
	uiMu.Lock()
	p := uiProgram
	uiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// programSink delivers every app event to whichever surface is running.
type programSink struct{}

func (programSink) StreamFrame(id, text string, speaking bool) {
	uiSend(StreamFrameMsg{ID: id, Text: text, Speaking: speaking})
}
func (programSink) StreamDone(id, final string)    { uiSend(StreamDoneMsg{ID: id, Final: final}) }
func (programSink) EmotionChange(e stream.Emotion) { uiSend(EmotionMsg{E: e}) }
func (programSink) Level(rms float64)              { uiSend(LevelMsg{Level: rms}) }
func (programSink) SilenceWarning(active bool)     { uiSend(SilenceWarnMsg{Active: active}) }
func (programSink) RecordingState(rec, tr bool) {
	uiSend(RecordingStateMsg{Recording: rec, Transcribing: tr})
}
func (programSink) Transcript(text string) { uiSend(TranscriptMsg{Text: text}) }
func (programSink) HistoryLoaded(msgs []heritage.Message) {
	uiSend(HistoryMsg{Messages: msgs})
}
func (programSink) MessageAdded(m heritage.Message) { uiSend(MessageAddedMsg{Message: m}) }
func (programSink) Loading(on bool)                 { uiSend(LoadingMsg{On: on}) }
func (programSink) Notice(text string)              { uiSend(NoticeMsg{Text: text}) }
func (programSink) Error(text string)               { uiSend(ErrorMsg{Text: text}) }

const avatarPaneWidth = 22

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	companionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	textStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	recStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	chipStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	avatarStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	barStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
)

type tuiModel struct {
	app           *App
	characterName string
	width, height int
	frame         int

	messages        []heritage.Message
	recommendations []string

	streamID     string
	streamText   string
	streamActive bool
	speaking     bool
	loading      bool

	emotion stream.Emotion

	recording    bool
	transcribing bool
	silenceWarn  bool
	bars         []float64

	input  []rune
	notice string
	errMsg string
}

func NewTUIProgram(app *App, characterName string) *tea.Program {
	m := tuiModel{
		app:           app,
		characterName: characterName,
		emotion:       stream.NeutralEmotion(),
	}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func uiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func clearNoticeLater() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearNoticeMsg{}
	})
}

func (m tuiModel) Init() tea.Cmd {
	return uiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.frame++
		return m, uiTick()

	case StreamFrameMsg:
		m.streamID = msg.ID
		m.streamText = msg.Text
		m.speaking = msg.Speaking
		m.streamActive = true

	case StreamDoneMsg:
		if msg.ID == m.streamID {
			m.streamActive = false
			m.speaking = false
		}

	case EmotionMsg:
		m.emotion = msg.E

	case LevelMsg:
		m.bars = append(m.bars, msg.Level)
		if len(m.bars) > capture.DefaultMaxBars {
			m.bars = m.bars[len(m.bars)-capture.DefaultMaxBars:]
		}

	case SilenceWarnMsg:
		m.silenceWarn = msg.Active

	case RecordingStateMsg:
		m.recording = msg.Recording
		m.transcribing = msg.Transcribing
		if !msg.Recording {
			m.bars = nil
			m.silenceWarn = false
		}

	case TranscriptMsg:
		m.input = []rune(msg.Text)
		m.notice = "transcribed, enter to send"
		return m, clearNoticeLater()

	case HistoryMsg:
		m.messages = msg.Messages

	case MessageAddedMsg:
		m.messages = append(m.messages, msg.Message)
		if msg.Message.Role == heritage.RoleCompanion {
			m.recommendations = msg.Message.Recommendation
		}

	case LoadingMsg:
		m.loading = msg.On

	case NoticeMsg:
		m.notice = msg.Text
		m.errMsg = ""
		return m, clearNoticeLater()

	case ErrorMsg:
		m.errMsg = msg.Text
		m.notice = ""

	case clearNoticeMsg:
		m.notice = ""
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	app := m.app
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		if m.recording {
			return m, func() tea.Msg { app.ConfirmRecording(context.Background()); return nil }
		}
		text := string(m.input)
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.input = nil
		m.errMsg = ""
		return m, func() tea.Msg { app.Send(context.Background(), text); return nil }

	case "esc":
		if m.recording {
			return m, func() tea.Msg { app.CancelRecording(); return nil }
		}
		m.input = nil

	case "ctrl+r":
		if m.recording {
			return m, func() tea.Msg { app.ConfirmRecording(context.Background()); return nil }
		}
		return m, func() tea.Msg { app.StartRecording(); return nil }

	case "ctrl+p":
		return m, func() tea.Msg { app.ReplayLast(); return nil }

	case "ctrl+y":
		return m, func() tea.Msg { app.CopyLastReply(); return nil }

	case "tab":
		if len(m.recommendations) > 0 && !m.recording {
			m.input = []rune(m.recommendations[0])
		}

	case "backspace":
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}

	default:
		if m.recording {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyRunes:
			m.input = append(m.input, msg.Runes...)
		case tea.KeySpace:
			m.input = append(m.input, ' ')
		}
	}
	return m, nil
}

// barGlyphs maps a meter level to one cell of the waveform strip.
var barGlyphs = []rune(" ▁▂▃▄▅▆▇█")

func renderBars(levels []float64) string {
	var b strings.Builder
	for _, v := range levels {
		h := capture.BarHeight(v, len(barGlyphs)-1)
		if h == 0 && v > 0 {
			b.WriteRune('·')
			continue
		}
		b.WriteRune(barGlyphs[h])
	}
	return b.String()
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	left := m.renderAvatarPane()
	right := m.renderChatPane()

	leftPanel := lipgloss.NewStyle().
		Width(avatarPaneWidth).
		Height(m.height).
		Render(left)
	rightPanel := lipgloss.NewStyle().
		Width(m.width - avatarPaneWidth - 1).
		Height(m.height).
		PaddingLeft(1).
		Render(right)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func (m tuiModel) renderAvatarPane() string {
	var lines []string
	lines = append(lines, "")
	lines = append(lines, avatarStyle.Render(RenderAvatar(m.emotion, m.speaking, m.frame)))
	lines = append(lines, "")

	switch {
	case m.recording:
		lines = append(lines, recStyle.Render("● REC"))
		lines = append(lines, barStyle.Render(renderBars(m.bars)))
		if m.silenceWarn {
			lines = append(lines, noticeStyle.Render("⚠ can't hear you"))
		}
	case m.transcribing:
		lines = append(lines, dimStyle.Render("… transcribing"))
	case m.loading:
		lines = append(lines, dimStyle.Render("… thinking"))
	case m.speaking:
		lines = append(lines, dimStyle.Render("♪ speaking"))
	default:
		lines = append(lines, dimStyle.Render("○ idle"))
	}

	lines = append(lines, "")
	lines = append(lines,
		dimStyle.Render("enter  send/confirm"),
		dimStyle.Render("ctrl+r record"),
		dimStyle.Render("esc    cancel"),
		dimStyle.Render("ctrl+p replay"),
		dimStyle.Render("ctrl+y copy reply"),
		dimStyle.Render("tab    suggestion"),
	)
	return strings.Join(lines, "\n")
}

func (m tuiModel) renderChatPane() string {
	wrapWidth := m.width - avatarPaneWidth - 4
	if wrapWidth < 16 {
		wrapWidth = 16
	}

	var history []string
	for _, msg := range m.messages {
		var label string
		if msg.Role == heritage.RoleUser {
			label = userStyle.Render("you")
		} else {
			label = companionStyle.Render(m.characterName)
		}
		text := msg.Content
		cursor := ""
		if m.streamActive && msg.ID == m.streamID {
			text = m.streamText
			cursor = "▌"
		}
		clipMark := ""
		if msg.AudioBase64 != "" {
			clipMark = dimStyle.Render(" ♪")
		}
		for i, line := range wrapRunes(text, wrapWidth) {
			if i == 0 {
				history = append(history, label+clipMark+" "+textStyle.Render(line))
			} else {
				history = append(history, "    "+textStyle.Render(line))
			}
		}
		if m.streamActive && msg.ID == m.streamID && cursor != "" {
			history[len(history)-1] += textStyle.Render(cursor)
		}
	}
	if m.loading {
		history = append(history, companionStyle.Render(m.characterName)+" "+dimStyle.Render("..."))
	}

	// Fixed footer: chips, status line, input, help.
	footer := 4
	visible := m.height - footer - 1
	if visible < 1 {
		visible = 1
	}
	if len(history) > visible {
		history = history[len(history)-visible:]
	}

	var b strings.Builder
	b.WriteString(companionStyle.Render(m.characterName) + dimStyle.Render(" — heritage companion") + "\n")
	b.WriteString(strings.Join(history, "\n"))
	b.WriteString(strings.Repeat("\n", visible-len(history)+1))

	if len(m.recommendations) > 0 && !m.recording {
		var chips []string
		for _, r := range m.recommendations {
			chips = append(chips, chipStyle.Render("["+r+"]"))
		}
		b.WriteString(strings.Join(chips, " "))
	}
	b.WriteString("\n")

	switch {
	case m.errMsg != "":
		b.WriteString(errorStyle.Render(m.errMsg))
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice))
	}
	b.WriteString("\n")

	if m.recording {
		b.WriteString(recStyle.Render("recording... ") + dimStyle.Render("enter to use, esc to discard"))
	} else {
		b.WriteString(dimStyle.Render("> ") + textStyle.Render(string(m.input)) + textStyle.Render("▌"))
	}
	return b.String()
}

// wrapRunes wraps on spaces where possible, counting runes rather than
// bytes. Vietnamese text is multi-byte almost everywhere.
func wrapRunes(text string, width int) []string {
	if text == "" {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}
	runes := []rune(text)
	var lines []string
	for len(runes) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if runes[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(runes[:splitAt]))
		rest := runes[splitAt:]
		for len(rest) > 0 && rest[0] == ' ' {
			rest = rest[1:]
		}
		runes = rest
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return lines
}
