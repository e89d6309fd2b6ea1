package main

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"vang/capture"
	"vang/heritage"
	"vang/stream"
)

// captionModel is the compact surface: a few lines of caption synced to
// the companion's voice, without the chat pane. It consumes the same
// event messages as the full TUI.
type captionModel struct {
	app           *App
	characterName string
	width         int
	frame         int

	streamText   string
	streamActive bool
	speaking     bool
	lastFinal    string
	emotion      stream.Emotion

	recording   bool
	silenceWarn bool
	bars        []float64
	notice      string
	errMsg      string
}

func NewCaptionProgram(app *App, characterName string) *tea.Program {
	m := captionModel{
		app:           app,
		characterName: characterName,
		emotion:       stream.NeutralEmotion(),
	}
	return tea.NewProgram(m)
}

func (m captionModel) Init() tea.Cmd {
	return uiTick()
}

func (m captionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "ctrl+p":
			app := m.app
			return m, func() tea.Msg { app.ReplayLast(); return nil }
		}

	case tickMsg:
		m.frame++
		return m, uiTick()

	case StreamFrameMsg:
		m.streamText = msg.Text
		m.speaking = msg.Speaking
		m.streamActive = true

	case StreamDoneMsg:
		m.streamActive = false
		m.speaking = false
		m.lastFinal = msg.Final

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
		if !msg.Recording {
			m.bars = nil
			m.silenceWarn = false
		}

	case MessageAddedMsg:
		if msg.Message.Role == heritage.RoleCompanion {
			m.lastFinal = ""
		}

	case NoticeMsg:
		m.notice = msg.Text
		return m, clearNoticeLater()

	case ErrorMsg:
		m.errMsg = msg.Text

	case clearNoticeMsg:
		m.notice = ""
	}
	return m, nil
}

// captionFace is a one-line face: eyes and mouth only.
func captionFace(e stream.Emotion, speaking bool, frame int) string {
	eyes := avatarEyes(e.Eye, frame)
	mouth := strings.TrimSpace(avatarMouth(e.Mouth, speaking, frame))
	return "(" + eyes[:1] + mouth + eyes[len(eyes)-1:] + ")"
}

func (m captionModel) View() string {
	width := m.width
	if width == 0 {
		width = 60
	}

	var b strings.Builder
	face := avatarStyle.Render(captionFace(m.emotion, m.speaking, m.frame))
	name := companionStyle.Render(m.characterName)

	switch {
	case m.recording:
		b.WriteString(face + " " + recStyle.Render("● REC ") + barStyle.Render(renderBars(m.bars)))
		if m.silenceWarn {
			b.WriteString(" " + noticeStyle.Render("⚠"))
		}
	case m.streamActive:
		line := m.streamText
		if runes := []rune(line); len(runes) > width-12 && width > 12 {
			line = "…" + string(runes[len(runes)-(width-13):])
		}
		b.WriteString(face + " " + name + " " + textStyle.Render(line+"▌"))
	case m.lastFinal != "":
		lines := wrapRunes(m.lastFinal, width-4)
		b.WriteString(face + " " + name + "\n")
		for _, l := range lines {
			b.WriteString("  " + textStyle.Render(l) + "\n")
		}
	default:
		b.WriteString(face + " " + dimStyle.Render(m.characterName+" is listening"))
	}
	b.WriteString("\n")

	switch {
	case m.errMsg != "":
		b.WriteString(errorStyle.Render(m.errMsg) + "\n")
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice) + "\n")
	}
	return b.String()
}
