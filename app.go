package main

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/atotto/clipboard"

	"vang/audio"
	"vang/beep"
	"vang/capture"
	"vang/clip"
	"vang/heritage"
	"vang/log"
	"vang/stream"
)

const historyLimit = 50

// App orchestrates the conversation: it owns the utterance session, the
// recording session and the message list, and forwards everything
// observable to the active surface through the EventSink.
type App struct {
	client  *heritage.Client
	session *stream.Session
	rec     *capture.Session
	sink    EventSink

	characterID string
	levelID     string
	device      *audio.DeviceInfo

	mu       sync.Mutex
	messages []heritage.Message
}

func NewApp(client *heritage.Client, actx audio.Context, sink EventSink, characterID, levelID string, device *audio.DeviceInfo) (*App, error) {
	a := &App{
		client:      client,
		sink:        sink,
		characterID: characterID,
		levelID:     levelID,
		device:      device,
	}
	a.session = stream.NewSession(clip.NewDevicePlayer(actx), a, stream.Config{})
	rec, err := capture.NewSession(actx, client, capture.Config{Events: a})
	if err != nil {
		return nil, err
	}
	a.rec = rec
	return a, nil
}

// stream.Sink

func (a *App) StreamFrame(id, text string, speaking bool) { a.sink.StreamFrame(id, text, speaking) }
func (a *App) StreamDone(id, final string)                { a.sink.StreamDone(id, final) }
func (a *App) EmotionChange(e stream.Emotion)             { a.sink.EmotionChange(e) }

// capture.Events

func (a *App) Level(rms float64)          { a.sink.Level(rms) }
func (a *App) SilenceWarning(active bool) { a.sink.SilenceWarning(active) }

// LoadHistory fetches prior turns and renders them immediately. History
// never streams; clips attached to old messages play only on replay.
func (a *App) LoadHistory(ctx context.Context) {
	msgs, err := a.client.History(ctx, a.characterID, historyLimit, a.levelID)
	if err != nil {
		log.Errorf("history load: %v", err)
		a.sink.Error("could not load chat history")
		return
	}
	a.mu.Lock()
	a.messages = msgs
	a.mu.Unlock()
	a.sink.HistoryLoaded(msgs)
}

// Send submits a user turn and streams the companion's reply when it
// arrives. Failures surface once; the user re-triggers if they want.
func (a *App) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	user := heritage.NewUserMessage(text)
	a.mu.Lock()
	a.messages = append(a.messages, user)
	a.mu.Unlock()
	a.sink.MessageAdded(user)
	log.Conversation("user", text)

	a.sink.Loading(true)
	reply, err := a.client.SendMessage(ctx, a.characterID, text, a.levelID)
	a.sink.Loading(false)
	if err != nil {
		log.Errorf("send message: %v", err)
		beep.PlayError()
		a.sink.Error("something went wrong, please try again")
		return
	}

	a.mu.Lock()
	a.messages = append(a.messages, *reply)
	a.mu.Unlock()
	a.sink.MessageAdded(*reply)
	log.Conversation("companion", reply.Content)
	beep.PlayReply()
	a.present(*reply, false)
}

// present hands a message to the utterance session. Clip decode failures
// degrade to text-only streaming.
func (a *App) present(m heritage.Message, replay bool) {
	u := stream.Utterance{ID: m.ID, Text: m.Content, Emotion: m.Emotion, Replay: replay}
	if m.AudioBase64 != "" {
		raw, format, err := clip.Decode(m.AudioBase64)
		if err != nil {
			log.Warnf("clip decode for %s: %v", m.ID, err)
		} else {
			u.Audio = raw
			if format == clip.FormatWebM {
				log.Warnf("clip %s is webm, playback unsupported", m.ID)
			}
		}
	}
	log.Utterance(u.ID, len([]rune(u.Text)), len(u.Audio), replay)
	a.session.Start(u)
}

// ReplayLast re-presents the most recent companion message that carries
// audio, stopping any live utterance first.
func (a *App) ReplayLast() {
	a.mu.Lock()
	var target *heritage.Message
	for i := len(a.messages) - 1; i >= 0; i-- {
		m := a.messages[i]
		if m.Role == heritage.RoleCompanion && m.AudioBase64 != "" {
			target = &m
			break
		}
	}
	a.mu.Unlock()
	if target == nil {
		a.sink.Notice("no voice clip to replay")
		return
	}
	a.session.Stop()
	a.present(*target, true)
}

func (a *App) StartRecording() {
	if err := a.rec.Start(a.device); err != nil {
		if errors.Is(err, capture.ErrBusy) {
			return
		}
		log.Errorf("capture start: %v", err)
		beep.PlayError()
		a.sink.Error("microphone unavailable")
		return
	}
	beep.PlayRecordStart()
	a.sink.RecordingState(true, false)
}

func (a *App) CancelRecording() {
	a.rec.Cancel()
	beep.PlayRecordStop()
	a.sink.RecordingState(false, false)
}

// ConfirmRecording finishes the take and delivers the transcript to the
// input field. A silent take warns instead of erroring.
func (a *App) ConfirmRecording(ctx context.Context) {
	beep.PlayRecordStop()
	a.sink.RecordingState(false, true)
	text, err := a.rec.Confirm(ctx)
	a.sink.RecordingState(false, false)
	switch {
	case errors.Is(err, capture.ErrNotCapturing):
	case errors.Is(err, capture.ErrNoSpeech):
		a.sink.Notice("couldn't hear you clearly, please try again")
	case err != nil:
		log.Errorf("transcribe: %v", err)
		beep.PlayError()
		a.sink.Error("transcription failed, please try again")
	default:
		a.sink.Transcript(text)
	}
}

// CopyLastReply puts the latest companion text on the system clipboard.
func (a *App) CopyLastReply() {
	a.mu.Lock()
	var text string
	for i := len(a.messages) - 1; i >= 0; i-- {
		if a.messages[i].Role == heritage.RoleCompanion {
			text = a.messages[i].Content
			break
		}
	}
	a.mu.Unlock()
	if text == "" {
		a.sink.Notice("nothing to copy yet")
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		log.Errorf("clipboard: %v", err)
		a.sink.Error("could not copy to clipboard")
		return
	}
	a.sink.Notice("reply copied")
}

// Shutdown stops every live resource: the reveal clock, audio playback,
// pending timers and any in-flight recording.
func (a *App) Shutdown() {
	a.session.Stop()
	a.rec.Cancel()
}
