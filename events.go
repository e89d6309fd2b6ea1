package main

import (
	"vang/heritage"
	"vang/stream"
)

// EventSink abstracts the display layer so the full chat TUI and the
// compact caption surface receive the same engine and capture events.
type EventSink interface {
	// Utterance session events.
	StreamFrame(id, text string, speaking bool)
	StreamDone(id, final string)
	EmotionChange(e stream.Emotion)

	// Capture session events.
	Level(rms float64)
	SilenceWarning(active bool)
	RecordingState(recording, transcribing bool)
	Transcript(text string)

	// Conversation events.
	HistoryLoaded(msgs []heritage.Message)
	MessageAdded(m heritage.Message)
	Loading(on bool)
	Notice(text string)
	Error(text string)
}
