// Package capture records microphone audio for transcription: one
// session at a time, live amplitude metering for the waveform strip,
// voice activity detection so silent takes are caught before upload.
package capture

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"vang/audio"
	"vang/encoder"
)

var (
	ErrBusy         = errors.New("capture already in progress")
	ErrNotCapturing = errors.New("no active capture")
	ErrNoSpeech     = errors.New("no speech detected")
)

type State int

const (
	StateIdle State = iota
	StateCapturing
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateTranscribing:
		return "transcribing"
	default:
		return "unknown"
	}
}

// Transcriber turns an encoded FLAC recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, flacData []byte) (string, error)
}

// Events receives the continuous capture signals. Level fires on every
// meter tick; SilenceWarning toggles when the mic has heard nothing for
// a while and again when speech resumes.
type Events interface {
	Level(rms float64)
	SilenceWarning(active bool)
}

type nopEvents struct{}

func (nopEvents) Level(float64)       {}
func (nopEvents) SilenceWarning(bool) {}

// voiceGate is what the session needs from the VAD. Tests substitute a
// stub so the speech/no-speech paths can be driven deterministically.
type voiceGate interface {
	Process(data []byte)
	VoiceDetected() bool
	LastVoiceTime() time.Time
	Reset()
}

const (
	// meterEvery paces the waveform updates. 32 ms tracks the strip
	// refresh without flooding the event sink.
	meterEvery = 32 * time.Millisecond

	// silenceWarnAfter is how long the mic can stay quiet before the UI
	// shows the "can't hear you" hint.
	silenceWarnAfter = 4 * time.Second
)

type Config struct {
	Events           Events
	History          *History
	MeterEvery       time.Duration
	SilenceWarnAfter time.Duration
}

// Session is the recording state machine: idle, capturing, transcribing,
// back to idle. Cancel discards from any point; Confirm uploads.
type Session struct {
	actx   audio.Context
	tr     Transcriber
	events Events
	hist   *History

	meterEvery time.Duration
	warnAfter  time.Duration

	level atomic.Uint64 // float64 bits of the latest callback RMS

	mu        sync.Mutex
	state     State
	dev       audio.CaptureDevice
	pipe      *pipeline
	vad       voiceGate
	stopMeter chan struct{}
	meterDone chan struct{}
	startedAt time.Time
}

func NewSession(actx audio.Context, tr Transcriber, cfg Config) (*Session, error) {
	vad, err := newVADProcessor()
	if err != nil {
		return nil, err
	}
	if cfg.Events == nil {
		cfg.Events = nopEvents{}
	}
	if cfg.History == nil {
		cfg.History = NewHistory(DefaultMaxBars)
	}
	if cfg.MeterEvery <= 0 {
		cfg.MeterEvery = meterEvery
	}
	if cfg.SilenceWarnAfter <= 0 {
		cfg.SilenceWarnAfter = silenceWarnAfter
	}
	return &Session{
		actx:       actx,
		tr:         tr,
		events:     cfg.Events,
		hist:       cfg.History,
		meterEvery: cfg.MeterEvery,
		warnAfter:  cfg.SilenceWarnAfter,
		vad:        vad,
	}, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History exposes the amplitude samples for rendering.
func (s *Session) History() *History { return s.hist }

// Start opens the capture device and begins recording. device nil means
// the system default microphone.
func (s *Session) Start(device *audio.DeviceInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}

	pipe, err := newPipeline()
	if err != nil {
		return err
	}
	dev, err := s.actx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		pipe.Abort()
		return err
	}

	s.vad.Reset()
	s.hist.Clear()
	s.level.Store(0)

	vad := s.vad
	dev.SetCallback(func(data []byte, _ uint32) {
		pipe.Feed(data)
		vad.Process(data)
		s.level.Store(math.Float64bits(RMS(data)))
	})
	if err := dev.Start(); err != nil {
		dev.ClearCallback()
		dev.Close()
		pipe.Abort()
		return err
	}

	s.dev = dev
	s.pipe = pipe
	s.startedAt = time.Now()
	s.stopMeter = make(chan struct{})
	s.meterDone = make(chan struct{})
	s.state = StateCapturing
	go s.meterLoop(s.stopMeter, s.meterDone, s.startedAt)
	return nil
}

func (s *Session) meterLoop(stop <-chan struct{}, done chan<- struct{}, started time.Time) {
	defer close(done)
	ticker := time.NewTicker(s.meterEvery)
	defer ticker.Stop()

	warned := false
	for {
		select {
		case <-stop:
			if warned {
				s.events.SilenceWarning(false)
			}
			return
		case <-ticker.C:
		}

		rms := math.Float64frombits(s.level.Load())
		s.hist.Push(rms)
		s.events.Level(rms)

		ref := started
		if t := s.vad.LastVoiceTime(); t.After(ref) {
			ref = t
		}
		quiet := time.Since(ref) >= s.warnAfter
		if quiet != warned {
			warned = quiet
			s.events.SilenceWarning(quiet)
		}
	}
}

// stopCaptureLocked detaches the callback before stopping the device so
// no PCM lands in the pipeline after the decision to close it.
func (s *Session) stopCaptureLocked() {
	if s.dev != nil {
		s.dev.ClearCallback()
		s.dev.Stop()
		s.dev.Close()
		s.dev = nil
	}
	if s.stopMeter != nil {
		close(s.stopMeter)
		<-s.meterDone
		s.stopMeter = nil
		s.meterDone = nil
	}
}

// Cancel discards the recording. Nothing is encoded further and nothing
// is uploaded. Calling it while idle is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCapturing {
		return
	}
	s.stopCaptureLocked()
	s.pipe.Abort()
	s.pipe = nil
	s.hist.Clear()
	s.level.Store(0)
	s.state = StateIdle
}

// Confirm ends the recording, finalizes the FLAC stream and sends it for
// transcription. A take with no detected voice is rejected locally with
// ErrNoSpeech, as is a transcription that comes back empty.
func (s *Session) Confirm(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state != StateCapturing {
		s.mu.Unlock()
		return "", ErrNotCapturing
	}
	s.state = StateTranscribing
	s.stopCaptureLocked()
	pipe := s.pipe
	s.pipe = nil
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.hist.Clear()
		s.level.Store(0)
		s.state = StateIdle
		s.mu.Unlock()
	}()

	data, frames, err := pipe.Close()
	if err != nil {
		return "", err
	}
	if frames == 0 || !s.vad.VoiceDetected() {
		return "", ErrNoSpeech
	}

	text, err := s.tr.Transcribe(ctx, data)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
