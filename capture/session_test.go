package capture

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"vang/audio"
)

type stubGate struct {
	mu        sync.Mutex
	voice     bool
	lastVoice time.Time
	fed       int
}

func (g *stubGate) Process(data []byte) {
	g.mu.Lock()
	g.fed += len(data)
	g.mu.Unlock()
}

func (g *stubGate) VoiceDetected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.voice
}

func (g *stubGate) LastVoiceTime() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastVoice
}

func (g *stubGate) Reset() {
	g.mu.Lock()
	g.lastVoice = time.Time{}
	g.fed = 0
	g.mu.Unlock()
}

func (g *stubGate) hear(now time.Time) {
	g.mu.Lock()
	g.voice = true
	g.lastVoice = now
	g.mu.Unlock()
}

type stubTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	got   []byte
	calls int
}

func (tr *stubTranscriber) Transcribe(_ context.Context, data []byte) (string, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.calls++
	tr.got = append([]byte(nil), data...)
	return tr.text, tr.err
}

type recordedEvents struct {
	mu       sync.Mutex
	levels   int
	warnings []bool
}

func (e *recordedEvents) Level(float64) {
	e.mu.Lock()
	e.levels++
	e.mu.Unlock()
}

func (e *recordedEvents) SilenceWarning(active bool) {
	e.mu.Lock()
	e.warnings = append(e.warnings, active)
	e.mu.Unlock()
}

func (e *recordedEvents) lastWarning() (bool, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.warnings) == 0 {
		return false, false
	}
	return e.warnings[len(e.warnings)-1], true
}

// speechPCM is a 440 Hz tone: real samples for the encode path, loud
// enough to register on the meter.
func speechPCM(samples int) []byte {
	s := make([]int16, samples)
	for i := range s {
		s[i] = int16(math.Sin(2*math.Pi*440*float64(i)/16000) * 12000)
	}
	return pcm16(s)
}

func newTestSession(actx audio.Context, tr Transcriber, gate voiceGate, ev Events) *Session {
	if ev == nil {
		ev = nopEvents{}
	}
	return &Session{
		actx:       actx,
		tr:         tr,
		events:     ev,
		hist:       NewHistory(8),
		meterEvery: time.Millisecond,
		warnAfter:  25 * time.Millisecond,
		vad:        gate,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConfirmTranscribes(t *testing.T) {
	actx := audio.NewFakeContext(speechPCM(16000))
	tr := &stubTranscriber{text: " Xin chào cô Lan "}
	gate := &stubGate{}
	s := newTestSession(actx, tr, gate, nil)

	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	gate.hear(time.Now())
	if got := s.State(); got != StateCapturing {
		t.Fatalf("state = %s, want capturing", got)
	}

	text, err := s.Confirm(context.Background())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if text != "Xin chào cô Lan" {
		t.Fatalf("text = %q, want trimmed transcript", text)
	}
	if !bytes.HasPrefix(tr.got, []byte("fLaC")) {
		t.Fatal("upload is not a FLAC stream")
	}
	if s.State() != StateIdle {
		t.Fatalf("state = %s after confirm, want idle", s.State())
	}
	if actx.Captures()[0].Live() {
		t.Fatal("capture device still live after confirm")
	}
	if s.History().Len() != 0 {
		t.Fatal("history not cleared after confirm")
	}
}

func TestConfirmWithoutVoiceSkipsUpload(t *testing.T) {
	actx := audio.NewFakeContext(speechPCM(4000))
	tr := &stubTranscriber{text: "should not be used"}
	s := newTestSession(actx, tr, &stubGate{voice: false}, nil)

	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Confirm(context.Background()); !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("err = %v, want ErrNoSpeech", err)
	}
	if tr.calls != 0 {
		t.Fatal("silent take was uploaded anyway")
	}
	if s.State() != StateIdle {
		t.Fatalf("state = %s, want idle", s.State())
	}
}

func TestConfirmEmptyTranscript(t *testing.T) {
	actx := audio.NewFakeContext(speechPCM(4000))
	tr := &stubTranscriber{text: "   "}
	gate := &stubGate{}
	s := newTestSession(actx, tr, gate, nil)

	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	gate.hear(time.Now())
	if _, err := s.Confirm(context.Background()); !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("err = %v, want ErrNoSpeech for blank transcript", err)
	}
}

func TestConfirmPropagatesTranscribeError(t *testing.T) {
	actx := audio.NewFakeContext(speechPCM(4000))
	wantErr := errors.New("upstream down")
	tr := &stubTranscriber{err: wantErr}
	gate := &stubGate{}
	s := newTestSession(actx, tr, gate, nil)

	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	gate.hear(time.Now())
	if _, err := s.Confirm(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if s.State() != StateIdle {
		t.Fatalf("state = %s after failure, want idle", s.State())
	}
}

func TestCancelDiscards(t *testing.T) {
	actx := audio.NewFakeContext(speechPCM(8000))
	tr := &stubTranscriber{text: "discarded"}
	s := newTestSession(actx, tr, &stubGate{voice: true}, nil)

	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Cancel()

	if tr.calls != 0 {
		t.Fatal("cancelled take was transcribed")
	}
	if s.State() != StateIdle {
		t.Fatalf("state = %s, want idle", s.State())
	}
	if actx.Captures()[0].Live() {
		t.Fatal("capture device still live after cancel")
	}
	if s.History().Len() != 0 {
		t.Fatal("history survived cancel")
	}
	// Idempotent.
	s.Cancel()
}

func TestStartWhileCapturing(t *testing.T) {
	actx := audio.NewFakeContext(nil)
	s := newTestSession(actx, &stubTranscriber{}, &stubGate{}, nil)

	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Cancel()
	if err := s.Start(nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Start err = %v, want ErrBusy", err)
	}
}

func TestConfirmWhileIdle(t *testing.T) {
	s := newTestSession(audio.NewFakeContext(nil), &stubTranscriber{}, &stubGate{}, nil)
	if _, err := s.Confirm(context.Background()); !errors.Is(err, ErrNotCapturing) {
		t.Fatalf("err = %v, want ErrNotCapturing", err)
	}
}

func TestMeterFeedsHistoryAndEvents(t *testing.T) {
	actx := audio.NewFakeContext(speechPCM(8000))
	ev := &recordedEvents{}
	s := newTestSession(actx, &stubTranscriber{}, &stubGate{}, ev)

	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Cancel()

	waitFor(t, "meter ticks", func() bool {
		ev.mu.Lock()
		defer ev.mu.Unlock()
		return ev.levels >= 3
	})
	waitFor(t, "history samples", func() bool { return s.History().Len() > 0 })
}

func TestSilenceWarningRaisesAndClears(t *testing.T) {
	actx := audio.NewFakeContext(nil)
	ev := &recordedEvents{}
	gate := &stubGate{}
	s := newTestSession(actx, &stubTranscriber{}, gate, ev)

	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Cancel()

	waitFor(t, "silence warning", func() bool {
		w, ok := ev.lastWarning()
		return ok && w
	})

	gate.hear(time.Now())
	waitFor(t, "warning cleared", func() bool {
		w, ok := ev.lastWarning()
		return ok && !w
	})
}
