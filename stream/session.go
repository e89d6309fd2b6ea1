package stream

import (
	"sync"
	"time"
)

// Session state machine:
//
//	idle -> awaiting-audio -> streaming <-> pausing -> completed -> idle
//
// Text-only utterances skip the awaiting-audio state.
type State int

const (
	StateIdle State = iota
	StateAwaitingAudio
	StateStreaming
	StatePausing
	StateCompleted
)

// Playback is an opened voice clip. Implementations own the underlying
// output device; Stop must be safe to call more than once.
type Playback interface {
	Duration() time.Duration
	Play() error
	Stop()
	Done() <-chan struct{}
}

// Player opens raw clip bytes for playback. Open may block on decoding;
// the session bounds it with MetadataTimeout.
type Player interface {
	Open(data []byte) (Playback, error)
}

// Sink receives engine events. Methods are called from session goroutines,
// never while session locks are held.
type Sink interface {
	// StreamFrame delivers the revealed prefix and the talking signal.
	StreamFrame(id, text string, speaking bool)
	// StreamDone fires after the linger window; the streaming buffer
	// should be cleared and the final text rendered as plain history.
	StreamDone(id, final string)
	EmotionChange(e Emotion)
}

// Utterance is one assistant message to present.
type Utterance struct {
	ID      string
	Text    string
	Audio   []byte // raw clip container bytes, nil for text-only replies
	Emotion *Emotion
	Replay  bool // re-presenting a historical message's audio
}

type Config struct {
	Pacing            Pacing
	DefaultSpeed      float64
	TickEvery         time.Duration
	Linger            time.Duration
	MetadataTimeout   time.Duration
	EmotionResetAfter time.Duration
}

// DefaultEmotionReset is the cooldown after completion before any
// AI-suggested emotion snaps back to neutral.
const DefaultEmotionReset = 6 * time.Second

func (c *Config) fillDefaults() {
	if c.Pacing == nil {
		c.Pacing = DefaultPacing()
	}
	if c.DefaultSpeed <= 0 {
		c.DefaultSpeed = DefaultSpeed
	}
	if c.TickEvery <= 0 {
		c.TickEvery = TickEvery
	}
	if c.Linger <= 0 {
		c.Linger = Linger
	}
	if c.MetadataTimeout <= 0 {
		c.MetadataTimeout = MetadataTimeout
	}
	if c.EmotionResetAfter <= 0 {
		c.EmotionResetAfter = DefaultEmotionReset
	}
}

// Session coordinates one utterance at a time: the reveal clock, the audio
// clip and the emotion/talking signals. Starting a new utterance tears the
// previous one down first, so two reveal clocks never race against the same
// rendered text.
type Session struct {
	cfg    Config
	player Player
	sink   Sink

	mu           sync.Mutex
	gen          int // bumped on every Start/Stop; stale callbacks check it
	state        State
	reveal       *Reveal
	playback     Playback
	id           string
	lastID       string // last processed utterance, prevents re-streaming
	emotionSet   bool
	replay       bool
	stopTick     chan struct{}
	lingerTimer  *time.Timer
	emotionTimer *time.Timer
	lastText     string
	lastSpeaking bool
}

func NewSession(player Player, sink Sink, cfg Config) *Session {
	cfg.fillDefaults()
	return &Session{cfg: cfg, player: player, sink: sink}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins presenting an utterance, stopping any active one first.
// Utterances already processed are ignored unless replayed.
func (s *Session) Start(u Utterance) {
	s.mu.Lock()
	if u.ID != "" && u.ID == s.lastID && !u.Replay {
		s.mu.Unlock()
		return
	}
	s.teardownLocked()
	s.gen++
	gen := s.gen
	s.id = u.ID
	s.lastID = u.ID
	s.replay = u.Replay
	s.emotionSet = u.Emotion != nil
	s.reveal = NewReveal(u.Text, s.cfg.Pacing, s.cfg.DefaultSpeed)
	s.lastText = ""
	s.lastSpeaking = false
	if len(u.Audio) > 0 {
		s.state = StateAwaitingAudio
	} else {
		s.state = StateStreaming
	}
	s.mu.Unlock()

	if u.Emotion != nil {
		s.sink.EmotionChange(*u.Emotion)
	}
	if len(u.Audio) > 0 {
		go s.openAudio(gen, u.Audio)
	} else {
		s.begin(gen, nil)
	}
}

// Stop cancels the active utterance: reveal clock, audio handle and every
// pending timer. Safe to call at any time, including from surface teardown.
func (s *Session) Stop() {
	s.mu.Lock()
	s.teardownLocked()
	s.gen++
	s.state = StateIdle
	s.mu.Unlock()
}

func (s *Session) teardownLocked() {
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
	if s.playback != nil {
		s.playback.Stop()
		s.playback = nil
	}
	if s.lingerTimer != nil {
		s.lingerTimer.Stop()
		s.lingerTimer = nil
	}
	if s.emotionTimer != nil {
		s.emotionTimer.Stop()
		s.emotionTimer = nil
	}
}

// openAudio decodes the clip off the session goroutine. If metadata does
// not arrive within MetadataTimeout, streaming starts at the default speed;
// a late clip still plays, just uncalibrated. Decode errors degrade to
// text-only streaming.
func (s *Session) openAudio(gen int, data []byte) {
	type opened struct {
		pb  Playback
		err error
	}
	ch := make(chan opened, 1)
	go func() {
		pb, err := s.player.Open(data)
		ch <- opened{pb, err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			s.begin(gen, nil)
			return
		}
		s.begin(gen, o.pb)
	case <-time.After(s.cfg.MetadataTimeout):
		go func() {
			o := <-ch
			if o.err != nil || o.pb == nil {
				return
			}
			s.mu.Lock()
			live := gen == s.gen && s.playback == nil && s.state != StateIdle
			if live {
				s.playback = o.pb
			}
			s.mu.Unlock()
			if live {
				o.pb.Play()
				s.watchPlayback(gen, o.pb)
			} else {
				o.pb.Stop()
			}
		}()
		s.begin(gen, nil)
	}
}

// begin calibrates speed (when a clip is present), then starts audio and
// the reveal clock together so sound and text share the same first tick.
func (s *Session) begin(gen int, pb Playback) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if pb != nil {
			pb.Stop()
		}
		return
	}
	if pb != nil {
		s.reveal.SetSpeed(CalibrateSpeed(s.reveal.Full(), s.cfg.Pacing, pb.Duration()))
		s.playback = pb
	}
	s.state = StateStreaming
	s.reveal.Start(time.Now())
	stop := make(chan struct{})
	s.stopTick = stop
	s.mu.Unlock()

	if pb != nil {
		pb.Play()
		s.watchPlayback(gen, pb)
	}
	go s.tickLoop(gen, stop)
}

// watchPlayback reverts a replay's emotion to neutral once its audio ends,
// stops or errors.
func (s *Session) watchPlayback(gen int, pb Playback) {
	s.mu.Lock()
	replay := s.replay
	s.mu.Unlock()
	if !replay {
		return
	}
	go func() {
		<-pb.Done()
		s.mu.Lock()
		live := gen == s.gen
		s.mu.Unlock()
		if live {
			s.sink.EmotionChange(NeutralEmotion())
		}
	}()
}

func (s *Session) tickLoop(gen int, stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.TickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			if gen != s.gen {
				s.mu.Unlock()
				return
			}
			f := s.reveal.Tick(now)
			text := s.reveal.Text()
			id := s.id
			changed := text != s.lastText || f.Speaking != s.lastSpeaking
			s.lastText = text
			s.lastSpeaking = f.Speaking
			if f.Done {
				s.state = StateCompleted
			} else if f.Speaking {
				s.state = StateStreaming
			} else {
				s.state = StatePausing
			}
			s.mu.Unlock()

			if changed || f.Done {
				s.sink.StreamFrame(id, text, f.Speaking)
			}
			if f.Done {
				s.finish(gen)
				return
			}
		}
	}
}

// finish schedules the linger window that clears the streaming buffer and
// the longer cooldown that resets any AI-suggested emotion. Both are
// cancelled if a newer utterance preempts them.
func (s *Session) finish(gen int) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	id := s.id
	final := s.reveal.Full()
	emotionSet := s.emotionSet
	s.lingerTimer = time.AfterFunc(s.cfg.Linger, func() {
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.state = StateIdle
		s.mu.Unlock()
		s.sink.StreamDone(id, final)
	})
	if emotionSet && !s.replay {
		s.emotionTimer = time.AfterFunc(s.cfg.EmotionResetAfter, func() {
			s.mu.Lock()
			live := gen == s.gen
			s.mu.Unlock()
			if live {
				s.sink.EmotionChange(NeutralEmotion())
			}
		})
	}
	s.mu.Unlock()
}
