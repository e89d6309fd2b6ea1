package stream

import (
	"strings"
	"time"
)

const (
	// TickEvery is the reveal clock period. ~60 Hz keeps per-rune reveal
	// visually smooth.
	TickEvery = 16 * time.Millisecond

	// DefaultSpeed is the reveal rate in runes per millisecond when no
	// audio clip calibrates the utterance (30 ms per rune).
	DefaultSpeed = 1.0 / 30.0

	// Linger keeps the finished text on screen while trailing audio drains.
	Linger = 500 * time.Millisecond

	// loadingPlaceholder is shown by the platform while a reply is pending.
	// It must never drive the talking animation.
	loadingPlaceholder = "..."
)

// Frame is the per-tick output of a Reveal.
type Frame struct {
	Revealed int // runes currently visible
	Speaking bool
	Done     bool
}

// Reveal converts wall-clock time into a rune-reveal count. It is the
// pause-aware playback clock plus the punctuation pacing policy: elapsed
// time excludes accumulated pause time, and crossing a pacing rune opens
// a single pause that freezes progress until it expires.
//
// Reveal is not goroutine-safe; Session serializes access to it.
type Reveal struct {
	runes  []rune
	pacing Pacing
	speed  float64 // runes per millisecond
	silent bool    // placeholder or whitespace-only text never "speaks"

	started    bool
	start      time.Time
	paused     time.Duration // completed pause time, folded in
	pauseStart time.Time
	pauseUntil time.Time // zero when no pause is active
	lastPunct  int       // index of the last pause-opening rune
	revealed   int
	done       bool
}

func NewReveal(text string, pacing Pacing, speed float64) *Reveal {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	trimmed := strings.TrimSpace(text)
	return &Reveal{
		runes:     []rune(text),
		pacing:    pacing,
		speed:     speed,
		silent:    trimmed == "" || trimmed == loadingPlaceholder || trimmed == "…",
		lastPunct: -1,
	}
}

// SetSpeed replaces the reveal rate. Valid only before Start; once the
// clock runs the speed is fixed for the whole utterance.
func (r *Reveal) SetSpeed(speed float64) {
	if !r.started && speed > 0 {
		r.speed = speed
	}
}

func (r *Reveal) Start(now time.Time) {
	if !r.started {
		r.started = true
		r.start = now
	}
}

func (r *Reveal) Len() int       { return len(r.runes) }
func (r *Reveal) Done() bool     { return r.done }
func (r *Reveal) Full() string   { return string(r.runes) }
func (r *Reveal) Speed() float64 { return r.speed }

// Text returns the revealed prefix.
func (r *Reveal) Text() string { return string(r.runes[:r.revealed]) }

// Tick advances the clock to now. The revealed count is monotonically
// non-decreasing and never exceeds the text length.
func (r *Reveal) Tick(now time.Time) Frame {
	if !r.started || r.done {
		return Frame{Revealed: r.revealed, Done: r.done}
	}

	// An active pause freezes progress and silences the talking signal.
	if !r.pauseUntil.IsZero() {
		if now.Before(r.pauseUntil) {
			return Frame{Revealed: r.revealed}
		}
		// Pause expired: fold its duration into the accumulated total and
		// resume reveal computation in this same tick.
		r.paused += r.pauseUntil.Sub(r.pauseStart)
		r.pauseUntil = time.Time{}
	}

	effective := now.Sub(r.start) - r.paused
	target := int(float64(effective) / float64(time.Millisecond) * r.speed)
	if target < r.revealed {
		target = r.revealed
	}
	if target > len(r.runes) {
		target = len(r.runes)
	}

	// Pacing is consulted only on forward progress, and at most one pause
	// opens per tick. Reveal is clamped to include the pacing rune itself.
	if target > r.revealed {
		for i := r.revealed; i < target; i++ {
			d := r.pacing[r.runes[i]]
			if d == 0 || i <= r.lastPunct {
				continue
			}
			target = i + 1
			r.lastPunct = i
			r.pauseStart = now
			r.pauseUntil = now.Add(d)
			break
		}
	}

	r.revealed = target
	// A pause opened by the final rune still holds; completion waits for
	// it to expire on a later tick.
	if r.revealed == len(r.runes) && r.pauseUntil.IsZero() {
		r.done = true
		return Frame{Revealed: r.revealed, Done: true}
	}
	return Frame{
		Revealed: r.revealed,
		Speaking: !r.silent && r.pauseUntil.IsZero(),
	}
}
