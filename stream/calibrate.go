package stream

import (
	"time"
	"unicode/utf8"
)

const (
	// A clip whose pacing pauses would eat more than 80% of its duration is
	// degenerate; fall back to a fixed 0.8x budget instead of letting the
	// reveal speed collapse toward zero.
	activeFloorRatio = 0.20
	degenerateBudget = 0.80

	// The last rune should reveal slightly before the audio ends.
	safetyMargin = 0.95

	// MetadataTimeout bounds how long a Session waits for clip metadata
	// before streaming at the default speed.
	MetadataTimeout = time.Second
)

// CalibrateSpeed computes the reveal rate (runes per millisecond) that makes
// the full text finish revealing in sync with the voice clip. The pacing
// budget already reserved for punctuation pauses is subtracted from the clip
// duration first.
func CalibrateSpeed(text string, pacing Pacing, audioDur time.Duration) float64 {
	n := utf8.RuneCountInString(text)
	if n == 0 || audioDur <= 0 {
		return DefaultSpeed
	}

	active := audioDur - pacing.TotalPause(text)
	if float64(active) < float64(audioDur)*activeFloorRatio {
		active = time.Duration(float64(audioDur) * degenerateBudget)
	}

	activeMs := float64(active) / float64(time.Millisecond)
	return float64(n) / (activeMs * safetyMargin)
}
