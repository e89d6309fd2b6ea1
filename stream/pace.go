package stream

import "time"

// Pacing maps a rune to the pause opened after it is revealed. Sentence
// terminators hold longer than clause separators so the reveal follows
// spoken rhythm instead of a flat character rate.
type Pacing map[rune]time.Duration

const (
	sentencePause = 600 * time.Millisecond
	clausePause   = 300 * time.Millisecond
)

func DefaultPacing() Pacing {
	return Pacing{
		'.': sentencePause,
		'!': sentencePause,
		'?': sentencePause,
		'…': sentencePause,
		',': clausePause,
		';': clausePause,
		':': clausePause,
	}
}

// TotalPause sums the pause budget for every pacing rune in text. This is
// a static estimate over the whole text, not a replay of which pauses will
// actually open — the calibrator subtracts it from the audio duration.
func (p Pacing) TotalPause(text string) time.Duration {
	var total time.Duration
	for _, r := range text {
		total += p[r]
	}
	return total
}
