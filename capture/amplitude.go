package capture

import (
	"encoding/binary"
	"math"
	"sync"
)

const (
	// DefaultMaxBars caps the amplitude history at what fits the waveform
	// strip in the capture UI.
	DefaultMaxBars = 48

	// barGain shapes the saturating response; tanh keeps shouting from
	// clipping the bar off-screen.
	barGain = 6.0

	// silenceFloor is the RMS level below which the bar renders as a dot.
	silenceFloor = 0.015
)

// RMS computes the root-mean-square level of little-endian PCM16,
// normalized to [0, 1].
func RMS(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(pcm)/2))
}

// BarHeight maps an RMS level to a bar height in [0, maxHeight] through a
// saturating curve. Zero means "render a dot": the level is under the
// silence floor.
func BarHeight(rms float64, maxHeight int) int {
	if rms < silenceFloor {
		return 0
	}
	h := int(math.Tanh(rms*barGain) * float64(maxHeight))
	if h < 1 {
		h = 1
	}
	if h > maxHeight {
		h = maxHeight
	}
	return h
}

// History is a bounded FIFO of recent RMS samples for waveform rendering.
// Oldest samples are evicted first; length never exceeds the cap.
type History struct {
	mu      sync.Mutex
	max     int
	samples []float64
}

func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultMaxBars
	}
	return &History{max: max}
}

func (h *History) Push(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, v)
	if len(h.samples) > h.max {
		h.samples = h.samples[len(h.samples)-h.max:]
	}
}

func (h *History) Samples() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float64(nil), h.samples...)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = nil
}
