package capture

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcm16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestRMSSilence(t *testing.T) {
	if got := RMS(make([]byte, 512)); got != 0 {
		t.Fatalf("RMS(silence) = %v, want 0", got)
	}
	if got := RMS(nil); got != 0 {
		t.Fatalf("RMS(nil) = %v, want 0", got)
	}
	if got := RMS([]byte{0x01}); got != 0 {
		t.Fatalf("RMS(odd byte) = %v, want 0", got)
	}
}

func TestRMSFullScale(t *testing.T) {
	samples := make([]int16, 256)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 32767
		} else {
			samples[i] = -32768
		}
	}
	got := RMS(pcm16(samples))
	if math.Abs(got-1.0) > 0.001 {
		t.Fatalf("RMS(full-scale square) = %v, want ~1.0", got)
	}
}

func TestBarHeight(t *testing.T) {
	cases := []struct {
		name string
		rms  float64
		want int
	}{
		{"silence renders a dot", 0.0, 0},
		{"under floor renders a dot", 0.01, 0},
		{"loud saturates at max", 1.0, 8},
	}
	for _, c := range cases {
		if got := BarHeight(c.rms, 8); got != c.want {
			t.Errorf("%s: BarHeight(%v, 8) = %d, want %d", c.name, c.rms, got, c.want)
		}
	}
	// Quiet but audible speech still shows at least one cell.
	if got := BarHeight(0.02, 8); got < 1 {
		t.Errorf("BarHeight(0.02, 8) = %d, want >= 1", got)
	}
	// Monotone over the useful range.
	prev := -1
	for _, rms := range []float64{0.02, 0.05, 0.1, 0.3, 0.8} {
		h := BarHeight(rms, 8)
		if h < prev {
			t.Fatalf("BarHeight not monotone at rms=%v: %d < %d", rms, h, prev)
		}
		prev = h
	}
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory(4)
	for i := 0; i < 10; i++ {
		h.Push(float64(i))
	}
	got := h.Samples()
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	for i, v := range got {
		if v != float64(6+i) {
			t.Fatalf("samples = %v, want [6 7 8 9]", got)
		}
	}
	h.Clear()
	if h.Len() != 0 {
		t.Fatal("Clear left samples behind")
	}
}
