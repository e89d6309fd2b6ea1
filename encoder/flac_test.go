package encoder

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/mewkiz/flac"
)

func sineBlock(n int, freq float64) []int16 {
	block := make([]int16, n)
	for i := range block {
		t := float64(i) / SampleRate
		block[i] = int16(math.Sin(2*math.Pi*freq*t) * 16000)
	}
	return block
}

func TestFlacEncodeProducesValidStream(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	if err := enc.EncodeBlock(sineBlock(BlockSize, 440)); err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	// Partial final block, as the capture flush produces.
	if err := enc.EncodeBlock(sineBlock(1000, 440)); err != nil {
		t.Fatalf("EncodeBlock partial: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data := enc.Bytes()
	if !bytes.HasPrefix(data, []byte("fLaC")) {
		t.Fatal("output missing fLaC stream marker")
	}
	if got := enc.TotalFrames(); got != BlockSize+1000 {
		t.Fatalf("TotalFrames = %d, want %d", got, BlockSize+1000)
	}

	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parsing encoded stream: %v", err)
	}
	var samples uint64
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ParseNext: %v", err)
		}
		samples += uint64(f.Subframes[0].NSamples)
	}
	if samples != BlockSize+1000 {
		t.Fatalf("decoded %d samples, want %d", samples, BlockSize+1000)
	}
}
