package clip

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"

	"vang/audio"
	"vang/stream"
)

// DevicePlayer decodes MP3 voice clips and plays them through the audio
// context. It implements stream.Player. Clips are exclusively owned:
// opening a new one stops whatever was playing before.
type DevicePlayer struct {
	ctx audio.Context

	mu     sync.Mutex
	active *Playback
}

func NewDevicePlayer(ctx audio.Context) *DevicePlayer {
	return &DevicePlayer{ctx: ctx}
}

func (p *DevicePlayer) Open(data []byte) (stream.Playback, error) {
	format := Sniff(data)
	if format != FormatMP3 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding mp3 clip: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("reading mp3 samples: %w", err)
	}

	// go-mp3 emits 16-bit stereo at the source sample rate.
	const bytesPerFrame = 4
	frames := len(pcm) / bytesPerFrame
	sampleRate := dec.SampleRate()
	pb := &Playback{
		ctx:        p.ctx,
		pcm:        pcm,
		sampleRate: sampleRate,
		duration:   time.Duration(frames) * time.Second / time.Duration(sampleRate),
		done:       make(chan struct{}),
	}

	p.mu.Lock()
	if p.active != nil {
		p.active.Stop()
	}
	p.active = pb
	p.mu.Unlock()
	return pb, nil
}

// Playback is one decoded clip bound to an output device.
type Playback struct {
	ctx        audio.Context
	pcm        []byte
	sampleRate int
	duration   time.Duration

	mu       sync.Mutex
	pos      int
	dev      audio.PlaybackDevice
	stopped  bool
	done     chan struct{}
	doneOnce sync.Once
}

func (pb *Playback) Duration() time.Duration { return pb.duration }

func (pb *Playback) Done() <-chan struct{} { return pb.done }

func (pb *Playback) Play() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.stopped || pb.dev != nil {
		return nil
	}
	dev, err := pb.ctx.NewPlayback(audio.PlaybackConfig{
		SampleRate: uint32(pb.sampleRate),
		Channels:   2,
	}, pb.pull)
	if err != nil {
		return fmt.Errorf("opening playback device: %w", err)
	}
	pb.dev = dev
	if err := dev.Start(); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}
	return nil
}

func (pb *Playback) pull(out []byte, frameCount uint32) uint32 {
	const bytesPerFrame = 4
	pb.mu.Lock()
	want := int(frameCount) * bytesPerFrame
	if want > len(out) {
		want = len(out)
	}
	n := copy(out[:want], pb.pcm[pb.pos:])
	pb.pos += n
	drained := pb.pos >= len(pb.pcm)
	pb.mu.Unlock()

	if drained {
		pb.doneOnce.Do(func() { close(pb.done) })
	}
	return uint32(n / bytesPerFrame)
}

// Stop halts and releases the output device. Safe to call repeatedly and
// concurrently with the device callback.
func (pb *Playback) Stop() {
	pb.mu.Lock()
	if pb.stopped {
		pb.mu.Unlock()
		return
	}
	pb.stopped = true
	dev := pb.dev
	pb.dev = nil
	pb.mu.Unlock()

	if dev != nil {
		dev.Stop()
		dev.Close()
	}
	pb.doneOnce.Do(func() { close(pb.done) })
}
