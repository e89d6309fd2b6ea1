package audio

import (
	"sync"
	"time"
)

const fakeChunkFrames = 1024

// FakeContext replays canned PCM through the capture callback and records
// playback lifecycles, so capture and playback plumbing can be exercised
// without real devices.
type FakeContext struct {
	pcm []byte

	mu        sync.Mutex
	captures  []*FakeCapture
	playbacks []*FakePlayback
}

func NewFakeContext(pcm []byte) *FakeContext {
	return &FakeContext{pcm: pcm}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake mic"}}, nil
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	c := &FakeCapture{pcm: f.pcm}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.captures...)
}

func (f *FakeContext) NewPlayback(config PlaybackConfig, pull PullCallback) (PlaybackDevice, error) {
	pb := &FakePlayback{pull: pull, config: config}
	f.mu.Lock()
	f.playbacks = append(f.playbacks, pb)
	f.mu.Unlock()
	return pb, nil
}

func (f *FakeContext) Playbacks() []*FakePlayback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakePlayback(nil), f.playbacks...)
}

func (f *FakeContext) Close() {}

// FakeCapture feeds its PCM once on Start, then silence until Stop, so
// tick-driven loops keep running the way a real device keeps a stream open.
type FakeCapture struct {
	pcm []byte

	mu       sync.Mutex
	cb       DataCallback
	live     bool
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake mic" }

// Live reports whether the capture stream is between Start and Stop.
// Cleanup tests assert this goes false on every exit path.
func (f *FakeCapture) Live() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	f.live = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	cb := f.cb
	stop := f.stopCh
	done := f.feedDone
	f.mu.Unlock()

	chunkBytes := fakeChunkFrames * 2
	if cb != nil {
		for pos := 0; pos < len(f.pcm); pos += chunkBytes {
			end := min(pos+chunkBytes, len(f.pcm))
			chunk := make([]byte, end-pos)
			copy(chunk, f.pcm[pos:end])
			cb(chunk, uint32(len(chunk)/2))
		}
	}

	go func() {
		defer close(done)
		silence := make([]byte, chunkBytes)
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
			}
			f.mu.Lock()
			cb := f.cb
			f.mu.Unlock()
			if cb != nil {
				cb(silence, fakeChunkFrames)
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stop := f.stopCh
	done := f.feedDone
	f.live = false
	f.mu.Unlock()
	if stop == nil {
		return
	}
	select {
	case <-stop:
	default:
		close(stop)
	}
	<-done
}

func (f *FakeCapture) Close() { f.Stop() }

// FakePlayback drains its pull source immediately on Start.
type FakePlayback struct {
	pull   PullCallback
	config PlaybackConfig

	mu      sync.Mutex
	started bool
	stopped bool
	frames  uint64
}

func (p *FakePlayback) Start() error {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()

	go func() {
		buf := make([]byte, fakeChunkFrames*int(p.config.Channels)*2)
		for {
			p.mu.Lock()
			stopped := p.stopped
			p.mu.Unlock()
			if stopped {
				return
			}
			n := p.pull(buf, fakeChunkFrames)
			p.mu.Lock()
			p.frames += uint64(n)
			p.mu.Unlock()
			if n < fakeChunkFrames {
				return
			}
		}
	}()
	return nil
}

func (p *FakePlayback) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

func (p *FakePlayback) Close() { p.Stop() }

func (p *FakePlayback) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *FakePlayback) FramesPulled() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}
