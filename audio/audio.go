package audio

type DataCallback func(data []byte, frameCount uint32)

// PullCallback fills out with interleaved 16-bit PCM for playback and
// returns the number of frames written; fewer than requested means the
// source is drained.
type PullCallback func(out []byte, frameCount uint32) uint32

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type PlaybackConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	NewPlayback(config PlaybackConfig, pull PullCallback) (PlaybackDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

type PlaybackDevice interface {
	Start() error
	Stop()
	Close()
}
