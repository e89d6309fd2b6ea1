package beep

var disabled bool

func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Record-start cue: high pitch, short
	recFreq   = 1200
	recVolume = 0.5
	recDecay  = 60

	// Record-stop cue: medium pitch, slightly longer
	stopFreq   = 900
	stopVolume = 0.5
	stopDecay  = 40

	// Reply chime: two ascending notes when the companion answers
	replyFreqLow  = 660
	replyFreqHigh = 880
	replyVolume   = 0.4
	replyDecay    = 25

	// Error beep: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// Platform-specific playback lives in the build-tagged files.
