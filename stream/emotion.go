package stream

// Companion emotion is a closed triple of gesture, mouth and eye states.
// The platform sends these as loose strings; ParseEmotion validates each
// axis at the boundary and falls back to the neutral variant on unknown
// or missing values.

type Gesture string

const (
	GestureNormal Gesture = "normal"
	GestureWave   Gesture = "wave"
	GesturePoint  Gesture = "point"
	GestureThink  Gesture = "think"
	GestureBow    Gesture = "bow"
)

type MouthState string

const (
	MouthSmile MouthState = "smile"
	MouthOpen  MouthState = "open"
	MouthSad   MouthState = "sad"
	MouthFlat  MouthState = "flat"
)

type EyeState string

const (
	EyeNormal EyeState = "normal"
	EyeHappy  EyeState = "happy"
	EyeClosed EyeState = "closed"
	EyeWide   EyeState = "wide"
)

type Emotion struct {
	Gesture Gesture
	Mouth   MouthState
	Eye     EyeState
}

func NeutralEmotion() Emotion {
	return Emotion{Gesture: GestureNormal, Mouth: MouthSmile, Eye: EyeNormal}
}

var (
	validGestures = map[Gesture]bool{
		GestureNormal: true, GestureWave: true, GesturePoint: true,
		GestureThink: true, GestureBow: true,
	}
	validMouths = map[MouthState]bool{
		MouthSmile: true, MouthOpen: true, MouthSad: true, MouthFlat: true,
	}
	validEyes = map[EyeState]bool{
		EyeNormal: true, EyeHappy: true, EyeClosed: true, EyeWide: true,
	}
)

func ParseEmotion(gesture, mouth, eye string) Emotion {
	e := NeutralEmotion()
	if g := Gesture(gesture); validGestures[g] {
		e.Gesture = g
	}
	if m := MouthState(mouth); validMouths[m] {
		e.Mouth = m
	}
	if y := EyeState(eye); validEyes[y] {
		e.Eye = y
	}
	return e
}
