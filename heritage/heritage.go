// Package heritage is the client for the platform's companion API: chat
// messages with optional voice clips and emotion metadata, chat history,
// and speech transcription.
package heritage

import (
	"github.com/google/uuid"

	"vang/stream"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleCompanion Role = "assistant"
)

// Message is one chat turn. Companion messages may carry a voice clip,
// follow-up recommendations and an emotion triple for the avatar.
type Message struct {
	ID             string
	Role           Role
	Content        string
	AudioBase64    string
	Recommendation []string
	Emotion        *stream.Emotion

	// JustGenerated distinguishes a freshly generated reply, which
	// streams in sync with its audio, from a historical message, which
	// renders immediately in full.
	JustGenerated bool
}

// NewUserMessage builds the locally-echoed user turn. The ID is minted
// client-side; the backend owns IDs for everything it generates.
func NewUserMessage(content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    RoleUser,
		Content: content,
	}
}

// EmotionMeta is the loosely-typed wire form of the emotion triple.
// Unknown or missing values fall back per axis when parsed.
type EmotionMeta struct {
	Gesture    string `json:"gesture"`
	MouthState string `json:"mouthState"`
	EyeState   string `json:"eyeState"`
}

type wireMessage struct {
	ID             string       `json:"id"`
	Role           string       `json:"role"`
	Content        string       `json:"content"`
	AudioBase64    string       `json:"audioBase64,omitempty"`
	Recommendation []string     `json:"recommendation,omitempty"`
	Emotion        *EmotionMeta `json:"emotion,omitempty"`
}

// toMessage validates wire data at the boundary. Wire messages without
// an ID get a local one so replay and dedupe always have a key.
func (w wireMessage) toMessage(justGenerated bool) Message {
	m := Message{
		ID:             w.ID,
		Role:           Role(w.Role),
		Content:        w.Content,
		AudioBase64:    w.AudioBase64,
		Recommendation: w.Recommendation,
		JustGenerated:  justGenerated,
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Role == "" {
		m.Role = RoleCompanion
	}
	if w.Emotion != nil {
		e := stream.ParseEmotion(w.Emotion.Gesture, w.Emotion.MouthState, w.Emotion.EyeState)
		m.Emotion = &e
	}
	return m
}
