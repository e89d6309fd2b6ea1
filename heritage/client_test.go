package heritage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"vang/stream"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", zerolog.Nop())
}

func TestSendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/companion/message" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.CharacterID != "lan" || req.Message != "Chùa Một Cột ở đâu?" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{
				"id":             "m-1",
				"role":           "assistant",
				"content":        "Chùa Một Cột ở Hà Nội.",
				"audioBase64":    "QUJD",
				"recommendation": []string{"Kể thêm đi", "Xây năm nào?"},
				"emotion": map[string]string{
					"gesture":    "point",
					"mouthState": "open",
					"eyeState":   "sparkle", // unknown, falls back
				},
			},
		})
	})

	m, err := c.SendMessage(context.Background(), "lan", "Chùa Một Cột ở đâu?", "level-3")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !m.JustGenerated {
		t.Error("reply not marked JustGenerated")
	}
	if m.Content != "Chùa Một Cột ở Hà Nội." || m.AudioBase64 != "QUJD" {
		t.Errorf("message = %+v", m)
	}
	if len(m.Recommendation) != 2 {
		t.Errorf("recommendations = %v", m.Recommendation)
	}
	if m.Emotion == nil {
		t.Fatal("emotion dropped")
	}
	if m.Emotion.Gesture != stream.GesturePoint || m.Emotion.Mouth != stream.MouthOpen {
		t.Errorf("emotion = %+v", m.Emotion)
	}
	if m.Emotion.Eye != stream.EyeNormal {
		t.Errorf("unknown eye state should fall back to normal, got %v", m.Emotion.Eye)
	}
}

func TestHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/companion/history" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req historyRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.CharacterID != "lan" || req.Limit != 20 || req.LevelID != "level-3" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{
				{"id": "m-1", "role": "user", "content": "Xin chào"},
				{"role": "assistant", "content": "Chào em!", "audioBase64": "QUJD"},
			},
		})
	})

	msgs, err := c.History(context.Background(), "lan", 20, "level-3")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleCompanion {
		t.Errorf("roles = %v, %v", msgs[0].Role, msgs[1].Role)
	}
	for _, m := range msgs {
		if m.JustGenerated {
			t.Error("historical message marked JustGenerated")
		}
		if m.ID == "" {
			t.Error("message without wire ID should get a local one")
		}
	}
}

func TestTranscribe(t *testing.T) {
	flacData := append([]byte("fLaC"), bytes.Repeat([]byte{0x01}, 64)...)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/speech/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer f.Close()
		if header.Filename != "audio.flac" {
			t.Errorf("filename = %s", header.Filename)
		}
		got, _ := io.ReadAll(f)
		if !bytes.Equal(got, flacData) {
			t.Error("uploaded bytes do not match recording")
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "xin chào cô"})
	})

	text, err := c.Transcribe(context.Background(), flacData)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "xin chào cô" {
		t.Fatalf("text = %q", text)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	})
	if _, err := c.SendMessage(context.Background(), "lan", "hi", ""); err == nil {
		t.Fatal("expected error for 500 response")
	} else if !strings.Contains(err.Error(), "500") {
		t.Fatalf("error should carry status: %v", err)
	}
}

func TestNewUserMessage(t *testing.T) {
	a := NewUserMessage("câu hỏi")
	b := NewUserMessage("câu hỏi")
	if a.Role != RoleUser || a.Content != "câu hỏi" {
		t.Errorf("message = %+v", a)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Error("user messages need unique local IDs")
	}
}
