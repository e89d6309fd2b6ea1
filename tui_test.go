package main

import (
	"strings"
	"testing"

	"vang/stream"
)

func TestWrapRunesVietnamese(t *testing.T) {
	got := wrapRunes("Xin chào các bạn nhỏ", 8)
	want := []string{"Xin chào", "các bạn", "nhỏ"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWrapRunesCountsRunesNotBytes(t *testing.T) {
	// 10 runes, 22 bytes: must stay on one line at width 10.
	got := wrapRunes("ồồồồồồồồồồ", 10)
	if len(got) != 1 {
		t.Fatalf("got %d lines, want 1: %v", len(got), got)
	}
}

func TestWrapRunesNoSpaces(t *testing.T) {
	got := wrapRunes("aaaaaaaaaa", 4)
	if len(got) != 3 {
		t.Fatalf("got %v, want hard split into 3 lines", got)
	}
}

func TestWrapRunesEmpty(t *testing.T) {
	if got := wrapRunes("", 10); len(got) != 1 || got[0] != "" {
		t.Fatalf("got %v", got)
	}
}

func TestRenderBars(t *testing.T) {
	out := []rune(renderBars([]float64{0, 0.005, 0.5}))
	if len(out) != 3 {
		t.Fatalf("got %d cells, want 3", len(out))
	}
	if out[0] != ' ' {
		t.Errorf("zero level should render blank, got %q", out[0])
	}
	if out[1] != '·' {
		t.Errorf("under-floor level should render a dot, got %q", out[1])
	}
	if out[2] == ' ' || out[2] == '·' {
		t.Errorf("loud level should render a bar, got %q", out[2])
	}
}

func TestRenderAvatarNeutral(t *testing.T) {
	face := RenderAvatar(stream.NeutralEmotion(), false, 10)
	if !strings.Contains(face, "o   o") {
		t.Error("neutral face missing open eyes")
	}
	if !strings.Contains(face, `\_/`) {
		t.Error("neutral face missing smile")
	}
}

func TestRenderAvatarSpeakingAnimates(t *testing.T) {
	e := stream.NeutralEmotion()
	a := RenderAvatar(e, true, 10)
	b := RenderAvatar(e, true, 13)
	if a == b {
		t.Error("speaking mouth should alternate across frames")
	}
}

func TestRenderAvatarBlinks(t *testing.T) {
	face := RenderAvatar(stream.NeutralEmotion(), false, 0)
	if !strings.Contains(face, "-   -") {
		t.Error("blink frame should close the eyes")
	}
}

func TestCaptionFace(t *testing.T) {
	got := captionFace(stream.NeutralEmotion(), false, 10)
	if got != `(o\_/o)` {
		t.Fatalf("captionFace = %q", got)
	}
}
