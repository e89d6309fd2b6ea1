package main

import (
	"strings"

	"vang/stream"
)

// ASCII companion avatar. The emotion triple picks eyes, mouth and arms;
// the frame counter drives the talking animation and idle blinks.

const blinkCycle = 110 // frames between idle blinks

func avatarEyes(e stream.EyeState, frame int) string {
	if frame%blinkCycle < 3 {
		return "-   -"
	}
	switch e {
	case stream.EyeHappy:
		return "^   ^"
	case stream.EyeClosed:
		return "-   -"
	case stream.EyeWide:
		return "O   O"
	default:
		return "o   o"
	}
}

func avatarMouth(m stream.MouthState, speaking bool, frame int) string {
	if speaking {
		// Alternate open/closed while the clip plays.
		if frame/3%2 == 0 {
			return "  o  "
		}
		return " ___ "
	}
	switch m {
	case stream.MouthOpen:
		return "  o  "
	case stream.MouthSad:
		return " /-\\ "
	case stream.MouthFlat:
		return " --- "
	default:
		return " \\_/ "
	}
}

func avatarArms(g stream.Gesture, frame int) string {
	switch g {
	case stream.GestureWave:
		if frame/5%2 == 0 {
			return `  \|/  `
		}
		return `  \|\  `
	case stream.GesturePoint:
		return `   |--»`
	case stream.GestureThink:
		return `  ?|\  `
	case stream.GestureBow:
		return `  /|\  `
	default:
		return `  /|\  `
	}
}

// RenderAvatar draws the companion as a short block of text lines.
func RenderAvatar(e stream.Emotion, speaking bool, frame int) string {
	face := []string{
		"  .-------.  ",
		" |  " + avatarEyes(e.Eye, frame) + "  | ",
		" |  " + avatarMouth(e.Mouth, speaking, frame) + "  | ",
		"  '-------'  ",
		"   " + avatarArms(e.Gesture, frame) + "   ",
		"    / \\     ",
	}
	if e.Gesture == stream.GestureBow {
		// Tilt the whole figure forward a little.
		for i := range face {
			face[i] = strings.Repeat(" ", i/2) + face[i]
		}
	}
	return strings.Join(face, "\n")
}
