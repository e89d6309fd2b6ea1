//go:build !windows

// Package shutdown delivers OS termination signals so the surface can
// quit cleanly and release the audio device.
package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

func Notify(ch chan os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}
