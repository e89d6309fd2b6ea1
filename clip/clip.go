// Package clip handles the platform's voice clips: base64 transport
// normalization, container detection and local playback.
package clip

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported audio container")

type Format string

const (
	FormatMP3     Format = "mp3"
	FormatWebM    Format = "webm"
	FormatUnknown Format = "unknown"
)

// Decode normalizes a transmitted voice clip. The platform sends either a
// bare base64 payload or a data URI (data:audio/mp3;base64,... or
// data:audio/webm;base64,...); both forms are accepted.
func Decode(encoded string) ([]byte, Format, error) {
	s := strings.TrimSpace(encoded)
	if s == "" {
		return nil, FormatUnknown, fmt.Errorf("empty clip payload")
	}
	if strings.HasPrefix(s, "data:") {
		comma := strings.Index(s, ",")
		if comma < 0 {
			return nil, FormatUnknown, fmt.Errorf("malformed data URI")
		}
		s = s[comma+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some payloads arrive without padding.
		raw, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return nil, FormatUnknown, fmt.Errorf("decoding clip: %w", err)
		}
	}
	return raw, Sniff(raw), nil
}

// Sniff detects the container from magic bytes rather than trusting the
// data-URI mime, which does not always match the payload.
func Sniff(data []byte) Format {
	switch {
	case len(data) < 4:
		return FormatUnknown
	case bytes.HasPrefix(data, []byte("ID3")):
		return FormatMP3
	case data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	case bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return FormatWebM
	default:
		return FormatUnknown
	}
}
