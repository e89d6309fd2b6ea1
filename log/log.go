package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	convFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

// ResolveDir picks the log directory: -logpath flag first, then
// VANG_LOG_PATH, then the OS default location.
func ResolveDir(flagPath string) (string, error) {
	if flagPath != "" {
		return absolutize(flagPath)
	}
	if envPath := os.Getenv("VANG_LOG_PATH"); envPath != "" {
		return absolutize(envPath)
	}
	return getDefaultDir()
}

func absolutize(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	convPath := filepath.Join(dir, "conversation_log.txt")
	convFile, err = os.OpenFile(convPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if convFile != nil {
		convFile.Close()
		convFile = nil
	}
	logReady = false
}

// Logger exposes the diagnostics logger for components that take a
// zerolog.Logger. Before Init it is a no-op logger.
func Logger() zerolog.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady {
		return zerolog.Nop()
	}
	return diagLog
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Conversation appends one chat turn to the conversation transcript.
func Conversation(role, text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, role, text)
	convFile.WriteString(line)
}

// Utterance records one presented reply: text length and clip size, for
// tuning pacing against real audio.
func Utterance(id string, runes, clipBytes int, replay bool) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("id", id).
		Int("runes", runes).
		Int("clip_bytes", clipBytes).
		Bool("replay", replay).
		Msg("utterance")
}
