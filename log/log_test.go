package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("VANG_LOG_PATH", "/tmp/vang-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/vang-env-log" {
		t.Errorf("got %q, want /tmp/vang-env-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("VANG_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got == "" {
		t.Error("default dir is empty")
	}
	if !strings.Contains(got, "vang") {
		t.Errorf("default dir %q should be app-specific", got)
	}
}

func TestInitWritesDiagnostics(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Info("hello from test")
	Close()

	data, err := os.ReadFile(filepath.Join(tmp, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("diagnostics log missing message: %s", data)
	}
}

func TestConversationTranscript(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Conversation("user", "Chùa Một Cột ở đâu?")
	Close()

	data, err := os.ReadFile(filepath.Join(tmp, "conversation_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "user\tChùa Một Cột ở đâu?") {
		t.Errorf("conversation log missing turn: %s", data)
	}
}

func TestLogBeforeInitIsNoop(t *testing.T) {
	Close()
	Info("should not panic")
	Warn("nor this")
	Errorf("nor %s", "this")
	Conversation("user", "nor this")
	l := Logger()
	l.Info().Msg("nop logger")
}
