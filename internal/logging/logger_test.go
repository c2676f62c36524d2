package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("default logger should be a no-op")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestInitialize_UnknownLevelFallsBackToInfo(t *testing.T) {
	if err := Initialize("loud"); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	core := GetLogger().Core()
	if !core.Enabled(zapcore.InfoLevel) || core.Enabled(zapcore.DebugLevel) {
		t.Error("unknown level should map to info")
	}
}

func TestLogFrame(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	LogFrame("AA:BB", "tx", []byte{0xAA, 0x55, 0x0C})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["hex"] != "aa550c" {
		t.Errorf("hex = %v, want aa550c", fields["hex"])
	}
	if fields["direction"] != "tx" {
		t.Errorf("direction = %v, want tx", fields["direction"])
	}
}

func TestHexDump_Truncates(t *testing.T) {
	got := hexDump(make([]byte, 300))
	if !strings.HasSuffix(got, "...") || len(got) != 512+3 {
		t.Errorf("hexDump() length = %d", len(got))
	}
}

func TestAsciiDump(t *testing.T) {
	if got := asciiDump([]byte{'O', 'K', 0x00, 0xFF}); got != "OK.." {
		t.Errorf("asciiDump() = %q, want %q", got, "OK..")
	}
}

func TestInitializeWithFile(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	path := filepath.Join(t.TempDir(), "logs", "heaterble.log")
	t.Cleanup(func() { SetLogger(nil) })

	if err := InitializeWithFile("", path); err != nil {
		t.Fatalf("InitializeWithFile() error = %v", err)
	}
	Debug("hidden")
	Info("Bridge started", zap.String("listen", ":8765"))
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"Bridge started"`) || !strings.Contains(out, `"listen":":8765"`) {
		t.Errorf("log file missing entry:\n%s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry written at the default info level:\n%s", out)
	}
}

func TestInitializeWithFile_NoPath(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	t.Cleanup(func() { SetLogger(nil) })

	if err := InitializeWithFile("", ""); err != nil {
		t.Fatalf("InitializeWithFile() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("without a file the logger should stay silent")
	}
}
