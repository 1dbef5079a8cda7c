package logging

import (
	"os"
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger_CreatesDirAndLogger(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(Options{Dir: dir, Level: "debug"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("log dir missing: %v", err)
	}

	log.Debug("test_message_from_logging_test")
	if !log.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("debug level should be enabled")
	}

	// lumberjack opens the file lazily on first write.
	if entries, _ := os.ReadDir(dir); len(entries) == 0 {
		t.Logf("no files yet in %s (ok; async writers may delay)", dir)
	}
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger(Options{Dir: t.TempDir(), Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewLogger_ConsoleTee(t *testing.T) {
	log, err := NewLogger(Options{Dir: t.TempDir(), Console: true})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if log.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("default level should be info")
	}
	log.Info("console_tee_ok")
}
