package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		if parseLevel(lvl) == nil {
			t.Errorf("parseLevel(%q) = nil", lvl)
		}
	}
	if parseLevel("verbose") != nil {
		t.Error("unknown level should fall back to the config default")
	}
}

func TestNewWithFileWritesRotatedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marksync.log")
	log := NewWithFile("info", false, FileOptions{Path: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})

	log.With(String("device_id", "dev1")).Info("sync finished", Int("bookmarks", 3))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty")
	}
}
