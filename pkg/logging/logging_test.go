package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/windowsadmins/remedian/pkg/config"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"ERROR", LevelError},
		{"warn", LevelWarn},
		{"WARNING", LevelWarn},
		{"INFO", LevelInfo},
		{"debug", LevelDebug},
		{"  Debug  ", LevelDebug},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tc := range tests {
		if got := levelFromString(tc.in); got != tc.want {
			t.Errorf("levelFromString(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestSessionLogFiles(t *testing.T) {
	logPath := t.TempDir()
	l, err := newLogger(&config.Configuration{
		ItemName: "Git",
		LogPath:  logPath,
		LogLevel: "DEBUG",
	})
	if err != nil {
		t.Fatalf("newLogger returned %v", err)
	}

	l.logMessage(LevelInfo, "Probe succeeded", "probe", "uninstall-key", "value", "2.47.1")
	l.logMessage(LevelDebug, "detail")
	l.logFile.Close()
	l.jsonFile.Close()

	sessions, err := os.ReadDir(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("found %d session directories, want 1", len(sessions))
	}
	sessionDir := filepath.Join(logPath, sessions[0].Name())

	plain, err := os.ReadFile(filepath.Join(sessionDir, "run.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(plain), "Probe succeeded") {
		t.Errorf("run.log missing message: %q", plain)
	}
	if !strings.Contains(string(plain), "probe=uninstall-key") {
		t.Errorf("run.log missing key-value pair: %q", plain)
	}

	raw, err := os.ReadFile(filepath.Join(sessionDir, "run.json"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("run.json has %d entries, want 2", len(lines))
	}
	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Level != "INFO" || entry.Message != "Probe succeeded" || entry.Item != "Git" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.Properties["probe"] != "uninstall-key" {
		t.Errorf("Properties = %v", entry.Properties)
	}
}

func TestLevelFiltering(t *testing.T) {
	logPath := t.TempDir()
	l, err := newLogger(&config.Configuration{
		ItemName: "Git",
		LogPath:  logPath,
		LogLevel: "WARN",
	})
	if err != nil {
		t.Fatal(err)
	}

	l.logMessage(LevelInfo, "suppressed info")
	l.logMessage(LevelWarn, "kept warning")
	l.logFile.Close()
	l.jsonFile.Close()

	plain, err := os.ReadFile(filepath.Join(l.logDir, "run.log"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(plain), "suppressed info") {
		t.Error("info message written despite WARN level")
	}
	if !strings.Contains(string(plain), "kept warning") {
		t.Error("warning message missing")
	}
}

func TestCleanupOldSessions(t *testing.T) {
	logPath := t.TempDir()
	for i := 0; i < retainSessions+5; i++ {
		name := filepath.Join(logPath, fmt.Sprintf("2020-01-01-%06d", i))
		if err := os.MkdirAll(name, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	l, err := newLogger(&config.Configuration{ItemName: "Git", LogPath: logPath})
	if err != nil {
		t.Fatal(err)
	}
	l.logFile.Close()
	l.jsonFile.Close()

	entries, err := os.ReadDir(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != retainSessions {
		t.Errorf("%d session directories survived, want %d", len(entries), retainSessions)
	}
}
