package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer

	log, err := NewWithWriter(&buf, "production", "warn")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	log.Info("Dropped")
	log.Warn("Kept", "attempt", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}

	var entry map[string]any
	if err = json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}

	if entry["msg"] != "Kept" || entry["service"] != "dailybrief" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewWithWriterRejectsUnknownLevel(t *testing.T) {
	if _, err := NewWithWriter(&bytes.Buffer{}, "development", "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
