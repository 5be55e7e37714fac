package transport

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestJSONLTrafficLoggerWritesOneLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLTrafficLogger(&buf)
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	logger.now = func() time.Time { return fixed }

	logger.LogTraffic(DirectionToServer, "setBreakpoints", true, []byte(`{"seq":1}`))
	logger.LogTraffic(DirectionToEditor, "stackTrace", false, []byte(`{"seq":2}`))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var entry TrafficLogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}
	if entry.Direction != DirectionToServer || entry.SubKind != "setBreakpoints" || !entry.Rewritten {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if !entry.Timestamp.Equal(fixed) {
		t.Fatalf("timestamp = %v, want %v", entry.Timestamp, fixed)
	}
	if entry.Payload != `{"seq":1}` {
		t.Fatalf("payload = %q", entry.Payload)
	}
}

func TestNilTrafficLoggerIsSafe(t *testing.T) {
	var logger *JSONLTrafficLogger
	logger.LogTraffic(DirectionToServer, "initialize", false, []byte(`{}`))
}
