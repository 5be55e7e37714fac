package transport

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// TrafficDirection indicates which way a payload crossed the bridge.
type TrafficDirection string

const (
	// DirectionToServer represents payloads flowing editor → debug adapter.
	DirectionToServer TrafficDirection = "to-server"
	// DirectionToEditor represents payloads flowing debug adapter → editor.
	DirectionToEditor TrafficDirection = "to-editor"
)

// TrafficLogEntry is a structured protocol traffic log record.
type TrafficLogEntry struct {
	Timestamp time.Time        `json:"timestamp"`
	Direction TrafficDirection `json:"direction"`
	SubKind   string           `json:"subKind,omitempty"`
	Rewritten bool             `json:"rewritten"`
	Payload   string           `json:"payload"`
}

// TrafficLogger records protocol payload traffic.
type TrafficLogger interface {
	LogTraffic(direction TrafficDirection, subKind string, rewritten bool, payload []byte)
}

// JSONLTrafficLogger writes timestamped traffic records as JSON Lines.
type JSONLTrafficLogger struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

// NewJSONLTrafficLogger creates a structured JSON-lines traffic logger.
func NewJSONLTrafficLogger(w io.Writer) *JSONLTrafficLogger {
	return &JSONLTrafficLogger{
		enc: json.NewEncoder(w),
		now: time.Now,
	}
}

// LogTraffic records one traffic entry.
func (l *JSONLTrafficLogger) LogTraffic(direction TrafficDirection, subKind string, rewritten bool, payload []byte) {
	if l == nil || l.enc == nil {
		return
	}

	entry := TrafficLogEntry{
		Timestamp: l.now().UTC(),
		Direction: direction,
		SubKind:   subKind,
		Rewritten: rewritten,
		Payload:   string(payload),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(entry)
}
