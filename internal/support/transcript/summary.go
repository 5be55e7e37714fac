package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Entry mirrors one JSONL line written by the traffic logger.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Direction string `json:"direction"`
	SubKind   string `json:"subKind"`
	Rewritten bool   `json:"rewritten"`
	Payload   string `json:"payload"`
}

type Summary struct {
	Entries        int            `json:"entries"`
	Rewritten      int            `json:"rewritten"`
	FirstTimestamp string         `json:"firstTimestamp"`
	LastTimestamp  string         `json:"lastTimestamp"`
	BySubKind      map[string]int `json:"bySubKind"`
	ByDirection    map[string]int `json:"byDirection"`
	ProblemClass   string         `json:"problemClass"`
}

// Summarize produces counts and a coarse problem classification from a JSONL
// transcript. Malformed lines make the whole transcript invalid.
func Summarize(data []byte) (Summary, error) {
	summary := Summary{
		BySubKind:   map[string]int{},
		ByDirection: map[string]int{},
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var subKinds []string
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return Summary{}, errors.New("invalid transcript: malformed JSONL line")
		}

		summary.Entries++
		if entry.Rewritten {
			summary.Rewritten++
		}
		if summary.FirstTimestamp == "" {
			summary.FirstTimestamp = entry.Timestamp
		}
		summary.LastTimestamp = entry.Timestamp
		summary.BySubKind[entry.SubKind]++
		summary.ByDirection[entry.Direction]++
		subKinds = append(subKinds, entry.SubKind)
	}
	if err := scanner.Err(); err != nil {
		return Summary{}, err
	}
	if summary.Entries == 0 {
		return Summary{}, errors.New("invalid transcript: no entries")
	}

	summary.ProblemClass = classify(subKinds)
	return summary, nil
}

func classify(subKinds []string) string {
	seen := map[string]bool{}
	for _, kind := range subKinds {
		seen[strings.ToLower(kind)] = true
	}
	switch {
	case !seen["initialize"]:
		return "handshake"
	case seen["setbreakpoints"] || seen["breakpointlocations"]:
		return "breakpoints"
	case seen["stacktrace"] || seen["scopes"]:
		return "stack-inspection"
	default:
		return "unknown"
	}
}
