package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/ivywell/nbdap/internal/support/transcript"
)

func main() {
	var jsonOutput bool
	flag.BoolVar(&jsonOutput, "json", false, "print summary as JSON")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: transcript-summary [--json] <transcript.jsonl>")
		os.Exit(2)
	}
	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		exitErr(fmt.Errorf("read transcript: %w", err))
	}

	summary, err := transcript.Summarize(data)
	if err != nil {
		exitErr(fmt.Errorf("summarize transcript: %w", err))
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			exitErr(fmt.Errorf("encode summary: %w", err))
		}
		return
	}

	fmt.Printf("Traffic Transcript Summary\n")
	fmt.Printf("entries: %d\n", summary.Entries)
	fmt.Printf("rewritten: %d\n", summary.Rewritten)
	fmt.Printf("first: %s\n", summary.FirstTimestamp)
	fmt.Printf("last: %s\n", summary.LastTimestamp)
	fmt.Printf("problem class: %s\n", summary.ProblemClass)
	fmt.Printf("by direction:\n")
	for _, key := range sortedKeys(summary.ByDirection) {
		fmt.Printf("- %s: %d\n", key, summary.ByDirection[key])
	}
	fmt.Printf("by message:\n")
	for _, key := range sortedKeys(summary.BySubKind) {
		fmt.Printf("- %s: %d\n", key, summary.BySubKind[key])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
