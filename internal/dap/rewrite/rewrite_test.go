package rewrite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-logr/logr"

	"github.com/ivywell/nbdap/internal/dap/message"
	"github.com/ivywell/nbdap/internal/dap/translate"
	"github.com/ivywell/nbdap/internal/notebook"
	"github.com/ivywell/nbdap/internal/sourcemap"
)

// testBridge wires a real registry, scratch store, translator, and remapper
// around one registered cell, the way a live session does.
type testBridge struct {
	rewriter     *Rewriter
	cell         *notebook.Cell
	compiledPath string
}

func newTestBridge(t *testing.T) *testBridge {
	t.Helper()

	registry := notebook.NewRegistry()
	store, err := notebook.NewStore(registry, t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cell := &notebook.Cell{
		NotebookPath: "/work/analysis.py",
		NotebookName: "analysis.py",
		Fragment:     "0",
		Index:        0,
		Source:       "x = 1\ny = x + 1\nprint(y)",
	}
	registry.Add(cell)
	compiledPath, err := store.EnsureCompiled(cell)
	if err != nil {
		t.Fatalf("EnsureCompiled failed: %v", err)
	}

	translator := translate.NewTranslator(registry, store, logr.Discard())
	remapper := sourcemap.NewRemapper(registry)
	return &testBridge{
		rewriter:     NewRewriter(translator, remapper, logr.Discard()),
		cell:         cell,
		compiledPath: compiledPath,
	}
}

func rewriteJSON(t *testing.T, rw *Rewriter, payload string, dir sourcemap.Direction) (map[string]any, *message.Message) {
	t.Helper()
	msg := rw.Rewrite(message.Decode([]byte(payload)), dir)
	out, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}
	return decoded, msg
}

func TestSetBreakpointsRequestTowardServer(t *testing.T) {
	bridge := newTestBridge(t)
	payload := fmt.Sprintf(`{
		"seq": 4, "type": "request", "command": "setBreakpoints",
		"arguments": {
			"source": {"name": "analysis.py, Cell 1", "path": %q},
			"breakpoints": [{"line": 1}, {"line": 3, "column": 5}]
		}
	}`, bridge.cell.URI())

	decoded, msg := rewriteJSON(t, bridge.rewriter, payload, sourcemap.DirectionToServer)
	if !msg.Dirty() {
		t.Fatal("expected rewrite")
	}

	args := decoded["arguments"].(map[string]any)
	src := args["source"].(map[string]any)
	if src["path"] != bridge.compiledPath {
		t.Fatalf("path = %#v, want compiled path %q", src["path"], bridge.compiledPath)
	}

	bps := args["breakpoints"].([]any)
	first := bps[0].(map[string]any)
	if first["line"] != float64(3) || first["column"] != float64(0) {
		t.Fatalf("first breakpoint = %#v, want line 3 column 0", first)
	}
	second := bps[1].(map[string]any)
	if second["line"] != float64(5) || second["column"] != float64(0) {
		t.Fatalf("second breakpoint = %#v, want line 5 column 0", second)
	}
}

func TestStackTraceResponseTowardEditor(t *testing.T) {
	bridge := newTestBridge(t)
	payload := fmt.Sprintf(`{
		"seq": 9, "type": "response", "request_seq": 8, "command": "stackTrace", "success": true,
		"body": {"stackFrames": [
			{"id": 1, "name": "<module>", "line": 4, "column": 0,
			 "source": {"name": "cell-0.gen.py", "path": %q}},
			{"id": 2, "name": "run", "line": 88, "column": 4,
			 "source": {"name": "runner.py", "path": "/usr/lib/runner.py"}}
		]}
	}`, bridge.compiledPath)

	decoded, msg := rewriteJSON(t, bridge.rewriter, payload, sourcemap.DirectionToEditor)
	if !msg.Dirty() {
		t.Fatal("expected rewrite")
	}

	frames := decoded["body"].(map[string]any)["stackFrames"].([]any)

	cellFrame := frames[0].(map[string]any)
	src := cellFrame["source"].(map[string]any)
	if src["path"] != bridge.cell.URI() {
		t.Fatalf("path = %#v, want %q", src["path"], bridge.cell.URI())
	}
	if src["name"] != "analysis.py, Cell 1" {
		t.Fatalf("name = %#v", src["name"])
	}
	if cellFrame["line"] != float64(2) || cellFrame["column"] != float64(0) {
		t.Fatalf("frame location = line %v column %v, want 2/0", cellFrame["line"], cellFrame["column"])
	}

	// Frames in unmanaged files pass through untouched.
	otherFrame := frames[1].(map[string]any)
	otherSrc := otherFrame["source"].(map[string]any)
	if otherSrc["path"] != "/usr/lib/runner.py" || otherFrame["line"] != float64(88) {
		t.Fatalf("unmanaged frame changed: %#v", otherFrame)
	}
}

func TestBreakpointEventTowardEditor(t *testing.T) {
	bridge := newTestBridge(t)
	payload := fmt.Sprintf(`{
		"seq": 12, "type": "event", "event": "breakpoint",
		"body": {"reason": "changed", "breakpoint": {
			"id": 1, "verified": true, "source": {"path": %q}
		}}
	}`, bridge.compiledPath)

	decoded, msg := rewriteJSON(t, bridge.rewriter, payload, sourcemap.DirectionToEditor)
	if !msg.Dirty() {
		t.Fatal("expected rewrite")
	}
	bp := decoded["body"].(map[string]any)["breakpoint"].(map[string]any)
	if bp["source"].(map[string]any)["path"] != bridge.cell.URI() {
		t.Fatalf("breakpoint source = %#v", bp["source"])
	}
}

func TestLoadedSourcesResponseRewritesEach(t *testing.T) {
	bridge := newTestBridge(t)
	payload := fmt.Sprintf(`{
		"seq": 5, "type": "response", "request_seq": 4, "command": "loadedSources", "success": true,
		"body": {"sources": [
			{"name": "cell-0.gen.py", "path": %q},
			{"name": "runner.py", "path": "/usr/lib/runner.py"}
		]}
	}`, bridge.compiledPath)

	decoded, _ := rewriteJSON(t, bridge.rewriter, payload, sourcemap.DirectionToEditor)
	sources := decoded["body"].(map[string]any)["sources"].([]any)
	if sources[0].(map[string]any)["path"] != bridge.cell.URI() {
		t.Fatalf("managed source not rewritten: %#v", sources[0])
	}
	if sources[1].(map[string]any)["path"] != "/usr/lib/runner.py" {
		t.Fatalf("unmanaged source changed: %#v", sources[1])
	}
}

func TestSetBreakpointsResponseBreakpointsRemapped(t *testing.T) {
	bridge := newTestBridge(t)
	payload := fmt.Sprintf(`{
		"seq": 6, "type": "response", "request_seq": 4, "command": "setBreakpoints", "success": true,
		"body": {"breakpoints": [
			{"id": 1, "verified": true, "line": 3, "source": {"path": %q}}
		]}
	}`, bridge.compiledPath)

	decoded, _ := rewriteJSON(t, bridge.rewriter, payload, sourcemap.DirectionToEditor)
	bp := decoded["body"].(map[string]any)["breakpoints"].([]any)[0].(map[string]any)
	if bp["line"] != float64(1) {
		t.Fatalf("verified breakpoint line = %v, want 1", bp["line"])
	}
	if bp["source"].(map[string]any)["path"] != bridge.cell.URI() {
		t.Fatalf("verified breakpoint source = %#v", bp["source"])
	}
}

func TestUnknownSubKindPassesThroughByteIdentical(t *testing.T) {
	bridge := newTestBridge(t)
	payload := []byte(`{"seq": 2,  "type":"request","command":"threads","arguments":{ }}`)

	msg := bridge.rewriter.Rewrite(message.Decode(payload), sourcemap.DirectionToServer)
	if msg.Dirty() {
		t.Fatal("unknown command must not be rewritten")
	}
	out, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("payload changed: %s", out)
	}
}

func TestFailedResponseUntouched(t *testing.T) {
	bridge := newTestBridge(t)
	payload := fmt.Sprintf(`{"seq":7,"type":"response","request_seq":6,"command":"stackTrace","success":false,"message":"no frames","body":{"stackFrames":[{"line":4,"source":{"path":%q}}]}}`, bridge.compiledPath)

	msg := bridge.rewriter.Rewrite(message.Decode([]byte(payload)), sourcemap.DirectionToEditor)
	if msg.Dirty() {
		t.Fatal("failed response must not be rewritten")
	}
}

func TestOutputEventForeignPathUntouched(t *testing.T) {
	bridge := newTestBridge(t)
	payload := []byte(`{"seq":3,"type":"event","event":"output","body":{"category":"stdout","output":"hi\n","source":{"path":"/usr/lib/runner.py"}}}`)

	msg := bridge.rewriter.Rewrite(message.Decode(payload), sourcemap.DirectionToEditor)
	if msg.Dirty() {
		t.Fatal("foreign source must not mark the message dirty")
	}
	out, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("payload changed: %s", out)
	}
}

func TestBreakpointLocationsRequestSourceOnly(t *testing.T) {
	bridge := newTestBridge(t)
	payload := fmt.Sprintf(`{"seq":4,"type":"request","command":"breakpointLocations","arguments":{"source":{"path":%q},"line":1}}`, bridge.cell.URI())

	decoded, msg := rewriteJSON(t, bridge.rewriter, payload, sourcemap.DirectionToServer)
	if !msg.Dirty() {
		t.Fatal("expected rewrite")
	}
	args := decoded["arguments"].(map[string]any)
	if args["source"].(map[string]any)["path"] != bridge.compiledPath {
		t.Fatalf("source = %#v", args["source"])
	}
	// Only the source identity moves here; the top-level line stays.
	if args["line"] != float64(1) {
		t.Fatalf("line = %v, want 1", args["line"])
	}
}

func TestRoundTripRestoresCellCoordinates(t *testing.T) {
	bridge := newTestBridge(t)

	request := fmt.Sprintf(`{"seq":4,"type":"request","command":"setBreakpoints","arguments":{"source":{"path":%q},"breakpoints":[{"line":2}]}}`, bridge.cell.URI())
	toServer, _ := rewriteJSON(t, bridge.rewriter, request, sourcemap.DirectionToServer)
	forwarded := toServer["arguments"].(map[string]any)["breakpoints"].([]any)[0].(map[string]any)

	response := fmt.Sprintf(`{"seq":5,"type":"response","request_seq":4,"command":"setBreakpoints","success":true,"body":{"breakpoints":[{"id":1,"verified":true,"line":%v,"source":{"path":%q}}]}}`,
		forwarded["line"], bridge.compiledPath)
	toEditor, _ := rewriteJSON(t, bridge.rewriter, response, sourcemap.DirectionToEditor)
	verified := toEditor["body"].(map[string]any)["breakpoints"].([]any)[0].(map[string]any)

	if verified["line"] != float64(2) {
		t.Fatalf("round trip line = %v, want 2", verified["line"])
	}
	if verified["source"].(map[string]any)["path"] != bridge.cell.URI() {
		t.Fatalf("round trip source = %#v", verified["source"])
	}
}
