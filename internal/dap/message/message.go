package message

import (
	"encoding/json"

	"github.com/ivywell/nbdap/internal/support/decode"
)

// Kind classifies a DAP payload by its top-level "type" field.
type Kind int

const (
	// KindOther covers non-JSON payloads, non-object roots, and unknown types.
	KindOther Kind = iota
	KindEvent
	KindRequest
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	default:
		return "other"
	}
}

// Message is one DAP payload held as its decoded JSON object alongside the
// original bytes. Rewrites mutate the decoded object and mark the message
// dirty; Encode returns the untouched original bytes for a clean message, so
// anything the bridge does not recognize is forwarded verbatim.
type Message struct {
	raw   []byte
	root  map[string]any
	kind  Kind
	dirty bool
}

// Decode interprets one raw DAP payload. It never fails: payloads that do not
// parse as a JSON object come back as KindOther and pass through unchanged.
func Decode(payload []byte) *Message {
	m := &Message{raw: payload}

	var root map[string]any
	if err := json.Unmarshal(payload, &root); err != nil || root == nil {
		return m
	}
	m.root = root

	switch decode.StringOrEmptyFromMap(root, "type") {
	case "event":
		m.kind = KindEvent
	case "request":
		m.kind = KindRequest
	case "response":
		m.kind = KindResponse
	}
	return m
}

// Encode returns the bytes to forward. A message that was never marked dirty
// round-trips byte-for-byte.
func (m *Message) Encode() ([]byte, error) {
	if !m.dirty || m.root == nil {
		return m.raw, nil
	}
	return json.Marshal(m.root)
}

// Raw returns the payload exactly as it arrived.
func (m *Message) Raw() []byte {
	return m.raw
}

func (m *Message) Kind() Kind {
	return m.kind
}

// SubKind returns the event name for events and the command for requests and
// responses. Empty when the field is missing or the kind is KindOther.
func (m *Message) SubKind() string {
	if m.root == nil {
		return ""
	}
	switch m.kind {
	case KindEvent:
		return decode.StringOrEmptyFromMap(m.root, "event")
	case KindRequest, KindResponse:
		return decode.StringOrEmptyFromMap(m.root, "command")
	default:
		return ""
	}
}

// Success reports the response success flag; false for any other kind.
func (m *Message) Success() bool {
	if m.kind != KindResponse || m.root == nil {
		return false
	}
	return decode.BoolOrFalseFromMap(m.root, "success")
}

// Body returns the event or response body object, or nil.
func (m *Message) Body() map[string]any {
	if m.root == nil {
		return nil
	}
	body, _ := decode.MapFromMap(m.root, "body")
	return body
}

// Arguments returns the request arguments object, or nil.
func (m *Message) Arguments() map[string]any {
	if m.root == nil {
		return nil
	}
	args, _ := decode.MapFromMap(m.root, "arguments")
	return args
}

// MarkDirty records that the decoded object was mutated, forcing Encode to
// re-marshal instead of returning the original bytes.
func (m *Message) MarkDirty() {
	m.dirty = true
}

// Dirty reports whether any rewrite touched the message.
func (m *Message) Dirty() bool {
	return m.dirty
}
