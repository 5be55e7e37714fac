// Package rewrite walks DAP messages and rewrites the source references and
// line/column locations they carry, leaving everything else untouched.
package rewrite

import (
	"github.com/go-logr/logr"

	"github.com/ivywell/nbdap/internal/dap/message"
	"github.com/ivywell/nbdap/internal/dap/translate"
	"github.com/ivywell/nbdap/internal/sourcemap"
	"github.com/ivywell/nbdap/internal/support/decode"
)

// SourceTranslator rewrites a source reference's identity per direction.
type SourceTranslator interface {
	Outbound(path string) (string, bool)
	Inbound(path string) (translate.SourceIdentity, bool)
}

// LocationRemapper mutates line/column pairs in place and reports how many
// locations it changed.
type LocationRemapper interface {
	Remap(locations []map[string]any, sourcePath string, dir sourcemap.Direction) int
}

type handlerKey struct {
	kind    message.Kind
	subKind string
}

type handler func(rw *Rewriter, msg *message.Message, dir sourcemap.Direction)

// The allow-list: which sub-kinds carry source or location data, and where.
// Anything not listed passes through verbatim; rewriting an unrecognized
// field is worse than missing one.
var handlers = map[handlerKey]handler{
	{message.KindEvent, "output"}:       rewriteBodySource,
	{message.KindEvent, "loadedSource"}: rewriteBodySource,
	{message.KindEvent, "breakpoint"}:   rewriteBreakpointEvent,

	{message.KindRequest, "setBreakpoints"}:      rewriteSetBreakpointsRequest,
	{message.KindRequest, "breakpointLocations"}: rewriteArgumentsSource,
	{message.KindRequest, "source"}:              rewriteArgumentsSource,
	{message.KindRequest, "gotoTargets"}:         rewriteArgumentsSource,

	{message.KindResponse, "stackTrace"}:             rewriteFramedResponse("stackFrames"),
	{message.KindResponse, "loadedSources"}:          rewriteLoadedSourcesResponse,
	{message.KindResponse, "scopes"}:                 rewriteFramedResponse("scopes"),
	{message.KindResponse, "setFunctionBreakpoints"}: rewriteFramedResponse("breakpoints"),
	{message.KindResponse, "setBreakpoints"}:         rewriteFramedResponse("breakpoints"),
}

// Rewriter dispatches messages through the handler table.
type Rewriter struct {
	translator SourceTranslator
	remapper   LocationRemapper
	log        logr.Logger
}

func NewRewriter(translator SourceTranslator, remapper LocationRemapper, log logr.Logger) *Rewriter {
	return &Rewriter{
		translator: translator,
		remapper:   remapper,
		log:        log,
	}
}

// Rewrite translates the message's source references and locations in place
// and returns the same message for chaining. Messages outside the allow-list,
// and failed responses, are left untouched.
func (rw *Rewriter) Rewrite(msg *message.Message, dir sourcemap.Direction) *message.Message {
	if msg.Kind() == message.KindResponse && (!msg.Success() || msg.Body() == nil) {
		return msg
	}
	h, ok := handlers[handlerKey{msg.Kind(), msg.SubKind()}]
	if !ok {
		return msg
	}
	h(rw, msg, dir)
	if msg.Dirty() {
		rw.log.V(1).Info("rewrote message", "kind", msg.Kind().String(), "subKind", msg.SubKind(), "direction", dir.String())
	}
	return msg
}

// rewriteSource rewrites one source object's path (and, toward the editor,
// its name) through the identity translator. Absent or unresolvable sources
// are left alone.
func (rw *Rewriter) rewriteSource(msg *message.Message, src map[string]any, dir sourcemap.Direction) {
	if src == nil {
		return
	}
	path, ok := decode.NonEmptyTrimmedStringFromMap(src, "path")
	if !ok {
		return
	}
	switch dir {
	case sourcemap.DirectionToServer:
		if physical, ok := rw.translator.Outbound(path); ok {
			src["path"] = physical
			msg.MarkDirty()
		}
	case sourcemap.DirectionToEditor:
		if id, ok := rw.translator.Inbound(path); ok {
			src["path"] = id.Path
			src["name"] = id.Name
			msg.MarkDirty()
		}
	}
}

// remapLocations remaps a location group against the source path the message
// arrived with. The path must be captured before the source is translated so
// both components see the same coordinate space.
func (rw *Rewriter) remapLocations(msg *message.Message, locations []map[string]any, sourcePath string, dir sourcemap.Direction) {
	if sourcePath == "" || len(locations) == 0 {
		return
	}
	if rw.remapper.Remap(locations, sourcePath, dir) > 0 {
		msg.MarkDirty()
	}
}

func rewriteBodySource(rw *Rewriter, msg *message.Message, dir sourcemap.Direction) {
	body := msg.Body()
	if body == nil {
		return
	}
	src, _ := decode.MapFromMap(body, "source")
	rw.rewriteSource(msg, src, dir)
}

func rewriteBreakpointEvent(rw *Rewriter, msg *message.Message, dir sourcemap.Direction) {
	body := msg.Body()
	if body == nil {
		return
	}
	bp, ok := decode.MapFromMap(body, "breakpoint")
	if !ok {
		return
	}
	src, _ := decode.MapFromMap(bp, "source")
	rw.rewriteSource(msg, src, dir)
}

func rewriteSetBreakpointsRequest(rw *Rewriter, msg *message.Message, dir sourcemap.Direction) {
	args := msg.Arguments()
	if args == nil {
		return
	}
	src, _ := decode.MapFromMap(args, "source")
	sourcePath := decode.StringOrEmptyFromMap(src, "path")

	rw.rewriteSource(msg, src, dir)
	rw.remapLocations(msg, decode.MapSliceFromMap(args, "breakpoints"), sourcePath, dir)
}

func rewriteArgumentsSource(rw *Rewriter, msg *message.Message, dir sourcemap.Direction) {
	args := msg.Arguments()
	if args == nil {
		return
	}
	src, _ := decode.MapFromMap(args, "source")
	rw.rewriteSource(msg, src, dir)
}

func rewriteLoadedSourcesResponse(rw *Rewriter, msg *message.Message, dir sourcemap.Direction) {
	for _, src := range decode.MapSliceFromMap(msg.Body(), "sources") {
		rw.rewriteSource(msg, src, dir)
	}
}

// rewriteFramedResponse handles response bodies whose items each carry their
// own source and are themselves a location (stack frames, scopes, verified
// breakpoints).
func rewriteFramedResponse(field string) handler {
	return func(rw *Rewriter, msg *message.Message, dir sourcemap.Direction) {
		for _, item := range decode.MapSliceFromMap(msg.Body(), field) {
			src, _ := decode.MapFromMap(item, "source")
			sourcePath := decode.StringOrEmptyFromMap(src, "path")

			rw.rewriteSource(msg, src, dir)
			rw.remapLocations(msg, []map[string]any{item}, sourcePath, dir)
		}
	}
}
