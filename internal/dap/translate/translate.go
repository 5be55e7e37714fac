// Package translate converts source references between the identity a cell
// has on the editing surface (its cell URI) and the identity it has for the
// debug adapter (the path of its compiled text).
//
// Every lookup is fail-open: an unrecognized scheme, an unknown cell, or a
// persistence failure yields ok=false and the caller forwards the original
// field untouched. A missed translation produces a stale-but-plausible
// location; a hard error here could corrupt the whole session.
package translate

import (
	"fmt"
	"net/url"

	"github.com/go-logr/logr"

	"github.com/ivywell/nbdap/internal/notebook"
)

// Resolver maps identifiers to cells. *notebook.Registry satisfies it.
type Resolver interface {
	ResolveURI(uri string) (*notebook.Cell, bool)
	ResolveCompiledPath(path string) (*notebook.Cell, bool)
}

// TextStore persists a cell's compiled text somewhere the debug adapter can
// read and returns that location. *notebook.Store satisfies it.
type TextStore interface {
	EnsureCompiled(c *notebook.Cell) (string, error)
}

// SourceIdentity is the editor-facing identity of a source reference.
type SourceIdentity struct {
	// Path is the cell's canonical URI.
	Path string
	// Name is the human-readable label, e.g. "analysis.py, Cell 3".
	Name string
}

type Translator struct {
	resolver Resolver
	store    TextStore
	log      logr.Logger
}

func NewTranslator(resolver Resolver, store TextStore, log logr.Logger) *Translator {
	return &Translator{
		resolver: resolver,
		store:    store,
		log:      log,
	}
}

// Outbound translates a cell URI into the compiled path the debug adapter
// can read. Paths that are not cell URIs, or that do not resolve to a known
// cell, yield ok=false.
func (t *Translator) Outbound(path string) (string, bool) {
	u, err := url.Parse(path)
	if err != nil || u.Scheme != notebook.Scheme {
		return "", false
	}
	cell, ok := t.resolver.ResolveURI(path)
	if !ok {
		t.log.V(1).Info("no cell for URI", "uri", path)
		return "", false
	}
	physical, err := t.store.EnsureCompiled(cell)
	if err != nil {
		t.log.V(1).Info("persist compiled cell failed", "uri", path, "error", err)
		return "", false
	}
	return physical, true
}

// Inbound translates a compiled path back into the cell's user-facing
// identity. Unknown paths and cells that are no longer live yield ok=false.
func (t *Translator) Inbound(path string) (SourceIdentity, bool) {
	cell, ok := t.resolver.ResolveCompiledPath(path)
	if !ok || !cell.Live() {
		return SourceIdentity{}, false
	}
	name := cell.NotebookName
	if cell.Index >= 0 {
		name = fmt.Sprintf("%s, Cell %d", name, cell.Index+1)
	}
	return SourceIdentity{Path: cell.URI(), Name: name}, true
}
