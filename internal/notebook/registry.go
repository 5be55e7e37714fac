package notebook

import (
	"sync"

	"github.com/ivywell/nbdap/internal/sourcemap"
)

// Loader lazily produces the cells of a notebook the first time one of its
// cell URIs is resolved.
type Loader func(notebookPath string) ([]*Cell, error)

// Registry tracks the cells a session knows about, keyed both by cell URI and
// by the compiled path written for them, together with each cell's mapping
// table. Entries are purged by an explicit Remove/RemoveAll from session
// teardown; there is no implicit expiry.
type Registry struct {
	mu       sync.Mutex
	byURI    map[string]*Cell
	byPath   map[string]*Cell
	tables   map[*Cell]*sourcemap.Table
	loader   Loader
	loadSeen map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		byURI:    map[string]*Cell{},
		byPath:   map[string]*Cell{},
		tables:   map[*Cell]*sourcemap.Table{},
		loadSeen: map[string]bool{},
	}
}

// SetLoader installs a lazy notebook loader consulted on URI resolution
// misses. Each notebook path is loaded at most once.
func (r *Registry) SetLoader(loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loader = loader
}

// Add registers a cell under its URI. Re-adding a URI replaces the previous
// cell but keeps the old compiled-path alias so in-flight messages still
// resolve.
func (r *Registry) Add(c *Cell) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byURI[c.URI()] = c
}

// Remove purges the cell with the given URI, its compiled-path aliases, and
// its mapping table. The cell is closed so stale references stop resolving.
func (r *Registry) Remove(uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cell, ok := r.byURI[uri]
	if !ok {
		return
	}
	r.removeLocked(uri, cell)
}

// RemoveAll purges every entry; called on session teardown.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for uri, cell := range r.byURI {
		r.removeLocked(uri, cell)
	}
}

func (r *Registry) removeLocked(uri string, cell *Cell) {
	delete(r.byURI, uri)
	delete(r.tables, cell)
	for path, aliased := range r.byPath {
		if aliased == cell {
			delete(r.byPath, path)
		}
	}
	cell.Close()
}

// ResolveURI finds the cell for a canonical cell URI, loading its notebook on
// first miss when a loader is installed.
func (r *Registry) ResolveURI(uri string) (*Cell, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cell, ok := r.byURI[uri]; ok {
		return cell, true
	}
	if r.loader == nil {
		return nil, false
	}

	notebookPath, _, err := ParseURI(uri)
	if err != nil || r.loadSeen[notebookPath] {
		return nil, false
	}
	r.loadSeen[notebookPath] = true

	cells, err := r.loader(notebookPath)
	if err != nil {
		return nil, false
	}
	for _, cell := range cells {
		r.byURI[cell.URI()] = cell
	}
	cell, ok := r.byURI[uri]
	return cell, ok
}

// ResolveCompiledPath finds the cell whose compiled text lives at path.
func (r *Registry) ResolveCompiledPath(path string) (*Cell, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cell, ok := r.byPath[path]
	return cell, ok
}

// SetCompiledPath records where a cell's compiled text was persisted.
func (r *Registry) SetCompiledPath(c *Cell, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPath[path] = c
}

// SetTable installs the mapping table for a cell, replacing any previous one.
// Tables are created when a cell is compiled and dropped with the cell.
func (r *Registry) SetTable(c *Cell, t *sourcemap.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[c] = t
}

// TableOf returns the current mapping table for a cell.
func (r *Registry) TableOf(c *Cell) (*sourcemap.Table, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[c]
	return t, ok
}

// TableForPath implements sourcemap.Provider: the path is interpreted in the
// coordinate space it arrived in, a cell URI toward the server and a compiled
// path toward the editor.
func (r *Registry) TableForPath(path string, dir sourcemap.Direction) (*sourcemap.Table, bool) {
	var cell *Cell
	var ok bool
	if dir == sourcemap.DirectionToEditor {
		cell, ok = r.ResolveCompiledPath(path)
	} else {
		cell, ok = r.ResolveURI(path)
	}
	if !ok {
		return nil, false
	}
	return r.TableOf(cell)
}
