package notebook

import (
	"fmt"
	"net/url"
	"path/filepath"
	"sync"
)

// Scheme is the URI scheme for logical-unit identifiers. A cell URI has the
// form cell:<notebook-path>#<fragment>.
const Scheme = "cell"

// Cell is one editable unit of a notebook: the logical source the user sees,
// as opposed to the compiled text the debug adapter executes.
type Cell struct {
	NotebookPath string
	NotebookName string
	Fragment     string
	// Index is the cell's 0-based position within its notebook, -1 when
	// unknown.
	Index  int
	Source string

	mu     sync.Mutex
	closed bool
}

// URI returns the cell's canonical user-facing identifier.
func (c *Cell) URI() string {
	return fmt.Sprintf("%s:%s#%s", Scheme, c.NotebookPath, c.Fragment)
}

// Close marks the cell as no longer live. Inbound identity translation
// suppresses rewrites for closed cells.
func (c *Cell) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Cell) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// ParseURI splits a cell URI into notebook path and fragment. It fails for
// any other scheme or for strings that do not parse, in which case callers
// leave the original value untouched.
func ParseURI(raw string) (notebookPath, fragment string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != Scheme {
		return "", "", fmt.Errorf("not a %s URI: %q", Scheme, raw)
	}
	path := u.Opaque
	if path == "" {
		path = u.Path
	}
	if path == "" {
		return "", "", fmt.Errorf("cell URI %q has no notebook path", raw)
	}
	return path, u.Fragment, nil
}

// DisplayBase returns the human-readable notebook name for a path.
func DisplayBase(notebookPath string) string {
	return filepath.Base(notebookPath)
}
