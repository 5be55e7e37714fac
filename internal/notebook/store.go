package notebook

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Store persists compiled cell text to a scratch directory the debug adapter
// can read from, and remembers the path per cell so repeated requests are
// stable within one bridge instance.
type Store struct {
	registry *Registry
	dir      string

	mu    sync.Mutex
	paths map[*Cell]string
}

// NewStore creates a per-instance scratch directory under baseDir (or the
// system temp directory when baseDir is empty).
func NewStore(registry *Registry, baseDir string) (*Store, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	dir := filepath.Join(baseDir, "nbdap-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Store{
		registry: registry,
		dir:      dir,
		paths:    map[*Cell]string{},
	}, nil
}

// Dir returns the store's scratch directory.
func (s *Store) Dir() string {
	return s.dir
}

// EnsureCompiled writes the cell's compiled text if it has not been written
// yet, registers the mapping table and compiled-path alias, and returns the
// debugger-readable path.
func (s *Store) EnsureCompiled(c *Cell) (string, error) {
	s.mu.Lock()
	if path, ok := s.paths[c]; ok {
		s.mu.Unlock()
		return path, nil
	}
	s.mu.Unlock()

	text, table := Compile(c)
	name := fmt.Sprintf("cell-%s.gen.py", sanitizeFragment(c.Fragment))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write compiled cell: %w", err)
	}

	s.mu.Lock()
	s.paths[c] = path
	s.mu.Unlock()

	s.registry.SetCompiledPath(c, path)
	s.registry.SetTable(c, table)
	return path, nil
}

// Close removes the scratch directory and everything in it.
func (s *Store) Close() error {
	return os.RemoveAll(s.dir)
}

func sanitizeFragment(fragment string) string {
	if fragment == "" {
		return "unnamed"
	}
	safe := make([]rune, 0, len(fragment))
	for _, r := range fragment {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			safe = append(safe, r)
		default:
			safe = append(safe, '-')
		}
	}
	return string(safe)
}
