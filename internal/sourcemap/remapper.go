package sourcemap

import "github.com/ivywell/nbdap/internal/support/decode"

// Provider resolves a source path, as it appeared in a message, to the
// mapping table of the cell it stands for. The path is a cell URI when the
// message flows toward the server and a compiled file path when it flows
// toward the editor.
type Provider interface {
	TableForPath(path string, dir Direction) (*Table, bool)
}

// Remapper rewrites line/column pairs inside decoded message objects.
type Remapper struct {
	provider Provider
}

func NewRemapper(provider Provider) *Remapper {
	return &Remapper{provider: provider}
}

// Remap translates each location object's "line"/"column" fields in place and
// returns how many were changed. It is a no-op when the source path does not
// resolve to a cell with a mapping table, when a location has no numeric
// line, or when the table has no entry for a line.
func (r *Remapper) Remap(locations []map[string]any, sourcePath string, dir Direction) int {
	if len(locations) == 0 || sourcePath == "" {
		return 0
	}
	table, ok := r.provider.TableForPath(sourcePath, dir)
	if !ok || table == nil {
		return 0
	}

	changed := 0
	for _, loc := range locations {
		if loc == nil {
			continue
		}
		line, ok := decode.IntFromMap(loc, "line")
		if !ok {
			continue
		}
		column, hasColumn := decode.IntFromMap(loc, "column")

		pos, ok := table.Lookup(dir, line, column, hasColumn)
		if !ok {
			continue
		}
		loc["line"] = pos.Line
		loc["column"] = pos.Column
		changed++
	}
	return changed
}
