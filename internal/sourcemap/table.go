package sourcemap

import (
	"strconv"
	"sync"
)

// Direction indicates which way a message is flowing across the bridge and
// therefore which half of a mapping table applies.
type Direction int

const (
	// DirectionToServer is editing surface → debug adapter: cell coordinates
	// are translated into generated-file coordinates.
	DirectionToServer Direction = iota
	// DirectionToEditor is debug adapter → editing surface: generated-file
	// coordinates are translated back into cell coordinates.
	DirectionToEditor
)

func (d Direction) String() string {
	if d == DirectionToEditor {
		return "to-editor"
	}
	return "to-server"
}

// Position is a line/column pair in one coordinate space.
type Position struct {
	Line   int
	Column int
}

// Entry is one correspondence between a cell position and the position its
// text landed at in the compiled output.
type Entry struct {
	Original  Position
	Generated Position
}

// Table is the bidirectional line/column mapping for one cell, plus a memo
// cache for repeated lookups. The directional maps are fixed after building;
// only the cache is mutated afterwards, and clearing it never changes lookup
// results, only their cost.
type Table struct {
	origToGen map[int]map[int]*Entry
	genToOrig map[int]map[int]*Entry

	mu    sync.Mutex
	cache map[string]Position
}

func NewTable() *Table {
	return &Table{
		origToGen: map[int]map[int]*Entry{},
		genToOrig: map[int]map[int]*Entry{},
		cache:     map[string]Position{},
	}
}

// Add registers one mapping entry in both directional maps.
func (t *Table) Add(e Entry) {
	entry := &e
	addEntry(t.origToGen, entry.Original, entry)
	addEntry(t.genToOrig, entry.Generated, entry)
}

func addEntry(m map[int]map[int]*Entry, at Position, entry *Entry) {
	cols, ok := m[at.Line]
	if !ok {
		cols = map[int]*Entry{}
		m[at.Line] = cols
	}
	cols[at.Column] = entry
}

// Lookup resolves a position through the directional map for dir, consulting
// and filling the memo cache. hasColumn distinguishes "column 0" from "no
// column given". The second return is false when the table has no entry for
// the line, which callers treat as "no mapping known", not an error.
//
// Tie-break when no exact column entry exists: the entry at column 0 if
// present, otherwise the entry at the lowest known column. Debug clients
// often ask for positions between mapping anchors; snapping to the start of
// the logical line beats failing the lookup.
func (t *Table) Lookup(dir Direction, line, column int, hasColumn bool) (Position, bool) {
	key := cacheKey(dir, line, column, hasColumn)

	t.mu.Lock()
	defer t.mu.Unlock()
	if pos, ok := t.cache[key]; ok {
		return pos, true
	}

	lines := t.origToGen
	if dir == DirectionToEditor {
		lines = t.genToOrig
	}
	cols, ok := lines[line]
	if !ok || len(cols) == 0 {
		return Position{}, false
	}

	entry := pickEntry(cols, column, hasColumn)
	pos := entry.Generated
	if dir == DirectionToEditor {
		pos = entry.Original
	}
	t.cache[key] = pos
	return pos, true
}

func pickEntry(cols map[int]*Entry, column int, hasColumn bool) *Entry {
	if hasColumn {
		if entry, ok := cols[column]; ok {
			return entry
		}
	}
	if entry, ok := cols[0]; ok {
		return entry
	}
	lowest := -1
	for col := range cols {
		if lowest < 0 || col < lowest {
			lowest = col
		}
	}
	return cols[lowest]
}

// ClearCache drops all memoized lookups.
func (t *Table) ClearCache() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache = map[string]Position{}
}

// The key carries the direction: the two directional maps answer differently
// for the same coordinates, so a shared key space would serve stale results.
func cacheKey(dir Direction, line, column int, hasColumn bool) string {
	col := ""
	if hasColumn {
		col = strconv.Itoa(column)
	}
	return dir.String() + ":" + strconv.Itoa(line) + "," + col
}
