package notebook

import (
	"fmt"
	"strings"

	"github.com/ivywell/nbdap/internal/sourcemap"
)

// The compiled text the debug adapter sees is the cell source behind a short
// preamble, so every cell line shifts down by a fixed offset with columns
// preserved.
const preambleLines = 2

// Compile produces a cell's debugger-facing text and the line/column mapping
// between the two. The bridge core never depends on how the table is built;
// this is the reference compile step used by the standalone binary.
func Compile(c *Cell) (string, *sourcemap.Table) {
	var b strings.Builder
	fmt.Fprintf(&b, "# compiled from %s (cell %s)\n\n", c.NotebookPath, c.Fragment)
	source := c.Source
	b.WriteString(source)
	if source != "" && !strings.HasSuffix(source, "\n") {
		b.WriteString("\n")
	}

	table := sourcemap.NewTable()
	lineCount := strings.Count(source, "\n")
	if source != "" && !strings.HasSuffix(source, "\n") {
		lineCount++
	}
	for line := 1; line <= lineCount; line++ {
		table.Add(sourcemap.Entry{
			Original:  sourcemap.Position{Line: line, Column: 0},
			Generated: sourcemap.Position{Line: line + preambleLines, Column: 0},
		})
	}
	return b.String(), table
}
