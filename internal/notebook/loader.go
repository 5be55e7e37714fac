package notebook

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const percentMarker = "# %%"

// LoadPercent reads a percent-format script (the jupytext convention: cells
// separated by "# %%" marker lines) and returns its cells in order. Fragments
// are the 0-based cell ordinals, so the URI of the second cell of nb.py is
// cell:nb.py#1.
func LoadPercent(path string) ([]*Cell, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notebook: %w", err)
	}

	name := DisplayBase(path)
	var cells []*Cell
	var current []string
	flush := func() {
		source := strings.Join(current, "\n")
		current = nil
		if strings.TrimSpace(source) == "" {
			return
		}
		index := len(cells)
		cells = append(cells, &Cell{
			NotebookPath: path,
			NotebookName: name,
			Fragment:     strconv.Itoa(index),
			Index:        index,
			Source:       source,
		})
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), percentMarker) {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	if len(cells) == 0 {
		return nil, fmt.Errorf("notebook %s has no cells", path)
	}
	return cells, nil
}
