package notebook

import (
	"errors"
	"testing"

	"github.com/ivywell/nbdap/internal/sourcemap"
)

func TestRegistryResolveURI(t *testing.T) {
	registry := NewRegistry()
	cell := &Cell{NotebookPath: "nb.py", Fragment: "0"}
	registry.Add(cell)

	got, ok := registry.ResolveURI(cell.URI())
	if !ok || got != cell {
		t.Fatalf("ResolveURI = %v ok=%v", got, ok)
	}
	if _, ok := registry.ResolveURI("cell:other.py#0"); ok {
		t.Fatal("unexpected hit for unknown URI")
	}
}

func TestRegistryLazyLoaderRunsOncePerNotebook(t *testing.T) {
	calls := 0
	registry := NewRegistry()
	registry.SetLoader(func(notebookPath string) ([]*Cell, error) {
		calls++
		return []*Cell{
			{NotebookPath: notebookPath, Fragment: "0", Index: 0, Source: "x = 1"},
			{NotebookPath: notebookPath, Fragment: "1", Index: 1, Source: "x + 1"},
		}, nil
	})

	if _, ok := registry.ResolveURI("cell:nb.py#1"); !ok {
		t.Fatal("expected loader to supply the cell")
	}
	if _, ok := registry.ResolveURI("cell:nb.py#0"); !ok {
		t.Fatal("expected sibling cell to be registered")
	}
	if _, ok := registry.ResolveURI("cell:nb.py#9"); ok {
		t.Fatal("unexpected hit for out-of-range fragment")
	}
	if calls != 1 {
		t.Fatalf("loader ran %d times, want 1", calls)
	}
}

func TestRegistryLoaderFailureNotRetried(t *testing.T) {
	calls := 0
	registry := NewRegistry()
	registry.SetLoader(func(string) ([]*Cell, error) {
		calls++
		return nil, errors.New("boom")
	})

	if _, ok := registry.ResolveURI("cell:nb.py#0"); ok {
		t.Fatal("expected miss on loader failure")
	}
	if _, ok := registry.ResolveURI("cell:nb.py#0"); ok {
		t.Fatal("expected miss on second resolve")
	}
	if calls != 1 {
		t.Fatalf("loader ran %d times, want 1", calls)
	}
}

func TestRegistryRemovePurgesAliasesAndTable(t *testing.T) {
	registry := NewRegistry()
	cell := &Cell{NotebookPath: "nb.py", Fragment: "0"}
	registry.Add(cell)
	registry.SetCompiledPath(cell, "/tmp/cell-0.gen.py")
	registry.SetTable(cell, sourcemap.NewTable())

	registry.Remove(cell.URI())

	if _, ok := registry.ResolveURI(cell.URI()); ok {
		t.Fatal("URI still resolves after Remove")
	}
	if _, ok := registry.ResolveCompiledPath("/tmp/cell-0.gen.py"); ok {
		t.Fatal("compiled path still resolves after Remove")
	}
	if _, ok := registry.TableOf(cell); ok {
		t.Fatal("table survived Remove")
	}
	if cell.Live() {
		t.Fatal("removed cell should be closed")
	}
}

func TestRegistryRemoveAll(t *testing.T) {
	registry := NewRegistry()
	a := &Cell{NotebookPath: "a.py", Fragment: "0"}
	b := &Cell{NotebookPath: "b.py", Fragment: "0"}
	registry.Add(a)
	registry.Add(b)
	registry.SetCompiledPath(a, "/tmp/a.gen.py")

	registry.RemoveAll()

	if _, ok := registry.ResolveURI(a.URI()); ok {
		t.Fatal("cell a survived RemoveAll")
	}
	if _, ok := registry.ResolveURI(b.URI()); ok {
		t.Fatal("cell b survived RemoveAll")
	}
	if a.Live() || b.Live() {
		t.Fatal("cells should be closed after RemoveAll")
	}
}

func TestTableForPathIsDirectional(t *testing.T) {
	registry := NewRegistry()
	cell := &Cell{NotebookPath: "nb.py", Fragment: "0"}
	registry.Add(cell)
	registry.SetCompiledPath(cell, "/tmp/cell-0.gen.py")
	table := sourcemap.NewTable()
	registry.SetTable(cell, table)

	got, ok := registry.TableForPath(cell.URI(), sourcemap.DirectionToServer)
	if !ok || got != table {
		t.Fatal("expected table via cell URI toward the server")
	}
	got, ok = registry.TableForPath("/tmp/cell-0.gen.py", sourcemap.DirectionToEditor)
	if !ok || got != table {
		t.Fatal("expected table via compiled path toward the editor")
	}

	// The wrong key space for the direction must miss.
	if _, ok := registry.TableForPath("/tmp/cell-0.gen.py", sourcemap.DirectionToServer); ok {
		t.Fatal("compiled path must not resolve toward the server")
	}
}
