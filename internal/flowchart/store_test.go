package flowchart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triagemd/pkg"
)

const coughYAML = `name: Cough Flowchart
entry: N1
nodes:
  N1: Do you have a fever above 38C?
  N2: Is the cough bringing up phlegm?
  I1: Rest, drink fluids and see a doctor if symptoms persist.
  F3: Continue with the Chest Pain Flowchart.
edges:
  N1: [N2, I1]
  N2: [I1, F3]
`

func writeChart(t *testing.T, dir, slug, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, slug+".yaml"), []byte(content), 0o644))
}

func TestStoreLoad(t *testing.T) {
	dir := t.TempDir()
	writeChart(t, dir, "cough-flowchart", coughYAML)
	store := NewStore(dir)

	chart, graph, err := store.Load("Cough Flowchart")
	require.NoError(t, err)

	assert.Equal(t, "Cough Flowchart", chart.Name)
	assert.Equal(t, "N1", chart.Entry)
	require.Len(t, chart.Nodes, 4)
	assert.Equal(t, pkg.KindQuestion, chart.Nodes["N1"].Kind)
	assert.Equal(t, pkg.KindInfo, chart.Nodes["I1"].Kind)
	assert.Equal(t, pkg.KindSwitch, chart.Nodes["F3"].Kind)
	assert.Equal(t, []string{"N2", "I1"}, graph["N1"])
	assert.Equal(t, []string{"I1", "F3"}, graph["N2"])
}

func TestStoreLoadCaches(t *testing.T) {
	dir := t.TempDir()
	writeChart(t, dir, "cough-flowchart", coughYAML)
	store := NewStore(dir)

	first, _, err := store.Load("Cough Flowchart")
	require.NoError(t, err)
	// The file is gone, but the immutable chart stays served from cache.
	require.NoError(t, os.Remove(filepath.Join(dir, "cough-flowchart.yaml")))
	second, _, err := store.Load("Cough Flowchart")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestStoreLoadMissingIsNotFound(t *testing.T) {
	store := NewStore(t.TempDir())
	_, _, err := store.Load("Nonexistent Flowchart")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "edge targets unknown node",
			yaml: "nodes:\n  N1: q\nedges:\n  N1: [N9]\n",
		},
		{
			name: "question node without edges",
			yaml: "nodes:\n  N1: q\n  N2: q2\n  I1: info\nedges:\n  N1: [I1]\n",
		},
		{
			name: "unknown kind prefix",
			yaml: "nodes:\n  N1: q\n  X2: what\nedges:\n  N1: [X2]\n",
		},
		{
			name: "terminal node with outgoing edges",
			yaml: "nodes:\n  N1: q\n  I1: info\nedges:\n  N1: [I1]\n  I1: [N1]\n",
		},
		{
			name: "missing entry node",
			yaml: "entry: N5\nnodes:\n  N1: q\n  I1: info\nedges:\n  N1: [I1]\n",
		},
		{
			name: "no nodes",
			yaml: "nodes: {}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeChart(t, dir, "bad-flowchart", tt.yaml)
			_, _, err := NewStore(dir).Load("Bad Flowchart")
			assert.Error(t, err)
		})
	}
}

func TestStoreLoadQuestionWithoutEdges(t *testing.T) {
	dir := t.TempDir()
	writeChart(t, dir, "dangling-flowchart", "nodes:\n  N1: q\n")
	_, _, err := NewStore(dir).Load("Dangling Flowchart")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no outgoing edges")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "cough-flowchart", Slugify("Cough Flowchart"))
	assert.Equal(t, "pelvic-pain-in-women-nested-flowchart", Slugify("Pelvic Pain In Women Nested Flowchart"))
	assert.Equal(t, "abdominal-pain-adults", Slugify("  Abdominal Pain (Adults)! "))
}

func TestNestedVariant(t *testing.T) {
	assert.True(t, IsNested("Confusion In Older People Flowchart"))
	assert.Equal(t, "Confusion In Older People Nested Flowchart", NestedVariant("Confusion In Older People Flowchart"))
	assert.False(t, IsNested("Cough Flowchart"))
	assert.Equal(t, "Cough Flowchart", NestedVariant("Cough Flowchart"))
}
