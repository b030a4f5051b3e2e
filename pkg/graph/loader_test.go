package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kursio/weft/pkg/domain"
)

func TestParseJSON(t *testing.T) {
	raw := []byte(`{
		"nodes": [
			{"id": "s1", "kind": "start"},
			{"id": "p1", "kind": "prompt", "attrs": {"promptText": "Hazır mısın?", "purpose": "confirm readiness"}}
		],
		"edges": [
			{"source": "s1", "target": "p1"},
			{"source": "p1", "target": "ghost", "label": "yes"}
		]
	}`)

	g, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 2)

	p1 := g.FindNode("p1")
	require.NotNil(t, p1)
	assert.Equal(t, domain.KindPrompt, p1.Kind)
	assert.Equal(t, "Hazır mısın?", p1.Attr(domain.AttrPromptText))

	// Edge to a missing node survives parsing but is dropped on traversal.
	assert.Empty(t, g.Outgoing("p1"))
}

func TestParseYAML(t *testing.T) {
	raw := []byte(`
nodes:
  - id: s1
    kind: start
  - id: c1
    kind: content
    attrs:
      contentId: overview
edges:
  - source: s1
    target: c1
`)
	g, err := Parse(raw)
	require.NoError(t, err)
	require.NotNil(t, g.EntryNode())

	conns := g.Outgoing("s1")
	require.Len(t, conns, 1)
	assert.Equal(t, "overview", conns[0].Target.Attr(domain.AttrContentID))
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"malformed json", `{"nodes": [}`},
		{"no collections", `{"title": "not a graph"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			var formatErr *domain.GraphFormatError
			require.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodes:\n  - id: s1\n    kind: start\nedges: []\n"), 0o644))

	g, err := LoadFile(path)
	require.NoError(t, err)
	assert.NotNil(t, g.EntryNode())

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("intro", domain.NewGraph([]domain.Node{{ID: "s1", Kind: domain.KindStart}}, nil))

	g, err := r.Graph("intro")
	require.NoError(t, err)
	assert.NotNil(t, g.EntryNode())

	_, err = r.Graph("missing")
	require.Error(t, err)

	names, err := r.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"intro"}, names)
}
