package domain

import "strings"

// Graph is the immutable authored flow definition. It is safe for concurrent
// reads and is shared across sessions.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`

	byID map[string]int
}

// NewGraph builds a graph with its node index. When two nodes share an id,
// the first declaration wins.
func NewGraph(nodes []Node, edges []Edge) *Graph {
	g := &Graph{Nodes: nodes, Edges: edges}
	g.buildIndex()
	return g
}

func (g *Graph) buildIndex() {
	g.byID = make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, seen := g.byID[n.ID]; !seen {
			g.byID[n.ID] = i
		}
	}
}

// FindNode returns the node with the given id, or nil.
func (g *Graph) FindNode(id string) *Node {
	if g.byID == nil {
		g.buildIndex()
	}
	i, ok := g.byID[id]
	if !ok {
		return nil
	}
	return &g.Nodes[i]
}

// EntryNode returns the first start-kind node in declaration order, or nil.
func (g *Graph) EntryNode() *Node {
	for i := range g.Nodes {
		if g.Nodes[i].Kind == KindStart {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Connection is an outgoing edge resolved to its target node.
type Connection struct {
	Target *Node
	Label  string
}

// Outgoing returns the connections leaving nodeID in edge declaration order.
// Edges whose target is missing from the node set are silently dropped.
func (g *Graph) Outgoing(nodeID string) []Connection {
	var conns []Connection
	for _, e := range g.Edges {
		if e.Source != nodeID {
			continue
		}
		target := g.FindNode(e.Target)
		if target == nil {
			continue
		}
		conns = append(conns, Connection{Target: target, Label: e.Label})
	}
	return conns
}

// ResolveByCondition picks the next node from nodeID's outgoing edges.
//
// When condition is non-empty, each edge label is compared case-insensitively
// against the condition text, additionally resolving through the synonym
// table (e.g. "ready"≈"hazır", "yes"≈"evet"). The first matching edge wins.
// Without a condition, or when nothing matches, the first outgoing edge is
// the fallback. Returns nil only when the node has no outgoing edges.
func (g *Graph) ResolveByCondition(nodeID, condition string, synonyms SynonymTable) *Node {
	conns := g.Outgoing(nodeID)
	if len(conns) == 0 {
		return nil
	}

	if condition != "" {
		cond := strings.ToLower(strings.TrimSpace(condition))
		for _, c := range conns {
			if c.Label == "" {
				continue
			}
			if labelMatches(c.Label, cond, synonyms) {
				return c.Target
			}
		}
	}

	return conns[0].Target
}

// labelMatches reports whether the lowercased condition text matches the edge
// label, either verbatim or through the label's synonym group.
func labelMatches(label, cond string, synonyms SynonymTable) bool {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return false
	}
	if cond == l || containsWord(cond, l) {
		return true
	}
	if intent, ok := synonyms.IntentOf(l); ok {
		return synonyms.TextHasIntent(cond, intent)
	}
	return false
}
