package models

import "encoding/json"

// Position is a node's placement on the canvas. Positions are cosmetic: they
// are excluded from document equality and recomputed by layout.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge is a directed connection between two nodes. Label is the semantic
// transition kind; the empty label is the default "next" transition.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Label  string `json:"label"`
}

// GraphNode is the editable projection of a document node.
type GraphNode struct {
	ID       string    `json:"id"       validate:"required"`
	Type     string    `json:"type"     validate:"required"`
	Position Position  `json:"position"`
	IsStart  bool      `json:"is_start"`
	Data     *NodeData `json:"data"`
}

// Graph is the in-memory projection the editor manipulates and the renderer
// reads. Mutations go through the canvas, never through direct field writes.
type Graph struct {
	Nodes []*GraphNode `json:"nodes"`
	Edges []*Edge      `json:"edges"`

	// Extra carries the document's unknown top-level fields verbatim so an
	// edit-save cycle re-emits them untouched.
	Extra map[string]json.RawMessage `json:"extra,omitempty"`
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *GraphNode {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	return g.NodeByID(id) != nil
}

// EdgeByID returns the edge with the given id, or nil.
func (g *Graph) EdgeByID(id string) *Edge {
	for _, edge := range g.Edges {
		if edge.ID == id {
			return edge
		}
	}

	return nil
}

// StartNode returns the node flagged as start, falling back to the first
// node when none is flagged. Returns nil for an empty graph.
func (g *Graph) StartNode() *GraphNode {
	for _, node := range g.Nodes {
		if node.IsStart {
			return node
		}
	}

	if len(g.Nodes) > 0 {
		return g.Nodes[0]
	}

	return nil
}

// OutgoingEdges returns the edges leaving a node, in graph order.
func (g *Graph) OutgoingEdges(id string) []*Edge {
	edges := make([]*Edge, 0)

	for _, edge := range g.Edges {
		if edge.Source == id {
			edges = append(edges, edge)
		}
	}

	return edges
}
