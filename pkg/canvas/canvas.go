package canvas

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ckpd/flowcanvas/pkg/layout"
	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/registry"
	"github.com/google/uuid"
)

// Canvas is the owned, single-writer state container for one editing
// session. Every mutation validates its arguments before touching state, so
// a rejected operation leaves the graph exactly as it was.
type Canvas struct {
	logger   *slog.Logger
	registry *registry.Registry
	graph    *models.Graph
	selected string
}

// NewCanvas wraps a graph in a canvas. A nil graph starts an empty session.
func NewCanvas(logger *slog.Logger, reg *registry.Registry, graph *models.Graph) *Canvas {
	if graph == nil {
		graph = &models.Graph{
			Nodes: make([]*models.GraphNode, 0),
			Edges: make([]*models.Edge, 0),
			Extra: make(map[string]json.RawMessage),
		}
	}

	return &Canvas{
		logger:   logger,
		registry: reg,
		graph:    graph,
	}
}

// Graph returns the live graph for the renderer. Read-only by contract: the
// rendering layer writes back only through the canvas mutations.
func (c *Canvas) Graph() *models.Graph {
	return c.graph
}

// AddNode creates a node of a registered type with a generated unique id and
// default-initialized data. The first node added to an empty graph becomes
// the start node.
func (c *Canvas) AddNode(nodeType string) (*models.GraphNode, error) {
	data, err := c.registry.NewNodeData(nodeType)
	if err != nil {
		return nil, models.NewNodeError("AddNode", "", fmt.Errorf("%w: %v", models.ErrInvalidMutation, err))
	}

	node := &models.GraphNode{
		ID:      c.newNodeID(nodeType),
		Type:    nodeType,
		IsStart: len(c.graph.Nodes) == 0,
		Data:    data,
	}

	c.graph.Nodes = append(c.graph.Nodes, node)

	c.logger.Debug("Node added", "node_id", node.ID, "type", nodeType)

	return node, nil
}

// RenameNode changes a node id and rewrites every edge endpoint referencing
// the old id, atomically. The selection follows the rename.
func (c *Canvas) RenameNode(oldID, newID string) error {
	node := c.graph.NodeByID(oldID)
	if node == nil {
		return c.reject("RenameNode", oldID, "node %q does not exist", oldID)
	}

	if strings.TrimSpace(newID) == "" {
		return c.reject("RenameNode", oldID, "new id is empty")
	}

	if newID == oldID {
		return nil
	}

	if c.graph.HasNode(newID) {
		return c.reject("RenameNode", oldID, "node %q already exists", newID)
	}

	node.ID = newID

	for _, edge := range c.graph.Edges {
		if edge.Source == oldID {
			edge.Source = newID
		}

		if edge.Target == oldID {
			edge.Target = newID
		}
	}

	if c.selected == oldID {
		c.selected = newID
	}

	c.logger.Debug("Node renamed", "old_id", oldID, "new_id", newID)

	return nil
}

// DeleteNode removes a node and every edge touching it; no dangling edge
// survives a deletion. Deleting the start node re-elects the first remaining
// node.
func (c *Canvas) DeleteNode(id string) error {
	node := c.graph.NodeByID(id)
	if node == nil {
		return c.reject("DeleteNode", id, "node %q does not exist", id)
	}

	wasStart := node.IsStart

	nodes := c.graph.Nodes[:0]

	for _, candidate := range c.graph.Nodes {
		if candidate.ID != id {
			nodes = append(nodes, candidate)
		}
	}

	c.graph.Nodes = nodes

	edges := c.graph.Edges[:0]

	for _, edge := range c.graph.Edges {
		if edge.Source != id && edge.Target != id {
			edges = append(edges, edge)
		}
	}

	c.graph.Edges = edges

	if wasStart && len(c.graph.Nodes) > 0 {
		c.graph.Nodes[0].IsStart = true
	}

	if c.selected == id {
		c.selected = ""
	}

	c.logger.Debug("Node deleted", "node_id", id)

	return nil
}

// SetStart flags a node as the entry point. Exactly one node carries the
// flag afterwards.
func (c *Canvas) SetStart(id string) error {
	if !c.graph.HasNode(id) {
		return c.reject("SetStart", id, "node %q does not exist", id)
	}

	for _, node := range c.graph.Nodes {
		node.IsStart = node.ID == id
	}

	return nil
}

// Connect adds a default-label edge between two existing nodes.
func (c *Canvas) Connect(source, target string) (*models.Edge, error) {
	if !c.graph.HasNode(source) {
		return nil, c.reject("Connect", source, "source node %q does not exist", source)
	}

	if !c.graph.HasNode(target) {
		return nil, c.reject("Connect", target, "target node %q does not exist", target)
	}

	edge := &models.Edge{
		ID:     c.newEdgeID(),
		Source: source,
		Target: target,
	}

	c.graph.Edges = append(c.graph.Edges, edge)

	c.logger.Debug("Edge connected", "edge_id", edge.ID, "source", source, "target", target)

	return edge, nil
}

// RelabelEdge changes an edge's semantic label.
func (c *Canvas) RelabelEdge(id, label string) error {
	edge := c.graph.EdgeByID(id)
	if edge == nil {
		return c.reject("RelabelEdge", id, "edge %q does not exist", id)
	}

	edge.Label = label

	return nil
}

// DeleteEdge removes an edge.
func (c *Canvas) DeleteEdge(id string) error {
	if c.graph.EdgeByID(id) == nil {
		return c.reject("DeleteEdge", id, "edge %q does not exist", id)
	}

	edges := c.graph.Edges[:0]

	for _, edge := range c.graph.Edges {
		if edge.ID != id {
			edges = append(edges, edge)
		}
	}

	c.graph.Edges = edges

	return nil
}

// Select marks a node as the inspector's subject. An empty id clears the
// selection.
func (c *Canvas) Select(id string) error {
	if id != "" && !c.graph.HasNode(id) {
		return c.reject("Select", id, "node %q does not exist", id)
	}

	c.selected = id

	return nil
}

// Selected returns the selected node id, or empty.
func (c *Canvas) Selected() string {
	return c.selected
}

// UpdateNodeData applies an inspector edit to a node's data.
func (c *Canvas) UpdateNodeData(id string, apply func(data *models.NodeData)) error {
	node := c.graph.NodeByID(id)
	if node == nil {
		return c.reject("UpdateNodeData", id, "node %q does not exist", id)
	}

	apply(node.Data)

	return nil
}

// SetExtraJSON installs the raw JSON override blob for a node. Invalid JSON
// is rejected here, before it can poison a save.
func (c *Canvas) SetExtraJSON(id, raw string) error {
	node := c.graph.NodeByID(id)
	if node == nil {
		return c.reject("SetExtraJSON", id, "node %q does not exist", id)
	}

	if raw != "" {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return models.NewNodeError("SetExtraJSON", id,
				fmt.Errorf("%w: %v", models.ErrUnparsableFieldJSON, err))
		}
	}

	node.Data.ExtraJSON = raw

	return nil
}

// SetPosition moves a node on the canvas (drag support).
func (c *Canvas) SetPosition(id string, position models.Position) error {
	node := c.graph.NodeByID(id)
	if node == nil {
		return c.reject("SetPosition", id, "node %q does not exist", id)
	}

	node.Position = position

	return nil
}

// Relayout recomputes every node position from the current topology.
func (c *Canvas) Relayout(engine *layout.Engine) {
	ids := make([]string, 0, len(c.graph.Nodes))
	for _, node := range c.graph.Nodes {
		ids = append(ids, node.ID)
	}

	positions := engine.Compute(ids, c.graph.Edges)
	for _, node := range c.graph.Nodes {
		node.Position = positions[node.ID]
	}
}

func (c *Canvas) reject(op, id, format string, args ...any) error {
	reason := fmt.Sprintf(format, args...)

	c.logger.Debug("Mutation rejected", "op", op, "id", id, "reason", reason)

	return models.NewNodeError(op, id, fmt.Errorf("%w: %s", models.ErrInvalidMutation, reason))
}

func (c *Canvas) newNodeID(nodeType string) string {
	for {
		id := nodeType + "_" + uuid.NewString()[:8]
		if !c.graph.HasNode(id) {
			return id
		}
	}
}

func (c *Canvas) newEdgeID() string {
	for {
		id := "edge_" + uuid.NewString()[:8]
		if c.graph.EdgeByID(id) == nil {
			return id
		}
	}
}
