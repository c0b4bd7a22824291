// Package canvas hosts the editor core: document import, the mutable graph
// state, lint, and document export.
package canvas

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ckpd/flowcanvas/pkg/layout"
	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/registry"
	"github.com/ckpd/flowcanvas/pkg/transitions"
)

// Importer converts a document into the graph projection and lays it out.
type Importer struct {
	logger   *slog.Logger
	registry *registry.Registry
	layout   *layout.Engine
}

// NewImporter creates an importer over a variant registry and layout engine.
func NewImporter(logger *slog.Logger, reg *registry.Registry, engine *layout.Engine) *Importer {
	return &Importer{
		logger:   logger,
		registry: reg,
		layout:   engine,
	}
}

// Import builds the graph for a parsed document. Import is total: any
// document the codec accepted converts, unknown node types and dangling
// connection targets included. Dangling targets still materialize as edges;
// lint and the UI flag them.
func (i *Importer) Import(doc *models.Document) (*models.Graph, error) {
	if doc == nil {
		return nil, models.NewDocumentError("Import", "", fmt.Errorf("%w: no document", models.ErrMalformedDocument))
	}

	graph := &models.Graph{
		Nodes: make([]*models.GraphNode, 0, len(doc.Nodes)),
		Edges: make([]*models.Edge, 0),
		Extra: make(map[string]json.RawMessage, len(doc.Extra)),
	}

	for key, raw := range doc.Extra {
		graph.Extra[key] = raw
	}

	order := doc.NodeOrder()

	startKnown := false

	for _, id := range order {
		if id == doc.StartNode {
			startKnown = true

			break
		}
	}

	for idx, id := range order {
		node := doc.Nodes[id]

		graph.Nodes = append(graph.Nodes, &models.GraphNode{
			ID:      id,
			Type:    node.Type,
			IsStart: id == doc.StartNode || (!startKnown && idx == 0),
			Data:    i.importData(node),
		})
	}

	for _, id := range order {
		i.importEdges(graph, id, doc.Nodes[id])
	}

	ids := make([]string, len(order))
	copy(ids, order)

	positions := i.layout.Compute(ids, graph.Edges)
	for _, node := range graph.Nodes {
		node.Position = positions[node.ID]
	}

	return graph, nil
}

// importData fills the typed field set from the keys the variant owns;
// everything else, and any owned key whose value does not fit its slot,
// stays verbatim in the passthrough bag.
func (i *Importer) importData(node *models.Node) *models.NodeData {
	data := models.NewNodeData()

	owned := make(map[string]bool)
	for _, key := range i.registry.OwnedKeys(node.Type) {
		owned[key] = true
	}

	for key, raw := range node.Rest {
		if owned[key] && data.SetDocumentField(key, raw) {
			continue
		}

		data.Extra[key] = raw
	}

	return data
}

// importEdges derives edges from the node's connection fields: scalar keys
// in canonical order, then branches, rules and custom labels, so the edge
// list is deterministic for a given document.
func (i *Importer) importEdges(graph *models.Graph, id string, node *models.Node) {
	for _, key := range transitions.ScalarKeys() {
		target, ok := node.Connections[key]
		if !ok {
			continue
		}

		label, _ := transitions.LabelFor(key)
		i.appendEdge(graph, id, target, label)
	}

	for _, branch := range node.Branches {
		i.appendEdge(graph, id, branch.EntryNode, transitions.BranchLabel(branch.Name))
	}

	for _, rule := range node.Rules {
		i.appendEdge(graph, id, rule.NextNode, transitions.RuleLabel(rule.Condition))
	}

	for _, label := range sortedKeys(node.CustomEdges) {
		i.appendEdge(graph, id, node.CustomEdges[label], label)
	}
}

func sortedKeys(entries map[string]string) []string {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func (i *Importer) appendEdge(graph *models.Graph, source, target, label string) {
	if !graph.HasNode(target) {
		i.logger.Debug("Connection target does not exist",
			"source", source, "target", target, "label", label)
	}

	graph.Edges = append(graph.Edges, &models.Edge{
		ID:     fmt.Sprintf("edge_%03d", len(graph.Edges)+1),
		Source: source,
		Target: target,
		Label:  label,
	})
}
