package canvas

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/registry"
	"github.com/ckpd/flowcanvas/pkg/transitions"
)

// Exporter converts the current graph back into the document shape,
// reconstructing connection fields from outgoing edges and re-merging the
// passthrough fields the editor never touched.
type Exporter struct {
	logger   *slog.Logger
	registry *registry.Registry
}

func NewExporter(logger *slog.Logger, reg *registry.Registry) *Exporter {
	return &Exporter{
		logger:   logger,
		registry: reg,
	}
}

// Export builds the document for the current graph. Positions are cosmetic
// and not exported. For documents using only canonical labels and modeled
// fields, Export(Import(d)) is JSON-semantically equal to d.
func (e *Exporter) Export(graph *models.Graph) (*models.Document, error) {
	if graph == nil {
		return nil, models.NewDocumentError("Export", "", fmt.Errorf("%w: no graph", models.ErrMalformedDocument))
	}

	doc := &models.Document{
		Nodes: make(map[string]*models.Node, len(graph.Nodes)),
		Extra: make(map[string]json.RawMessage, len(graph.Extra)),
	}

	for key, raw := range graph.Extra {
		doc.Extra[key] = raw
	}

	if start := graph.StartNode(); start != nil {
		doc.StartNode = start.ID
	}

	for _, graphNode := range graph.Nodes {
		node, err := e.exportNode(graph, graphNode)
		if err != nil {
			return nil, models.NewNodeError("Export", graphNode.ID, err)
		}

		doc.Nodes[graphNode.ID] = node
		doc.Order = append(doc.Order, graphNode.ID)
	}

	return doc, nil
}

func (e *Exporter) exportNode(graph *models.Graph, graphNode *models.GraphNode) (*models.Node, error) {
	node := &models.Node{
		Type:        graphNode.Type,
		Connections: make(map[string]string),
		Rest:        make(map[string]json.RawMessage, len(graphNode.Data.Extra)),
	}

	// Passthrough first, then the edited fields overlay it.
	for key, raw := range graphNode.Data.Extra {
		node.Rest[key] = raw
	}

	for _, key := range e.registry.OwnedKeys(graphNode.Type) {
		if raw, ok := graphNode.Data.DocumentField(key); ok {
			node.Rest[key] = raw
		}
	}

	e.exportEdges(graph, graphNode, node)

	if graphNode.Data.ExtraJSON != "" {
		if err := applyOverride(node, graphNode.Data.ExtraJSON); err != nil {
			// The canvas rejects invalid override JSON up front, so this is
			// a programming error upstream, not a lost save.
			e.logger.Warn("Skipping unparsable extra-fields override",
				"node_id", graphNode.ID, "error", err)
		}
	}

	return node, nil
}

// exportEdges reconstructs connection fields from the node's outgoing edges
// in edge-creation order; branch: and rule: labels collect into their arrays
// in that order.
func (e *Exporter) exportEdges(graph *models.Graph, graphNode *models.GraphNode, node *models.Node) {
	for _, edge := range graph.OutgoingEdges(graphNode.ID) {
		switch {
		case transitions.IsBranchLabel(edge.Label):
			name, _ := transitions.BranchName(edge.Label)
			node.Branches = append(node.Branches, models.Branch{Name: name, EntryNode: edge.Target})
		case transitions.IsRuleLabel(edge.Label):
			condition, _ := transitions.RuleCondition(edge.Label)
			node.Rules = append(node.Rules, models.Rule{Condition: condition, NextNode: edge.Target})
		case edge.Label == transitions.LabelError:
			node.Connections[transitions.ErrorKey(graphNode.Data.HasRetryPolicy())] = edge.Target
		default:
			if key, ok := transitions.KeyFor(edge.Label); ok {
				node.Connections[key] = edge.Target

				continue
			}

			// Custom labels keep their target under the passthrough key
			// rather than being dropped.
			if node.CustomEdges == nil {
				node.CustomEdges = make(map[string]string)
			}

			node.CustomEdges[edge.Label] = edge.Target
		}
	}
}

// applyOverride merges the inspector's raw JSON override blob last, so it
// can override anything the export computed, connection fields included.
func applyOverride(node *models.Node, override string) error {
	var fields map[string]json.RawMessage

	err := json.Unmarshal([]byte(override), &fields)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUnparsableFieldJSON, err)
	}

	for key, raw := range fields {
		switch {
		case key == "type":
			var nodeType string
			if err := json.Unmarshal(raw, &nodeType); err == nil && nodeType != "" {
				node.Type = nodeType
			} else {
				node.Rest[key] = raw
			}
		case transitions.IsScalarKey(key):
			var target string
			if err := json.Unmarshal(raw, &target); err == nil && target != "" {
				node.Connections[key] = target
			} else {
				delete(node.Connections, key)
				node.Rest[key] = raw
			}
		default:
			node.Rest[key] = raw
		}
	}

	return nil
}
