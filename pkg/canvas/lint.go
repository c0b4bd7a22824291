package canvas

import (
	"encoding/json"
	"fmt"

	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/registry"
	"github.com/ckpd/flowcanvas/pkg/transitions"
)

// Diagnostic severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Diagnostic codes.
const (
	CodeDanglingReference   = "dangling_reference"
	CodeUnknownType         = "unknown_type"
	CodeUnparsableFieldJSON = "unparsable_field_json"
	CodeNoStartNode         = "no_start_node"
	CodeDuplicateTransition = "duplicate_transition"
)

// Diagnostic is one lint finding, addressed to the UI.
type Diagnostic struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	NodeID   string `json:"node_id,omitempty"`
	Field    string `json:"field,omitempty"`
}

// Lint reports the recoverable problems import deliberately lets through:
// dangling references, unknown node types, unparsable JSON fields, and edge
// shapes the exporter would collapse.
func Lint(graph *models.Graph, reg *registry.Registry) []Diagnostic {
	diagnostics := make([]Diagnostic, 0)

	for _, node := range graph.Nodes {
		if !reg.IsKnown(node.Type) {
			diagnostics = append(diagnostics, Diagnostic{
				Code:     CodeUnknownType,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("node type %q is not registered; fields pass through unedited", node.Type),
				NodeID:   node.ID,
			})
		}

		if node.Data.InputMapping != "" && !json.Valid([]byte(node.Data.InputMapping)) {
			diagnostics = append(diagnostics, Diagnostic{
				Code:     CodeUnparsableFieldJSON,
				Severity: SeverityWarning,
				Message:  "input_mapping is not valid JSON; it will be saved as a raw string",
				NodeID:   node.ID,
				Field:    "input_mapping",
			})
		}

		if node.Data.ExtraJSON != "" && !json.Valid([]byte(node.Data.ExtraJSON)) {
			diagnostics = append(diagnostics, Diagnostic{
				Code:     CodeUnparsableFieldJSON,
				Severity: SeverityWarning,
				Message:  "extra fields override is not valid JSON and will be ignored on save",
				NodeID:   node.ID,
				Field:    "extra_json",
			})
		}
	}

	for _, edge := range graph.Edges {
		if !graph.HasNode(edge.Target) {
			diagnostics = append(diagnostics, Diagnostic{
				Code:     CodeDanglingReference,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("edge %q points at missing node %q", edge.ID, edge.Target),
				NodeID:   edge.Source,
			})
		}
	}

	// Two same-label scalar edges from one node cannot both export; the last
	// one wins. Surface it before the user saves.
	seen := make(map[string]string)

	for _, edge := range graph.Edges {
		// branch:/rule: labels are list-valued; duplicates are fine.
		if transitions.IsBranchLabel(edge.Label) || transitions.IsRuleLabel(edge.Label) {
			continue
		}

		key := edge.Source + "\x00" + edge.Label

		if previous, dup := seen[key]; dup {
			diagnostics = append(diagnostics, Diagnostic{
				Code:     CodeDuplicateTransition,
				Severity: SeverityError,
				Message: fmt.Sprintf("node has multiple %q transitions (%s, %s); only one can be saved",
					edge.Label, previous, edge.ID),
				NodeID: edge.Source,
			})
		}

		seen[key] = edge.ID
	}

	flagged := false

	for _, node := range graph.Nodes {
		if node.IsStart {
			flagged = true

			break
		}
	}

	if len(graph.Nodes) > 0 && !flagged {
		diagnostics = append(diagnostics, Diagnostic{
			Code:     CodeNoStartNode,
			Severity: SeverityWarning,
			Message:  "no start node flagged; the first node will be used",
		})
	}

	return diagnostics
}
