package registry

import (
	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/transitions"
)

// RegisterDefaultVariants installs the eleven built-in node variants.
func (r *Registry) RegisterDefaultVariants() {
	r.Register(Definition{
		Type:           models.NodeTypeSequence,
		Name:           "Sequence",
		Description:    "Runs an ordered list of steps",
		Fields:         []string{"steps"},
		ConnectionKeys: []string{"next_node", "on_error"},
	})

	r.Register(Definition{
		Type:           models.NodeTypeLogic,
		Name:           "Logic",
		Description:    "Routes by condition rules",
		Fields:         []string{"condition"},
		ConnectionKeys: []string{"on_true", "on_false", "default_next"},
		SupportsRules:  true,
	})

	r.Register(Definition{
		Type:           models.NodeTypeLoop,
		Name:           "Loop",
		Description:    "Repeats its body over a collection",
		Fields:         []string{"iterate_over", "max_iterations"},
		ConnectionKeys: []string{"loop_body", "next_node", "on_error"},
	})

	r.Register(Definition{
		Type:             models.NodeTypeParallel,
		Name:             "Parallel",
		Description:      "Fans out into concurrent branches",
		Fields:           []string{"wait_for_all"},
		ConnectionKeys:   []string{"next_node", "on_error"},
		SupportsBranches: true,
	})

	r.Register(Definition{
		Type:           models.NodeTypeHumanApproval,
		Name:           "Human Approval",
		Description:    "Pauses for a human decision",
		Fields:         []string{"prompt", "decision_type", "timeout"},
		ConnectionKeys: []string{"on_approve", "on_reject", "on_timeout"},
		Defaults: func(data *models.NodeData) {
			data.DecisionType = "approve_reject"
		},
	})

	r.Register(Definition{
		Type:             models.NodeTypeLLMAction,
		Name:             "LLM Action",
		Description:      "Delegates a prompt to a model",
		Fields:           []string{"prompt", "model"},
		ConnectionKeys:   []string{"next_node", "on_error"},
		SupportsBranches: true,
	})

	r.Register(Definition{
		Type:           models.NodeTypeProcessing,
		Name:           "Processing",
		Description:    "Runs a named task over mapped inputs",
		Fields:         []string{"task", "input_mapping"},
		ConnectionKeys: []string{"next_node", "on_error"},
	})

	r.Register(Definition{
		Type:           models.NodeTypeVerification,
		Name:           "Verification",
		Description:    "Runs an ordered list of checks",
		Fields:         []string{"checks"},
		ConnectionKeys: []string{"on_pass", "on_fail"},
	})

	r.Register(Definition{
		Type:           models.NodeTypeTransform,
		Name:           "Transform",
		Description:    "Evaluates an expression into a variable",
		Fields:         []string{"expression", "output_variable"},
		ConnectionKeys: []string{"next_node", "on_error"},
	})

	r.Register(Definition{
		Type:           models.NodeTypeSubflow,
		Name:           "Subflow",
		Description:    "Invokes another workflow",
		Fields:         []string{"workflow_id", "wait_for_completion"},
		ConnectionKeys: []string{"next_node", "on_error"},
	})

	r.Register(Definition{
		Type:           models.NodeTypeTerminate,
		Name:           "Terminate",
		Description:    "Ends the workflow with a status",
		Fields:         []string{"status", "output_variables"},
		ConnectionKeys: []string{},
		Defaults: func(data *models.NodeData) {
			data.Status = "success"
		},
	})
}

// ConnectionLabels translates a variant's offered connection keys to edge
// labels, for the inspector's relabel menu.
func ConnectionLabels(def Definition) []string {
	labels := make([]string, 0, len(def.ConnectionKeys))

	for _, key := range def.ConnectionKeys {
		if label, ok := transitions.LabelFor(key); ok {
			labels = append(labels, label)
		}
	}

	return labels
}
