package models

import (
	"encoding/json"
	"strings"
)

// Node type discriminants. Eleven variants, each owning a disjoint set of
// editable fields (see the registry definitions).
const (
	NodeTypeSequence      = "sequence"
	NodeTypeLogic         = "logic"
	NodeTypeLoop          = "loop"
	NodeTypeParallel      = "parallel"
	NodeTypeHumanApproval = "human_approval"
	NodeTypeLLMAction     = "llm_action"
	NodeTypeProcessing    = "processing"
	NodeTypeVerification  = "verification"
	NodeTypeTransform     = "transform"
	NodeTypeSubflow       = "subflow"
	NodeTypeTerminate     = "terminate"
)

// RetryPolicy document key; its presence decides which error spelling an
// error edge exports to.
const RetryPolicyKey = "retry_policy"

// NodeData holds every field the inspector can edit, shared across the
// eleven variants (each variant only surfaces its own slice of it), plus the
// Extra passthrough bag for fields the editor does not model.
type NodeData struct {
	// Common fields, editable on every variant.
	Description  string         `json:"description,omitempty"`
	Agent        string         `json:"agent,omitempty"`
	IsCheckpoint *bool          `json:"is_checkpoint,omitempty"`
	Retry        map[string]any `json:"retry_policy,omitempty"`

	// logic
	Condition string `json:"condition,omitempty"`

	// loop
	IterateOver   string `json:"iterate_over,omitempty"`
	MaxIterations *int   `json:"max_iterations,omitempty"`

	// parallel
	WaitForAll *bool `json:"wait_for_all,omitempty"`

	// human_approval and llm_action share prompt.
	Prompt       string   `json:"prompt,omitempty"`
	DecisionType string   `json:"decision_type,omitempty"`
	Timeout      *float64 `json:"timeout,omitempty"`
	Model        string   `json:"model,omitempty"`

	// processing
	Task         string `json:"task,omitempty"`
	InputMapping string `json:"input_mapping,omitempty"` // raw JSON text, kept editable even when unparsable

	// verification
	Checks []map[string]any `json:"checks,omitempty"`

	// sequence
	Steps []map[string]any `json:"steps,omitempty"`

	// transform
	Expression     string `json:"expression,omitempty"`
	OutputVariable string `json:"output_variable,omitempty"`

	// subflow
	WorkflowID        string `json:"workflow_id,omitempty"`
	WaitForCompletion *bool  `json:"wait_for_completion,omitempty"`

	// terminate
	Status          string         `json:"status,omitempty"`
	OutputVariables map[string]any `json:"output_variables,omitempty"`

	// Extra carries document fields the registry does not recognize,
	// verbatim, always round-tripped.
	Extra map[string]json.RawMessage `json:"extra,omitempty"`

	// ExtraJSON is the inspector's raw JSON override blob; it merges last on
	// export so it can override anything the editor computed.
	ExtraJSON string `json:"extra_json,omitempty"`
}

// NewNodeData returns an empty data set with an initialized passthrough bag.
func NewNodeData() *NodeData {
	return &NodeData{Extra: make(map[string]json.RawMessage)}
}

// CommonFieldKeys are the document keys every variant owns.
func CommonFieldKeys() []string {
	return []string{"description", "agent", "is_checkpoint", RetryPolicyKey}
}

// WaitForAllEnabled resolves the parallel wait flag; absent means true.
func (d *NodeData) WaitForAllEnabled() bool {
	if d.WaitForAll == nil {
		return true
	}

	return *d.WaitForAll
}

// WaitForCompletionEnabled resolves the subflow wait flag; absent means true.
func (d *NodeData) WaitForCompletionEnabled() bool {
	if d.WaitForCompletion == nil {
		return true
	}

	return *d.WaitForCompletion
}

// Checkpoint resolves the checkpoint flag; absent means false.
func (d *NodeData) Checkpoint() bool {
	if d.IsCheckpoint == nil {
		return false
	}

	return *d.IsCheckpoint
}

// HasRetryPolicy reports whether the node defines a retry policy, either as
// an edited field or as a passthrough value.
func (d *NodeData) HasRetryPolicy() bool {
	if d.Retry != nil {
		return true
	}

	_, ok := d.Extra[RetryPolicyKey]

	return ok
}

// SetDocumentField decodes one recognized document field into its typed
// slot. It reports false when the value does not fit the modeled shape (or
// is an empty degenerate), in which case the caller leaves the raw value in
// the passthrough bag so nothing is lost.
func (d *NodeData) SetDocumentField(key string, raw json.RawMessage) bool {
	switch key {
	case "description":
		return decodeString(raw, &d.Description)
	case "agent":
		return decodeString(raw, &d.Agent)
	case "is_checkpoint":
		return decodeBool(raw, &d.IsCheckpoint)
	case RetryPolicyKey:
		return decodeObject(raw, &d.Retry)
	case "condition":
		return decodeString(raw, &d.Condition)
	case "iterate_over":
		return decodeString(raw, &d.IterateOver)
	case "max_iterations":
		return decodeInt(raw, &d.MaxIterations)
	case "wait_for_all":
		return decodeBool(raw, &d.WaitForAll)
	case "prompt":
		return decodeString(raw, &d.Prompt)
	case "decision_type":
		return decodeString(raw, &d.DecisionType)
	case "timeout":
		return decodeFloat(raw, &d.Timeout)
	case "model":
		return decodeString(raw, &d.Model)
	case "task":
		return decodeString(raw, &d.Task)
	case "input_mapping":
		// Held as raw text so an unparsable edit survives the session.
		d.InputMapping = strings.TrimSpace(string(raw))

		return d.InputMapping != ""
	case "checks":
		return decodeObjectList(raw, &d.Checks)
	case "steps":
		return decodeObjectList(raw, &d.Steps)
	case "expression":
		return decodeString(raw, &d.Expression)
	case "output_variable":
		return decodeString(raw, &d.OutputVariable)
	case "workflow_id":
		return decodeString(raw, &d.WorkflowID)
	case "wait_for_completion":
		return decodeBool(raw, &d.WaitForCompletion)
	case "status":
		return decodeString(raw, &d.Status)
	case "output_variables":
		return decodeObject(raw, &d.OutputVariables)
	default:
		return false
	}
}

// DocumentField encodes one recognized field back to its document value.
// Unset fields report false and are omitted from the exported node.
func (d *NodeData) DocumentField(key string) (json.RawMessage, bool) {
	switch key {
	case "description":
		return encodeString(d.Description)
	case "agent":
		return encodeString(d.Agent)
	case "is_checkpoint":
		return encodeBool(d.IsCheckpoint)
	case RetryPolicyKey:
		return encodeAny(d.Retry, d.Retry != nil)
	case "condition":
		return encodeString(d.Condition)
	case "iterate_over":
		return encodeString(d.IterateOver)
	case "max_iterations":
		return encodeAny(d.MaxIterations, d.MaxIterations != nil)
	case "wait_for_all":
		return encodeBool(d.WaitForAll)
	case "prompt":
		return encodeString(d.Prompt)
	case "decision_type":
		return encodeString(d.DecisionType)
	case "timeout":
		return encodeAny(d.Timeout, d.Timeout != nil)
	case "model":
		return encodeString(d.Model)
	case "task":
		return encodeString(d.Task)
	case "input_mapping":
		return encodeJSONText(d.InputMapping)
	case "checks":
		return encodeAny(d.Checks, d.Checks != nil)
	case "steps":
		return encodeAny(d.Steps, d.Steps != nil)
	case "expression":
		return encodeString(d.Expression)
	case "output_variable":
		return encodeString(d.OutputVariable)
	case "workflow_id":
		return encodeString(d.WorkflowID)
	case "wait_for_completion":
		return encodeBool(d.WaitForCompletion)
	case "status":
		return encodeString(d.Status)
	case "output_variables":
		return encodeAny(d.OutputVariables, d.OutputVariables != nil)
	default:
		return nil, false
	}
}

func decodeString(raw json.RawMessage, dst *string) bool {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil || value == "" {
		return false
	}

	*dst = value

	return true
}

func decodeBool(raw json.RawMessage, dst **bool) bool {
	var value bool
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}

	*dst = &value

	return true
}

func decodeInt(raw json.RawMessage, dst **int) bool {
	var value int
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}

	*dst = &value

	return true
}

func decodeFloat(raw json.RawMessage, dst **float64) bool {
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}

	*dst = &value

	return true
}

func decodeObject(raw json.RawMessage, dst *map[string]any) bool {
	var value map[string]any
	if err := json.Unmarshal(raw, &value); err != nil || value == nil {
		return false
	}

	*dst = value

	return true
}

func decodeObjectList(raw json.RawMessage, dst *[]map[string]any) bool {
	var value []map[string]any
	if err := json.Unmarshal(raw, &value); err != nil || value == nil {
		return false
	}

	*dst = value

	return true
}

func encodeString(value string) (json.RawMessage, bool) {
	if value == "" {
		return nil, false
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}

	return raw, true
}

func encodeBool(value *bool) (json.RawMessage, bool) {
	if value == nil {
		return nil, false
	}

	raw, err := json.Marshal(*value)
	if err != nil {
		return nil, false
	}

	return raw, true
}

func encodeAny(value any, set bool) (json.RawMessage, bool) {
	if !set {
		return nil, false
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}

	return raw, true
}

// encodeJSONText writes the input-mapping editor text. Parsable text is
// emitted as-is; unparsable text is exported as a JSON string so the value
// survives until the user corrects it.
func encodeJSONText(text string) (json.RawMessage, bool) {
	if text == "" {
		return nil, false
	}

	if json.Valid([]byte(text)) {
		return json.RawMessage(text), true
	}

	raw, err := json.Marshal(text)
	if err != nil {
		return nil, false
	}

	return raw, true
}
