// Package transitions defines the canonical mapping between edge labels and
// the document fields that encode them.
package transitions

import "strings"

// Document keys for multi-valued and passthrough connections.
const (
	BranchesKey    = "branches"
	RulesKey       = "rules"
	CustomEdgesKey = "_custom_edges"
)

// Canonical edge labels. The empty label is the default "next" transition.
const (
	LabelNext     = ""
	LabelApprove  = "approve"
	LabelReject   = "reject"
	LabelTimeout  = "timeout"
	LabelTrue     = "true"
	LabelFalse    = "false"
	LabelPass     = "pass"
	LabelFail     = "fail"
	LabelError    = "error"
	LabelDefault  = "default"
	LabelLoopBody = "loop body"
)

const (
	branchPrefix = "branch:"
	rulePrefix   = "rule:"
)

// scalarKeys lists every single-valued connection key in canonical order.
// Import walks this list so edge emission order is deterministic.
var scalarKeys = []string{
	"next_node",
	"on_approve",
	"on_reject",
	"on_timeout",
	"on_true",
	"on_false",
	"on_pass",
	"on_fail",
	"on_error",
	"on_failure",
	"default_next",
	"loop_body",
}

var keyByLabel = map[string]string{
	LabelNext:     "next_node",
	LabelApprove:  "on_approve",
	LabelReject:   "on_reject",
	LabelTimeout:  "on_timeout",
	LabelTrue:     "on_true",
	LabelFalse:    "on_false",
	LabelPass:     "on_pass",
	LabelFail:     "on_fail",
	LabelError:    "on_error",
	LabelDefault:  "default_next",
	LabelLoopBody: "loop_body",
}

var labelByKey = map[string]string{
	"next_node":    LabelNext,
	"on_approve":   LabelApprove,
	"on_reject":    LabelReject,
	"on_timeout":   LabelTimeout,
	"on_true":      LabelTrue,
	"on_false":     LabelFalse,
	"on_pass":      LabelPass,
	"on_fail":      LabelFail,
	"on_error":     LabelError,
	"on_failure":   LabelError, // both error spellings import to the same label
	"default_next": LabelDefault,
	"loop_body":    LabelLoopBody,
}

// KeyFor returns the document field that stores a canonically labeled
// transition. Parameterized (branch:/rule:) and custom labels have no scalar
// key and report ok = false.
func KeyFor(label string) (string, bool) {
	key, ok := keyByLabel[label]

	return key, ok
}

// LabelFor returns the edge label for a scalar connection key.
func LabelFor(key string) (string, bool) {
	label, ok := labelByKey[key]

	return label, ok
}

// ErrorKey resolves which of the two error spellings a label "error" edge is
// written back to. Nodes carrying a retry policy use on_failure, others
// on_error.
func ErrorKey(hasRetryPolicy bool) string {
	if hasRetryPolicy {
		return "on_failure"
	}

	return "on_error"
}

// ScalarKeys returns every single-valued connection key in canonical order.
func ScalarKeys() []string {
	keys := make([]string, len(scalarKeys))
	copy(keys, scalarKeys)

	return keys
}

// IsScalarKey reports whether key is a single-valued connection field.
func IsScalarKey(key string) bool {
	_, ok := labelByKey[key]

	return ok
}

// IsConnectionKey reports whether key encodes connections of any shape,
// scalar or multi-valued.
func IsConnectionKey(key string) bool {
	return IsScalarKey(key) || key == BranchesKey || key == RulesKey || key == CustomEdgesKey
}

// IsCanonicalLabel reports whether label belongs to the fixed label set,
// including the parameterized branch:/rule: families.
func IsCanonicalLabel(label string) bool {
	if _, ok := keyByLabel[label]; ok {
		return true
	}

	return IsBranchLabel(label) || IsRuleLabel(label)
}

// BranchLabel builds the edge label for a branches entry. Unnamed branches
// carry the bare prefix so no name is invented on export.
func BranchLabel(name string) string {
	return branchPrefix + name
}

// BranchName extracts the branch name from a branch: label.
func BranchName(label string) (string, bool) {
	if !strings.HasPrefix(label, branchPrefix) {
		return "", false
	}

	return strings.TrimPrefix(label, branchPrefix), true
}

// IsBranchLabel reports whether label addresses the branches array.
func IsBranchLabel(label string) bool {
	return strings.HasPrefix(label, branchPrefix)
}

// RuleLabel builds the edge label for a rules entry, preserving the rule
// condition in the label.
func RuleLabel(condition string) string {
	return rulePrefix + condition
}

// RuleCondition extracts the condition from a rule: label.
func RuleCondition(label string) (string, bool) {
	if !strings.HasPrefix(label, rulePrefix) {
		return "", false
	}

	return strings.TrimPrefix(label, rulePrefix), true
}

// IsRuleLabel reports whether label addresses the rules array.
func IsRuleLabel(label string) bool {
	return strings.HasPrefix(label, rulePrefix)
}
