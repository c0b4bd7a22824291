package transitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFor_CanonicalLabels(t *testing.T) {
	testCases := []struct {
		label string
		key   string
	}{
		{LabelNext, "next_node"},
		{LabelApprove, "on_approve"},
		{LabelReject, "on_reject"},
		{LabelTimeout, "on_timeout"},
		{LabelTrue, "on_true"},
		{LabelFalse, "on_false"},
		{LabelPass, "on_pass"},
		{LabelFail, "on_fail"},
		{LabelError, "on_error"},
		{LabelDefault, "default_next"},
		{LabelLoopBody, "loop_body"},
	}

	for _, tc := range testCases {
		t.Run("label "+tc.label, func(t *testing.T) {
			key, ok := KeyFor(tc.label)
			require.True(t, ok)
			assert.Equal(t, tc.key, key)
		})
	}
}

func TestKeyFor_CustomLabel(t *testing.T) {
	_, ok := KeyFor("escalate")
	assert.False(t, ok)

	_, ok = KeyFor("branch:fast")
	assert.False(t, ok)
}

func TestLabelFor_Bijection(t *testing.T) {
	// For every canonical label l, LabelFor(KeyFor(l)) == l.
	for _, label := range []string{
		LabelNext, LabelApprove, LabelReject, LabelTimeout, LabelTrue,
		LabelFalse, LabelPass, LabelFail, LabelError, LabelDefault, LabelLoopBody,
	} {
		key, ok := KeyFor(label)
		require.True(t, ok, "label %q has no key", label)

		back, ok := LabelFor(key)
		require.True(t, ok, "key %q has no label", key)
		assert.Equal(t, label, back)
	}
}

func TestLabelFor_BothErrorSpellings(t *testing.T) {
	label, ok := LabelFor("on_error")
	require.True(t, ok)
	assert.Equal(t, LabelError, label)

	label, ok = LabelFor("on_failure")
	require.True(t, ok)
	assert.Equal(t, LabelError, label)
}

func TestErrorKey_RetryPolicyPreference(t *testing.T) {
	assert.Equal(t, "on_failure", ErrorKey(true))
	assert.Equal(t, "on_error", ErrorKey(false))
}

func TestScalarKeys_CanonicalOrder(t *testing.T) {
	keys := ScalarKeys()
	require.Len(t, keys, 12)
	assert.Equal(t, "next_node", keys[0])
	assert.Equal(t, "loop_body", keys[len(keys)-1])

	for _, key := range keys {
		assert.True(t, IsScalarKey(key))
		assert.True(t, IsConnectionKey(key))
	}
}

func TestIsConnectionKey_MultiValued(t *testing.T) {
	assert.True(t, IsConnectionKey(BranchesKey))
	assert.True(t, IsConnectionKey(RulesKey))
	assert.True(t, IsConnectionKey(CustomEdgesKey))
	assert.False(t, IsConnectionKey("description"))
	assert.False(t, IsConnectionKey("prompt"))
}

func TestBranchLabel_RoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		label string
	}{
		{"fast_path", "branch:fast_path"},
		{"", "branch:"},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			assert.Equal(t, tc.label, BranchLabel(tc.name))

			name, ok := BranchName(tc.label)
			require.True(t, ok)
			assert.Equal(t, tc.name, name)
		})
	}

	_, ok := BranchName("rule:x > 1")
	assert.False(t, ok)
}

func TestRuleLabel_RoundTrip(t *testing.T) {
	label := RuleLabel("amount > 100")
	assert.Equal(t, "rule:amount > 100", label)

	condition, ok := RuleCondition(label)
	require.True(t, ok)
	assert.Equal(t, "amount > 100", condition)

	_, ok = RuleCondition("branch:a")
	assert.False(t, ok)
}

func TestIsCanonicalLabel(t *testing.T) {
	assert.True(t, IsCanonicalLabel(LabelNext))
	assert.True(t, IsCanonicalLabel(LabelApprove))
	assert.True(t, IsCanonicalLabel("branch:b1"))
	assert.True(t, IsCanonicalLabel("rule:x"))
	assert.False(t, IsCanonicalLabel("escalate"))
}
