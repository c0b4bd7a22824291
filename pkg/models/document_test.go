package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument_BasicSequence(t *testing.T) {
	data := []byte(`{
		"start_node": "a",
		"nodes": {
			"a": {"type": "sequence", "next_node": "b"},
			"b": {"type": "terminate", "status": "success"}
		}
	}`)

	doc, err := ParseDocument(data)
	require.NoError(t, err)

	assert.Equal(t, "a", doc.StartNode)
	assert.Equal(t, []string{"a", "b"}, doc.Order)

	nodeA := doc.Nodes["a"]
	require.NotNil(t, nodeA)
	assert.Equal(t, "sequence", nodeA.Type)
	assert.Equal(t, "b", nodeA.Connections["next_node"])

	nodeB := doc.Nodes["b"]
	require.NotNil(t, nodeB)
	assert.Equal(t, "terminate", nodeB.Type)
	assert.JSONEq(t, `"success"`, string(nodeB.Rest["status"]))
}

func TestParseDocument_PreservesNodeOrder(t *testing.T) {
	data := []byte(`{
		"start_node": "z",
		"nodes": {
			"z": {"type": "sequence"},
			"a": {"type": "sequence"},
			"m": {"type": "terminate"}
		}
	}`)

	doc, err := ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, doc.Order)

	// Marshal re-emits nodes in document order, not sorted.
	out, err := json.Marshal(doc)
	require.NoError(t, err)

	zIdx := indexOf(t, out, `"z"`)
	aIdx := indexOf(t, out, `"a"`)
	mIdx := indexOf(t, out, `"m"`)
	assert.Less(t, zIdx, aIdx)
	assert.Less(t, aIdx, mIdx)
}

func TestParseDocument_Malformed(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{"nodes not an object", `{"start_node": "a", "nodes": []}`},
		{"node not an object", `{"start_node": "a", "nodes": {"a": 42}}`},
		{"node without type", `{"start_node": "a", "nodes": {"a": {"next_node": "b"}}}`},
		{"start_node not a string", `{"start_node": 7, "nodes": {}}`},
		{"missing nodes", `{"start_node": "a"}`},
		{"document not an object", `[1, 2]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tc.data))
			require.Error(t, err)
			assert.True(t, IsMalformedDocument(err), "expected malformed document, got: %v", err)
		})
	}
}

func TestParseDocument_UnknownFieldsLandInRest(t *testing.T) {
	data := []byte(`{
		"start_node": "a",
		"nodes": {
			"a": {"type": "sequence", "custom_sla": {"hours": 4}, "next_node": "a"}
		},
		"schema_version": 3
	}`)

	doc, err := ParseDocument(data)
	require.NoError(t, err)

	assert.JSONEq(t, `{"hours": 4}`, string(doc.Nodes["a"].Rest["custom_sla"]))
	assert.JSONEq(t, `3`, string(doc.Extra["schema_version"]))
}

func TestParseDocument_EmptyConnectionStaysInRest(t *testing.T) {
	data := []byte(`{
		"start_node": "a",
		"nodes": {"a": {"type": "sequence", "next_node": ""}}
	}`)

	doc, err := ParseDocument(data)
	require.NoError(t, err)

	node := doc.Nodes["a"]
	assert.Empty(t, node.Connections)
	assert.Contains(t, node.Rest, "next_node")
}

func TestNode_BranchesAndRules(t *testing.T) {
	data := []byte(`{
		"start_node": "p",
		"nodes": {
			"p": {"type": "parallel", "branches": [
				{"name": "fast", "entry_node": "x"},
				{"entry_node": "y"}
			]},
			"l": {"type": "logic", "rules": [
				{"condition": "amount > 10", "next_node": "x"}
			]},
			"x": {"type": "terminate"},
			"y": {"type": "terminate"}
		}
	}`)

	doc, err := ParseDocument(data)
	require.NoError(t, err)

	require.Len(t, doc.Nodes["p"].Branches, 2)
	assert.Equal(t, "fast", doc.Nodes["p"].Branches[0].Name)
	assert.Equal(t, "y", doc.Nodes["p"].Branches[1].EntryNode)

	require.Len(t, doc.Nodes["l"].Rules, 1)
	assert.Equal(t, "amount > 10", doc.Nodes["l"].Rules[0].Condition)
}

func TestNode_UnmodeledBranchesPassThrough(t *testing.T) {
	// Branch entries with fields the editor does not model fall back to the
	// passthrough bag whole, so the extra fields are never dropped.
	data := []byte(`{
		"start_node": "p",
		"nodes": {
			"p": {"type": "parallel", "branches": [
				{"entry_node": "x", "weight": 3}
			]}
		}
	}`)

	doc, err := ParseDocument(data)
	require.NoError(t, err)

	node := doc.Nodes["p"]
	assert.Empty(t, node.Branches)
	assert.Contains(t, node.Rest, "branches")
}

func TestDocument_MarshalRoundTrip(t *testing.T) {
	original := []byte(`{
		"start_node": "a",
		"nodes": {
			"a": {
				"type": "human_approval",
				"prompt": "Approve the expense?",
				"on_approve": "b",
				"on_reject": "c",
				"custom_sla": {"hours": 4}
			},
			"b": {"type": "terminate", "status": "success"},
			"c": {"type": "terminate", "status": "rejected"}
		}
	}`)

	doc, err := ParseDocument(original)
	require.NoError(t, err)

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, string(original), string(out))
}

func TestDocument_NodeOrderWithUnorderedIDs(t *testing.T) {
	doc := &Document{
		StartNode: "a",
		Nodes: map[string]*Node{
			"b": {Type: NodeTypeTerminate},
			"a": {Type: NodeTypeSequence},
		},
		Order: []string{"b"},
	}

	// Ids missing from Order are appended sorted for determinism.
	assert.Equal(t, []string{"b", "a"}, doc.NodeOrder())
}

func indexOf(t *testing.T, haystack []byte, needle string) int {
	t.Helper()

	idx := -1

	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == needle {
			idx = i

			break
		}
	}

	require.GreaterOrEqual(t, idx, 0, "%s not found", needle)

	return idx
}
