package canvas

import (
	"log/slog"
	"testing"

	"github.com/ckpd/flowcanvas/pkg/layout"
	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCanvas(t *testing.T, document string) *Canvas {
	t.Helper()

	if document == "" {
		return NewCanvas(slog.Default(), newTestRegistry(), nil)
	}

	importer := newTestImporter(t)

	graph, err := importer.Import(mustParse(t, document))
	require.NoError(t, err)

	return NewCanvas(slog.Default(), newTestRegistry(), graph)
}

const approvalDocument = `{
	"start_node": "gate",
	"nodes": {
		"gate": {"type": "human_approval", "on_approve": "x", "on_reject": "y"},
		"x": {"type": "terminate"},
		"y": {"type": "terminate"}
	}
}`

func TestCanvas_AddNode(t *testing.T) {
	cv := newTestCanvas(t, "")

	node, err := cv.AddNode(models.NodeTypeSequence)
	require.NoError(t, err)
	assert.NotEmpty(t, node.ID)
	assert.True(t, node.IsStart, "first node becomes the start node")

	second, err := cv.AddNode(models.NodeTypeTerminate)
	require.NoError(t, err)
	assert.False(t, second.IsStart)
	assert.NotEqual(t, node.ID, second.ID)
	assert.Equal(t, "success", second.Data.Status, "registry defaults applied")
}

func TestCanvas_AddNode_UnknownTypeRejected(t *testing.T) {
	cv := newTestCanvas(t, "")

	_, err := cv.AddNode("teleport")
	require.Error(t, err)
	assert.True(t, models.IsInvalidMutation(err))
	assert.Empty(t, cv.Graph().Nodes)
}

func TestCanvas_RenameNode_PropagatesToEdges(t *testing.T) {
	cv := newTestCanvas(t, approvalDocument)
	require.NoError(t, cv.Select("gate"))

	require.NoError(t, cv.RenameNode("gate", "approval_gate"))

	graph := cv.Graph()
	assert.Nil(t, graph.NodeByID("gate"))
	require.NotNil(t, graph.NodeByID("approval_gate"))
	assert.True(t, graph.NodeByID("approval_gate").IsStart, "start follows the rename")

	for _, edge := range graph.Edges {
		assert.NotEqual(t, "gate", edge.Source)
		assert.NotEqual(t, "gate", edge.Target)
	}

	assert.Equal(t, "approval_gate", cv.Selected(), "selection follows the rename")
}

func TestCanvas_RenameNode_TargetSideRewritten(t *testing.T) {
	cv := newTestCanvas(t, approvalDocument)

	require.NoError(t, cv.RenameNode("x", "approved_path"))

	found := false

	for _, edge := range cv.Graph().Edges {
		if edge.Label == "approve" {
			assert.Equal(t, "approved_path", edge.Target)

			found = true
		}
	}

	assert.True(t, found)
}

func TestCanvas_RenameNode_Rejections(t *testing.T) {
	testCases := []struct {
		name  string
		oldID string
		newID string
	}{
		{"missing node", "ghost", "anything"},
		{"collision", "gate", "x"},
		{"empty new id", "gate", "  "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cv := newTestCanvas(t, approvalDocument)

			err := cv.RenameNode(tc.oldID, tc.newID)
			require.Error(t, err)
			assert.True(t, models.IsInvalidMutation(err))

			// Atomic rejection: graph untouched.
			assert.NotNil(t, cv.Graph().NodeByID("gate"))
			assert.Len(t, cv.Graph().Edges, 2)
		})
	}
}

func TestCanvas_RenameNode_SameIDIsNoop(t *testing.T) {
	cv := newTestCanvas(t, approvalDocument)
	require.NoError(t, cv.RenameNode("gate", "gate"))
}

func TestCanvas_DeleteNode_CascadesEdges(t *testing.T) {
	cv := newTestCanvas(t, approvalDocument)

	// Deleting x removes the approve edge but leaves the reject edge.
	require.NoError(t, cv.DeleteNode("x"))

	graph := cv.Graph()
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, "reject", graph.Edges[0].Label)
	assert.Equal(t, "y", graph.Edges[0].Target)

	for _, edge := range graph.Edges {
		assert.NotEqual(t, "x", edge.Source)
		assert.NotEqual(t, "x", edge.Target)
	}
}

func TestCanvas_DeleteNode_ReelectsStart(t *testing.T) {
	cv := newTestCanvas(t, approvalDocument)

	require.NoError(t, cv.DeleteNode("gate"))

	starts := 0

	for _, node := range cv.Graph().Nodes {
		if node.IsStart {
			starts++
		}
	}

	assert.Equal(t, 1, starts)
}

func TestCanvas_DeleteNode_ClearsSelection(t *testing.T) {
	cv := newTestCanvas(t, approvalDocument)
	require.NoError(t, cv.Select("x"))
	require.NoError(t, cv.DeleteNode("x"))
	assert.Empty(t, cv.Selected())
}

func TestCanvas_SetStart_SingleStartInvariant(t *testing.T) {
	cv := newTestCanvas(t, approvalDocument)

	for _, id := range []string{"x", "y", "gate", "y"} {
		require.NoError(t, cv.SetStart(id))

		starts := 0

		for _, node := range cv.Graph().Nodes {
			if node.IsStart {
				starts++
			}
		}

		assert.Equal(t, 1, starts)
	}

	assert.True(t, cv.Graph().NodeByID("y").IsStart)

	err := cv.SetStart("ghost")
	require.Error(t, err)
	assert.True(t, cv.Graph().NodeByID("y").IsStart, "rejected SetStart changes nothing")
}

func TestCanvas_Connect(t *testing.T) {
	cv := newTestCanvas(t, approvalDocument)

	edge, err := cv.Connect("x", "y")
	require.NoError(t, err)
	assert.Equal(t, "", edge.Label, "new edges carry the default label")
	assert.Len(t, cv.Graph().Edges, 3)

	_, err = cv.Connect("ghost", "y")
	require.Error(t, err)
	assert.True(t, models.IsInvalidMutation(err))

	_, err = cv.Connect("x", "ghost")
	require.Error(t, err)
	assert.Len(t, cv.Graph().Edges, 3)
}

func TestCanvas_RelabelAndDeleteEdge(t *testing.T) {
	cv := newTestCanvas(t, approvalDocument)

	edge, err := cv.Connect("x", "y")
	require.NoError(t, err)

	require.NoError(t, cv.RelabelEdge(edge.ID, "timeout"))
	assert.Equal(t, "timeout", cv.Graph().EdgeByID(edge.ID).Label)

	require.NoError(t, cv.DeleteEdge(edge.ID))
	assert.Nil(t, cv.Graph().EdgeByID(edge.ID))

	assert.Error(t, cv.RelabelEdge("ghost", "x"))
	assert.Error(t, cv.DeleteEdge("ghost"))
}

func TestCanvas_SetExtraJSON(t *testing.T) {
	cv := newTestCanvas(t, approvalDocument)

	require.NoError(t, cv.SetExtraJSON("gate", `{"sla_tier": "gold"}`))

	err := cv.SetExtraJSON("gate", `{broken`)
	require.Error(t, err)
	assert.True(t, models.IsUnparsableFieldJSON(err))
	assert.Equal(t, `{"sla_tier": "gold"}`, cv.Graph().NodeByID("gate").Data.ExtraJSON,
		"rejected override leaves the previous value")

	require.NoError(t, cv.SetExtraJSON("gate", ""), "clearing is always allowed")
}

func TestCanvas_UpdateNodeData(t *testing.T) {
	cv := newTestCanvas(t, approvalDocument)

	require.NoError(t, cv.UpdateNodeData("gate", func(data *models.NodeData) {
		data.Prompt = "Proceed?"
	}))
	assert.Equal(t, "Proceed?", cv.Graph().NodeByID("gate").Data.Prompt)

	err := cv.UpdateNodeData("ghost", func(data *models.NodeData) {})
	require.Error(t, err)
}

func TestCanvas_Relayout_Deterministic(t *testing.T) {
	cv := newTestCanvas(t, approvalDocument)

	engine, err := layout.NewEngine(layout.DefaultOptions())
	require.NoError(t, err)

	cv.Relayout(engine)

	first := make(map[string]models.Position)
	for _, node := range cv.Graph().Nodes {
		first[node.ID] = node.Position
	}

	cv.Relayout(engine)

	for _, node := range cv.Graph().Nodes {
		assert.Equal(t, first[node.ID], node.Position)
	}
}

func TestCanvas_SetPosition(t *testing.T) {
	cv := newTestCanvas(t, approvalDocument)

	require.NoError(t, cv.SetPosition("x", models.Position{X: 10, Y: 20}))
	assert.InDelta(t, 10.0, cv.Graph().NodeByID("x").Position.X, 0.0001)

	assert.Error(t, cv.SetPosition("ghost", models.Position{}))
}
