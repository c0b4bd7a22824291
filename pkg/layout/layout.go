// Package layout computes layered 2D placement for directed graphs: ranks by
// longest path from roots, barycenter ordering within ranks, fixed node
// footprint. Pure topology in, coordinates out.
package layout

import (
	"fmt"
	"sort"

	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/go-playground/validator/v10"
)

// Options control node footprint and spacing. All distances are in canvas
// units (pixels at zoom 1).
type Options struct {
	NodeWidth      float64 `validate:"required,gt=0"`
	NodeHeight     float64 `validate:"required,gt=0"`
	HorizontalGap  float64 `validate:"required,gt=0"`
	VerticalGap    float64 `validate:"required,gt=0"`
	MarginX        float64 `validate:"required,gt=0"`
	MarginY        float64 `validate:"required,gt=0"`
	OrderingPasses int     `validate:"gte=0"`
}

// DefaultOptions returns the footprint the editor renders with.
func DefaultOptions() Options {
	return Options{
		NodeWidth:      220,
		NodeHeight:     80,
		HorizontalGap:  60,
		VerticalGap:    70,
		MarginX:        40,
		MarginY:        40,
		OrderingPasses: 4,
	}
}

// Engine computes placements. It never fails at compute time: dangling edge
// endpoints are ignored and disconnected nodes still get a valid position.
type Engine struct {
	opts Options
}

// NewEngine validates options and builds an engine.
func NewEngine(opts Options) (*Engine, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	err := validate.Struct(opts)
	if err != nil {
		return nil, fmt.Errorf("invalid layout options: %w", err)
	}

	return &Engine{opts: opts}, nil
}

// Compute assigns a position to every id. Given the same ids and edges in
// the same order, the result is identical; re-layout diffs and tests depend
// on that determinism.
func (e *Engine) Compute(ids []string, edges []*models.Edge) map[string]models.Position {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	// Forward adjacency over known ids only. Edges touching unknown ids are
	// the UI's problem, not the layout's.
	children := make(map[string][]string, len(ids))
	parents := make(map[string][]string, len(ids))

	for _, edge := range edges {
		if !known[edge.Source] || !known[edge.Target] || edge.Source == edge.Target {
			continue
		}

		if isBackEdge(children, edge.Target, edge.Source) {
			continue
		}

		children[edge.Source] = append(children[edge.Source], edge.Target)
		parents[edge.Target] = append(parents[edge.Target], edge.Source)
	}

	ranks := e.rank(ids, children, parents)
	rows := e.order(ids, ranks, parents)

	return e.place(ranks, rows)
}

// isBackEdge reports whether adding source->target would close a cycle, i.e.
// source is already reachable from target. Back edges (loop bodies looping
// home) are excluded from ranking so the layered pass sees a DAG.
func isBackEdge(children map[string][]string, from, to string) bool {
	if from == to {
		return true
	}

	seen := map[string]bool{from: true}
	queue := []string{from}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range children[current] {
			if next == to {
				return true
			}

			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	return false
}

// rank assigns each node its longest-path depth from a root. Parents always
// sit above children; isolated nodes sit at rank 0.
func (e *Engine) rank(ids []string, children, parents map[string][]string) map[string]int {
	indegree := make(map[string]int, len(ids))
	for _, id := range ids {
		indegree[id] = len(parents[id])
	}

	ranks := make(map[string]int, len(ids))
	queue := make([]string, 0, len(ids))

	for _, id := range ids {
		if indegree[id] == 0 {
			queue = append(queue, id)
			ranks[id] = 0
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, child := range children[current] {
			if ranks[current]+1 > ranks[child] {
				ranks[child] = ranks[current] + 1
			}

			indegree[child]--
			if indegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	return ranks
}

// order lays each rank out left to right: insertion order first, then
// barycenter sweeps pulling nodes under the average position of their
// parents. Sorting is stable so ties keep insertion order.
func (e *Engine) order(ids []string, ranks map[string]int, parents map[string][]string) [][]string {
	maxRank := 0
	for _, rank := range ranks {
		if rank > maxRank {
			maxRank = rank
		}
	}

	rows := make([][]string, maxRank+1)
	for _, id := range ids {
		rank := ranks[id]
		rows[rank] = append(rows[rank], id)
	}

	position := make(map[string]int, len(ids))
	for _, row := range rows {
		for i, id := range row {
			position[id] = i
		}
	}

	for pass := 0; pass < e.opts.OrderingPasses; pass++ {
		for rank := 1; rank < len(rows); rank++ {
			row := rows[rank]

			barycenter := make(map[string]float64, len(row))
			for _, id := range row {
				barycenter[id] = parentBarycenter(id, parents, position, float64(position[id]))
			}

			sort.SliceStable(row, func(i, j int) bool {
				return barycenter[row[i]] < barycenter[row[j]]
			})

			for i, id := range row {
				position[id] = i
			}
		}
	}

	return rows
}

func parentBarycenter(id string, parents map[string][]string, position map[string]int, fallback float64) float64 {
	if len(parents[id]) == 0 {
		return fallback
	}

	sum := 0.0
	for _, parent := range parents[id] {
		sum += float64(position[parent])
	}

	return sum / float64(len(parents[id]))
}

// place converts rank/order into coordinates. Rows are centered against the
// widest row so narrow ranks sit under the middle of the drawing.
func (e *Engine) place(ranks map[string]int, rows [][]string) map[string]models.Position {
	slotWidth := e.opts.NodeWidth + e.opts.HorizontalGap

	maxRowLen := 0
	for _, row := range rows {
		if len(row) > maxRowLen {
			maxRowLen = len(row)
		}
	}

	positions := make(map[string]models.Position, len(ranks))

	for rank, row := range rows {
		rowOffset := float64(maxRowLen-len(row)) * slotWidth / 2

		for i, id := range row {
			positions[id] = models.Position{
				X: e.opts.MarginX + rowOffset + float64(i)*slotWidth,
				Y: e.opts.MarginY + float64(rank)*(e.opts.NodeHeight+e.opts.VerticalGap),
			}
		}
	}

	return positions
}
