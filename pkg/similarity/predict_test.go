package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animetrics/anilist-crawler/pkg/anilist"
)

// newTestSim builds a similarity matrix directly from a dense table.
func newTestSim(items []int, values [][]float64) *SimMatrix {
	idx := make(map[int]int, len(items))
	for i, item := range items {
		idx[item] = i
	}
	return &SimMatrix{Items: items, sim: values, itemIdx: idx}
}

func TestPredictPlanning(t *testing.T) {
	// Items 1 and 2 are completed, 3 and 4 are candidates. Item 2 has a
	// negative similarity to item 3 and is excluded from its average.
	sim := newTestSim([]int{1, 2, 3, 4}, [][]float64{
		{1.0, 0.2, 0.5, 0.1},
		{0.2, 1.0, -0.3, 0.4},
		{0.5, -0.3, 1.0, 0.0},
		{0.1, 0.4, 0.0, 1.0},
	})

	completed := map[int]int{1: 80, 2: 60}
	planning := anilist.PlanningMap{3: "Candidate Three", 4: "Candidate Four"}

	preds := PredictPlanning(completed, planning, sim)
	require.Len(t, preds, 2)

	byID := make(map[int]Prediction, len(preds))
	for _, p := range preds {
		byID[p.MediaID] = p
	}

	require.True(t, byID[3].Predicted)
	assert.InDelta(t, 80.0, byID[3].Score, 1e-9)
	assert.Equal(t, "Candidate Three", byID[3].Title)

	require.True(t, byID[4].Predicted)
	assert.InDelta(t, 70.0, byID[4].Score, 1e-9)

	// Sorted by predicted score descending.
	assert.Equal(t, 3, preds[0].MediaID)
}

func TestPredictPlanning_UnknownCandidate(t *testing.T) {
	sim := newTestSim([]int{1}, [][]float64{{1.0}})

	completed := map[int]int{1: 80}
	planning := anilist.PlanningMap{999: "Unknown"}

	preds := PredictPlanning(completed, planning, sim)
	require.Len(t, preds, 1)
	assert.False(t, preds[0].Predicted)
	assert.Equal(t, 0.0, preds[0].Score)
}

func TestPredictPlanning_UnknownCompletedExcluded(t *testing.T) {
	sim := newTestSim([]int{1, 3}, [][]float64{
		{1.0, 0.5},
		{0.5, 1.0},
	})

	// Item 2 was completed but never crawled; only item 1 contributes.
	completed := map[int]int{1: 80, 2: 10}
	planning := anilist.PlanningMap{3: "Candidate"}

	preds := PredictPlanning(completed, planning, sim)
	require.Len(t, preds, 1)
	require.True(t, preds[0].Predicted)
	assert.InDelta(t, 80.0, preds[0].Score, 1e-9)
}

func TestPredictPlanning_UnpredictableLast(t *testing.T) {
	sim := newTestSim([]int{1, 3}, [][]float64{
		{1.0, 0.5},
		{0.5, 1.0},
	})

	completed := map[int]int{1: 80}
	planning := anilist.PlanningMap{3: "Known", 999: "Unknown"}

	preds := PredictPlanning(completed, planning, sim)
	require.Len(t, preds, 2)
	assert.True(t, preds[0].Predicted)
	assert.Equal(t, 999, preds[1].MediaID)
}
