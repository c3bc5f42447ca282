package similarity

import (
	"sort"

	"github.com/animetrics/anilist-crawler/pkg/anilist"
)

// Prediction is a predicted score for one planning-list item. Predicted is
// false when no completed item had a usable similarity to the candidate.
type Prediction struct {
	MediaID   int
	Title     string
	Score     float64
	Predicted bool
}

// PredictPlanning predicts a score for every item on a user's planning list.
// For each candidate it averages the user's completed scores over the
// completed items whose similarity to the candidate is nonnegative. Completed
// or planning items absent from the similarity matrix are left out.
//
// Results are sorted by predicted score descending, unpredictable items last,
// ties by media id.
func PredictPlanning(completed map[int]int, planning anilist.PlanningMap, sim *SimMatrix) []Prediction {
	completedIDs := make([]int, 0, len(completed))
	for mediaID := range completed {
		if _, ok := sim.itemIdx[mediaID]; ok {
			completedIDs = append(completedIDs, mediaID)
		}
	}
	sort.Ints(completedIDs)

	out := make([]Prediction, 0, len(planning))
	for candidate, title := range planning {
		pred := Prediction{MediaID: candidate, Title: title}

		if _, ok := sim.itemIdx[candidate]; ok {
			var sum float64
			var n int
			for _, mediaID := range completedIDs {
				s, _ := sim.At(mediaID, candidate)
				if s >= 0 {
					sum += float64(completed[mediaID])
					n++
				}
			}
			if n > 0 {
				pred.Score = sum / float64(n)
				pred.Predicted = true
			}
		}

		out = append(out, pred)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Predicted != out[j].Predicted {
			return out[i].Predicted
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].MediaID < out[j].MediaID
	})
	return out
}
