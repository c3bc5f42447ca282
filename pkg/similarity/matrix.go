// Package similarity builds a user-item rating matrix from crawled data and
// computes item-item cosine similarity for score prediction.
package similarity

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/animetrics/anilist-crawler/pkg/crawl"
)

// Matrix is a dense user-item rating matrix. Rows are users, columns are
// media items, both in ascending id order. Unrated cells hold 0 and are
// tracked separately so normalization only touches actual ratings.
type Matrix struct {
	Users []int
	Items []int

	scores  [][]float64
	rated   [][]bool
	userIdx map[int]int
	itemIdx map[int]int
}

// NewMatrix builds a matrix from a crawled ratings table. Duplicate
// (user, item) observations keep the last value seen.
func NewMatrix(ratings crawl.RatingsTable) (*Matrix, error) {
	userSet := make(map[int]struct{})
	itemSet := make(map[int]struct{})

	for mediaKey, scores := range ratings {
		mediaID, err := strconv.Atoi(mediaKey)
		if err != nil {
			return nil, fmt.Errorf("invalid media id %q: %w", mediaKey, err)
		}
		itemSet[mediaID] = struct{}{}
		for _, us := range scores {
			for userKey := range us {
				userID, err := strconv.Atoi(userKey)
				if err != nil {
					return nil, fmt.Errorf("invalid user id %q: %w", userKey, err)
				}
				userSet[userID] = struct{}{}
			}
		}
	}

	m := &Matrix{
		Users:   sortedKeys(userSet),
		Items:   sortedKeys(itemSet),
		userIdx: make(map[int]int, len(userSet)),
		itemIdx: make(map[int]int, len(itemSet)),
	}
	for i, u := range m.Users {
		m.userIdx[u] = i
	}
	for j, it := range m.Items {
		m.itemIdx[it] = j
	}

	m.scores = make([][]float64, len(m.Users))
	m.rated = make([][]bool, len(m.Users))
	for i := range m.scores {
		m.scores[i] = make([]float64, len(m.Items))
		m.rated[i] = make([]bool, len(m.Items))
	}

	for mediaKey, scores := range ratings {
		mediaID, _ := strconv.Atoi(mediaKey)
		j := m.itemIdx[mediaID]
		for _, us := range scores {
			for userKey, score := range us {
				userID, _ := strconv.Atoi(userKey)
				i := m.userIdx[userID]
				m.scores[i][j] = float64(score)
				m.rated[i][j] = true
			}
		}
	}

	return m, nil
}

// Score returns the rating of (userID, mediaID) and whether it exists.
func (m *Matrix) Score(userID, mediaID int) (float64, bool) {
	i, ok := m.userIdx[userID]
	if !ok {
		return 0, false
	}
	j, ok := m.itemIdx[mediaID]
	if !ok {
		return 0, false
	}
	if !m.rated[i][j] {
		return 0, false
	}
	return m.scores[i][j], true
}

// Normalize centers every user's ratings on their own mean, computed over
// rated cells only. Unrated cells stay at 0, which after centering means
// "average" rather than "terrible".
func (m *Matrix) Normalize() {
	for i := range m.scores {
		var sum float64
		var n int
		for j := range m.scores[i] {
			if m.rated[i][j] {
				sum += m.scores[i][j]
				n++
			}
		}
		if n == 0 {
			continue
		}
		mean := sum / float64(n)
		for j := range m.scores[i] {
			if m.rated[i][j] {
				m.scores[i][j] -= mean
			}
		}
	}
}

// SimMatrix is a symmetric item-item cosine similarity matrix.
type SimMatrix struct {
	Items []int

	sim     [][]float64
	itemIdx map[int]int
}

// ItemSimilarity computes pairwise cosine similarity between item columns.
// Items whose column is all zeros get similarity 0 against everything.
func (m *Matrix) ItemSimilarity() *SimMatrix {
	n := len(m.Items)

	norms := make([]float64, n)
	for j := 0; j < n; j++ {
		var sum float64
		for i := range m.scores {
			v := m.scores[i][j]
			sum += v * v
		}
		norms[j] = math.Sqrt(sum)
	}

	sim := make([][]float64, n)
	for j := range sim {
		sim[j] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			if norms[a] == 0 || norms[b] == 0 {
				continue
			}
			var dot float64
			for i := range m.scores {
				dot += m.scores[i][a] * m.scores[i][b]
			}
			v := dot / (norms[a] * norms[b])
			sim[a][b] = v
			sim[b][a] = v
		}
	}

	return &SimMatrix{
		Items:   m.Items,
		sim:     sim,
		itemIdx: m.itemIdx,
	}
}

// At returns the similarity between two items and whether both are known.
func (s *SimMatrix) At(a, b int) (float64, bool) {
	i, ok := s.itemIdx[a]
	if !ok {
		return 0, false
	}
	j, ok := s.itemIdx[b]
	if !ok {
		return 0, false
	}
	return s.sim[i][j], true
}

func sortedKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
