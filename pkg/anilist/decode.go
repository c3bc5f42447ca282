package anilist

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// AnimeEntry is one completed-list entry of one user: an immutable
// (media, score) pair on the 0-100 scale. Score 0 means watched but not
// rated.
type AnimeEntry struct {
	MediaID int
	Title   string
	Score   int
}

// PlanningMap maps media ids to titles for a user's planning list. Planning
// entries carry no score.
type PlanningMap map[int]string

// Wire shapes. AniList nests completed entries under
// MediaListCollection.lists[].entries[].
type mediaListCollection struct {
	Lists []struct {
		Entries []struct {
			MediaID int `json:"mediaId"`
			Media   struct {
				Title struct {
					Romaji string `json:"romaji"`
				} `json:"title"`
			} `json:"media"`
			Score int `json:"score"`
		} `json:"entries"`
	} `json:"lists"`
}

type completersPage struct {
	PageInfo struct {
		CurrentPage int  `json:"currentPage"`
		HasNextPage bool `json:"hasNextPage"`
	} `json:"pageInfo"`
	MediaList []completerEntry `json:"mediaList"`
}

type completerEntry struct {
	UserID int `json:"userId"`
	Score  int `json:"score"`
}

// isNull reports whether an aliased payload is absent or JSON null. A null
// alias means that one user was private or missing even though the batch as
// a whole succeeded; the decoder skips it and reports the gap to the caller.
func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// decodeCompletedLists maps a multi-user response onto entries per user
// label. The second return value lists the labels whose aliases were null;
// accounting for those gaps is the caller's responsibility.
func decodeCompletedLists(resp *Response, labels []string) (map[string][]AnimeEntry, []string, error) {
	result := make(map[string][]AnimeEntry, len(labels))
	var missing []string

	for i, label := range labels {
		alias := fmt.Sprintf("u%d", i+1)
		raw, ok := resp.Data[alias]
		if !ok || isNull(raw) {
			missing = append(missing, label)
			continue
		}

		var coll mediaListCollection
		if err := json.Unmarshal(raw, &coll); err != nil {
			return nil, nil, fmt.Errorf("decode %s: %w", alias, err)
		}

		var entries []AnimeEntry
		for _, list := range coll.Lists {
			for _, e := range list.Entries {
				entries = append(entries, AnimeEntry{
					MediaID: e.MediaID,
					Title:   e.Media.Title.Romaji,
					Score:   e.Score,
				})
			}
		}
		result[label] = entries
	}

	return result, missing, nil
}

// decodePlanning maps a planning-list response onto a PlanningMap. A null
// collection decodes to an empty map.
func decodePlanning(resp *Response) (PlanningMap, error) {
	planning := make(PlanningMap)

	raw, ok := resp.Data["MediaListCollection"]
	if !ok || isNull(raw) {
		return planning, nil
	}

	var coll mediaListCollection
	if err := json.Unmarshal(raw, &coll); err != nil {
		return nil, fmt.Errorf("decode planning list: %w", err)
	}

	for _, list := range coll.Lists {
		for _, e := range list.Entries {
			planning[e.MediaID] = e.Media.Title.Romaji
		}
	}
	return planning, nil
}

// decodeCompletersPage extracts one aliased page from a completers response.
// Returns nil for an absent or null page, which marks the end of the data.
func decodeCompletersPage(resp *Response, page int) (*completersPage, error) {
	raw, ok := resp.Data[fmt.Sprintf("p%d", page)]
	if !ok || isNull(raw) {
		return nil, nil
	}

	var p completersPage
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode page %d: %w", page, err)
	}
	return &p, nil
}
