// Package crawl implements the resumable batch crawling pipeline: it
// partitions a user-id list into batches, folds fetched completed lists into
// a ratings table, persists periodic checkpoints, and discovers users from a
// seed user's anime list.
package crawl

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// UserScore is a single-key mapping from a user id (decimal string) to one
// score. The ratings file format represents every (user, item) observation
// as one of these.
type UserScore map[string]int

// RatingsTable accumulates the crawled dataset: media id (string key) to the
// ordered sequence of user scores observed for it. Append-only during a
// crawl; keys are never removed.
type RatingsTable map[string][]UserScore

// Checkpoint is a snapshot of exactly where a pipeline run left off.
// RemainingUsers excludes every user already folded into Ratings, so
// reloading and resuming is equivalent to an uninterrupted run (modulo
// upstream data drift).
type Checkpoint struct {
	Ratings        RatingsTable `json:"ratings"`
	RemainingUsers []int        `json:"remaining_users"`
	LastBatch      int          `json:"last_batch"`
}

// SaveCheckpoint persists a checkpoint to path. The write goes through a
// temp file and rename so a crash mid-write never corrupts the previous
// checkpoint.
func SaveCheckpoint(path string, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	return writeFileAtomic(path, data)
}

// LoadCheckpoint reads a checkpoint previously written by SaveCheckpoint.
func LoadCheckpoint(path string) (Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	if cp.Ratings == nil {
		cp.Ratings = make(RatingsTable)
	}
	return cp, nil
}

// WriteRatings writes the final result file: the ratings table alone,
// pretty-printed.
func WriteRatings(path string, ratings RatingsTable) error {
	data, err := json.MarshalIndent(ratings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ratings: %w", err)
	}
	return writeFileAtomic(path, data)
}

// LoadRatings reads a ratings file written by WriteRatings.
func LoadRatings(path string) (RatingsTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ratings: %w", err)
	}

	ratings := make(RatingsTable)
	if err := json.Unmarshal(data, &ratings); err != nil {
		return nil, fmt.Errorf("decode ratings: %w", err)
	}
	return ratings, nil
}

// WriteUserSet writes discovered user ids as a flat JSON array.
func WriteUserSet(path string, ids []int) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal user set: %w", err)
	}
	return writeFileAtomic(path, data)
}

// LoadUserIDs reads a flat JSON array of user ids.
func LoadUserIDs(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read user ids: %w", err)
	}

	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode user ids: %w", err)
	}
	return ids, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
