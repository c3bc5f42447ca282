package anilist

import (
	"context"
)

// FetchCompletedLists fetches the completed lists of every user in the batch
// in a single round trip. The result maps user labels (usernames or decimal
// ids, per UserBatch.Labels) to their entries. Users whose alias came back
// null are logged and absent from the result; that is distinct from the
// batch-level PrivateUser/UserNotFound error, which fires when the upstream
// rejects the whole request.
func (c *Client) FetchCompletedLists(ctx context.Context, batch UserBatch) (map[string][]AnimeEntry, error) {
	doc, err := BuildCompletedListQuery(batch)
	if err != nil {
		return nil, err
	}

	resp, err := c.Execute(ctx, doc)
	if err != nil {
		return nil, err
	}

	result, missing, err := decodeCompletedLists(resp, batch.Labels())
	if err != nil {
		return nil, err
	}
	for _, label := range missing {
		c.logger.Warn().
			Str("user", label).
			Msg("No data for user, possibly private or not found")
	}
	return result, nil
}

// FetchPlanningList fetches one user's planning list: the media they intend
// to watch, without scores.
func (c *Client) FetchPlanningList(ctx context.Context, ref UserRef) (PlanningMap, error) {
	doc, err := BuildPlanningQuery(ref)
	if err != nil {
		return nil, err
	}

	resp, err := c.Execute(ctx, doc)
	if err != nil {
		return nil, err
	}

	return decodePlanning(resp)
}
