package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/animetrics/anilist-crawler/pkg/anilist"
	"github.com/animetrics/anilist-crawler/pkg/crawl"
	"github.com/animetrics/anilist-crawler/pkg/similarity"
)

var (
	predictRatings string
	predictTop     int
)

var predictCmd = &cobra.Command{
	Use:   "predict <username>",
	Short: "Predict scores for a user's planning list",
	Long: `Predict builds an item-item cosine similarity matrix from a crawled
ratings file, fetches the user's completed and planning lists, and prints a
predicted score for every planning entry.

Example:
  anilist-crawler predict SimpleCore --ratings ratings.json --top 20`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVar(&predictRatings, "ratings", "ratings.json",
		"Crawled ratings file")
	predictCmd.Flags().IntVar(&predictTop, "top", 0,
		"Print only the top N predictions (0 for all)")

	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	username := args[0]

	ratings, err := crawl.LoadRatings(predictRatings)
	if err != nil {
		return err
	}

	matrix, err := similarity.NewMatrix(ratings)
	if err != nil {
		return err
	}
	matrix.Normalize()
	sim := matrix.ItemSimilarity()

	client, err := newClient()
	if err != nil {
		return err
	}

	lists, err := client.FetchCompletedLists(ctx, anilist.UserBatch{Names: []string{username}})
	if err != nil {
		return err
	}
	completed := make(map[int]int)
	for _, entries := range lists {
		for _, e := range entries {
			completed[e.MediaID] = e.Score
		}
	}

	planning, err := client.FetchPlanningList(ctx, anilist.UserRef{Name: username})
	if err != nil {
		return err
	}

	predictions := similarity.PredictPlanning(completed, planning, sim)
	if predictTop > 0 && len(predictions) > predictTop {
		predictions = predictions[:predictTop]
	}

	for _, p := range predictions {
		if p.Predicted {
			fmt.Printf("%7.2f  %s\n", p.Score, p.Title)
		} else {
			fmt.Printf("      -  %s\n", p.Title)
		}
	}
	return nil
}
