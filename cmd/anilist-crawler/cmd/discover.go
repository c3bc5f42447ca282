package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/animetrics/anilist-crawler/pkg/crawl"
)

var (
	discoverOut   string
	discoverUsers int
)

var discoverCmd = &cobra.Command{
	Use:   "discover <username>",
	Short: "Discover users who rated the seed user's anime",
	Long: `Discover walks the seed user's completed and planning lists and, for
every anime on them, pages through the users who completed and rated it.
The union is written as a flat JSON array of user ids, ready for the
ratings command.

Example:
  anilist-crawler discover SimpleCore --users-per-item 100 --out other_users.json`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVarP(&discoverOut, "out", "o", "other_users.json",
		"Output file for the discovered user ids")
	discoverCmd.Flags().IntVar(&discoverUsers, "users-per-item", 0,
		"Override maximum users collected per anime")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newClient()
	if err != nil {
		return err
	}

	dcfg := crawl.DiscoverConfig{PerItemCap: cfg.Crawl.UsersPerItem}
	if discoverUsers > 0 {
		dcfg.PerItemCap = discoverUsers
	}

	ids, err := crawl.DiscoverUsers(ctx, client, args[0], dcfg)
	if err != nil {
		return err
	}

	if err := crawl.WriteUserSet(discoverOut, ids); err != nil {
		return err
	}
	log.Info().
		Int("users", len(ids)).
		Str("out", discoverOut).
		Msg("Discovery complete")
	return nil
}
