package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ce-community/cebot/cebot"
	"github.com/ce-community/cebot/cebot/config"
	"github.com/ce-community/cebot/cebot/services"
)

var searchLimit int

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "Inspect stored game snapshots",
}

var gamesFindCmd = &cobra.Command{
	Use:   "find <query>",
	Short: "Find stored games by approximate name or exact id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.SearchTimeout)
		defer cancel()

		return withStores(ctx, func(stores *cebot.Stores) error {
			search := services.NewGameSearchService(stores.Snapshots)
			games, err := search.Search(ctx, strings.Join(args, " "), searchLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(games) == 0 {
				_, err := fmt.Fprintln(out, "no games found")
				return err
			}
			for _, g := range games {
				if _, err := fmt.Fprintf(out, "%-24s  T%d  %5d pts  %-12s  %s\n",
					g.ID, g.Tier(), g.TotalPoints(), g.Category, g.Name); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	gamesFindCmd.Flags().IntVarP(&searchLimit, "limit", "n", config.MaxSearchResults, "maximum number of results")
	gamesCmd.AddCommand(gamesFindCmd)
	rootCmd.AddCommand(gamesCmd)
}
