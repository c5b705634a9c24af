package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ce-community/cebot/cebot"
	"github.com/ce-community/cebot/cebot/config"
	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/rolls"
)

var rollsCmd = &cobra.Command{
	Use:   "rolls <user-id>",
	Short: "Print a user's roll log with cooldown ends",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.DefaultQueryTimeout)
		defer cancel()

		return withStores(ctx, func(stores *cebot.Stores) error {
			u, err := stores.Snapshots.GetUser(ctx, args[0])
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("user %s is not tracked", args[0])
			}
			if err != nil {
				return err
			}

			games := make(catalog.Games)
			for _, r := range u.Rolls {
				for _, id := range r.Games {
					if games[id] != nil {
						continue
					}
					if g, err := stores.Snapshots.GetGame(ctx, id); err == nil {
						games[id] = g
					}
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s), rank %s, %d points\n", u.DisplayName, u.ID, u.Rank, u.TotalPoints())
			summaries := rolls.Summarize(u, games, time.Now())
			if len(summaries) == 0 {
				fmt.Fprintln(out, "no rolls")
				return nil
			}
			for _, s := range summaries {
				fmt.Fprintf(out, "- %s [%s] %s, stage %d, started %s\n",
					s.EventName, s.Status, orSolo(s.PartnerID), s.Stage, s.InitTime.Format(time.DateOnly))
				if len(s.Games) > 0 {
					fmt.Fprintf(out, "    games: %s\n", gameNames(s.Games, games))
				}
				if s.DueTime != nil {
					fmt.Fprintf(out, "    due: %s\n", s.DueTime.Format(time.DateTime))
				}
				if s.CooldownEnd != nil {
					state := "over"
					if s.OnCooldown {
						state = "active"
					}
					fmt.Fprintf(out, "    cooldown ends: %s (%s)\n", s.CooldownEnd.Format(time.DateTime), state)
				}
			}
			return nil
		})
	},
}

func orSolo(partner string) string {
	if partner == "" {
		return "solo"
	}
	return "with " + partner
}

func gameNames(ids []string, games catalog.Games) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		if g := games.Lookup(id); g != nil {
			names[i] = g.Name
		} else {
			names[i] = id
		}
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(rollsCmd)
}
