package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ce-community/cebot/cebot"
	"github.com/ce-community/cebot/cebot/config"
	"github.com/ce-community/cebot/internal/domain/events"
)

var postEvents bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run a single reconciliation pass and print its report",
	Long: `Run one reconciliation pass against the configured store.

Events are printed as JSON lines unless --post is given, in which case
they are posted to the configured channels.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.PassTimeout)
		defer cancel()

		return withStores(ctx, func(stores *cebot.Stores) error {
			b := cebot.New(*cfg, Version, Commit)
			b.Stores = stores

			out := cmd.OutOrStdout()
			sink := events.Sink(events.SinkFunc(func(_ context.Context, evs []events.Event) error {
				enc := json.NewEncoder(out)
				for _, ev := range evs {
					if err := enc.Encode(ev); err != nil {
						return err
					}
				}
				return nil
			}))
			if postEvents {
				if err := b.SetupBot(); err != nil {
					return fmt.Errorf("setup bot: %w", err)
				}
				defer b.Client.Close(context.Background())
				sink = b.Sink()
			}
			b.SetupEngine(sink)

			report, err := b.Engine.RunPass(ctx)
			if err != nil {
				return err
			}
			if stores.Passes != nil {
				if err := stores.Passes.Save(ctx, report); err != nil {
					return fmt.Errorf("save report: %w", err)
				}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		})
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&postEvents, "post", false, "post events to the configured channels")
	rootCmd.AddCommand(reconcileCmd)
}
