package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ce-community/cebot/cebot"
	"github.com/ce-community/cebot/internal/gateways/database"
)

var migrateTarget string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy every snapshot from the configured store into another driver",
	Long: `Copy games and users from the configured store into the store named by --to.

The target uses the connection settings of the same config file.
Existing target records are overwritten; nothing is deleted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateTarget == cfg.Store.Driver {
			return fmt.Errorf("source and target are both %s", migrateTarget)
		}
		target := *cfg
		target.Store.Driver = migrateTarget
		if err := target.Validate(); err != nil {
			return fmt.Errorf("target config: %w", err)
		}

		ctx := cmd.Context()
		return withStores(ctx, func(src *cebot.Stores) error {
			dst, err := openStores(ctx, target)
			if err != nil {
				return fmt.Errorf("open target: %w", err)
			}
			defer dst.Close()

			stats, err := database.CopySnapshots(ctx, src.Snapshots, dst.Snapshots)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "copied %d games and %d users from %s to %s\n",
				stats.Games, stats.Users, cfg.Store.Driver, migrateTarget)
			return err
		})
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateTarget, "to", "", "target store driver (mongo, postgres or memory)")
	_ = migrateCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(migrateCmd)
}
