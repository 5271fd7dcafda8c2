package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/HSouheill/nestfire_backend/app"
)

func newReconcileCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair like counters, follow mirrors and id lists",
		Long: `Re-derive every duplicated reference from its authoritative side:
post like counters from users' liked posts, follower/following pairs,
each user's post list and each post's comment list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			reconciler, closeFn, err := app.NewReconciler(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn(context.Background())

			report, err := reconciler.Run(ctx, dryRun)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report drift without writing")
	return cmd
}
