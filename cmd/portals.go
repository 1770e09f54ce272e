package main

import (
	"context"

	"github.com/spf13/cobra"
)

var portalTitle string

var createPortalCmd = &cobra.Command{
	Use:   "create-portal <code>",
	Short: "Create an empty portal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, cleanup, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		var title *string
		if portalTitle != "" {
			title = &portalTitle
		}
		p, err := a.store.CreatePortal(ctx, args[0], title)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var deletePortalCmd = &cobra.Command{
	Use:   "delete-portal <portal>",
	Short: "Delete a portal with all of its layers, tree, defaults and overrides",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, cleanup, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := a.store.DeletePortal(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

func init() {
	createPortalCmd.Flags().StringVar(&portalTitle, "title", "", "portal title (default: derived from the code)")
	rootCmd.AddCommand(createPortalCmd, deletePortalCmd)
}
