package main

import (
	"context"

	"MapLayerStore/internal/seed"

	"github.com/spf13/cobra"
)

var skipMissing bool

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load portal documents, grid definitions or navigation trees from files",
}

var importDocumentCmd = &cobra.Command{
	Use:   "document <portal> <file>",
	Short: "Import a portal document (JSON or YAML), creating the portal if needed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := seed.LoadPortalDocument(args[1])
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, cleanup, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := seed.NewImporter(a.store).ImportDocument(ctx, args[0], doc)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var importGridsCmd = &cobra.Command{
	Use:   "grids <portal> <dir>",
	Short: "Import every grid YAML file in a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		seeds, err := seed.LoadGridSeedsFromDir(args[1])
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, cleanup, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := seed.NewImporter(a.store).ImportGrids(ctx, args[0], seeds, skipMissing)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var importTreeCmd = &cobra.Command{
	Use:   "tree <portal> <file>",
	Short: "Replace the portal's navigation tree from a treeConfig file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := seed.LoadTree(args[1])
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, cleanup, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		return seed.NewImporter(a.store).ImportTree(ctx, args[0], nodes)
	},
}

func init() {
	importGridsCmd.Flags().BoolVar(&skipMissing, "skip-missing", true, "skip grid files naming layers the portal does not have")
	importCmd.AddCommand(importDocumentCmd, importGridsCmd, importTreeCmd)
	rootCmd.AddCommand(importCmd)
}
