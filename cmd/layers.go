package main

import (
	"context"
	"fmt"
	"os"

	"MapLayerStore/internal/store"

	"github.com/spf13/cobra"
)

var (
	exportOut     string
	promoteFrom   string
	promoteTo     string
	promoteMove   bool
	flushDocCache bool
)

var exportCmd = &cobra.Command{
	Use:   "export <portal>",
	Short: "Print the portal document the clients load",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, cleanup, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		if flushDocCache {
			if err := a.cache.Flush(ctx); err != nil {
				return err
			}
		}
		doc, err := a.resolver.Document(ctx, args[0], envFlag)
		if err != nil {
			return err
		}
		if exportOut == "" {
			return printJSON(doc)
		}
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		return writeJSON(f, doc)
	},
}

var deleteLayerCmd = &cobra.Command{
	Use:   "delete-layer <portal> <layerKey>",
	Short: "Delete a layer and every row that refers to it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, cleanup, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := a.store.DeleteLayer(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var cloneCmd = &cobra.Command{
	Use:   "clone <portal> <sourceKey> <targetKey>...",
	Short: "Copy a layer's grid and style configuration onto other layers",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, cleanup, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := a.store.CloneLayerConfig(ctx, args[0], args[1], args[2:])
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote <keyPattern>",
	Short: "Copy layers whose key matches a LIKE pattern into another portal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if promoteFrom == "" || promoteTo == "" {
			return fmt.Errorf("--from and --to are required")
		}
		ctx := context.Background()
		a, cleanup, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := a.store.PromoteLayers(ctx, store.PromoteRequest{
			SourcePortal: promoteFrom,
			DestPortal:   promoteTo,
			KeyPattern:   args[0],
			Move:         promoteMove,
		})
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write the document to a file instead of stdout")
	exportCmd.Flags().BoolVar(&flushDocCache, "fresh", false, "drop cached documents before rendering")
	promoteCmd.Flags().StringVar(&promoteFrom, "from", "", "source portal code")
	promoteCmd.Flags().StringVar(&promoteTo, "to", "", "destination portal code")
	promoteCmd.Flags().BoolVar(&promoteMove, "move", false, "delete the promoted layers from the source portal")
	rootCmd.AddCommand(exportCmd, deleteLayerCmd, cloneCmd, promoteCmd)
}
