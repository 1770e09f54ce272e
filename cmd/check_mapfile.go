package main

import (
	"context"
	"fmt"

	"MapLayerStore/internal/logger"
	"MapLayerStore/internal/mapfile"

	"github.com/spf13/cobra"
)

var checkMapfileCmd = &cobra.Command{
	Use:   "check-mapfile <portal> <mapfile>",
	Short: "Compare a MapServer mapfile's LAYER names with the portal's WMS layers",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := mapfile.LayerNamesFromFile(args[1])
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, cleanup, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		wms, err := a.store.WMSLayers(ctx, args[0])
		if err != nil {
			return err
		}
		report := mapfile.Compare(args[0], names, wms)
		logger.Info("mapfile_checked", map[string]any{
			"portal": args[0], "mapfile": args[1], "missing": len(report.Missing), "unused": len(report.Unused),
		})
		if err := printJSON(report); err != nil {
			return err
		}
		if !report.OK() {
			return fmt.Errorf("%d requested WMS layer(s) missing from %s", len(report.Missing), args[1])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkMapfileCmd)
}
