package main

import (
	"context"
	"fmt"

	"MapLayerStore/internal/schemacheck"

	"github.com/spf13/cobra"
)

var checkSchemaCmd = &cobra.Command{
	Use:   "check-schema",
	Short: "Compare the live database schema with the one the store expects",
	RunE: func(cmd *cobra.Command, args []string) error {
		problems, err := schemacheck.Check(context.Background(), cfg.PostgresDSN)
		if err != nil {
			return err
		}
		if len(problems) == 0 {
			fmt.Println("schema ok")
			return nil
		}
		for _, p := range problems {
			fmt.Println(p.String())
		}
		return fmt.Errorf("%d schema problems", len(problems))
	},
}

func init() {
	rootCmd.AddCommand(checkSchemaCmd)
}
