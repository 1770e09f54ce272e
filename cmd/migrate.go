package main

import (
	"fmt"
	"strconv"

	"MapLayerStore/internal/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back schema versions",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.MigrateUp(cfg.PostgresDSN); err != nil {
			return err
		}
		return printVersion()
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back the given number of versions (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("steps: %w", err)
			}
			steps = n
		}
		if err := db.MigrateDown(cfg.PostgresDSN, steps); err != nil {
			return err
		}
		return printVersion()
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printVersion()
	},
}

func printVersion() error {
	v, dirty, ok, err := db.SchemaVersion(cfg.PostgresDSN)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("no schema version applied")
		return nil
	}
	fmt.Printf("schema version %d (dirty: %t)\n", v, dirty)
	return nil
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
