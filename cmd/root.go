package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"MapLayerStore/internal/config"
	"MapLayerStore/internal/db"
	"MapLayerStore/internal/logger"
	"MapLayerStore/internal/resolver"
	"MapLayerStore/internal/store"

	"github.com/spf13/cobra"
)

var (
	cfg       *config.Config
	debugFlag bool
	envFlag   string
)

var rootCmd = &cobra.Command{
	Use:           "maplayerstore",
	Short:         "Map layer configuration store",
	Long:          `Stores the layer configuration of map portals in PostgreSQL and renders the portal documents clients load.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.LoadConfig()
		if err := logger.Init(cfg.LogDir, "app"); err != nil {
			return fmt.Errorf("log init failed: %w", err)
		}
		logger.SetDebug(debugFlag)
		if envFlag == "" {
			envFlag = cfg.Environment
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "environment whose overrides apply (default: LAYER_ENV)")
}

// app holds the connections a command needs.
type app struct {
	store    *store.Store
	resolver *resolver.Resolver
	cache    *resolver.Cache
}

// openApp connects to PostgreSQL and, when configured, Redis. Mutations
// through the returned store invalidate cached documents of the touched portals.
func openApp(ctx context.Context) (*app, func(), error) {
	if err := db.InitPostgresWithConns(cfg.PostgresDSN, cfg.MaxConns); err != nil {
		logger.Error("postgres_init_failed", map[string]any{"error": err.Error()})
		return nil, nil, err
	}
	logger.Info("postgres_connected", nil)

	db.InitRedis(cfg.RedisAddr)
	if err := db.PingRedis(ctx); err != nil {
		logger.Warn("redis_unreachable", map[string]any{"error": err.Error()})
		db.CloseRedis()
	}

	st := store.New(db.Pool)
	cache := resolver.NewCache(db.RDB, time.Duration(cfg.DocumentTTL)*time.Second)
	st.OnChange(cache.Invalidate)

	cleanup := func() {
		db.CloseRedis()
		db.ClosePostgres()
	}
	return &app{store: st, resolver: resolver.New(st, cache), cache: cache}, cleanup, nil
}

func printJSON(v any) error { return writeJSON(os.Stdout, v) }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
