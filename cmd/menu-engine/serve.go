// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pdiddy/menu-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the menu extraction HTTP API",
	Long: `Serve starts the HTTP API:

  POST   /extract-menu      resolve a structured menu (cached)
  POST   /extract-simple    recognized text only
  GET    /menus             list stored menus (?limit=&skip=)
  GET    /menus/{name}      fetch a stored menu (?location=)
  DELETE /menus/{name}      evict a stored menu from both tiers
  GET    /health

The same routes are also served under /api/v1.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	p, err := buildPipeline(cfg, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := openTiers(ctx, cfg.Cache)
	defer t.Close()
	resolver := newResolver(p, t, cfg.Cache)
	defer resolver.Wait()

	gin.SetMode(gin.ReleaseMode)
	return server.New(resolver, p, cfg.Server, logger).Run(ctx)
}
