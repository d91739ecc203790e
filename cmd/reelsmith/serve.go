package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kweiss/reelsmith/internal/config"
	"github.com/kweiss/reelsmith/internal/server"
)

var (
	servePort       int
	serveConfigPath string
	serveSimulate   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for creating, controlling, and observing pipeline runs. Runs left unfinished by a previous process are resumed on boot.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to YAML config file")
	serveCmd.Flags().BoolVar(&serveSimulate, "simulate", false, "Use placeholder planner and media tools")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	if serveSimulate {
		// Flag beats both config file and environment.
		if err := os.Setenv("SIMULATE", "true"); err != nil {
			return err
		}
	}
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	ctx := context.Background()
	c, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Manager.RecoverOnBoot(ctx); err != nil {
		return fmt.Errorf("recovery failed: %w", err)
	}

	srv, err := server.New(cfg, server.Deps{
		Manager:     c.Manager,
		Registry:    c.Registry,
		Bus:         c.Bus,
		Checkpoints: c.Checkpoints,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
