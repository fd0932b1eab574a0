package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"candycheck/internal/config"
	"candycheck/internal/logging"
	"candycheck/internal/mcp"
)

// serveCmd runs the MCP stdio server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP tools on stdin/stdout",
	Long: `Runs the candycheck MCP server on stdin/stdout, speaking newline-delimited
JSON-RPC 2.0. Point an MCP client at it:

  {"command": "candycheck", "args": ["serve"]}

The config file is watched while serving; edited reward parameters apply
to sessions created after the reload.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logging.Configure(loggingOptions(cfg)); err != nil {
		logger.Warn("Subsystem logging disabled", zap.Error(err))
	}
	defer logging.CloseAll()

	eng, cleanup, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Reload tunables while serving. New sessions pick up edited reward
	// parameters; live sessions keep the economy they started with.
	watcher, err := config.NewWatcher(configPath, func(next *config.Config) {
		eng.SetParams(rewardParams(next))
		if err := logging.Configure(loggingOptions(next)); err != nil {
			logger.Warn("Subsystem logging reconfigure failed", zap.Error(err))
		}
		logger.Info("Configuration reloaded", zap.String("path", configPath))
	})
	if err != nil {
		logger.Warn("Config watcher unavailable", zap.Error(err))
	} else {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("Config watcher failed to start", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	srv := mcp.NewServer(eng, os.Stdin, os.Stdout, Version)
	logger.Info("Serving MCP on stdio",
		zap.String("checker", cfg.Checker.Binary),
		zap.String("session", srv.DefaultSession()))

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		return nil
	case err := <-errCh:
		return err
	}
}
