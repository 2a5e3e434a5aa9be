// Command server runs the entropic search service over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mehulsinghal/entropic/pkg/api/rest"
	"github.com/mehulsinghal/entropic/pkg/config"
	"github.com/mehulsinghal/entropic/pkg/observability"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		configFile  = flag.String("config", "", "path to YAML configuration file (optional)")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("entropic server v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg := loadConfig(*configFile)
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger := observability.NewLogger(observability.ParseLevel(cfg.Log.Level), os.Stdout)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	server, err := rest.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("creating server", map[string]interface{}{"error": err.Error()})
	}

	// Serve until interrupted, then drain within the shutdown timeout.
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server stopped", map[string]interface{}{"error": err.Error()})
		}
	case sig := <-sigCh:
		logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func loadConfig(path string) *config.Config {
	if path == "" {
		return config.LoadFromEnv()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
