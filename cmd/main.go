package main

//
//  @title           plpulse API
//  @version         1.0
//  @description     Daily stock P&L collection service: Polygon snapshots in, Redis cache out.
//  @contact.name    API Support
//  @contact.url     https://github.com/rmoretti/plpulse
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        collect
//  @tag.description Trigger a collection run
//
//  @tag.name        pl
//  @tag.description Query stored P&L entries
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rmoretti/plpulse/config"
	_ "github.com/rmoretti/plpulse/docs" // swagger docs
	"github.com/rmoretti/plpulse/internal/app"
	"github.com/rmoretti/plpulse/internal/logger"
)

// startServer initializes and starts the HTTP server in a separate
// goroutine, returning the server for graceful shutdown.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// Collection runs stream back the whole entry set; give writes room.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown terminates the HTTP server and runs cleanup when SIGINT
// or SIGTERM arrives.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// resolvePort prefers the --port flag, falling back to the configured
// SERVER_PORT. Empty flag value means "not set".
func resolvePort(flagPort, cfgPort string) string {
	if flagPort != "" {
		return flagPort
	}
	return cfgPort
}

// runCollect performs one collection pass and prints the run summary: the
// entry count plus the first printLimit entries as indented JSON.
func runCollect(ctx context.Context, cfg config.Config, printLimit int) {
	collector, _, cleanup, err := app.BuildCollector(cfg)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("wiring failed")
	}
	defer cleanup()

	entries, err := collector.Collect(ctx)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("collection run failed")
	}

	fmt.Printf("Collected daily P&L for %d tickers.\n", len(entries))

	if printLimit < 0 {
		printLimit = 5
	}
	subset := entries
	if len(subset) > printLimit {
		subset = subset[:printLimit]
	}
	out, err := json.MarshalIndent(subset, "", "  ")
	if err != nil {
		logger.L().Fatal().Err(err).Msg("serialize entries")
	}
	fmt.Println(string(out))
}

// main is the entry point of the plpulse application.
//
// Modes (selected via --mode flag):
//   - collect: Run one collection pass and print the result (default).
//     This is what a scheduler invokes once per trading day.
//   - api:     Start the REST API exposing the collect trigger and stored
//     P&L lookups.
//
// Flags:
//   - --mode:        Execution mode ("collect" or "api"). Default: "collect".
//   - --print-limit: How many entries collect mode prints. Default: 5.
//   - --port:        Port for api mode. Defaults to SERVER_PORT from config.
func main() {
	ctx := context.Background()

	// Initialize JSON logger first so config failures are reported through it.
	logger.InitFromEnv()

	// Flags parse before config so --help (and a bad flag) work without a
	// configured environment.
	mode := flag.String("mode", "collect", "Mode: collect or api")
	printLimit := flag.Int("print-limit", 5, "How many collected entries to print (collect mode)")
	port := flag.String("port", "", "Port for api mode (defaults to SERVER_PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("configuration error")
	}
	listenPort := resolvePort(*port, cfg.Server.Port)

	switch *mode {
	case "collect":
		logger.L().Info().Msg("running collection")
		runCollect(ctx, cfg, *printLimit)

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp(cfg)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, listenPort)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
