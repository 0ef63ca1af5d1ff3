package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/roundtrip/internal/config"
	"github.com/eddiefleurent/roundtrip/internal/dashboard"
	"github.com/eddiefleurent/roundtrip/internal/engine"
	"github.com/eddiefleurent/roundtrip/internal/util"
)

func main() {
	var configPath string
	var serve bool
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.BoolVar(&serve, "serve", false, "Serve results over the dashboard API after reconciling")
	flag.Parse()

	// Optional .env for local runs; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: reconcile [-config config.yaml] [-serve] source=export.json ...")
		os.Exit(2)
	}

	imports, err := loadImports(cfg, flag.Args())
	if err != nil {
		logger.WithError(err).Fatal("Failed to load inputs")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	results, err := engine.ReconcileAll(ctx, imports, logger)
	if err != nil {
		logger.WithError(err).Fatal("Reconciliation failed")
	}

	printSummary(os.Stdout, results)

	if serve || cfg.Dashboard.Enabled {
		runDashboard(ctx, cfg, results, logger)
	}
}

func runDashboard(ctx context.Context, cfg *config.Config, results []*engine.Result, logger *logrus.Logger) {
	srv := dashboard.NewServer(dashboard.Config{
		Port:      cfg.Dashboard.Port,
		AuthToken: cfg.Dashboard.AuthToken,
	}, logger)

	served := make([]engine.Result, 0, len(results))
	for _, res := range results {
		if res != nil {
			served = append(served, *res)
		}
	}
	srv.SetResults(served)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Dashboard server failed")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Dashboard shutdown failed")
		}
	}
}

func printSummary(w *os.File, results []*engine.Result) {
	for _, res := range results {
		if res == nil {
			continue
		}
		rep := res.Report
		fmt.Fprintf(w, "%s: %d rows, %d matched, %d partial, %d open, P/L %s\n",
			rep.Source, rep.Rows, rep.Matched, rep.Partial, rep.Open,
			util.FormatSignedUSD(rep.TotalPL))
		for _, warning := range rep.Warnings() {
			fmt.Fprintf(w, "  warning: %s\n", warning)
		}
	}
}
