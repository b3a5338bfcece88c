package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marvinguevarra/trading-analyzer/internal/costlog"
	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/orchestrator"
	"github.com/marvinguevarra/trading-analyzer/internal/outputs"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	symbol := flag.String("symbol", "", "symbol override")
	dataDir := flag.String("data", "", "CSV data directory override (forces CSV mode)")
	format := flag.String("format", "", "comma-separated output formats override (markdown,json)")
	noCache := flag.Bool("no-cache", false, "skip the report cache")
	flag.Parse()

	must(initializeSystem())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if v := os.Getenv("ANALYZER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := costlog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old ledgers", "error", err)
		}
	}

	cfg, err := loadConfig(ctx, *configPath, *symbol, *dataDir, *format)
	must(err)

	deps, cleanup, err := buildDeps(ctx, cfg, *noCache)
	must(err)
	defer cleanup()

	report, err := orchestrator.New(cfg, deps).Run(ctx)
	must(err)

	written, err := outputs.Write(ctx, cfg.Output.Dir, cfg.Output.Formats, report)
	must(err)

	for _, path := range written {
		fmt.Println(path)
	}
}
