// Command levels prints the merged support/resistance table for one or
// more TradingView CSV exports. It is fully offline: no model calls, no
// network.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/marvinguevarra/trading-analyzer/internal/analysis"
	"github.com/marvinguevarra/trading-analyzer/internal/parsers"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

func main() {
	window := flag.Int("window", 0, "swing detection window (odd, default from config)")
	tolerance := flag.Float64("tolerance", 0, "level merge tolerance in percent")
	gaps := flag.Bool("gaps", false, "also print unfilled gaps for the first file")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: levels [flags] <file.csv> [more.csv ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := analysis.DefaultConfig()
	if *window > 0 {
		cfg.SwingWindow = *window
	}
	if *tolerance > 0 {
		cfg.TolerancePct = *tolerance
		cfg.ConfluenceTolerancePct = *tolerance
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	byTimeframe := map[string][]types.Level{}
	timeframes := []string{}
	var primary types.Series

	for i, path := range flag.Args() {
		parsed, err := parsers.Load(ctx, path)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}
		if !parsed.Quality.Valid() {
			log.Fatalf("%s: data quality too low (score %.2f): %s",
				path, parsed.Quality.Score, strings.Join(parsed.Quality.Errors, "; "))
		}
		for _, w := range parsed.Quality.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", path, w)
		}

		s := parsed.Series
		if i == 0 {
			primary = s
		}
		byTimeframe[s.Timeframe] = analysis.ExtractLevels(s, cfg, i == 0)
		timeframes = append(timeframes, s.Timeframe)
	}

	merged := analysis.MergeConfluence(byTimeframe, cfg)
	summary := analysis.SummarizeLevels(merged, primary.LastClose(), timeframes, cfg)

	fmt.Printf("%s @ %.2f (%s)\n\n", primary.Symbol, summary.CurrentPrice, strings.Join(timeframes, ", "))

	printLevels("KEY LEVELS", summary.KeyLevels)
	printLevels("MINOR LEVELS", summary.MinorLevels)

	if *gaps {
		printGaps(analysis.UnfilledGaps(analysis.DetectGaps(primary, cfg.MinGapPct)))
	}
}

func printLevels(title string, levels []types.Level) {
	fmt.Println(title)
	if len(levels) == 0 {
		fmt.Println("  (none)")
		fmt.Println()
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  PRICE\tKIND\tSTRENGTH\tSOURCE\tTOUCHES\tTIMEFRAMES")
	for _, lv := range levels {
		frames := lv.Timeframe
		source := string(lv.Source)
		if lv.IsConfluence {
			frames = strings.Join(lv.ConfluenceTimeframes, "+")
			source = "confluence"
		}
		fmt.Fprintf(w, "  %.2f\t%s\t%d\t%s\t%d\t%s\n",
			lv.Price, lv.Kind, lv.Strength, source, lv.Touches, frames)
	}
	w.Flush()
	fmt.Println()
}

func printGaps(gaps []types.Gap) {
	fmt.Println("UNFILLED GAPS")
	if len(gaps) == 0 {
		fmt.Println("  (none)")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  DATE\tDIR\tRANGE\tSIZE\tTYPE\tSEVERITY")
	for _, g := range gaps {
		fmt.Fprintf(w, "  %s\t%s\t%.2f-%.2f\t%.2f%%\t%s\t%d/10\n",
			g.Date.Format("2006-01-02"), g.Direction, g.Low, g.High, g.SizePct, g.Type, g.Severity)
	}
	w.Flush()
}
