// Package cache persists finished reports to a local SQLite database so
// repeated runs on the same symbol and day skip the fetch and model
// spend.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// ReportCache stores one report per symbol and trading day.
type ReportCache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the cache database and runs migrations.
func Open(dbPath string) (*ReportCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so a concurrent reader does not block report writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	c := &ReportCache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return c, nil
}

func (c *ReportCache) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol       TEXT NOT NULL,
			day          TEXT NOT NULL,
			run_id       TEXT NOT NULL,
			generated_at INTEGER NOT NULL,
			cost_usd     REAL,
			payload      TEXT NOT NULL,
			UNIQUE(symbol, day)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_symbol ON reports(symbol)`,
	}

	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Put stores a report, replacing any earlier report for the same symbol
// and day.
func (c *ReportCache) Put(ctx context.Context, report *types.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	day := report.GeneratedAt.UTC().Format("2006-01-02")

	_, err = c.db.ExecContext(ctx, `INSERT INTO reports
		(symbol, day, run_id, generated_at, cost_usd, payload)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(symbol, day) DO UPDATE SET
			run_id=excluded.run_id,
			generated_at=excluded.generated_at,
			cost_usd=excluded.cost_usd,
			payload=excluded.payload`,
		report.Symbol, day, report.RunID,
		report.GeneratedAt.Unix(), report.CostUSD, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	logger.Debug(ctx, "Report cached", "symbol", report.Symbol, "day", day, "run_id", report.RunID)
	return nil
}

// Get returns the cached report for a symbol on the given day, or
// (nil, nil) on a miss.
func (c *ReportCache) Get(ctx context.Context, symbol string, day time.Time) (*types.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var payload string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM reports WHERE symbol = ? AND day = ?`,
		symbol, day.UTC().Format("2006-01-02"),
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}

	var report types.Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("unmarshal cached report: %w", err)
	}
	return &report, nil
}

// History returns the most recent cached reports for a symbol, newest
// first.
func (c *ReportCache) History(ctx context.Context, symbol string, limit int) ([]types.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.QueryContext(ctx,
		`SELECT payload FROM reports WHERE symbol = ? ORDER BY generated_at DESC LIMIT ?`,
		symbol, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	reports := []types.Report{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r types.Report
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("unmarshal cached report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Prune deletes reports older than the retention window.
func (c *ReportCache) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).Unix()
	res, err := c.db.ExecContext(ctx, `DELETE FROM reports WHERE generated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune reports: %w", err)
	}
	return res.RowsAffected()
}

func (c *ReportCache) Close() error {
	return c.db.Close()
}
