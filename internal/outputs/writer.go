package outputs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marvinguevarra/trading-analyzer/internal/logger"
	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// JSON renders the report as indented JSON.
func JSON(r *types.Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Write renders the report in each requested format and writes it under
// dir as <symbol>_<day>.<ext>. Known formats are "markdown" and "json".
func Write(ctx context.Context, dir string, formats []string, r *types.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	base := fmt.Sprintf("%s_%s", strings.ToUpper(r.Symbol), r.GeneratedAt.UTC().Format("2006-01-02"))

	written := []string{}
	for _, format := range formats {
		var (
			path string
			data []byte
			err  error
		)
		switch strings.ToLower(format) {
		case "markdown", "md":
			path = filepath.Join(dir, base+".md")
			data = []byte(Markdown(r))
		case "json":
			path = filepath.Join(dir, base+".json")
			data, err = JSON(r)
		default:
			return written, fmt.Errorf("unknown output format %q", format)
		}
		if err != nil {
			return written, err
		}

		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
		logger.Info(ctx, "Report written", "path", path, "format", format)
	}

	return written, nil
}
