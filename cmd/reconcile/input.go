package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/eddiefleurent/roundtrip/internal/config"
	"github.com/eddiefleurent/roundtrip/internal/engine"
)

// loadImports resolves "source=path.json" arguments against the configured
// sources and reads each export. Input files hold a JSON array of rows, each
// row an object of column name to cell value, in the export's native order.
func loadImports(cfg *config.Config, args []string) ([]engine.Import, error) {
	sources := make(map[string]config.SourceConfig, len(cfg.Sources))
	for _, src := range cfg.Sources {
		sources[src.Name] = src
	}

	imports := make([]engine.Import, 0, len(args))
	for _, arg := range args {
		name, path, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid input %q, expected source=path.json", arg)
		}

		src, found := sources[name]
		if !found {
			return nil, fmt.Errorf("source %q not declared in config", name)
		}
		profile, err := src.Profile()
		if err != nil {
			return nil, err
		}

		rows, err := readRows(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		imports = append(imports, engine.Import{Profile: profile, Rows: rows})
	}
	return imports, nil
}

// readRows reads a pre-parsed export into header-keyed rows, preserving
// file order.
func readRows(path string) ([]map[string]string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is a user-provided export file
	if err != nil {
		return nil, err
	}

	var rows []map[string]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing rows: %w", err)
	}
	return rows, nil
}
