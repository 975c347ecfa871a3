package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ibms-reporting-service/internal/ingest"
)

// ImportStep pairs one extract file with the table type it loads.
type ImportStep struct {
	Path      string
	TableType ingest.TableType
}

// CreateImportPlan scans a data directory for extract files named after
// their table type (e.g. glpivotdownload.csv) and returns them as an
// ordered load plan: reference tables first, the GL pivot last, so the
// pivot's bulk replace lands on fully loaded references.
func CreateImportPlan(dataDir string) ([]ImportStep, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read data directory %s: %w", dataDir, err)
	}

	byType := make(map[ingest.TableType]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		tableType, err := ingest.ParseTableType(base)
		if err != nil {
			// Unrecognized files are skipped, not fatal.
			continue
		}
		byType[tableType] = filepath.Join(dataDir, entry.Name())
	}

	if len(byType) == 0 {
		return nil, fmt.Errorf("no recognized extract files in %s", dataDir)
	}

	var plan []ImportStep
	for _, tableType := range ingest.AllTableTypes {
		if tableType == ingest.TableGLPivotDownload {
			continue
		}
		if path, ok := byType[tableType]; ok {
			plan = append(plan, ImportStep{Path: path, TableType: tableType})
		}
	}
	if path, ok := byType[ingest.TableGLPivotDownload]; ok {
		plan = append(plan, ImportStep{Path: path, TableType: ingest.TableGLPivotDownload})
	}
	return plan, nil
}
