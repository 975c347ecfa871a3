package cmd

import (
	"context"
	"fmt"
	"os"

	"ibms-reporting-service/cmd/ibms/config"
	"ibms-reporting-service/internal/ingest"
	"ibms-reporting-service/internal/store"
	"ibms-reporting-service/pkg/logger"
)

// loadExtracts imports every recognized extract file from dataDir into a
// fresh store. Used by the one-shot report command and by serve's
// optional preload.
func loadExtracts(ctx context.Context, st *store.Store, dataDir, financialYear string) error {
	plan, err := config.CreateImportPlan(dataDir)
	if err != nil {
		return err
	}

	importer := ingest.NewImporter(st)
	log := logger.GetGlobalLogger().WithComponent("cli")

	for _, step := range plan {
		f, err := os.Open(step.Path)
		if err != nil {
			return fmt.Errorf("cannot open %s: %w", step.Path, err)
		}

		result, err := importer.Import(ctx, f, step.TableType, financialYear)
		f.Close()
		if err != nil {
			return fmt.Errorf("import of %s failed: %w", step.Path, err)
		}

		log.WithFields(logger.Fields{
			"file":      step.Path,
			"tableType": step.TableType,
			"rows":      result.RowsImported,
		}).Info("Loaded extract")
	}
	return nil
}
