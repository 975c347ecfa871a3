package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ibms-reporting-service/internal/ingest"
	"ibms-reporting-service/internal/store"
)

var (
	importFile          string
	importTableType     string
	importFinancialYear string
)

// importCmd validates one extract file against its table contract by
// running a full in-memory import.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Validate and import one CSV extract",
	Long: `Import loads a single CSV extract into an in-memory store, applying
the same header validation, truncation guard and row parsing the HTTP
upload uses. Useful for checking an extract before uploading it.

Examples:
  ibms import --file glpivot.csv --table-type glpivotdownload --financial-year 2024/25
  ibms import --file priorities.csv --table-type ncservicepriority --financial-year 2024/25`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "path to the extract CSV file (required)")
	importCmd.Flags().StringVarP(&importTableType, "table-type", "t", "", "table type of the extract (required)")
	importCmd.Flags().StringVarP(&importFinancialYear, "financial-year", "y", "", "financial year YYYY/YY (required)")

	importCmd.MarkFlagRequired("file")
	importCmd.MarkFlagRequired("table-type")
	importCmd.MarkFlagRequired("financial-year")

	viper.BindPFlag("import-file", importCmd.Flags().Lookup("file"))
	viper.BindPFlag("import-table-type", importCmd.Flags().Lookup("table-type"))
	viper.BindPFlag("import-financial-year", importCmd.Flags().Lookup("financial-year"))
}

func runImport(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	tableType, err := ingest.ParseTableType(importTableType)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	f, err := os.Open(importFile)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer f.Close()

	importer := ingest.NewImporter(store.New())
	result, err := importer.Import(cmd.Context(), f, tableType, importFinancialYear)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	fmt.Printf("Imported %d rows of %s for %s (batch %s, state %s)\n",
		result.RowsImported, result.TableType, result.FinancialYear, result.BatchID, result.State)
	return nil
}
