package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ibms-reporting-service/internal/assembler"
	"ibms-reporting-service/internal/store"
)

// Flags for the report command
var (
	reportFlavor        string
	reportDataDir       string
	reportFinancialYear string
	reportCostCentre    string
	reportRegionBranch  string
	reportDivision      string
	reportElevated      bool
	reportCodeUpdate    string
	reportOutputFile    string
	reportFormat        string
	reportNCSheet       bool
	reportPVSSheet      bool
	reportSFMSheet      bool
)

// reportCmd runs a one-shot report pipeline: load extracts, assemble,
// render.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Assemble a report from a directory of extracts",
	Long: `Report loads every recognized extract from a data directory and
assembles one of the report flavors: servicepriority, dataamendment,
download or codeupdate.

Examples:
  ibms report --flavor servicepriority --data-dir ./extracts \
    --financial-year 2024/25 --cost-centre 042

  ibms report --flavor codeupdate --data-dir ./extracts \
    --financial-year 2024/25 --elevated --code-update dj0 \
    --output-format xlsx --output-file codeupdate.xlsx`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFlavor, "flavor", "", "report flavor (required)")
	reportCmd.Flags().StringVar(&reportDataDir, "data-dir", "", "directory of extract files (required)")
	reportCmd.Flags().StringVarP(&reportFinancialYear, "financial-year", "y", "", "financial year YYYY/YY (required)")

	reportCmd.Flags().StringVar(&reportCostCentre, "cost-centre", "", "scope to one cost centre")
	reportCmd.Flags().StringVar(&reportRegionBranch, "region-branch", "", "scope to one region/branch")
	reportCmd.Flags().StringVar(&reportDivision, "division", "", "scope to one division")
	reportCmd.Flags().BoolVar(&reportElevated, "elevated", false, "run with elevated privilege")
	reportCmd.Flags().StringVar(&reportCodeUpdate, "code-update", "", "code-update variant: dj0 or nondj0 (elevated only)")

	reportCmd.Flags().StringVarP(&reportFormat, "output-format", "f", "csv", "output format: csv or xlsx")
	reportCmd.Flags().StringVarP(&reportOutputFile, "output-file", "o", "", "output file path (default: stdout)")
	reportCmd.Flags().BoolVar(&reportNCSheet, "nc-sheet", false, "include the nature conservation priority sheet (xlsx)")
	reportCmd.Flags().BoolVar(&reportPVSSheet, "pvs-sheet", false, "include the parks & visitor services priority sheet (xlsx)")
	reportCmd.Flags().BoolVar(&reportSFMSheet, "sfm-sheet", false, "include the state forest management priority sheet (xlsx)")

	reportCmd.MarkFlagRequired("flavor")
	reportCmd.MarkFlagRequired("data-dir")
	reportCmd.MarkFlagRequired("financial-year")

	viper.BindPFlag("report-flavor", reportCmd.Flags().Lookup("flavor"))
	viper.BindPFlag("report-data-dir", reportCmd.Flags().Lookup("data-dir"))
	viper.BindPFlag("report-financial-year", reportCmd.Flags().Lookup("financial-year"))
}

func runReport(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	flavor, err := assembler.ParseFlavor(reportFlavor)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	st := store.New()
	if err := loadExtracts(cmd.Context(), st, reportDataDir, reportFinancialYear); err != nil {
		os.Exit(handler.HandleError(err))
	}

	filters := &assembler.Filters{
		FinancialYears: []string{reportFinancialYear},
		CostCentre:     reportCostCentre,
		RegionBranch:   reportRegionBranch,
		Division:       reportDivision,
		Elevated:       reportElevated,
		CodeUpdate:     assembler.CodeUpdateVariant(reportCodeUpdate),
	}

	report, err := assembler.New(st, nil).Assemble(flavor, filters)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	out := os.Stdout
	if reportOutputFile != "" {
		out, err = os.Create(reportOutputFile)
		if err != nil {
			os.Exit(handler.HandleError(err))
		}
		defer out.Close()
	}

	switch reportFormat {
	case "csv":
		err = assembler.WriteCSV(report, out)
	case "xlsx":
		opts := assembler.WorkbookOptions{
			IncludeNC:  reportNCSheet,
			IncludePVS: reportPVSSheet,
			IncludeSFM: reportSFMSheet,
		}
		err = assembler.WriteWorkbook(report, st, opts, out)
	default:
		err = fmt.Errorf("unknown output format '%s': use csv or xlsx", reportFormat)
	}
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	if reportOutputFile != "" {
		fmt.Printf("Wrote %d rows to %s\n", len(report.Rows), reportOutputFile)
	}
	return nil
}
