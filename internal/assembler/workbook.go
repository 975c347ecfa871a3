package assembler

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"ibms-reporting-service/internal/models"
	"ibms-reporting-service/internal/store"
)

// dataSheetName is the sheet carrying the report rows.
const dataSheetName = "Report"

// endOfInputMarker terminates the data block. The downstream coding
// spreadsheet scans column A for it, so it appears exactly once, one
// blank row below the last data row.
const endOfInputMarker = "#END OF INPUT"

// Zero-pad widths for the dual-typed code columns. Applied only when the
// underlying value is numeric.
const (
	costCentreWidth = 3
	accountWidth    = 2
	serviceWidth    = 2
	projectWidth    = 4
	jobWidth        = 3
)

// amountColumns are the 1-based indexes of the numeric columns that get
// a SUM formula in the footer row (ptd Actual through ytd Variance).
var amountColumns = []int{14, 15, 16, 17, 18, 19}

// WorkbookOptions selects the optional auxiliary sheets.
type WorkbookOptions struct {
	IncludeNC  bool
	IncludePVS bool
	IncludeSFM bool
}

// WriteWorkbook renders the report as an XLSX workbook: the data sheet
// with the ReportHeader contract and the end-of-input footer, the
// selected service-priority listing sheets and the lookup sheet of
// distinct budget-area and project-sponsor pairs.
func WriteWorkbook(report *Report, st *store.Store, opts WorkbookOptions, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheetName); err != nil {
		return errors.Wrap(err, "failed to create data sheet")
	}

	if err := writeDataSheet(f, report); err != nil {
		return err
	}
	if err := writePrioritySheet(f, st, report.FinancialYear, opts); err != nil {
		return err
	}
	if err := writeLookupSheet(f, report); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	return nil
}

func writeDataSheet(f *excelize.File, report *Report) error {
	header := make([]interface{}, len(ReportHeader))
	for i, h := range ReportHeader {
		header[i] = h
	}
	if err := setRow(f, dataSheetName, 1, header); err != nil {
		return err
	}

	for i, row := range report.Rows {
		if err := setRow(f, dataSheetName, i+2, workbookCells(row)); err != nil {
			return err
		}
	}

	// Footer: one blank row after the data block, then the marker with
	// live SUM formulas over the amount columns.
	firstDataRow := 2
	lastDataRow := 1 + len(report.Rows)
	footerRow := lastDataRow + 2

	cell, err := excelize.CoordinatesToCellName(1, footerRow)
	if err != nil {
		return errors.Wrap(err, "failed to place end-of-input marker")
	}
	if err := f.SetCellValue(dataSheetName, cell, endOfInputMarker); err != nil {
		return errors.Wrap(err, "failed to place end-of-input marker")
	}

	if len(report.Rows) == 0 {
		return nil
	}
	for _, col := range amountColumns {
		colName, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return errors.Wrap(err, "failed to build sum formula")
		}
		cell, err := excelize.CoordinatesToCellName(col, footerRow)
		if err != nil {
			return errors.Wrap(err, "failed to build sum formula")
		}
		formula := fmt.Sprintf("SUM(%s%d:%s%d)", colName, firstDataRow, colName, lastDataRow)
		if err := f.SetCellFormula(dataSheetName, cell, formula); err != nil {
			return errors.Wrap(err, "failed to set sum formula")
		}
	}
	return nil
}

// workbookCells flattens a row for the spreadsheet. Code columns are
// zero-padded when numeric and amounts are written as numbers so the
// footer formulas sum them.
func workbookCells(r *Row) []interface{} {
	fields := r.fields()
	cells := make([]interface{}, len(fields))
	for i, v := range fields {
		cells[i] = v
	}

	cells[3] = models.PadCode(r.CostCentre, costCentreWidth)
	cells[4] = models.PadCode(r.Account, accountWidth)
	cells[5] = models.PadCode(r.Service, serviceWidth)
	cells[8] = models.PadCode(r.Project, projectWidth)
	cells[9] = models.PadCode(r.Job, jobWidth)

	cells[13] = r.PTDActual.InexactFloat64()
	cells[14] = r.PTDBudget.InexactFloat64()
	cells[15] = r.YTDActual.InexactFloat64()
	cells[16] = r.YTDBudget.InexactFloat64()
	cells[17] = r.FYBudget.InexactFloat64()
	cells[18] = r.YTDVariance.InexactFloat64()
	return cells
}

// writePrioritySheet lists the selected service-priority variants on one
// sheet, each variant's block written below the previous one with the
// variant's own column layout.
func writePrioritySheet(f *excelize.File, st *store.Store, fy string, opts WorkbookOptions) error {
	const sheet = "Service Priorities"

	type block struct {
		include bool
		variant models.ServicePriorityVariant
		title   string
		columns []interface{}
	}
	blocks := []block{
		{opts.IncludeNC, models.VariantNatureConservation, "Nature Conservation Service Priorities",
			[]interface{}{"Priority No", "Asset No", "Asset", "Target No", "Target", "Action No", "Action", "Milestone No", "Milestone"}},
		{opts.IncludePVS, models.VariantParksVisitorServices, "Parks & Visitor Services Priorities",
			[]interface{}{"Priority No", "Service Priority", "Description", "Ann WP Example", "Act No Example"}},
		{opts.IncludeSFM, models.VariantStateForestManagement, "State Forest Management Priorities",
			[]interface{}{"Priority No", "Region/Branch", "Description", "Description 2"}},
	}

	any := false
	for _, b := range blocks {
		if b.include {
			any = true
		}
	}
	if !any {
		return nil
	}

	if _, err := f.NewSheet(sheet); err != nil {
		return errors.Wrap(err, "failed to create priority sheet")
	}

	row := 1
	for _, b := range blocks {
		if !b.include {
			continue
		}
		if err := setRow(f, sheet, row, []interface{}{b.title}); err != nil {
			return err
		}
		row++
		if err := setRow(f, sheet, row, b.columns); err != nil {
			return err
		}
		row++
		for _, sp := range st.ServicePrioritiesForYear(b.variant, fy) {
			if err := setRow(f, sheet, row, priorityCells(sp)); err != nil {
				return err
			}
			row++
		}
		// Blank row between variant blocks.
		row++
	}
	return nil
}

// priorityCells flattens a service priority using its variant's own
// column layout, matching the header row written above its block.
func priorityCells(sp models.ServicePriority) []interface{} {
	switch p := sp.(type) {
	case *models.NCPriority:
		return []interface{}{p.PriorityNo(), p.AssetNo, p.Asset, p.TargetNo, p.Target, p.ActionNo, p.Action, p.MilestoneNo, p.Milestone}
	case *models.PVSPriority:
		return []interface{}{p.PriorityNo(), p.ServicePriority1, p.Description, p.AnnWPExample, p.ActNoExample}
	case *models.SFMPriority:
		return []interface{}{p.PriorityNo(), p.RegionBranch, p.Description, p.Description2}
	default:
		d1, d2 := sp.Descriptions()
		return []interface{}{sp.PriorityNo(), d1, d2}
	}
}

// writeLookupSheet emits the distinct (budgetArea, costCentre) pairs
// followed by the distinct (projectSponsor, costCentre) pairs, preserving
// first-seen order from the report rows.
func writeLookupSheet(f *excelize.File, report *Report) error {
	const sheet = "Lookups"

	if _, err := f.NewSheet(sheet); err != nil {
		return errors.Wrap(err, "failed to create lookup sheet")
	}

	type pair struct{ a, b string }
	distinct := func(extract func(*Row) pair) []pair {
		seen := make(map[pair]struct{})
		var out []pair
		for _, r := range report.Rows {
			p := extract(r)
			if p.a == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
		return out
	}

	row := 1
	write := func(title string, pairs []pair) error {
		if err := setRow(f, sheet, row, []interface{}{title}); err != nil {
			return err
		}
		row++
		for _, p := range pairs {
			if err := setRow(f, sheet, row, []interface{}{p.a, p.b}); err != nil {
				return err
			}
			row++
		}
		row++
		return nil
	}

	areas := distinct(func(r *Row) pair { return pair{r.BudgetArea, r.CostCentre} })
	sponsors := distinct(func(r *Row) pair { return pair{r.ProjectSponsor, r.CostCentre} })

	if err := write("Budget Area / Cost Centre", areas); err != nil {
		return err
	}
	return write("Project Sponsor / Cost Centre", sponsors)
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrapf(err, "failed to address row %d", row)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return errors.Wrapf(err, "failed to write row %d", row)
	}
	return nil
}
