package assembler

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"ibms-reporting-service/internal/models"
	"ibms-reporting-service/internal/store"
)

func buildWorkbook(t *testing.T, report *Report, st *store.Store, opts WorkbookOptions) *excelize.File {
	t.Helper()

	var buf bytes.Buffer
	if err := WriteWorkbook(report, st, opts, &buf); err != nil {
		t.Fatalf("WriteWorkbook failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a readable workbook: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func twoRowReport() *Report {
	return &Report{
		Flavor:        FlavorServicePriority,
		FinancialYear: testYear,
		Rows: []*Row{
			{
				IBMSID:     "A0001",
				CostCentre: "42",
				Account:    "1",
				Service:    "7",
				Project:    "77",
				Job:        "3",
				YTDActual:  decimal.NewFromInt(60),
			},
			{
				IBMSID:     "A0002",
				CostCentre: "XX1",
				YTDActual:  decimal.NewFromInt(40),
			},
		},
	}
}

func TestWorkbookEndOfInputMarker(t *testing.T) {
	f := buildWorkbook(t, twoRowReport(), store.New(), WorkbookOptions{})

	// Header row 1, data rows 2-3, blank row 4, marker row 5.
	got, err := f.GetCellValue(dataSheetName, "A5")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if got != endOfInputMarker {
		t.Errorf("A5 = %q, want %q", got, endOfInputMarker)
	}

	blank, err := f.GetCellValue(dataSheetName, "A4")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if blank != "" {
		t.Errorf("row 4 should be blank, got %q", blank)
	}

	// The marker appears exactly once in column A.
	rows, err := f.GetRows(dataSheetName)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	count := 0
	for _, row := range rows {
		if len(row) > 0 && row[0] == endOfInputMarker {
			count++
		}
	}
	if count != 1 {
		t.Errorf("marker appears %d times, want exactly 1", count)
	}
}

func TestWorkbookSumFormulasCoverDataRows(t *testing.T) {
	f := buildWorkbook(t, twoRowReport(), store.New(), WorkbookOptions{})

	for _, col := range []string{"N", "O", "P", "Q", "R", "S"} {
		formula, err := f.GetCellFormula(dataSheetName, col+"5")
		if err != nil {
			t.Fatalf("GetCellFormula failed: %v", err)
		}
		want := fmt.Sprintf("SUM(%s2:%s3)", col, col)
		if formula != want {
			t.Errorf("footer formula in %s5 = %q, want %q", col, formula, want)
		}
	}
}

func TestWorkbookZeroPadsNumericCodes(t *testing.T) {
	f := buildWorkbook(t, twoRowReport(), store.New(), WorkbookOptions{})

	checks := map[string]string{
		"D2": "042",  // cost centre width 3
		"E2": "01",   // account width 2
		"F2": "07",   // service width 2
		"I2": "0077", // project width 4
		"J2": "003",  // job width 3
		"D3": "XX1",  // non-numeric passes through
	}
	for cell, want := range checks {
		got, err := f.GetCellValue(dataSheetName, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s) failed: %v", cell, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
}

func TestWorkbookEmptyReport(t *testing.T) {
	report := &Report{Flavor: FlavorServicePriority, FinancialYear: testYear}
	f := buildWorkbook(t, report, store.New(), WorkbookOptions{})

	// Header row 1, blank row 2, marker row 3, no formulas.
	got, err := f.GetCellValue(dataSheetName, "A3")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if got != endOfInputMarker {
		t.Errorf("A3 = %q, want %q", got, endOfInputMarker)
	}

	formula, err := f.GetCellFormula(dataSheetName, "N3")
	if err != nil {
		t.Fatalf("GetCellFormula failed: %v", err)
	}
	if formula != "" {
		t.Errorf("empty report should carry no sum formulas, got %q", formula)
	}
}

func TestWorkbookPrioritySheetSelection(t *testing.T) {
	st := store.New()
	st.UpsertServicePriority(&models.NCPriority{
		ServicePriorityBase: models.ServicePriorityBase{ServicePriorityNo: "NC1", FinancialYear: testYear},
		Action:              "nc action",
		Milestone:           "nc milestone",
	})
	st.UpsertServicePriority(&models.SFMPriority{
		ServicePriorityBase: models.ServicePriorityBase{ServicePriorityNo: "SFM1", FinancialYear: testYear},
		Description:         "sfm desc",
	})

	report := twoRowReport()

	// No sheets selected: the priority sheet is absent entirely.
	f := buildWorkbook(t, report, st, WorkbookOptions{})
	if idx, _ := f.GetSheetIndex("Service Priorities"); idx != -1 {
		t.Error("priority sheet should not exist when nothing is selected")
	}

	// NC and SFM selected: both blocks appear, NC first.
	f = buildWorkbook(t, report, st, WorkbookOptions{IncludeNC: true, IncludeSFM: true})
	rows, err := f.GetRows("Service Priorities")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}

	var flat []string
	for _, row := range rows {
		if len(row) > 0 {
			flat = append(flat, row[0])
		} else {
			flat = append(flat, "")
		}
	}

	ncAt, sfmAt := -1, -1
	for i, v := range flat {
		switch v {
		case "NC1":
			ncAt = i
		case "SFM1":
			sfmAt = i
		}
	}
	if ncAt == -1 || sfmAt == -1 {
		t.Fatalf("expected both NC1 and SFM1 rows, got %v", flat)
	}
	if ncAt > sfmAt {
		t.Errorf("NC block should precede SFM block: NC at %d, SFM at %d", ncAt, sfmAt)
	}
}

func TestWorkbookPrioritySheetVariantColumns(t *testing.T) {
	st := store.New()
	st.UpsertServicePriority(&models.NCPriority{
		ServicePriorityBase: models.ServicePriorityBase{ServicePriorityNo: "NC1", FinancialYear: testYear},
		AssetNo:             "A1",
		Asset:               "wetland",
		TargetNo:            "T1",
		Target:              "no net loss",
		ActionNo:            "AC1",
		Action:              "survey",
		MilestoneNo:         "M1",
		Milestone:           "done by Q3",
	})
	st.UpsertServicePriority(&models.PVSPriority{
		ServicePriorityBase: models.ServicePriorityBase{ServicePriorityNo: "PVS1", FinancialYear: testYear},
		ServicePriority1:    "visitor safety",
		Description:         "signage",
		AnnWPExample:        "wp example",
		ActNoExample:        "act example",
	})
	st.UpsertServicePriority(&models.SFMPriority{
		ServicePriorityBase: models.ServicePriorityBase{ServicePriorityNo: "SFM1", FinancialYear: testYear},
		RegionBranch:        "Swan Region",
		Description:         "thinning",
		Description2:        "coupe plan",
	})

	f := buildWorkbook(t, twoRowReport(), st, WorkbookOptions{IncludeNC: true, IncludePVS: true, IncludeSFM: true})
	rows, err := f.GetRows("Service Priorities")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}

	rowFor := func(t *testing.T, priorityNo string) []string {
		t.Helper()
		for _, row := range rows {
			if len(row) > 0 && row[0] == priorityNo {
				return row
			}
		}
		t.Fatalf("no row for %s in %v", priorityNo, rows)
		return nil
	}

	tests := []struct {
		name       string
		priorityNo string
		want       []string
	}{
		{"nature conservation carries its eight fields", "NC1",
			[]string{"NC1", "A1", "wetland", "T1", "no net loss", "AC1", "survey", "M1", "done by Q3"}},
		{"parks and visitor services carries its examples", "PVS1",
			[]string{"PVS1", "visitor safety", "signage", "wp example", "act example"}},
		{"state forest management carries its region", "SFM1",
			[]string{"SFM1", "Swan Region", "thinning", "coupe plan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rowFor(t, tt.priorityNo)
			if len(got) != len(tt.want) {
				t.Fatalf("row = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("column %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}

	// Each block's header row names its own columns.
	headerFor := func(name string) bool {
		for _, row := range rows {
			for _, cell := range row {
				if cell == name {
					return true
				}
			}
		}
		return false
	}
	for _, name := range []string{"Milestone No", "Ann WP Example", "Region/Branch"} {
		if !headerFor(name) {
			t.Errorf("expected column header %q on the priority sheet", name)
		}
	}
}

func TestWorkbookLookupSheetDistinctPairs(t *testing.T) {
	report := &Report{
		Flavor:        FlavorServicePriority,
		FinancialYear: testYear,
		Rows: []*Row{
			{IBMSID: "A1", CostCentre: "042", BudgetArea: "Biodiversity", ProjectSponsor: "RM"},
			{IBMSID: "A2", CostCentre: "042", BudgetArea: "Biodiversity", ProjectSponsor: "RM"},
			{IBMSID: "A3", CostCentre: "531", BudgetArea: "Biodiversity"},
		},
	}

	f := buildWorkbook(t, report, store.New(), WorkbookOptions{})
	rows, err := f.GetRows("Lookups")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}

	pairCount := func(a, b string) int {
		n := 0
		for _, row := range rows {
			if len(row) >= 2 && row[0] == a && row[1] == b {
				n++
			}
		}
		return n
	}

	if got := pairCount("Biodiversity", "042"); got != 1 {
		t.Errorf("(Biodiversity, 042) appears %d times, want 1", got)
	}
	if got := pairCount("Biodiversity", "531"); got != 1 {
		t.Errorf("(Biodiversity, 531) appears %d times, want 1", got)
	}
	if got := pairCount("RM", "042"); got != 1 {
		t.Errorf("(RM, 042) appears %d times, want 1", got)
	}
}
