package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"ibms-reporting-service/internal/models"
	"ibms-reporting-service/internal/store"
	"ibms-reporting-service/pkg/errors"
)

func headerLine(tableType TableType) string {
	return strings.Join(SchemaHeader(tableType), ",")
}

// glRow builds one GL pivot CSV line with sensible defaults. Overrides
// are applied by column name.
func glRow(t *testing.T, overrides map[string]string) string {
	t.Helper()

	defaults := map[string]string{
		"codeID":         "A0001",
		"downloadPeriod": "2025-01",
		"costCentre":     "42",
		"account":        "1",
		"service":        "55",
		"activity":       "ABC",
		"resource":       "1000",
		"project":        "77",
		"job":            "3",
		"gLCode":         "GL-0001",
		"ptdActual":      "10.00",
		"ytdActual":      "100.00",
		"fybudget":       "500.00",
		"regionBranch":   "Swan Region",
		"division":       "Parks",
	}
	for k, v := range overrides {
		defaults[k] = v
	}

	header := SchemaHeader(TableGLPivotDownload)
	fields := make([]string, len(header))
	for i, name := range header {
		fields[i] = defaults[name]
	}
	return strings.Join(fields, ",")
}

func importCSV(t *testing.T, st *store.Store, tableType TableType, fy string, lines ...string) (*ImportResult, error) {
	t.Helper()
	imp := NewImporter(st)
	return imp.Import(context.Background(), strings.NewReader(strings.Join(lines, "\n")), tableType, fy)
}

func TestImportGLPivotRoundTrip(t *testing.T) {
	st := store.New()

	result, err := importCSV(t, st, TableGLPivotDownload, "2024/25",
		headerLine(TableGLPivotDownload),
		glRow(t, map[string]string{"gLCode": "GL-0001", "ytdActual": "100.50"}),
		glRow(t, map[string]string{"gLCode": "GL-0002", "codeID": "A0002", "ytdActual": "(50.25)"}),
	)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if result.State != StateCommitted {
		t.Errorf("state = %s, want %s", result.State, StateCommitted)
	}
	if result.RowsImported != 2 {
		t.Errorf("rows imported = %d, want 2", result.RowsImported)
	}
	if result.BatchID == "" {
		t.Error("expected a batch identifier")
	}

	rec := st.GetGLRecord("GL-0001", "2024/25")
	if rec == nil {
		t.Fatal("expected GL-0001 to be stored")
	}
	if !rec.YTDActual.Equal(decimal.NewFromFloat(100.50)) {
		t.Errorf("ytdActual = %s, want 100.5", rec.YTDActual)
	}

	rec = st.GetGLRecord("GL-0002", "2024/25")
	if rec == nil {
		t.Fatal("expected GL-0002 to be stored")
	}
	if !rec.YTDActual.Equal(decimal.NewFromFloat(-50.25)) {
		t.Errorf("accounting negative: ytdActual = %s, want -50.25", rec.YTDActual)
	}
}

func TestImportGLPivotReplacesYear(t *testing.T) {
	st := store.New()

	if _, err := importCSV(t, st, TableGLPivotDownload, "2024/25",
		headerLine(TableGLPivotDownload),
		glRow(t, map[string]string{"gLCode": "GL-OLD"}),
	); err != nil {
		t.Fatalf("first import failed: %v", err)
	}

	if _, err := importCSV(t, st, TableGLPivotDownload, "2024/25",
		headerLine(TableGLPivotDownload),
		glRow(t, map[string]string{"gLCode": "GL-NEW"}),
	); err != nil {
		t.Fatalf("second import failed: %v", err)
	}

	if st.GetGLRecord("GL-OLD", "2024/25") != nil {
		t.Error("re-import should have replaced the year's records")
	}
	if st.GetGLRecord("GL-NEW", "2024/25") == nil {
		t.Error("replacement record should be stored")
	}
}

func TestImportTwiceIsIdempotent(t *testing.T) {
	st := store.New()

	lines := []string{
		headerLine(TableGLPivotDownload),
		glRow(t, map[string]string{"gLCode": "GL-0001", "ytdActual": "100.50"}),
		glRow(t, map[string]string{"gLCode": "GL-0002", "codeID": "A0002"}),
	}

	for i := 0; i < 2; i++ {
		result, err := importCSV(t, st, TableGLPivotDownload, "2024/25", lines...)
		if err != nil {
			t.Fatalf("import %d failed: %v", i+1, err)
		}
		if result.RowsImported != 2 {
			t.Errorf("import %d: rows imported = %d, want 2", i+1, result.RowsImported)
		}
	}

	records := st.GLRecordsForYear("2024/25")
	if len(records) != 2 {
		t.Fatalf("stored records = %d, want 2", len(records))
	}
	rec := st.GetGLRecord("GL-0001", "2024/25")
	if rec == nil || !rec.YTDActual.Equal(decimal.NewFromFloat(100.50)) {
		t.Errorf("GL-0001 fields changed on re-import: %+v", rec)
	}
}

func TestImportGLPivotRowErrorRollsBack(t *testing.T) {
	st := store.New()

	// Seed a prior good import for the same year.
	if _, err := importCSV(t, st, TableGLPivotDownload, "2024/25",
		headerLine(TableGLPivotDownload),
		glRow(t, map[string]string{"gLCode": "GL-KEEP"}),
	); err != nil {
		t.Fatalf("seed import failed: %v", err)
	}

	result, err := importCSV(t, st, TableGLPivotDownload, "2024/25",
		headerLine(TableGLPivotDownload),
		glRow(t, map[string]string{"gLCode": "GL-A"}),
		glRow(t, map[string]string{"gLCode": "GL-B", "ytdActual": "not-a-number"}),
	)
	if err == nil {
		t.Fatal("expected row parse error")
	}
	if result.State != StateRolledBack {
		t.Errorf("state = %s, want %s", result.State, StateRolledBack)
	}
	if !errors.HasCode(err, errors.CodeRowParse) {
		t.Errorf("expected row_parse code, got %v", err)
	}
	// Row 3 of the file: header is row 1.
	if !strings.Contains(err.Error(), "row 3") {
		t.Errorf("error should name the failing row, got: %v", err)
	}

	if st.GetGLRecord("GL-A", "2024/25") != nil {
		t.Error("no row of the failed file should be stored")
	}
	if st.GetGLRecord("GL-KEEP", "2024/25") == nil {
		t.Error("prior data should be left intact on rollback")
	}
}

func TestImportUpsertPathAbortKeepsEarlierRows(t *testing.T) {
	st := store.New()

	longDescription := strings.Repeat("x", 201)
	result, err := importCSV(t, st, TableCorporateStrategy, "2024/25",
		headerLine(TableCorporateStrategy),
		"CS1,first strategy,detail",
		"CS2,"+longDescription+",detail",
		"CS3,third strategy,detail",
	)
	if err == nil {
		t.Fatal("expected truncation error")
	}
	if !errors.HasCode(err, errors.CodeFieldTooLong) {
		t.Errorf("expected field_too_long code, got %v", err)
	}
	if result.State != StateAborted {
		t.Errorf("state = %s, want %s", result.State, StateAborted)
	}
	if result.RowsImported != 1 {
		t.Errorf("rows imported before abort = %d, want 1", result.RowsImported)
	}

	if st.GetCorporateStrategy("CS1", "2024/25") == nil {
		t.Error("row before the failure should remain stored")
	}
	if st.GetCorporateStrategy("CS2", "2024/25") != nil {
		t.Error("failing row should not be stored")
	}
	if st.GetCorporateStrategy("CS3", "2024/25") != nil {
		t.Error("rows after the failure should not be stored")
	}
}

func TestImportRejectsEmptyNaturalKey(t *testing.T) {
	tests := []struct {
		name      string
		tableType TableType
		row       string
	}{
		{"corporate strategy", TableCorporateStrategy, ",orphan strategy,detail"},
		{"strategic plan", TableNCStrategicPlan, ",D1,direction,AIM1,aim,aim two,A1,action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.New()
			result, err := importCSV(t, st, tt.tableType, "2024/25",
				headerLine(tt.tableType),
				tt.row,
			)
			if err == nil {
				t.Fatal("expected row error for empty key field")
			}
			if !errors.HasCode(err, errors.CodeRowParse) {
				t.Errorf("expected row_parse code, got %v", err)
			}
			if result.State != StateAborted {
				t.Errorf("state = %s, want %s", result.State, StateAborted)
			}

			// Nothing may be stored under the degenerate empty-id key.
			if st.GetCorporateStrategy("", "2024/25") != nil {
				t.Error("empty-key corporate strategy should not be stored")
			}
			if st.GetStrategicPlan("", "2024/25") != nil {
				t.Error("empty-key strategic plan should not be stored")
			}
		})
	}
}

func TestImportServicePriorityVariants(t *testing.T) {
	st := store.New()

	if _, err := importCSV(t, st, TableNCServicePriority, "2024/25",
		headerLine(TableNCServicePriority),
		"CAT1,SP1,PLAN1,CS1,1,River,T1,Keep it flowing,A1,Monitor flow,M1,Quarterly readings",
	); err != nil {
		t.Fatalf("nc import failed: %v", err)
	}

	if _, err := importCSV(t, st, TableSFMServicePriority, "2024/25",
		headerLine(TableSFMServicePriority),
		"Swan Region,CAT2,SP2,PLAN2,CS2,Thin regrowth,Per harvest plan",
	); err != nil {
		t.Fatalf("sfm import failed: %v", err)
	}

	nc := st.GetServicePriority(models.VariantNatureConservation, "SP1", "2024/25")
	if nc == nil {
		t.Fatal("expected NC priority to be stored")
	}
	d1, d2 := nc.Descriptions()
	if d1 != "Monitor flow" || d2 != "Quarterly readings" {
		t.Errorf("NC descriptions = (%q, %q), want action and milestone", d1, d2)
	}

	sfm := st.GetServicePriority(models.VariantStateForestManagement, "SP2", "2024/25")
	if sfm == nil {
		t.Fatal("expected SFM priority to be stored")
	}
	sfmRow, ok := sfm.(*models.SFMPriority)
	if !ok {
		t.Fatalf("expected *models.SFMPriority, got %T", sfm)
	}
	if sfmRow.RegionBranch != "Swan Region" {
		t.Errorf("SFM regionBranch = %q", sfmRow.RegionBranch)
	}
}

func TestImportRejectsInvalidFinancialYear(t *testing.T) {
	st := store.New()

	result, err := importCSV(t, st, TableCorporateStrategy, "2024-25",
		headerLine(TableCorporateStrategy),
		"CS1,desc,detail",
	)
	if err == nil {
		t.Fatal("expected error for malformed financial year")
	}
	if result.State != StateRejected {
		t.Errorf("state = %s, want %s", result.State, StateRejected)
	}
	if !errors.HasCode(err, errors.CodeInvalidYear) {
		t.Errorf("expected invalid_year code, got %v", err)
	}
}

func TestImportRejectsWrongHeaderBeforeWriting(t *testing.T) {
	st := store.New()

	result, err := importCSV(t, st, TableCorporateStrategy, "2024/25",
		"strategyNumber,description1,description2",
		"CS1,desc,detail",
	)
	if err == nil {
		t.Fatal("expected header mismatch")
	}
	if result.State != StateRejected {
		t.Errorf("state = %s, want %s", result.State, StateRejected)
	}
	if st.GetCorporateStrategy("CS1", "2024/25") != nil {
		t.Error("nothing should be written on a rejected header")
	}
}

func TestImportEmptyFile(t *testing.T) {
	st := store.New()

	_, err := importCSV(t, st, TableIBMData, "2024/25", "")
	if err == nil {
		t.Fatal("expected error for empty file")
	}
	if !errors.HasCode(err, errors.CodeHeaderMismatch) {
		t.Errorf("expected header_mismatch code, got %v", err)
	}
}

func TestImportSkipsBlankLines(t *testing.T) {
	st := store.New()

	result, err := importCSV(t, st, TableCorporateStrategy, "2024/25",
		headerLine(TableCorporateStrategy),
		"CS1,desc,detail",
		",,",
		"CS2,desc,detail",
	)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.RowsImported != 2 {
		t.Errorf("rows imported = %d, want 2 (blank line skipped)", result.RowsImported)
	}
}
