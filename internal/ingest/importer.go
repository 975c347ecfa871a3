package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"ibms-reporting-service/internal/models"
	"ibms-reporting-service/internal/store"
	"ibms-reporting-service/pkg/errors"
	"ibms-reporting-service/pkg/logger"

	"github.com/google/uuid"
)

// ImportState tracks an upload through its lifecycle. There is no
// resumption: a failed import must be re-uploaded from scratch.
type ImportState string

const (
	StateIdle       ImportState = "idle"
	StateValidating ImportState = "validating"
	StateRejected   ImportState = "rejected"
	StateImporting  ImportState = "importing"
	StateCommitted  ImportState = "committed"
	StateRolledBack ImportState = "rolled_back"
	// StateAborted marks a mid-file failure on the per-row upsert path:
	// rows before the failure remain in the store.
	StateAborted ImportState = "aborted"
)

// ImportResult summarizes one upload attempt.
type ImportResult struct {
	BatchID       string      `json:"batchID"`
	TableType     TableType   `json:"tableType"`
	FinancialYear string      `json:"financialYear"`
	State         ImportState `json:"state"`
	RowsImported  int         `json:"rowsImported"`
}

// Importer validates CSV extracts and loads them into the reference store.
type Importer struct {
	store  *store.Store
	logger logger.Logger
}

// NewImporter creates an Importer over the given store.
func NewImporter(st *store.Store) *Importer {
	return &Importer{
		store:  st,
		logger: logger.GetGlobalLogger().WithComponent("ingest"),
	}
}

// Import reads a whole CSV upload: the header row is validated against
// the table type's contract, then the data rows are imported for the
// given financial year. Any error is returned alongside a result whose
// State records how far the upload got.
func (imp *Importer) Import(ctx context.Context, r io.Reader, tableType TableType, financialYear string) (*ImportResult, error) {
	result := &ImportResult{
		BatchID:       uuid.NewString(),
		TableType:     tableType,
		FinancialYear: financialYear,
		State:         StateValidating,
	}

	log := imp.logger.WithFields(logger.Fields{
		"batch_id":       result.BatchID,
		"table_type":     tableType,
		"financial_year": financialYear,
	})
	log.Info("Starting import")

	if !models.ValidFinancialYear(financialYear) {
		result.State = StateRejected
		return result, errors.ValidationError(errors.CodeInvalidYear, "financialYear", financialYear, nil)
	}
	if _, ok := schemas[tableType]; !ok {
		result.State = StateRejected
		return result, errors.New(errors.CategoryImport, errors.CodeUnknownTableType,
			fmt.Sprintf("unknown table type '%s'", tableType))
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		result.State = StateRejected
		return result, errors.New(errors.CategoryImport, errors.CodeHeaderMismatch,
			fmt.Sprintf("file is empty: no header row found for %s", tableType))
	}
	if err != nil {
		result.State = StateRejected
		return result, errors.Wrap(err, errors.CategoryFile, errors.CodeFileCorrupted,
			fmt.Sprintf("could not read header row: %v", err))
	}

	if err := ValidateHeaders(header, tableType); err != nil {
		log.WithError(err).Warn("Header validation failed")
		result.State = StateRejected
		return result, err
	}

	rows, err := readRows(reader)
	if err != nil {
		result.State = StateRejected
		return result, errors.Wrap(err, errors.CategoryFile, errors.CodeFileCorrupted,
			fmt.Sprintf("could not read data rows: %v", err))
	}

	if err := imp.ImportRows(ctx, rows, tableType, financialYear, result); err != nil {
		log.WithError(err).WithField("state", result.State).Error("Import failed")
		return result, err
	}

	log.WithField("rows", result.RowsImported).Info("Import committed")
	return result, nil
}

func readRows(reader *csv.Reader) ([][]string, error) {
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		if isEmptyRow(record) {
			continue
		}
		rows = append(rows, record)
	}
}

func isEmptyRow(record []string) bool {
	for _, field := range record {
		if field != "" {
			return false
		}
	}
	return true
}

// ImportRows loads validated data rows. Rows are 1-indexed from row 2
// (the header is row 1) in diagnostics. The GL pivot download takes the
// bulk-replace path: every row is parsed first and the store table for
// the year is swapped atomically, so a row error leaves prior data
// intact. All other table types upsert row by row; a row error aborts
// the rest of the file but already-upserted rows stay, which is the
// accepted behavior for the low-volume reference tables.
func (imp *Importer) ImportRows(ctx context.Context, rows [][]string, tableType TableType, financialYear string, result *ImportResult) error {
	if result == nil {
		result = &ImportResult{
			BatchID:       uuid.NewString(),
			TableType:     tableType,
			FinancialYear: financialYear,
		}
	}
	result.State = StateImporting

	sch := schemas[tableType]
	if sch.BulkReplace {
		return imp.bulkReplace(ctx, sch, rows, financialYear, result)
	}
	return imp.upsertRows(ctx, sch, rows, financialYear, result)
}

// bulkReplace parses the whole file before touching the store, then
// performs one atomic delete-then-insert for the financial year.
func (imp *Importer) bulkReplace(ctx context.Context, sch *schema, rows [][]string, financialYear string, result *ImportResult) error {
	tracker := logger.NewProgressTracker("gl_pivot_import", int64(len(rows)), 0)
	defer tracker.Done()

	records := make([]*models.GeneralLedgerRecord, 0, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			result.State = StateRolledBack
			return errors.InternalError(errors.CodeUnexpectedError, "gl_pivot_import", err)
		}

		fields, err := imp.guardRow(sch, row)
		if err == nil {
			var built interface{}
			built, err = sch.Build(fields, financialYear)
			if err == nil {
				records = append(records, built.(*models.GeneralLedgerRecord))
			}
		}
		if err != nil {
			result.State = StateRolledBack
			return rowError(sch.TableType, i+2, row, err)
		}
		tracker.Add(1)
	}

	imp.store.ReplaceGLRecords(financialYear, records)
	result.RowsImported = len(records)
	result.State = StateCommitted
	return nil
}

// upsertRows applies the per-row upsert path used by the eight reference
// table types.
func (imp *Importer) upsertRows(ctx context.Context, sch *schema, rows [][]string, financialYear string, result *ImportResult) error {
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			result.State = StateAborted
			return errors.InternalError(errors.CodeUnexpectedError, "reference_import", err)
		}

		fields, err := imp.guardRow(sch, row)
		if err != nil {
			result.State = StateAborted
			return rowError(sch.TableType, i+2, row, err)
		}

		record, err := sch.Build(fields, financialYear)
		if err != nil {
			result.State = StateAborted
			return rowError(sch.TableType, i+2, row, err)
		}

		imp.upsert(record)
		result.RowsImported++
	}

	result.State = StateCommitted
	return nil
}

// guardRow checks the column count, trims every field and applies the
// truncation guard to each bounded column.
func (imp *Importer) guardRow(sch *schema, row []string) ([]string, error) {
	if len(row) != len(sch.Columns) {
		return nil, fmt.Errorf("row has %d columns, expects %d", len(row), len(sch.Columns))
	}

	fields := make([]string, len(row))
	for i, col := range sch.Columns {
		value, err := truncationGuard(col.Name, col.MaxLength, row[i])
		if err != nil {
			return nil, err
		}
		fields[i] = value
	}
	return fields, nil
}

func (imp *Importer) upsert(record interface{}) {
	switch r := record.(type) {
	case *models.BudgetLineItem:
		imp.store.UpsertBudgetLineItem(r)
	case *models.CorporateStrategy:
		imp.store.UpsertCorporateStrategy(r)
	case *models.StrategicPlan:
		imp.store.UpsertStrategicPlan(r)
	case models.ServicePriority:
		imp.store.UpsertServicePriority(r)
	}
}

// rowError wraps a row failure with the 1-indexed row number and the raw
// row content. A truncation-guard failure keeps its FieldTooLong code so
// the transport can distinguish it from a parse error.
func rowError(tableType TableType, row int, raw []string, err error) error {
	if ibmsErr, ok := errors.AsIBMSError(err); ok && ibmsErr.Code == errors.CodeFieldTooLong {
		return errors.New(errors.CategoryImport, errors.CodeFieldTooLong,
			fmt.Sprintf("import of %s aborted at row %d (%s): %s",
				tableType, row, strings.Join(raw, ","), ibmsErr.Message)).
			WithContext("row", row).
			WithContext("table_type", string(tableType))
	}
	return errors.RowParseError(string(tableType), row, raw, err)
}
