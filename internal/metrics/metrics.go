// Package metrics manages the quarterly forest-management performance
// entries: staff record treated and burnt areas per region and quarter,
// and a CSV report lists the year's entries with target shortfalls.
package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"ibms-reporting-service/internal/models"
	"ibms-reporting-service/internal/store"
	"ibms-reporting-service/pkg/errors"
	"ibms-reporting-service/pkg/logger"
)

// Service records and reports quarterly metrics.
type Service struct {
	store  *store.Store
	logger logger.Logger
}

// NewService creates a metrics Service backed by the given store.
func NewService(st *store.Store, log logger.Logger) *Service {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Service{
		store:  st,
		logger: log.WithComponent("metrics"),
	}
}

// Record validates and upserts one quarterly entry. The entering user is
// stamped onto the record and logged; re-recording the same region and
// quarter overwrites the previous entry.
func (s *Service) Record(entry *models.QuarterlyMetric, user string) error {
	if strings.TrimSpace(user) == "" {
		return errors.ValidationError(errors.CodeMissingField, "enteredBy", user, nil)
	}
	entry.EnteredBy = user

	if err := entry.Validate(); err != nil {
		return errors.ValidationError(errors.CodeInvalidData, "quarterlyMetric", entry.Key(), err)
	}

	s.store.UpsertQuarterlyMetric(entry)

	s.logger.WithFields(map[string]interface{}{
		"region":        entry.Region,
		"quarter":       entry.Quarter,
		"financialYear": entry.FinancialYear,
		"enteredBy":     user,
	}).Info("Recorded quarterly metric")
	return nil
}

// reportHeader is the metric report column contract.
var reportHeader = []string{
	"Region",
	"Quarter",
	"Financial Year",
	"Area Treated (ha)",
	"Area Burnt (ha)",
	"Treatment Target (ha)",
	"Target Shortfall (ha)",
	"Comment",
	"Entered By",
}

// WriteReport renders the year's entries as CSV, ordered by region then
// quarter, with a computed shortfall column (target minus treated,
// floored at zero) and a totals row.
func (s *Service) WriteReport(financialYear string, w io.Writer) error {
	if !models.ValidFinancialYear(financialYear) {
		return errors.ValidationError(errors.CodeInvalidYear, "financialYear", financialYear, nil)
	}

	entries := s.store.QuarterlyMetricsForYear(financialYear)

	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return pkgerrors.Wrap(err, "failed to write metrics header")
	}

	var totalTreated, totalBurnt, totalTarget decimal.Decimal
	for _, e := range entries {
		shortfall := e.TreatmentTarget.Sub(e.AreaTreated)
		if shortfall.IsNegative() {
			shortfall = decimal.Zero
		}
		record := []string{
			e.Region,
			fmt.Sprintf("Q%d", e.Quarter),
			e.FinancialYear,
			e.AreaTreated.String(),
			e.AreaBurnt.String(),
			e.TreatmentTarget.String(),
			shortfall.String(),
			e.Comment,
			e.EnteredBy,
		}
		if err := cw.Write(record); err != nil {
			return pkgerrors.Wrap(err, "failed to write metrics row")
		}
		totalTreated = totalTreated.Add(e.AreaTreated)
		totalBurnt = totalBurnt.Add(e.AreaBurnt)
		totalTarget = totalTarget.Add(e.TreatmentTarget)
	}

	if len(entries) > 0 {
		totalShortfall := totalTarget.Sub(totalTreated)
		if totalShortfall.IsNegative() {
			totalShortfall = decimal.Zero
		}
		totals := []string{
			"TOTAL", "", financialYear,
			totalTreated.String(),
			totalBurnt.String(),
			totalTarget.String(),
			totalShortfall.String(),
			"", "",
		}
		if err := cw.Write(totals); err != nil {
			return pkgerrors.Wrap(err, "failed to write metrics totals")
		}
	}

	cw.Flush()
	return pkgerrors.Wrap(cw.Error(), "failed to flush metrics report")
}
