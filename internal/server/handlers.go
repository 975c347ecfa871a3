package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ibms-reporting-service/internal/assembler"
	"ibms-reporting-service/internal/ingest"
	"ibms-reporting-service/internal/models"
	"ibms-reporting-service/pkg/errors"
)

// handleUpload ingests one CSV extract. The table type comes from the
// path, the financial year and file from the multipart form.
func (s *Server) handleUpload(c *gin.Context) {
	tableType, err := ingest.ParseTableType(c.Param("tableType"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	// Documented as a query parameter; the multipart form field is
	// accepted as a fallback for form-based clients.
	financialYear := c.Query("financialYear")
	if financialYear == "" {
		financialYear = c.PostForm("financialYear")
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		s.renderError(c, errors.ValidationError(errors.CodeMissingField, "file", nil, err))
		return
	}
	defer file.Close()

	result, err := s.importer.Import(c.Request.Context(), file, tableType, financialYear)
	if err != nil {
		// The result still identifies the batch and how far it got.
		status := http.StatusUnprocessableEntity
		if ibmsErr, ok := errors.AsIBMSError(err); ok && ibmsErr.Category == errors.CategoryValidation {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error(), "result": result})
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleReport renders a report. The path segment is "<flavor>.csv" or
// "<flavor>.xlsx"; filters come from the query string and elevation from
// the role header.
func (s *Server) handleReport(c *gin.Context) {
	name := c.Param("report")

	var format string
	switch {
	case strings.HasSuffix(name, ".csv"):
		format = "csv"
	case strings.HasSuffix(name, ".xlsx"):
		format = "xlsx"
	default:
		s.renderError(c, errors.ReportError(errors.CodeUnknownFlavor, name, nil))
		return
	}

	flavor, err := assembler.ParseFlavor(strings.TrimSuffix(name, "."+format))
	if err != nil {
		s.renderError(c, err)
		return
	}

	filters := &assembler.Filters{
		FinancialYears: c.QueryArray("financialYear"),
		CostCentre:     c.Query("costCentre"),
		RegionBranch:   c.Query("regionBranch"),
		Division:       c.Query("division"),
		Elevated:       isAdmin(c),
		CodeUpdate:     assembler.CodeUpdateVariant(c.Query("codeUpdate")),
	}

	report, err := s.assembler.Assemble(flavor, filters)
	if err != nil {
		s.renderError(c, err)
		return
	}

	filename := fmt.Sprintf("%s_%s.%s", flavor, strings.ReplaceAll(report.FinancialYear, "/", "-"), format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if format == "csv" {
		c.Header("Content-Type", "text/csv")
		if err := assembler.WriteCSV(report, c.Writer); err != nil {
			s.logger.WithError(err).Error("Failed to stream CSV report")
		}
		return
	}

	opts := assembler.WorkbookOptions{
		IncludeNC:  c.Query("ncSheet") == "true",
		IncludePVS: c.Query("pvsSheet") == "true",
		IncludeSFM: c.Query("sfmSheet") == "true",
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := assembler.WriteWorkbook(report, s.store, opts, c.Writer); err != nil {
		s.logger.WithError(err).Error("Failed to stream workbook report")
	}
}

// metricRequest is the POST /api/metrics payload.
type metricRequest struct {
	Region          string `json:"region" binding:"required"`
	Quarter         int    `json:"quarter" binding:"required"`
	FinancialYear   string `json:"financialYear" binding:"required"`
	AreaTreated     string `json:"areaTreated"`
	AreaBurnt       string `json:"areaBurnt"`
	TreatmentTarget string `json:"treatmentTarget"`
	Comment         string `json:"comment"`
	EnteredBy       string `json:"enteredBy" binding:"required"`
}

func (s *Server) handleMetricsRecord(c *gin.Context) {
	var req metricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, errors.ValidationError(errors.CodeInvalidData, "metric", nil, err))
		return
	}

	entry := &models.QuarterlyMetric{
		Region:        req.Region,
		Quarter:       req.Quarter,
		FinancialYear: req.FinancialYear,
		Comment:       req.Comment,
	}
	var err error
	if entry.AreaTreated, err = parseArea("areaTreated", req.AreaTreated); err != nil {
		s.renderError(c, err)
		return
	}
	if entry.AreaBurnt, err = parseArea("areaBurnt", req.AreaBurnt); err != nil {
		s.renderError(c, err)
		return
	}
	if entry.TreatmentTarget, err = parseArea("treatmentTarget", req.TreatmentTarget); err != nil {
		s.renderError(c, err)
		return
	}

	if err := s.metrics.Record(entry, req.EnteredBy); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func parseArea(field, value string) (decimal.Decimal, error) {
	d, err := models.ParseDecimalFromString(value)
	if err != nil {
		return decimal.Zero, errors.ValidationError(errors.CodeInvalidData, field, value, err)
	}
	return d, nil
}

func (s *Server) handleMetricsReport(c *gin.Context) {
	financialYear := c.Query("financialYear")
	if !models.ValidFinancialYear(financialYear) {
		s.renderError(c, errors.ValidationError(errors.CodeInvalidYear, "financialYear", financialYear, nil))
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="metrics_report.csv"`)
	if err := s.metrics.WriteReport(financialYear, c.Writer); err != nil {
		s.logger.WithError(err).Error("Failed to stream metrics report")
	}
}

func (s *Server) handleCostCentresList(c *gin.Context) {
	financialYear := c.Query("financialYear")
	if !models.ValidFinancialYear(financialYear) {
		s.renderError(c, errors.ValidationError(errors.CodeInvalidYear, "financialYear", financialYear, nil))
		return
	}
	c.JSON(http.StatusOK, s.store.CostCentreMappingsForYear(financialYear))
}

func (s *Server) handleCostCentrePut(c *gin.Context) {
	if !isAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "cost centre maintenance requires the admin role"})
		return
	}

	var m models.CostCentreMapping
	if err := c.ShouldBindJSON(&m); err != nil {
		s.renderError(c, errors.ValidationError(errors.CodeInvalidData, "costCentreMapping", nil, err))
		return
	}
	if err := m.Validate(); err != nil {
		s.renderError(c, errors.ValidationError(errors.CodeInvalidData, "costCentreMapping", m.CostCentreNo, err))
		return
	}

	s.store.UpsertCostCentreMapping(&m)
	c.JSON(http.StatusOK, &m)
}
