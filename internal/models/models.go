// Package models defines the reference entities maintained by the IBMS
// reporting service.
//
// Every entity is addressed by a natural key: one or more business
// identifiers plus a financial year token ("YYYY/YY"). There are no
// cross-table foreign keys. Each table is independently and wholesale
// replaced from the external financial system, so referential
// consistency is resolved at read time: a missing reference yields
// empty strings, never an error.
package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// financialYearPattern matches the "YYYY/YY" fiscal-year token, e.g. "2024/25".
var financialYearPattern = regexp.MustCompile(`^\d{4}/\d{2}$`)

// ValidFinancialYear reports whether s is a well-formed financial year
// token whose two-digit suffix follows the four-digit start year.
func ValidFinancialYear(s string) bool {
	if !financialYearPattern.MatchString(s) {
		return false
	}
	start, _ := strconv.Atoi(s[:4])
	end, _ := strconv.Atoi(s[5:])
	return (start+1)%100 == end
}

// NaturalKey builds the composite lookup key used by the reference store:
// the business identifier joined to the financial year.
func NaturalKey(id, financialYear string) string {
	return id + "_" + financialYear
}

// BudgetLineItem is one row of the IBM data extract: a coded budget line
// carrying the business references that enrich GL records at report time.
type BudgetLineItem struct {
	IBMSID               string `json:"ibmsID"`
	FinancialYear        string `json:"financialYear"`
	CostCentre           string `json:"costCentre"`
	Account              string `json:"account"`
	Service              string `json:"service"`
	Activity             string `json:"activity"`
	Project              string `json:"project"`
	Job                  string `json:"job"`
	BudgetArea           string `json:"budgetArea"`
	ProjectSponsor       string `json:"projectSponsor"`
	RegionalSpecificInfo string `json:"regionalSpecificInfo"`
	ServicePriorityID    string `json:"servicePriorityID"`
	AnnualWorksPlan      string `json:"annualWorksPlan"`
	CorporatePlanNo      string `json:"corporatePlanNo"`
	StrategicPlanNo      string `json:"strategicPlanNo"`
}

// Key returns the natural key of the budget line item.
func (b *BudgetLineItem) Key() string {
	return NaturalKey(b.IBMSID, b.FinancialYear)
}

// Validate performs basic validation on the BudgetLineItem.
func (b *BudgetLineItem) Validate() error {
	if strings.TrimSpace(b.IBMSID) == "" {
		return fmt.Errorf("budget line item identifier cannot be empty")
	}
	if !ValidFinancialYear(b.FinancialYear) {
		return fmt.Errorf("invalid financial year %q: expected YYYY/YY", b.FinancialYear)
	}
	return nil
}

// GeneralLedgerRecord is one row of the GL pivot download, the system's
// primary transactional input. One cost centre routinely has many records
// sharing a CodeID (one per resource code); reports that operate at the
// code level sum across the fan-out.
type GeneralLedgerRecord struct {
	GLCode         string `json:"glCode"`
	FinancialYear  string `json:"financialYear"`
	DownloadPeriod string `json:"downloadPeriod"`

	// CodeID joins, by value, to BudgetLineItem.IBMSID.
	CodeID string `json:"codeID"`

	CostCentre string `json:"costCentre"`
	Account    string `json:"account"`
	Service    string `json:"service"`
	Activity   string `json:"activity"`
	Resource   string `json:"resource"`
	Project    string `json:"project"`
	Job        string `json:"job"`

	ShortCode     string `json:"shortCode"`
	ShortCodeName string `json:"shortCodeName"`

	PTDActual   decimal.Decimal `json:"ptdActual"`
	PTDBudget   decimal.Decimal `json:"ptdBudget"`
	YTDActual   decimal.Decimal `json:"ytdActual"`
	YTDBudget   decimal.Decimal `json:"ytdBudget"`
	FYBudget    decimal.Decimal `json:"fyBudget"`
	YTDVariance decimal.Decimal `json:"ytdVariance"`

	CCName           string `json:"ccName"`
	ServiceName      string `json:"serviceName"`
	JobName          string `json:"jobName"`
	ResNameNo        string `json:"resNameNo"`
	ActNameNo        string `json:"actNameNo"`
	ProjNameNo       string `json:"projNameNo"`
	RegionBranch     string `json:"regionBranch"`
	Division         string `json:"division"`
	ResourceCategory string `json:"resourceCategory"`
	Wildfire         string `json:"wildfire"`
	ExpenseRevenue   string `json:"expenseRevenue"`
	FireActivities   string `json:"fireActivities"`
	MPRACategory     string `json:"mPRACategory"`
}

// Key returns the natural key of the GL record.
func (g *GeneralLedgerRecord) Key() string {
	return NaturalKey(g.GLCode, g.FinancialYear)
}

// Validate performs basic validation on the GeneralLedgerRecord.
func (g *GeneralLedgerRecord) Validate() error {
	if strings.TrimSpace(g.GLCode) == "" {
		return fmt.Errorf("GL code cannot be empty")
	}
	if !ValidFinancialYear(g.FinancialYear) {
		return fmt.Errorf("invalid financial year %q: expected YYYY/YY", g.FinancialYear)
	}
	return nil
}

// AccountNo returns the account code as an integer, or -1 when the code
// is not numeric.
func (g *GeneralLedgerRecord) AccountNo() int {
	return intOrMinusOne(g.Account)
}

// ServiceNo returns the service code as an integer, or -1 when the code
// is not numeric.
func (g *GeneralLedgerRecord) ServiceNo() int {
	return intOrMinusOne(g.Service)
}

// ResourceNo returns the resource code as an integer, or -1 when the code
// is not numeric.
func (g *GeneralLedgerRecord) ResourceNo() int {
	return intOrMinusOne(g.Resource)
}

func intOrMinusOne(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return -1
	}
	return n
}

// CorporateStrategy is a corporate-plan reference row.
type CorporateStrategy struct {
	StrategyNo    string `json:"strategyNo"`
	FinancialYear string `json:"financialYear"`
	Description1  string `json:"description1"`
	Description2  string `json:"description2"`
}

// Key returns the natural key of the corporate strategy.
func (c *CorporateStrategy) Key() string {
	return NaturalKey(c.StrategyNo, c.FinancialYear)
}

// Validate checks the natural key fields.
func (c *CorporateStrategy) Validate() error {
	if strings.TrimSpace(c.StrategyNo) == "" {
		return fmt.Errorf("corporate strategy number cannot be empty")
	}
	if !ValidFinancialYear(c.FinancialYear) {
		return fmt.Errorf("invalid financial year %q: expected YYYY/YY", c.FinancialYear)
	}
	return nil
}

// StrategicPlan is a nature-conservation strategic plan reference row.
type StrategicPlan struct {
	PlanNo        string `json:"planNo"`
	FinancialYear string `json:"financialYear"`
	DirectionNo   string `json:"directionNo"`
	Direction     string `json:"direction"`
	AimNo         string `json:"aimNo"`
	Aim1          string `json:"aim1"`
	Aim2          string `json:"aim2"`
	ActionNo      string `json:"actionNo"`
	Action        string `json:"action"`
}

// Key returns the natural key of the strategic plan.
func (s *StrategicPlan) Key() string {
	return NaturalKey(s.PlanNo, s.FinancialYear)
}

// Validate checks the natural key fields.
func (s *StrategicPlan) Validate() error {
	if strings.TrimSpace(s.PlanNo) == "" {
		return fmt.Errorf("strategic plan number cannot be empty")
	}
	if !ValidFinancialYear(s.FinancialYear) {
		return fmt.Errorf("invalid financial year %q: expected YYYY/YY", s.FinancialYear)
	}
	return nil
}

// CostCentreMapping maps a cost centre to the three management-category
// labels used to decide which service-priority variants apply to it.
// Unlike the upload-driven tables this one is maintained locally.
type CostCentreMapping struct {
	CostCentreNo       string `json:"costCentreNo"`
	FinancialYear      string `json:"financialYear"`
	WildlifeManagement string `json:"wildlifeManagement"`
	ParksManagement    string `json:"parksManagement"`
	ForestManagement   string `json:"forestManagement"`
}

// Key returns the natural key of the cost centre mapping.
func (m *CostCentreMapping) Key() string {
	return NaturalKey(m.CostCentreNo, m.FinancialYear)
}

// Validate performs basic validation on the CostCentreMapping.
func (m *CostCentreMapping) Validate() error {
	if strings.TrimSpace(m.CostCentreNo) == "" {
		return fmt.Errorf("cost centre number cannot be empty")
	}
	if !ValidFinancialYear(m.FinancialYear) {
		return fmt.Errorf("invalid financial year %q: expected YYYY/YY", m.FinancialYear)
	}
	return nil
}

// QuarterlyMetric is one staff-entered forest-management performance
// record for a region and quarter.
type QuarterlyMetric struct {
	Region          string          `json:"region"`
	Quarter         int             `json:"quarter"`
	FinancialYear   string          `json:"financialYear"`
	AreaTreated     decimal.Decimal `json:"areaTreated"`
	AreaBurnt       decimal.Decimal `json:"areaBurnt"`
	TreatmentTarget decimal.Decimal `json:"treatmentTarget"`
	Comment         string          `json:"comment"`
	EnteredBy       string          `json:"enteredBy"`
}

// Key returns the natural key of the quarterly metric.
func (q *QuarterlyMetric) Key() string {
	return NaturalKey(fmt.Sprintf("%s_Q%d", q.Region, q.Quarter), q.FinancialYear)
}

// Validate performs basic validation on the QuarterlyMetric.
func (q *QuarterlyMetric) Validate() error {
	if strings.TrimSpace(q.Region) == "" {
		return fmt.Errorf("region cannot be empty")
	}
	if q.Quarter < 1 || q.Quarter > 4 {
		return fmt.Errorf("quarter must be between 1 and 4, got %d", q.Quarter)
	}
	if !ValidFinancialYear(q.FinancialYear) {
		return fmt.Errorf("invalid financial year %q: expected YYYY/YY", q.FinancialYear)
	}
	return nil
}

// ParseDecimalFromString parses a currency amount from a CSV field.
// Currency symbols, thousand separators and surrounding whitespace are
// tolerated; an empty field parses as zero because the pivot download
// leaves unused amount columns blank.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	// Accounting-style negative: (123.45)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}
	return d, nil
}

// PadCode renders a code as a zero-padded integer of the given width when
// the underlying string is numeric, and returns the raw string otherwise.
// Cost centre, account, service, project and job codes are dual-typed in
// the source system, so both renderings must survive.
func PadCode(s string, width int) string {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%0*d", width, n)
}
