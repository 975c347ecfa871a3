// Package assembler builds the management reports: it joins the GL pivot
// download against the budget line, strategy and service-priority
// reference tables, applies the per-flavor filtering rules and collapses
// the resource fan-out for the grouped flavors.
package assembler

import (
	"sort"

	"github.com/shopspring/decimal"

	"ibms-reporting-service/internal/models"
	"ibms-reporting-service/internal/resolver"
	"ibms-reporting-service/internal/store"
	"ibms-reporting-service/pkg/errors"
	"ibms-reporting-service/pkg/logger"
)

// Row is one output line of an assembled report. Identification and
// descriptive fields come from the GL record (the group representative
// for grouped flavors); the enrichment fields are resolved from the
// reference tables at assembly time, defaulting to empty strings when a
// reference is missing.
type Row struct {
	IBMSID         string
	FinancialYear  string
	DownloadPeriod string

	CostCentre string
	Account    string
	Service    string
	Activity   string
	Resource   string
	Project    string
	Job        string

	ShortCode     string
	ShortCodeName string
	GLCode        string

	PTDActual   decimal.Decimal
	PTDBudget   decimal.Decimal
	YTDActual   decimal.Decimal
	YTDBudget   decimal.Decimal
	FYBudget    decimal.Decimal
	YTDVariance decimal.Decimal

	CCName           string
	ServiceName      string
	JobName          string
	ResNameNo        string
	ActNameNo        string
	ProjNameNo       string
	RegionBranch     string
	Division         string
	ResourceCategory string
	Wildfire         string
	ExpenseRevenue   string
	FireActivities   string
	MPRACategory     string

	BudgetArea           string
	ProjectSponsor       string
	CorporateStrategyNo  string
	StrategicPlanNo      string
	RegionalSpecificInfo string
	ServicePriorityNo    string
	AnnualWorksPlan      string

	CorpStrategyDescription1 string
	CorpStrategyDescription2 string

	NatConsStrategicDirectionNo string
	NatConsStratDirectionDesc   string
	NatConsStratPlanAimNo       string
	NatConsStratPlanAim1        string
	NatConsStratPlanAim2        string
	NatConsStratPlanActionNo    string
	NatConsStratPlanActionDesc  string

	ServicePriorityDescription1 string
	ServicePriorityDescription2 string
}

// Report is an assembled report ready for rendering.
type Report struct {
	Flavor        Flavor
	FinancialYear string
	Filters       *Filters
	Rows          []*Row
}

// Assembler runs report assembly against the reference store.
type Assembler struct {
	store  *store.Store
	logger logger.Logger
}

// New creates an Assembler backed by the given store.
func New(st *store.Store, log logger.Logger) *Assembler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Assembler{
		store:  st,
		logger: log.WithComponent("assembler"),
	}
}

// Assemble builds a report of the given flavor. Filter validation errors
// are returned before any data is touched.
func (a *Assembler) Assemble(flavor Flavor, filters *Filters) (*Report, error) {
	if !flavor.IsValid() {
		return nil, errors.ReportError(errors.CodeUnknownFlavor, string(flavor), nil)
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	fy := filters.Year()

	records := a.selectRecords(flavor, filters, fy)

	a.logger.WithFields(map[string]interface{}{
		"flavor":        string(flavor),
		"financialYear": fy,
		"records":       len(records),
	}).Info("Assembling report")

	res := resolver.Build(a.store, fy)
	budgetLines := a.store.BudgetLineItemsForYear(fy)

	var rows []*Row
	if flavor.Grouped() {
		rows = a.groupByCode(records)
	} else {
		rows = make([]*Row, 0, len(records))
		for _, rec := range records {
			rows = append(rows, rowFromRecord(rec))
		}
	}

	for _, row := range rows {
		a.enrich(row, budgetLines, res, fy)
	}

	return &Report{
		Flavor:        flavor,
		FinancialYear: fy,
		Filters:       filters,
		Rows:          rows,
	}, nil
}

// selectRecords picks the GL records in scope for the run. Records come
// back from the store ordered by cost centre then GL code, which fixes
// the output order of the download flavor and the group representatives
// of the grouped flavors.
func (a *Assembler) selectRecords(flavor Flavor, filters *Filters, fy string) []*models.GeneralLedgerRecord {
	all := a.store.GLRecordsForYear(fy)

	var coded map[string]struct{}
	if flavor == FlavorCodeUpdate {
		// Code update lists only what finance has not yet coded.
		coded = a.store.BudgetIdentifiersForYear(fy)
	}

	out := make([]*models.GeneralLedgerRecord, 0, len(all))
	for _, rec := range all {
		if !filters.inScope(rec) {
			continue
		}
		if flavor == FlavorCodeUpdate {
			if !filters.codeUpdateIncludes(rec) {
				continue
			}
			if rec.CodeID != "" {
				if _, ok := coded[rec.CodeID]; ok {
					continue
				}
			}
		}
		out = append(out, rec)
	}
	return out
}

// groupByCode collapses the resource fan-out: one output row per CodeID,
// with the year-to-date actual and full-year budget summed across the
// group and everything else taken from the group's first record in store
// order. Records with no CodeID group together under the empty key.
func (a *Assembler) groupByCode(records []*models.GeneralLedgerRecord) []*Row {
	groups := make(map[string]*Row)
	order := make([]string, 0)

	for _, rec := range records {
		row, ok := groups[rec.CodeID]
		if !ok {
			row = rowFromRecord(rec)
			groups[rec.CodeID] = row
			order = append(order, rec.CodeID)
			continue
		}
		row.YTDActual = row.YTDActual.Add(rec.YTDActual)
		row.FYBudget = row.FYBudget.Add(rec.FYBudget)
	}

	rows := make([]*Row, 0, len(groups))
	for _, codeID := range order {
		rows = append(rows, groups[codeID])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CostCentre != rows[j].CostCentre {
			return rows[i].CostCentre < rows[j].CostCentre
		}
		return rows[i].IBMSID < rows[j].IBMSID
	})
	return rows
}

func rowFromRecord(rec *models.GeneralLedgerRecord) *Row {
	return &Row{
		IBMSID:         rec.CodeID,
		FinancialYear:  rec.FinancialYear,
		DownloadPeriod: rec.DownloadPeriod,

		CostCentre: rec.CostCentre,
		Account:    rec.Account,
		Service:    rec.Service,
		Activity:   rec.Activity,
		Resource:   rec.Resource,
		Project:    rec.Project,
		Job:        rec.Job,

		ShortCode:     rec.ShortCode,
		ShortCodeName: rec.ShortCodeName,
		GLCode:        rec.GLCode,

		PTDActual:   rec.PTDActual,
		PTDBudget:   rec.PTDBudget,
		YTDActual:   rec.YTDActual,
		YTDBudget:   rec.YTDBudget,
		FYBudget:    rec.FYBudget,
		YTDVariance: rec.YTDVariance,

		CCName:           rec.CCName,
		ServiceName:      rec.ServiceName,
		JobName:          rec.JobName,
		ResNameNo:        rec.ResNameNo,
		ActNameNo:        rec.ActNameNo,
		ProjNameNo:       rec.ProjNameNo,
		RegionBranch:     rec.RegionBranch,
		Division:         rec.Division,
		ResourceCategory: rec.ResourceCategory,
		Wildfire:         rec.Wildfire,
		ExpenseRevenue:   rec.ExpenseRevenue,
		FireActivities:   rec.FireActivities,
		MPRACategory:     rec.MPRACategory,
	}
}

// enrich joins the budget line, corporate strategy, strategic plan and
// service priority references onto a row. Missing references leave their
// fields empty.
func (a *Assembler) enrich(row *Row, budgetLines map[string]*models.BudgetLineItem, res *resolver.Resolver, fy string) {
	item := budgetLines[row.IBMSID]
	if item == nil {
		return
	}

	row.BudgetArea = item.BudgetArea
	row.ProjectSponsor = item.ProjectSponsor
	row.CorporateStrategyNo = item.CorporatePlanNo
	row.StrategicPlanNo = item.StrategicPlanNo
	row.RegionalSpecificInfo = item.RegionalSpecificInfo
	row.ServicePriorityNo = item.ServicePriorityID
	row.AnnualWorksPlan = item.AnnualWorksPlan

	if item.CorporatePlanNo != "" {
		if cs := a.store.GetCorporateStrategy(item.CorporatePlanNo, fy); cs != nil {
			row.CorpStrategyDescription1 = cs.Description1
			row.CorpStrategyDescription2 = cs.Description2
		}
	}

	if item.StrategicPlanNo != "" {
		if sp := a.store.GetStrategicPlan(item.StrategicPlanNo, fy); sp != nil {
			row.NatConsStrategicDirectionNo = sp.DirectionNo
			row.NatConsStratDirectionDesc = sp.Direction
			row.NatConsStratPlanAimNo = sp.AimNo
			row.NatConsStratPlanAim1 = sp.Aim1
			row.NatConsStratPlanAim2 = sp.Aim2
			row.NatConsStratPlanActionNo = sp.ActionNo
			row.NatConsStratPlanActionDesc = sp.Action
		}
	}

	row.ServicePriorityDescription1, row.ServicePriorityDescription2 =
		res.Resolve(item.ServicePriorityID, fy)
}
