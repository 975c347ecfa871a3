package assembler

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
)

// ReportHeader is the exact column contract of the CSV and workbook
// renderings. Downstream spreadsheets key on these names and this order,
// so the slice is the single source of truth for both writers.
var ReportHeader = []string{
	"IBMS ID",
	"Financial Year",
	"Download Period",
	"Cost Centre",
	"Account",
	"Service",
	"Activity",
	"Resource",
	"Project",
	"Job",
	"Short Code",
	"Short Code Name",
	"GL Code",
	"ptd Actual",
	"ptd Budget",
	"ytd Actual",
	"ytd Budget",
	"fy Budget",
	"ytd Variance",
	"cc Name",
	"Service Name",
	"Job Name",
	"Res Name No",
	"Act Name No",
	"Proj Name No",
	"Region/Branch",
	"Division",
	"Resource Category",
	"Wildfire",
	"Expense Revenue",
	"Fire Activities",
	"mPRACategory",
	"Budget Area",
	"Project Sponsor",
	"Corporate Strategy No",
	"Strategic Plan No",
	"Regional Specific Info",
	"Service Priority No",
	"Annual Works Plan",
	"Corp Strategy Description 1",
	"Corp Strategy Description 2",
	"Nat Cons Strategic Direction No",
	"Nat Cons Strat Direction Desc",
	"Nat Cons Strat Plan Aim No",
	"Nat Cons Strat Plan Aim 1",
	"Nat Cons Strat Plan Aim 2",
	"Nat Cons Strat Plan Action No",
	"Nat Cons Strat Plan Action Description",
	"Service Priority Description 1",
	"Service Priority Description 2",
}

// fields flattens a row into the ReportHeader column order.
func (r *Row) fields() []string {
	return []string{
		r.IBMSID,
		r.FinancialYear,
		r.DownloadPeriod,
		r.CostCentre,
		r.Account,
		r.Service,
		r.Activity,
		r.Resource,
		r.Project,
		r.Job,
		r.ShortCode,
		r.ShortCodeName,
		r.GLCode,
		r.PTDActual.String(),
		r.PTDBudget.String(),
		r.YTDActual.String(),
		r.YTDBudget.String(),
		r.FYBudget.String(),
		r.YTDVariance.String(),
		r.CCName,
		r.ServiceName,
		r.JobName,
		r.ResNameNo,
		r.ActNameNo,
		r.ProjNameNo,
		r.RegionBranch,
		r.Division,
		r.ResourceCategory,
		r.Wildfire,
		r.ExpenseRevenue,
		r.FireActivities,
		r.MPRACategory,
		r.BudgetArea,
		r.ProjectSponsor,
		r.CorporateStrategyNo,
		r.StrategicPlanNo,
		r.RegionalSpecificInfo,
		r.ServicePriorityNo,
		r.AnnualWorksPlan,
		r.CorpStrategyDescription1,
		r.CorpStrategyDescription2,
		r.NatConsStrategicDirectionNo,
		r.NatConsStratDirectionDesc,
		r.NatConsStratPlanAimNo,
		r.NatConsStratPlanAim1,
		r.NatConsStratPlanAim2,
		r.NatConsStratPlanActionNo,
		r.NatConsStratPlanActionDesc,
		r.ServicePriorityDescription1,
		r.ServicePriorityDescription2,
	}
}

// WriteCSV renders the report as RFC 4180 CSV with the ReportHeader
// contract.
func WriteCSV(report *Report, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ReportHeader); err != nil {
		return errors.Wrap(err, "failed to write report header")
	}
	for i, row := range report.Rows {
		if err := cw.Write(row.fields()); err != nil {
			return errors.Wrapf(err, "failed to write report row %d", i+1)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush report")
}
