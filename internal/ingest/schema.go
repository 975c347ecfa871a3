// Package ingest validates and imports the periodic CSV extracts.
//
// Nine table types are supported, each with a literal ordered header row
// and an exact column count that form a compatibility contract with the
// external financial system. Validation runs before any write and its
// diagnostics are surfaced to the user verbatim.
//
// Import semantics differ by volume: the GL pivot download always fully
// replaces its table for a financial year (parse everything, then one
// atomic swap), while the eight reference table types are upserted
// row by row with no cross-row atomicity. A mid-file failure leaves a
// partially updated table; the import result reports it as aborted.
package ingest

import (
	"fmt"

	"ibms-reporting-service/internal/models"
	"ibms-reporting-service/pkg/errors"
)

// TableType identifies one of the nine CSV upload formats.
type TableType string

const (
	TableIBMData                TableType = "ibmdata"
	TableGLPivotDownload        TableType = "glpivotdownload"
	TableCorporateStrategy      TableType = "corporatestrategy"
	TableNCStrategicPlan        TableType = "ncstrategicplan"
	TableGeneralServicePriority TableType = "generalservicepriority"
	TableNCServicePriority      TableType = "ncservicepriority"
	TablePVSServicePriority     TableType = "pvsservicepriority"
	TableERServicePriority      TableType = "erservicepriority"
	TableSFMServicePriority     TableType = "sfmservicepriority"
)

// AllTableTypes lists every supported upload format.
var AllTableTypes = []TableType{
	TableIBMData,
	TableGLPivotDownload,
	TableCorporateStrategy,
	TableNCStrategicPlan,
	TableGeneralServicePriority,
	TableNCServicePriority,
	TablePVSServicePriority,
	TableERServicePriority,
	TableSFMServicePriority,
}

// ParseTableType validates a table type string from the transport layer.
func ParseTableType(s string) (TableType, error) {
	for _, t := range AllTableTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", errors.New(errors.CategoryImport, errors.CodeUnknownTableType,
		fmt.Sprintf("unknown table type '%s'", s)).
		WithSuggestion(fmt.Sprintf("supported table types: %v", AllTableTypes))
}

// column describes one position of a table's header contract. MaxLength
// is the bound enforced by the truncation guard; 0 means unbounded.
type column struct {
	Name      string
	MaxLength int
}

// schema binds a table type to its header contract and row builder. The
// builder receives the trimmed, guard-checked fields in header order plus
// the financial year from the upload request (the year never travels in
// the file) and returns a model record for the store.
type schema struct {
	TableType TableType
	Columns   []column
	// BulkReplace marks high-volume tables whose import path is
	// delete-then-bulk-insert rather than per-row upsert.
	BulkReplace bool
	Build       func(fields []string, financialYear string) (interface{}, error)
}

// Header returns the expected header names in order.
func (s *schema) Header() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

var schemas = map[TableType]*schema{
	TableIBMData: {
		TableType: TableIBMData,
		Columns: []column{
			{"ibmIdentifier", 20},
			{"costCentre", 4},
			{"account", 4},
			{"service", 4},
			{"activity", 4},
			{"project", 6},
			{"job", 6},
			{"budgetArea", 100},
			{"projectSponsor", 100},
			{"regionalSpecificInfo", 4000},
			{"servicePriorityID", 100},
			{"annualWPInfo", 4000},
			{"corporatePlanNo", 20},
			{"strategicPlanNo", 20},
		},
		Build: func(f []string, fy string) (interface{}, error) {
			item := &models.BudgetLineItem{
				IBMSID:               f[0],
				FinancialYear:        fy,
				CostCentre:           f[1],
				Account:              f[2],
				Service:              f[3],
				Activity:             f[4],
				Project:              f[5],
				Job:                  f[6],
				BudgetArea:           f[7],
				ProjectSponsor:       f[8],
				RegionalSpecificInfo: f[9],
				ServicePriorityID:    f[10],
				AnnualWorksPlan:      f[11],
				CorporatePlanNo:      f[12],
				StrategicPlanNo:      f[13],
			}
			if err := item.Validate(); err != nil {
				return nil, err
			}
			return item, nil
		},
	},

	TableGLPivotDownload: {
		TableType:   TableGLPivotDownload,
		BulkReplace: true,
		Columns: []column{
			{"codeID", 30},
			{"downloadPeriod", 10},
			{"costCentre", 4},
			{"account", 4},
			{"service", 4},
			{"activity", 4},
			{"resource", 4},
			{"project", 6},
			{"job", 6},
			{"shortCode", 20},
			{"shortCodeName", 200},
			{"gLCode", 30},
			{"ptdActual", 0},
			{"ptdBudget", 0},
			{"ytdActual", 0},
			{"ytdBudget", 0},
			{"fybudget", 0},
			{"ytdVariance", 0},
			{"ccName", 100},
			{"serviceName", 100},
			{"jobName", 100},
			{"resNameNo", 100},
			{"actNameNo", 100},
			{"projNameNo", 100},
			{"regionBranch", 100},
			{"division", 100},
			{"resourceCategory", 100},
			{"wildfire", 100},
			{"expenseRevenue", 10},
			{"fireActivities", 50},
			{"mPRACategory", 100},
		},
		Build: func(f []string, fy string) (interface{}, error) {
			rec := &models.GeneralLedgerRecord{
				CodeID:           f[0],
				DownloadPeriod:   f[1],
				CostCentre:       f[2],
				Account:          f[3],
				Service:          f[4],
				Activity:         f[5],
				Resource:         f[6],
				Project:          f[7],
				Job:              f[8],
				ShortCode:        f[9],
				ShortCodeName:    f[10],
				GLCode:           f[11],
				CCName:           f[18],
				ServiceName:      f[19],
				JobName:          f[20],
				ResNameNo:        f[21],
				ActNameNo:        f[22],
				ProjNameNo:       f[23],
				RegionBranch:     f[24],
				Division:         f[25],
				ResourceCategory: f[26],
				Wildfire:         f[27],
				ExpenseRevenue:   f[28],
				FireActivities:   f[29],
				MPRACategory:     f[30],
				FinancialYear:    fy,
			}

			var err error
			if rec.PTDActual, err = models.ParseDecimalFromString(f[12]); err != nil {
				return nil, fmt.Errorf("ptdActual: %w", err)
			}
			if rec.PTDBudget, err = models.ParseDecimalFromString(f[13]); err != nil {
				return nil, fmt.Errorf("ptdBudget: %w", err)
			}
			if rec.YTDActual, err = models.ParseDecimalFromString(f[14]); err != nil {
				return nil, fmt.Errorf("ytdActual: %w", err)
			}
			if rec.YTDBudget, err = models.ParseDecimalFromString(f[15]); err != nil {
				return nil, fmt.Errorf("ytdBudget: %w", err)
			}
			if rec.FYBudget, err = models.ParseDecimalFromString(f[16]); err != nil {
				return nil, fmt.Errorf("fybudget: %w", err)
			}
			if rec.YTDVariance, err = models.ParseDecimalFromString(f[17]); err != nil {
				return nil, fmt.Errorf("ytdVariance: %w", err)
			}

			if err := rec.Validate(); err != nil {
				return nil, err
			}
			return rec, nil
		},
	},

	TableCorporateStrategy: {
		TableType: TableCorporateStrategy,
		Columns: []column{
			{"corporateStrategyNo", 10},
			{"description1", 200},
			{"description2", 200},
		},
		Build: func(f []string, fy string) (interface{}, error) {
			rec := &models.CorporateStrategy{
				StrategyNo:    f[0],
				FinancialYear: fy,
				Description1:  f[1],
				Description2:  f[2],
			}
			if err := rec.Validate(); err != nil {
				return nil, err
			}
			return rec, nil
		},
	},

	TableNCStrategicPlan: {
		TableType: TableNCStrategicPlan,
		Columns: []column{
			{"strategicPlanNo", 20},
			{"directionNo", 20},
			{"direction", 200},
			{"aimNo", 20},
			{"aim1", 200},
			{"aim2", 200},
			{"actionNo", 20},
			{"action", 1000},
		},
		Build: func(f []string, fy string) (interface{}, error) {
			rec := &models.StrategicPlan{
				PlanNo:        f[0],
				FinancialYear: fy,
				DirectionNo:   f[1],
				Direction:     f[2],
				AimNo:         f[3],
				Aim1:          f[4],
				Aim2:          f[5],
				ActionNo:      f[6],
				Action:        f[7],
			}
			if err := rec.Validate(); err != nil {
				return nil, err
			}
			return rec, nil
		},
	},

	TableGeneralServicePriority: {
		TableType: TableGeneralServicePriority,
		Columns: []column{
			{"categoryID", 30},
			{"servicePriorityNo", 100},
			{"strategicPlanNo", 100},
			{"corporateStrategyNo", 100},
			{"description", 1000},
			{"description2", 1000},
		},
		Build: func(f []string, fy string) (interface{}, error) {
			return &models.GeneralPriority{
				ServicePriorityBase: priorityBase(f, fy),
				Description:         f[4],
				Description2:        f[5],
			}, nil
		},
	},

	TableNCServicePriority: {
		TableType: TableNCServicePriority,
		Columns: []column{
			{"categoryID", 30},
			{"servicePriorityNo", 100},
			{"strategicPlanNo", 100},
			{"corporateStrategyNo", 100},
			{"assetNo", 5},
			{"asset", 100},
			{"targetNo", 30},
			{"target", 1000},
			{"actionNo", 30},
			{"action", 1000},
			{"milestoneNo", 30},
			{"milestone", 400},
		},
		Build: func(f []string, fy string) (interface{}, error) {
			return &models.NCPriority{
				ServicePriorityBase: priorityBase(f, fy),
				AssetNo:             f[4],
				Asset:               f[5],
				TargetNo:            f[6],
				Target:              f[7],
				ActionNo:            f[8],
				Action:              f[9],
				MilestoneNo:         f[10],
				Milestone:           f[11],
			}, nil
		},
	},

	TablePVSServicePriority: {
		TableType: TablePVSServicePriority,
		Columns: []column{
			{"categoryID", 30},
			{"servicePriorityNo", 100},
			{"strategicPlanNo", 100},
			{"corporateStrategyNo", 100},
			{"servicePriority1", 1000},
			{"description", 1000},
			{"annWPExample", 1000},
			{"actNoExample", 100},
		},
		Build: func(f []string, fy string) (interface{}, error) {
			return &models.PVSPriority{
				ServicePriorityBase: priorityBase(f, fy),
				ServicePriority1:    f[4],
				Description:         f[5],
				AnnWPExample:        f[6],
				ActNoExample:        f[7],
			}, nil
		},
	},

	TableERServicePriority: {
		TableType: TableERServicePriority,
		Columns: []column{
			{"categoryID", 30},
			{"servicePriorityNo", 100},
			{"strategicPlanNo", 100},
			{"corporateStrategyNo", 100},
			{"classification", 200},
			{"description", 1000},
		},
		Build: func(f []string, fy string) (interface{}, error) {
			return &models.ERPriority{
				ServicePriorityBase: priorityBase(f, fy),
				Classification:      f[4],
				Description:         f[5],
			}, nil
		},
	},

	TableSFMServicePriority: {
		TableType: TableSFMServicePriority,
		Columns: []column{
			{"regionBranch", 100},
			{"categoryID", 30},
			{"servicePriorityNo", 100},
			{"strategicPlanNo", 100},
			{"corporateStrategyNo", 100},
			{"description", 1000},
			{"description2", 1000},
		},
		Build: func(f []string, fy string) (interface{}, error) {
			return &models.SFMPriority{
				ServicePriorityBase: models.ServicePriorityBase{
					CategoryID:          f[1],
					ServicePriorityNo:   f[2],
					StrategicPlanNo:     f[3],
					CorporateStrategyNo: f[4],
					FinancialYear:       fy,
				},
				RegionBranch: f[0],
				Description:  f[5],
				Description2: f[6],
			}, nil
		},
	},
}

// priorityBase maps the common leading columns shared by four of the five
// service-priority layouts (SFM leads with regionBranch instead).
func priorityBase(f []string, fy string) models.ServicePriorityBase {
	return models.ServicePriorityBase{
		CategoryID:          f[0],
		ServicePriorityNo:   f[1],
		StrategicPlanNo:     f[2],
		CorporateStrategyNo: f[3],
		FinancialYear:       fy,
	}
}

// SchemaHeader returns the literal expected header for a table type.
func SchemaHeader(t TableType) []string {
	return schemas[t].Header()
}
