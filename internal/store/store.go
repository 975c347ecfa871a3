// Package store implements the in-memory reference store.
//
// Each table is held as a map keyed by the entity's composite natural key
// (identifier + "_" + financial year). There are deliberately no
// relational links between tables: every table is wholesale replaced from
// the external financial system on its own schedule, and cross-table
// references are resolved at read time, tolerating missing or
// out-of-order uploads.
//
// A single RWMutex guards the maps. Imports and reports each run within
// one request, so the lock only has to make individual operations (and
// the GL bulk swap in particular) atomic; serializing concurrent uploads
// of the same table is an operational concern outside the store.
package store

import (
	"sort"
	"sync"

	"ibms-reporting-service/internal/models"
)

// Store holds every reference table for all loaded financial years.
type Store struct {
	mu sync.RWMutex

	budgetLines         map[string]*models.BudgetLineItem
	glRecords           map[string]*models.GeneralLedgerRecord
	corporateStrategies map[string]*models.CorporateStrategy
	strategicPlans      map[string]*models.StrategicPlan
	costCentres         map[string]*models.CostCentreMapping
	metrics             map[string]*models.QuarterlyMetric

	// priorities holds one keyed map per service-priority variant.
	priorities map[models.ServicePriorityVariant]map[string]models.ServicePriority
}

// New creates an empty Store.
func New() *Store {
	s := &Store{
		budgetLines:         make(map[string]*models.BudgetLineItem),
		glRecords:           make(map[string]*models.GeneralLedgerRecord),
		corporateStrategies: make(map[string]*models.CorporateStrategy),
		strategicPlans:      make(map[string]*models.StrategicPlan),
		costCentres:         make(map[string]*models.CostCentreMapping),
		metrics:             make(map[string]*models.QuarterlyMetric),
		priorities:          make(map[models.ServicePriorityVariant]map[string]models.ServicePriority),
	}
	for _, v := range models.VariantPrecedence {
		s.priorities[v] = make(map[string]models.ServicePriority)
	}
	return s
}

// UpsertBudgetLineItem inserts or overwrites a budget line item by its
// natural key. A record missing from a later upload is not deleted; only
// the GL pivot table is ever wholesale replaced.
func (s *Store) UpsertBudgetLineItem(item *models.BudgetLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgetLines[item.Key()] = item
}

// GetBudgetLineItem returns the budget line item for (id, financialYear),
// or nil when absent.
func (s *Store) GetBudgetLineItem(id, financialYear string) *models.BudgetLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budgetLines[models.NaturalKey(id, financialYear)]
}

// BudgetIdentifiersForYear returns the set of IBMS identifiers that carry
// a budget line item in the given year. The code-update report uses this
// to exclude GL records that are already coded.
func (s *Store) BudgetIdentifiersForYear(financialYear string) map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{})
	for _, item := range s.budgetLines {
		if item.FinancialYear == financialYear {
			ids[item.IBMSID] = struct{}{}
		}
	}
	return ids
}

// BudgetLineItemsForYear returns every budget line item in the given year,
// keyed by IBMS identifier.
func (s *Store) BudgetLineItemsForYear(financialYear string) map[string]*models.BudgetLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make(map[string]*models.BudgetLineItem)
	for _, item := range s.budgetLines {
		if item.FinancialYear == financialYear {
			items[item.IBMSID] = item
		}
	}
	return items
}

// UpsertGLRecord inserts or overwrites a single GL record. Bulk imports
// use ReplaceGLRecords instead.
func (s *Store) UpsertGLRecord(rec *models.GeneralLedgerRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.glRecords[rec.Key()] = rec
}

// ReplaceGLRecords atomically replaces every GL record for one financial
// year with the supplied set. The replacement map is assembled before the
// lock is taken, so a caller that fails while building its record set
// leaves the prior year's data fully intact.
func (s *Store) ReplaceGLRecords(financialYear string, records []*models.GeneralLedgerRecord) {
	replacement := make(map[string]*models.GeneralLedgerRecord, len(records))
	for _, rec := range records {
		replacement[rec.Key()] = rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, rec := range s.glRecords {
		if rec.FinancialYear == financialYear {
			delete(s.glRecords, key)
		}
	}
	for key, rec := range replacement {
		s.glRecords[key] = rec
	}
}

// GetGLRecord returns the GL record for (glCode, financialYear), or nil.
func (s *Store) GetGLRecord(glCode, financialYear string) *models.GeneralLedgerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.glRecords[models.NaturalKey(glCode, financialYear)]
}

// GLRecordsForYear returns every GL record in the given year, ordered by
// cost centre then GL code for stable report output.
func (s *Store) GLRecordsForYear(financialYear string) []*models.GeneralLedgerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.GeneralLedgerRecord
	for _, rec := range s.glRecords {
		if rec.FinancialYear == financialYear {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CostCentre != records[j].CostCentre {
			return records[i].CostCentre < records[j].CostCentre
		}
		return records[i].GLCode < records[j].GLCode
	})
	return records
}

// UpsertCorporateStrategy inserts or overwrites a corporate strategy row.
func (s *Store) UpsertCorporateStrategy(cs *models.CorporateStrategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corporateStrategies[cs.Key()] = cs
}

// GetCorporateStrategy returns the corporate strategy for
// (strategyNo, financialYear), or nil.
func (s *Store) GetCorporateStrategy(strategyNo, financialYear string) *models.CorporateStrategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corporateStrategies[models.NaturalKey(strategyNo, financialYear)]
}

// UpsertStrategicPlan inserts or overwrites a strategic plan row.
func (s *Store) UpsertStrategicPlan(sp *models.StrategicPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategicPlans[sp.Key()] = sp
}

// GetStrategicPlan returns the strategic plan for (planNo, financialYear),
// or nil.
func (s *Store) GetStrategicPlan(planNo, financialYear string) *models.StrategicPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.strategicPlans[models.NaturalKey(planNo, financialYear)]
}

// UpsertServicePriority inserts or overwrites a service priority row in
// its variant's table.
func (s *Store) UpsertServicePriority(sp models.ServicePriority) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priorities[sp.Variant()][models.NaturalKey(sp.PriorityNo(), sp.Year())] = sp
}

// GetServicePriority returns the row for (priorityNo, financialYear) in
// one specific variant table, or nil.
func (s *Store) GetServicePriority(variant models.ServicePriorityVariant, priorityNo, financialYear string) models.ServicePriority {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.priorities[variant][models.NaturalKey(priorityNo, financialYear)]
}

// ServicePrioritiesForYear returns every row of one variant table in the
// given year, ordered by priority number.
func (s *Store) ServicePrioritiesForYear(variant models.ServicePriorityVariant, financialYear string) []models.ServicePriority {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []models.ServicePriority
	for _, sp := range s.priorities[variant] {
		if sp.Year() == financialYear {
			rows = append(rows, sp)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].PriorityNo() < rows[j].PriorityNo()
	})
	return rows
}

// UpsertCostCentreMapping inserts or overwrites a cost centre mapping.
func (s *Store) UpsertCostCentreMapping(m *models.CostCentreMapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.costCentres[m.Key()] = m
}

// GetCostCentreMapping returns the mapping for
// (costCentreNo, financialYear), or nil.
func (s *Store) GetCostCentreMapping(costCentreNo, financialYear string) *models.CostCentreMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.costCentres[models.NaturalKey(costCentreNo, financialYear)]
}

// CostCentreMappingsForYear returns every mapping in the given year,
// ordered by cost centre number.
func (s *Store) CostCentreMappingsForYear(financialYear string) []*models.CostCentreMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []*models.CostCentreMapping
	for _, m := range s.costCentres {
		if m.FinancialYear == financialYear {
			rows = append(rows, m)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CostCentreNo < rows[j].CostCentreNo
	})
	return rows
}

// UpsertQuarterlyMetric inserts or overwrites a quarterly metric entry.
func (s *Store) UpsertQuarterlyMetric(q *models.QuarterlyMetric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[q.Key()] = q
}

// GetQuarterlyMetric returns the metric entry for
// (region, quarter, financialYear), or nil.
func (s *Store) GetQuarterlyMetric(region string, quarter int, financialYear string) *models.QuarterlyMetric {
	lookup := &models.QuarterlyMetric{Region: region, Quarter: quarter, FinancialYear: financialYear}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics[lookup.Key()]
}

// QuarterlyMetricsForYear returns every metric entry in the given year,
// ordered by region then quarter.
func (s *Store) QuarterlyMetricsForYear(financialYear string) []*models.QuarterlyMetric {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []*models.QuarterlyMetric
	for _, q := range s.metrics {
		if q.FinancialYear == financialYear {
			rows = append(rows, q)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Region != rows[j].Region {
			return rows[i].Region < rows[j].Region
		}
		return rows[i].Quarter < rows[j].Quarter
	})
	return rows
}

// Counts reports the number of rows held per table, for the admin surface.
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{
		"budgetLineItems":     len(s.budgetLines),
		"glRecords":           len(s.glRecords),
		"corporateStrategies": len(s.corporateStrategies),
		"strategicPlans":      len(s.strategicPlans),
		"costCentreMappings":  len(s.costCentres),
		"quarterlyMetrics":    len(s.metrics),
	}
	for variant, table := range s.priorities {
		counts["servicePriorities_"+string(variant)] = len(table)
	}
	return counts
}

// Years lists every financial year seen in any table, newest first.
func (s *Store) Years() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, item := range s.budgetLines {
		seen[item.FinancialYear] = struct{}{}
	}
	for _, rec := range s.glRecords {
		seen[rec.FinancialYear] = struct{}{}
	}
	for _, cs := range s.corporateStrategies {
		seen[cs.FinancialYear] = struct{}{}
	}
	for _, sp := range s.strategicPlans {
		seen[sp.FinancialYear] = struct{}{}
	}
	for _, table := range s.priorities {
		for _, sp := range table {
			seen[sp.Year()] = struct{}{}
		}
	}

	years := make([]string, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(years)))
	return years
}
