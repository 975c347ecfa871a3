// Package resolver maps service-priority identifiers onto their two
// report description fields.
//
// A service-priority number can live in any of the five variant tables,
// and nothing enforces uniqueness across variants for the same year. The
// resolver therefore merges the variant tables in a fixed precedence
// order (FireServices, General, ParksVisitorServices,
// StateForestManagement, NatureConservation) with later variants
// overwriting earlier ones, so a NatureConservation row always wins a
// cross-variant collision and its (action, milestone) pair stands.
//
// The resolver is built once per report run (one dictionary per variant,
// merged up front) so per-row lookups are O(1) at realistic GL volumes.
// A lookup miss is not an error: it resolves to two empty strings,
// because upload order across file types is not guaranteed.
package resolver

import (
	"ibms-reporting-service/internal/models"
	"ibms-reporting-service/internal/store"
	"ibms-reporting-service/pkg/logger"
)

// Resolver answers service-priority description lookups for the years it
// was built from.
type Resolver struct {
	merged map[string]models.ServicePriority
	// collisions counts keys supplied by more than one variant table,
	// surfaced so operators can flag unexpected overlap to data owners.
	collisions int
}

// Build constructs a bulk resolver for one financial year. Variant tables
// are merged in precedence order; the last writer for a key wins.
func Build(st *store.Store, financialYear string) *Resolver {
	r := &Resolver{merged: make(map[string]models.ServicePriority)}

	for _, variant := range models.VariantPrecedence {
		for _, sp := range st.ServicePrioritiesForYear(variant, financialYear) {
			key := models.NaturalKey(sp.PriorityNo(), sp.Year())
			if _, exists := r.merged[key]; exists {
				r.collisions++
			}
			r.merged[key] = sp
		}
	}

	if r.collisions > 0 {
		logger.WithComponent("resolver").WithFields(logger.Fields{
			"financial_year": financialYear,
			"collisions":     r.collisions,
		}).Warn("Service priority numbers found in more than one variant table")
	}

	return r
}

// Resolve returns the (description1, description2) pair for a
// service-priority identifier. A miss returns two empty strings and
// never an error.
func (r *Resolver) Resolve(servicePriorityID, financialYear string) (string, string) {
	sp, ok := r.merged[models.NaturalKey(servicePriorityID, financialYear)]
	if !ok {
		return "", ""
	}
	return sp.Descriptions()
}

// Lookup returns the winning variant row itself, or nil on a miss.
func (r *Resolver) Lookup(servicePriorityID, financialYear string) models.ServicePriority {
	return r.merged[models.NaturalKey(servicePriorityID, financialYear)]
}

// Collisions reports how many keys were supplied by more than one
// variant table during the merge.
func (r *Resolver) Collisions() int {
	return r.collisions
}

// Len reports the number of distinct resolvable keys.
func (r *Resolver) Len() int {
	return len(r.merged)
}

// ResolveOne is the single-shot form used outside report assembly. It
// builds a one-year resolver and performs one lookup.
func ResolveOne(st *store.Store, servicePriorityID, financialYear string) (string, string) {
	return Build(st, financialYear).Resolve(servicePriorityID, financialYear)
}
