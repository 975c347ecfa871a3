package assembler

import (
	"fmt"
	"strings"

	"ibms-reporting-service/internal/models"
	"ibms-reporting-service/pkg/errors"
)

// Flavor selects a report variant. The grouped flavors emit one row per
// CodeID with summed amounts; the download flavor emits one row per
// underlying GL record with no aggregation.
type Flavor string

const (
	FlavorServicePriority Flavor = "servicepriority"
	FlavorDataAmendment   Flavor = "dataamendment"
	FlavorDownload        Flavor = "download"
	FlavorCodeUpdate      Flavor = "codeupdate"
)

// Grouped reports whether the flavor aggregates the resource fan-out by
// CodeID.
func (f Flavor) Grouped() bool {
	return f != FlavorDownload
}

// IsValid checks if the flavor is supported
func (f Flavor) IsValid() bool {
	switch f {
	case FlavorServicePriority, FlavorDataAmendment, FlavorDownload, FlavorCodeUpdate:
		return true
	default:
		return false
	}
}

// ParseFlavor validates a flavor string from the transport layer.
func ParseFlavor(s string) (Flavor, error) {
	f := Flavor(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", errors.ReportError(errors.CodeUnknownFlavor, s, nil)
	}
	return f, nil
}

// CodeUpdateVariant selects which of the admin code-update rule sets to
// apply. Non-elevated callers always get the standard rules.
type CodeUpdateVariant string

const (
	CodeUpdateStandard CodeUpdateVariant = ""
	CodeUpdateDJ0Only  CodeUpdateVariant = "dj0"
	CodeUpdateNonDJ0   CodeUpdateVariant = "nondj0"
)

// Filters scopes a report run.
type Filters struct {
	// FinancialYears must name exactly one year; more is a programming
	// error surfaced immediately.
	FinancialYears []string

	// At most one of CostCentre, RegionBranch and Division may be set.
	// Non-elevated callers must set exactly one; elevated callers may
	// select none.
	CostCentre   string
	RegionBranch string
	Division     string

	Elevated   bool
	CodeUpdate CodeUpdateVariant
}

// Year returns the single financial year the filters are scoped to.
func (f *Filters) Year() string {
	if len(f.FinancialYears) == 0 {
		return ""
	}
	return f.FinancialYears[0]
}

// Validate enforces the filter invariants for a report run.
func (f *Filters) Validate() error {
	if len(f.FinancialYears) != 1 {
		return errors.ReportError(errors.CodeMultiYearQuery,
			fmt.Sprintf("got %d years %v, want exactly 1", len(f.FinancialYears), f.FinancialYears), nil)
	}
	if !models.ValidFinancialYear(f.FinancialYears[0]) {
		return errors.ValidationError(errors.CodeInvalidYear, "financialYear", f.FinancialYears[0], nil)
	}

	scopes := 0
	for _, s := range []string{f.CostCentre, f.RegionBranch, f.Division} {
		if s != "" {
			scopes++
		}
	}
	if scopes > 1 {
		return errors.ReportError(errors.CodeInvalidFilter,
			"cost centre, region/branch and division are mutually exclusive", nil)
	}
	if scopes == 0 && !f.Elevated {
		return errors.ReportError(errors.CodeInvalidFilter,
			"select a cost centre, region/branch or division", nil)
	}
	switch f.CodeUpdate {
	case CodeUpdateStandard, CodeUpdateDJ0Only, CodeUpdateNonDJ0:
	default:
		return errors.ReportError(errors.CodeInvalidFilter,
			fmt.Sprintf("unknown code-update variant '%s', want dj0 or nondj0", f.CodeUpdate), nil)
	}
	if f.CodeUpdate != CodeUpdateStandard && !f.Elevated {
		return errors.ReportError(errors.CodeInvalidFilter,
			"the DJ0 code-update variants require elevated privilege", nil)
	}
	return nil
}

// inScope applies the cost centre / region / division scoping.
func (f *Filters) inScope(rec *models.GeneralLedgerRecord) bool {
	switch {
	case f.CostCentre != "":
		return rec.CostCentre == f.CostCentre
	case f.RegionBranch != "":
		return rec.RegionBranch == f.RegionBranch
	case f.Division != "":
		return rec.Division == f.Division
	default:
		return true
	}
}

// Code-update account/service sets. Literal business rules carried over
// from the finance section's reconciliation procedure.
var (
	dj0Services = map[int]struct{}{42: {}, 43: {}, 75: {}}

	dj0Accounts      = map[int]struct{}{1: {}, 2: {}, 4: {}, 42: {}}
	standardAccounts = map[int]struct{}{1: {}, 2: {}, 42: {}}
	cc531Accounts    = map[int]struct{}{1: {}, 2: {}, 6: {}, 42: {}}
)

// codeUpdateIncludes applies the code-update business rules to one GL
// record. The "already coded" exclusion is applied separately by the
// assembler because it needs the budget line table.
func (f *Filters) codeUpdateIncludes(rec *models.GeneralLedgerRecord) bool {
	// Every variant: payroll-and-above resources are out, and so is
	// service 11.
	if rec.ResourceNo() >= 4000 {
		return false
	}
	if rec.ServiceNo() == 11 {
		return false
	}

	isDJ0 := rec.Activity == "DJ0"
	_, dj0Service := dj0Services[rec.ServiceNo()]

	if f.Elevated {
		switch f.CodeUpdate {
		case CodeUpdateDJ0Only:
			_, ok := dj0Accounts[rec.AccountNo()]
			return isDJ0 && dj0Service && ok
		case CodeUpdateNonDJ0:
			_, ok := standardAccounts[rec.AccountNo()]
			return !isDJ0 && ok
		}
		// Elevated with no variant selected falls through to the
		// standard rules.
	}

	if f.CostCentre == "531" {
		_, ok := cc531Accounts[rec.AccountNo()]
		return ok
	}

	if _, ok := standardAccounts[rec.AccountNo()]; !ok {
		return false
	}
	return !(isDJ0 && dj0Service)
}
