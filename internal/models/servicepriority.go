package models

// ServicePriorityVariant identifies one of the five structurally
// different service-priority tables.
type ServicePriorityVariant string

const (
	VariantFireServices          ServicePriorityVariant = "ER"
	VariantGeneral               ServicePriorityVariant = "GENERAL"
	VariantParksVisitorServices  ServicePriorityVariant = "PVS"
	VariantStateForestManagement ServicePriorityVariant = "SFM"
	VariantNatureConservation    ServicePriorityVariant = "NC"
)

// VariantPrecedence is the fixed merge order for cross-variant lookups.
// Later entries overwrite earlier ones, so when a service-priority number
// exists in more than one variant for the same year, NatureConservation's
// fields stand. Uniqueness across variants is never enforced, so the
// order is load-bearing.
var VariantPrecedence = []ServicePriorityVariant{
	VariantFireServices,
	VariantGeneral,
	VariantParksVisitorServices,
	VariantStateForestManagement,
	VariantNatureConservation,
}

// ServicePriority is the shared shape of the five variant tables. Each
// implementation maps its own fields onto the (description1, description2)
// pair used by reports.
type ServicePriority interface {
	// Variant identifies the source table.
	Variant() ServicePriorityVariant
	// PriorityNo returns the service-priority number (the id half of the
	// natural key).
	PriorityNo() string
	// Year returns the financial year (the other half of the natural key).
	Year() string
	// Descriptions returns the two report description fields for this
	// variant.
	Descriptions() (string, string)
}

// ServicePriorityBase carries the fields common to every variant.
type ServicePriorityBase struct {
	ServicePriorityNo   string `json:"servicePriorityNo"`
	FinancialYear       string `json:"financialYear"`
	CategoryID          string `json:"categoryID"`
	StrategicPlanNo     string `json:"strategicPlanNo"`
	CorporateStrategyNo string `json:"corporateStrategyNo"`
}

// PriorityNo returns the service-priority number.
func (b *ServicePriorityBase) PriorityNo() string { return b.ServicePriorityNo }

// Year returns the financial year.
func (b *ServicePriorityBase) Year() string { return b.FinancialYear }

// Key returns the natural key of the service priority.
func (b *ServicePriorityBase) Key() string {
	return NaturalKey(b.ServicePriorityNo, b.FinancialYear)
}

// GeneralPriority is the general-purpose service priority table.
type GeneralPriority struct {
	ServicePriorityBase
	Description  string `json:"description"`
	Description2 string `json:"description2"`
}

// Variant identifies the source table.
func (p *GeneralPriority) Variant() ServicePriorityVariant { return VariantGeneral }

// Descriptions returns (description, description2).
func (p *GeneralPriority) Descriptions() (string, string) {
	return p.Description, p.Description2
}

// NCPriority is the nature-conservation service priority table.
type NCPriority struct {
	ServicePriorityBase
	AssetNo     string `json:"assetNo"`
	Asset       string `json:"asset"`
	TargetNo    string `json:"targetNo"`
	Target      string `json:"target"`
	ActionNo    string `json:"actionNo"`
	Action      string `json:"action"`
	MilestoneNo string `json:"milestoneNo"`
	Milestone   string `json:"milestone"`
}

// Variant identifies the source table.
func (p *NCPriority) Variant() ServicePriorityVariant { return VariantNatureConservation }

// Descriptions returns (action, milestone).
func (p *NCPriority) Descriptions() (string, string) {
	return p.Action, p.Milestone
}

// PVSPriority is the parks & visitor services priority table.
type PVSPriority struct {
	ServicePriorityBase
	ServicePriority1 string `json:"servicePriority1"`
	Description      string `json:"description"`
	AnnWPExample     string `json:"annWPExample"`
	ActNoExample     string `json:"actNoExample"`
}

// Variant identifies the source table.
func (p *PVSPriority) Variant() ServicePriorityVariant { return VariantParksVisitorServices }

// Descriptions returns (servicePriority1, description).
func (p *PVSPriority) Descriptions() (string, string) {
	return p.ServicePriority1, p.Description
}

// ERPriority is the fire services (emergency response) priority table.
type ERPriority struct {
	ServicePriorityBase
	Classification string `json:"classification"`
	Description    string `json:"description"`
}

// Variant identifies the source table.
func (p *ERPriority) Variant() ServicePriorityVariant { return VariantFireServices }

// Descriptions returns (classification, description).
func (p *ERPriority) Descriptions() (string, string) {
	return p.Classification, p.Description
}

// SFMPriority is the state forest management priority table.
type SFMPriority struct {
	ServicePriorityBase
	RegionBranch string `json:"regionBranch"`
	Description  string `json:"description"`
	Description2 string `json:"description2"`
}

// Variant identifies the source table.
func (p *SFMPriority) Variant() ServicePriorityVariant { return VariantStateForestManagement }

// Descriptions returns (description, description2).
func (p *SFMPriority) Descriptions() (string, string) {
	return p.Description, p.Description2
}
