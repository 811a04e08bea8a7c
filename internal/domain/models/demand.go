package models

import "time"

// DemandStatus is the lifecycle state of a demand.
type DemandStatus string

const (
	DemandPending   DemandStatus = "PENDING"
	DemandApproved  DemandStatus = "APPROVED"
	DemandRejected  DemandStatus = "REJECTED"
	DemandConverted DemandStatus = "CONVERTED"
)

// DemandStatuses lists every status in display order.
var DemandStatuses = []DemandStatus{DemandPending, DemandApproved, DemandRejected, DemandConverted}

// IsValid reports whether s is one of the four known statuses.
func (s DemandStatus) IsValid() bool {
	switch s {
	case DemandPending, DemandApproved, DemandRejected, DemandConverted:
		return true
	}
	return false
}

// Domain identifies which product family a demand belongs to. Each domain
// has its own collection but the same document shape.
type Domain string

const (
	DomainSpecialSavings Domain = "special_savings"
	DomainEmergency      Domain = "emergency"
	DomainPlacement      Domain = "placement"
)

// Domains lists every supported domain.
var Domains = []Domain{DomainSpecialSavings, DomainEmergency, DomainPlacement}

// ParseDomain returns the Domain for s, or false if s is unknown.
func ParseDomain(s string) (Domain, bool) {
	for _, d := range Domains {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// Collection returns the MongoDB collection that stores the domain's demands.
func (d Domain) Collection() string {
	return string(d) + "_demands"
}

// Demand is a member's request for a financial product, subject to admin
// approval. Terms are opaque to the workflow and passed through to contract
// creation unchanged.
//
// NOTE:
//   - ContractID is set if and only if Status is CONVERTED.
//   - Search* fields are derived once at creation and never recomputed.
//   - History is append-only; the flat decision/conversion/reopen fields
//     hold the latest values for list filters and display.
type Demand struct {
	ID     string       `bson:"_id" json:"id"`
	Domain Domain       `bson:"domain" json:"domain"`
	Status DemandStatus `bson:"status" json:"status"`

	MemberID     string `bson:"member_id" json:"member_id"`
	GroupID      string `bson:"group_id,omitempty" json:"group_id,omitempty"`
	ContractType string `bson:"contract_type,omitempty" json:"contract_type,omitempty"` // INDIVIDUAL or GROUP
	CaisseType   string `bson:"caisse_type,omitempty" json:"caisse_type,omitempty"`     // sub-category (e.g. STANDARD, JOURNALIERE, LIBRE)

	Terms DemandTerms `bson:"terms" json:"terms"`

	ContractID *string `bson:"contract_id,omitempty" json:"contract_id,omitempty"`

	// Latest decision (APPROVED / REJECTED)
	DecisionMadeBy     string     `bson:"decision_made_by,omitempty" json:"decision_made_by,omitempty"`
	DecisionMadeByName string     `bson:"decision_made_by_name,omitempty" json:"decision_made_by_name,omitempty"`
	DecisionMadeAt     *time.Time `bson:"decision_made_at,omitempty" json:"decision_made_at,omitempty"`
	DecisionReason     string     `bson:"decision_reason,omitempty" json:"decision_reason,omitempty"`

	// Conversion
	ConvertedBy     string     `bson:"converted_by,omitempty" json:"converted_by,omitempty"`
	ConvertedByName string     `bson:"converted_by_name,omitempty" json:"converted_by_name,omitempty"`
	ConvertedAt     *time.Time `bson:"converted_at,omitempty" json:"converted_at,omitempty"`

	// Conversion saga: set while a contract is being created, cleared when the
	// demand is converted or the attempt fails.
	ConversionStartedAt *time.Time `bson:"conversion_started_at,omitempty" json:"conversion_started_at,omitempty"`
	ConversionError     string     `bson:"conversion_error,omitempty" json:"conversion_error,omitempty"`

	// Reopen
	ReopenedBy     string     `bson:"reopened_by,omitempty" json:"reopened_by,omitempty"`
	ReopenedByName string     `bson:"reopened_by_name,omitempty" json:"reopened_by_name,omitempty"`
	ReopenedAt     *time.Time `bson:"reopened_at,omitempty" json:"reopened_at,omitempty"`
	ReopenReason   string     `bson:"reopen_reason,omitempty" json:"reopen_reason,omitempty"`

	// Prefix-search keys (see searchtext.Build)
	SearchByLastName  string `bson:"search_lastname_first" json:"-"`
	SearchByFirstName string `bson:"search_firstname_first" json:"-"`
	SearchByMatricule string `bson:"search_matricule_first" json:"-"`

	History []AuditEvent `bson:"history,omitempty" json:"history,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	CreatedBy string    `bson:"created_by,omitempty" json:"created_by,omitempty"`
	UpdatedBy string    `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}

// HasContract reports whether the demand already produced a contract.
func (d *Demand) HasContract() bool {
	return d.ContractID != nil && *d.ContractID != ""
}

// DemandTerms are the product terms requested by the member.
type DemandTerms struct {
	Amount           float64           `bson:"amount" json:"amount"`
	MonthlyAmount    float64           `bson:"monthly_amount,omitempty" json:"monthly_amount,omitempty"`
	DurationMonths   int               `bson:"duration_months" json:"duration_months"`
	DesiredDate      *time.Time        `bson:"desired_date,omitempty" json:"desired_date,omitempty"`
	PaymentFrequency string            `bson:"payment_frequency,omitempty" json:"payment_frequency,omitempty"`
	Cause            string            `bson:"cause,omitempty" json:"cause,omitempty"`
	EmergencyContact *EmergencyContact `bson:"emergency_contact,omitempty" json:"emergency_contact,omitempty"`
}

// EmergencyContact is the optional person to reach about the contract.
type EmergencyContact struct {
	LastName     string `bson:"last_name" json:"last_name"`
	FirstName    string `bson:"first_name,omitempty" json:"first_name,omitempty"`
	Phone        string `bson:"phone" json:"phone"`
	Relationship string `bson:"relationship,omitempty" json:"relationship,omitempty"`
}

// AuditAction names an entry in a demand's history.
type AuditAction string

const (
	ActionCreated          AuditAction = "created"
	ActionApproved         AuditAction = "approved"
	ActionRejected         AuditAction = "rejected"
	ActionReopened         AuditAction = "reopened"
	ActionConverted        AuditAction = "converted"
	ActionConversionFailed AuditAction = "conversion_failed"
)

// AuditEvent is one append-only history entry on a demand.
type AuditEvent struct {
	Action     AuditAction  `bson:"action" json:"action"`
	ActorID    string       `bson:"actor_id" json:"actor_id"`
	ActorName  string       `bson:"actor_name,omitempty" json:"actor_name,omitempty"`
	Reason     string       `bson:"reason,omitempty" json:"reason,omitempty"`
	FromStatus DemandStatus `bson:"from_status,omitempty" json:"from_status,omitempty"`
	ToStatus   DemandStatus `bson:"to_status,omitempty" json:"to_status,omitempty"`
	ContractID string       `bson:"contract_id,omitempty" json:"contract_id,omitempty"`
	At         time.Time    `bson:"at" json:"at"`
}
