package models

import "time"

// ContractTerms is what the workflow hands to contract creation. It carries
// the demand's terms unchanged plus the identifiers needed to trace the
// contract back to its demand.
type ContractTerms struct {
	Domain           Domain            `bson:"domain" json:"domain"`
	DemandID         string            `bson:"demand_id" json:"demand_id"`
	MemberID         string            `bson:"member_id" json:"member_id"`
	GroupID          string            `bson:"group_id,omitempty" json:"group_id,omitempty"`
	ContractType     string            `bson:"contract_type,omitempty" json:"contract_type,omitempty"`
	CaisseType       string            `bson:"caisse_type,omitempty" json:"caisse_type,omitempty"`
	Amount           float64           `bson:"amount" json:"amount"`
	MonthlyAmount    float64           `bson:"monthly_amount,omitempty" json:"monthly_amount,omitempty"`
	DurationMonths   int               `bson:"duration_months" json:"duration_months"`
	StartDate        *time.Time        `bson:"start_date,omitempty" json:"start_date,omitempty"`
	PaymentFrequency string            `bson:"payment_frequency,omitempty" json:"payment_frequency,omitempty"`
	EmergencyContact *EmergencyContact `bson:"emergency_contact,omitempty" json:"emergency_contact,omitempty"`
	SettingsID       string            `bson:"settings_id,omitempty" json:"settings_id,omitempty"`
	CreatedBy        string            `bson:"created_by" json:"created_by"`
}

// Contract is the document written by the default contract store.
type Contract struct {
	ID            string `bson:"_id" json:"id"`
	ContractTerms `bson:",inline"`
	Status        string    `bson:"status" json:"status"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
