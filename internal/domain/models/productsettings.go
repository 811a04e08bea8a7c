package models

import "time"

// ProductSettings is a versioned configuration document for a domain's
// products (rates, penalties, bonus tables...). Exactly one document per
// (domain, caisse_type) is expected to be active; contract creation records
// which version it was made under.
type ProductSettings struct {
	ID         string `bson:"_id" json:"id"`
	Domain     Domain `bson:"domain" json:"domain"`
	CaisseType string `bson:"caisse_type,omitempty" json:"caisse_type,omitempty"` // empty means domain-wide
	Version    int    `bson:"version" json:"version"`
	IsActive   bool   `bson:"is_active" json:"is_active"`

	// Product parameters are opaque to the workflow engine.
	Params map[string]any `bson:"params,omitempty" json:"params,omitempty"`

	EffectiveAt time.Time  `bson:"effective_at" json:"effective_at"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	UpdatedBy   string     `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}
