package models

import "time"

// Member is the identity record of a mutual member. Members are owned by the
// membership subsystem; demands only reference them by ID.
type Member struct {
	ID        string `bson:"_id" json:"id"`
	FirstName string `bson:"first_name" json:"first_name"`
	LastName  string `bson:"last_name" json:"last_name"`
	Matricule string `bson:"matricule" json:"matricule"`

	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// FullName returns "LastName FirstName", the order used on member documents.
func (m *Member) FullName() string {
	switch {
	case m.LastName == "":
		return m.FirstName
	case m.FirstName == "":
		return m.LastName
	}
	return m.LastName + " " + m.FirstName
}

// Admin is a back-office user who decides on demands.
type Admin struct {
	ID        string `bson:"_id" json:"id"`
	FirstName string `bson:"first_name" json:"first_name"`
	LastName  string `bson:"last_name" json:"last_name"`
	Role      string `bson:"role" json:"role"`
	Status    string `bson:"status" json:"status"`
}

// DisplayName returns "FirstName LastName" for audit and notification text.
func (a *Admin) DisplayName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// SystemActorID is recorded as the actor of background jobs.
const SystemActorID = "system"
