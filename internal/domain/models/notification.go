package models

import "time"

// Notification types emitted by the demand workflow.
const (
	NotifyNewRequest       = "new_request"
	NotifyDemandApproved   = "demand_approved"
	NotifyContractCreated  = "contract_created"
	NotifyDemandRejected   = "demand_rejected"
	NotifyDemandReopened   = "demand_reopened"
	NotifyConversionFailed = "conversion_failed"
)

// AudienceAdmins addresses every administrator.
const AudienceAdmins = "admins"

// MemberAudience addresses a member.
func MemberAudience(memberID string) string { return "member:" + memberID }

// UserAudience addresses a back-office user.
func UserAudience(userID string) string { return "user:" + userID }

// Notification is a user-facing or admin-facing event message.
type Notification struct {
	ID       string            `bson:"_id,omitempty" json:"id,omitempty"`
	Module   string            `bson:"module" json:"module"`
	EntityID string            `bson:"entity_id" json:"entity_id"`
	Type     string            `bson:"type" json:"type"`
	Audience string            `bson:"audience" json:"audience"`
	Title    string            `bson:"title" json:"title"`
	Message  string            `bson:"message" json:"message"`
	Metadata map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Read     bool              `bson:"read" json:"read"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Outbox delivery states.
const (
	OutboxPending   = "pending"
	OutboxDelivered = "delivered"
	OutboxDead      = "dead"
)

// OutboxEntry is a notification waiting to be delivered to the sink.
type OutboxEntry struct {
	ID            string       `bson:"_id" json:"id"`
	Notification  Notification `bson:"notification" json:"notification"`
	Status        string       `bson:"status" json:"status"`
	Attempts      int          `bson:"attempts" json:"attempts"`
	LastError     string       `bson:"last_error,omitempty" json:"last_error,omitempty"`
	NextAttemptAt time.Time    `bson:"next_attempt_at" json:"next_attempt_at"`
	LockedUntil   *time.Time   `bson:"locked_until,omitempty" json:"locked_until,omitempty"`
	CreatedAt     time.Time    `bson:"created_at" json:"created_at"`
	DeliveredAt   *time.Time   `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
}
