// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/app/store/audit"
)

// listItem is one audit event as returned by the API.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	Domain        string            `json:"domain,omitempty"`
	DemandID      string            `json:"demand_id,omitempty"`
	ActorID       string            `json:"actor_id,omitempty"`
	ActorName     string            `json:"actor_name,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Items      []listItem `json:"items"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
}

func toItem(e audit.Event) listItem {
	return listItem{
		ID:            e.ID.Hex(),
		Timestamp:     e.Timestamp,
		Category:      e.Category,
		EventType:     e.EventType,
		Domain:        e.Domain,
		DemandID:      e.DemandID,
		ActorID:       e.ActorID,
		ActorName:     e.ActorName,
		Success:       e.Success,
		FailureReason: e.FailureReason,
		Details:       e.Details,
	}
}

// eventTypesByCategory lists the event types a category may contain.
var eventTypesByCategory = map[string][]string{
	audit.CategoryDemand: {
		audit.EventDemandCreated,
		audit.EventDemandApproved,
		audit.EventDemandRejected,
		audit.EventDemandReopened,
		audit.EventDemandConverted,
		audit.EventDemandConversionFailed,
		audit.EventDemandDeleted,
	},
	audit.CategorySystem: {
		audit.EventConversionRecovered,
	},
}

// validEventType reports whether eventType can appear under category.
// An empty category accepts any known type.
func validEventType(category, eventType string) bool {
	for cat, types := range eventTypesByCategory {
		if category != "" && cat != category {
			continue
		}
		for _, t := range types {
			if t == eventType {
				return true
			}
		}
	}
	return false
}
