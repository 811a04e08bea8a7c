// internal/app/features/demands/types.go
package demands

import (
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
)

// listResponse is the JSON body of GET /demands/{domain}.
type listResponse struct {
	Items      []models.Demand `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

// reasonRequest is the body of approve, reject and reopen.
type reasonRequest struct {
	Reason string `json:"reason"`
}

// convertResponse is the body returned by POST /{id}/convert.
type convertResponse struct {
	Demand     models.Demand `json:"demand"`
	ContractID string        `json:"contract_id"`
}
