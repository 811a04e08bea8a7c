package demandstore

import (
	"strings"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/google/uuid"
)

// SpecialSavingsIDPrefix starts every special-savings demand id.
const SpecialSavingsIDPrefix = "MK_DEMANDE_CSP"

// NewID returns the id for a demand created at now. Special-savings demands
// get MK_DEMANDE_CSP_<matricule>_<ddmmyy>_<HHMMSS> (UTC) so audit trails can
// be read without a lookup; other domains use a random UUID.
func NewID(domain models.Domain, matricule string, now time.Time) string {
	m := strings.TrimSpace(matricule)
	if domain != models.DomainSpecialSavings || m == "" {
		return uuid.NewString()
	}
	now = now.UTC()
	return strings.Join([]string{
		SpecialSavingsIDPrefix,
		m,
		now.Format("020106"),
		now.Format("150405"),
	}, "_")
}
