package demandstore

import (
	"strings"
	"testing"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/google/uuid"
)

func TestNewID(t *testing.T) {
	at := time.Date(2025, 3, 7, 14, 5, 9, 0, time.UTC)

	got := NewID(models.DomainSpecialSavings, "0012.MK.000045", at)
	want := "MK_DEMANDE_CSP_0012.MK.000045_070325_140509"
	if got != want {
		t.Errorf("NewID(special_savings) = %q, want %q", got, want)
	}

	// Non-UTC clocks are converted before formatting.
	loc := time.FixedZone("WAT", 3600)
	if got := NewID(models.DomainSpecialSavings, "M1", at.In(loc)); !strings.HasSuffix(got, "_070325_140509") {
		t.Errorf("NewID with local time = %q, want UTC timestamp", got)
	}

	for _, d := range []models.Domain{models.DomainEmergency, models.DomainPlacement} {
		id := NewID(d, "0012.MK.000045", at)
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("NewID(%s) = %q, want a UUID", d, id)
		}
	}

	if id := NewID(models.DomainSpecialSavings, "  ", at); strings.HasPrefix(id, SpecialSavingsIDPrefix) {
		t.Errorf("NewID without matricule = %q, want a UUID fallback", id)
	}
}
