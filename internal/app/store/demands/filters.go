package demandstore

import (
	"slices"
	"strings"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/paging"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/searchtext"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

// Filters selects demands. Empty fields do not constrain the result and
// all provided fields are AND-combined. Date bounds are inclusive.
type Filters struct {
	Status         models.DemandStatus
	ContractType   string
	CaisseType     string
	MemberID       string
	GroupID        string
	DecisionMadeBy string

	CreatedFrom *time.Time
	CreatedTo   *time.Time
	DesiredFrom *time.Time
	DesiredTo   *time.Time

	// Search is only applied when it holds at least two characters after
	// trimming.
	Search string

	Page  int
	Limit int
}

// equality returns the exact-match predicates of f.
func (f Filters) equality() bson.M {
	m := bson.M{}
	if f.Status != "" {
		m["status"] = f.Status
	}
	if f.ContractType != "" {
		m["contract_type"] = f.ContractType
	}
	if f.CaisseType != "" {
		m["caisse_type"] = f.CaisseType
	}
	if f.MemberID != "" {
		m["member_id"] = f.MemberID
	}
	if f.GroupID != "" {
		m["group_id"] = f.GroupID
	}
	if f.DecisionMadeBy != "" {
		m["decision_made_by"] = f.DecisionMadeBy
	}
	return m
}

func (f Filters) createdRange() bson.M {
	if f.CreatedFrom == nil && f.CreatedTo == nil {
		return nil
	}
	r := bson.M{}
	if f.CreatedFrom != nil {
		r["$gte"] = *f.CreatedFrom
	}
	if f.CreatedTo != nil {
		r["$lte"] = *f.CreatedTo
	}
	return r
}

// MatchesEquality reports whether d satisfies the exact-match filters.
func (f Filters) MatchesEquality(d models.Demand) bool {
	switch {
	case f.Status != "" && d.Status != f.Status:
		return false
	case f.ContractType != "" && d.ContractType != f.ContractType:
		return false
	case f.CaisseType != "" && d.CaisseType != f.CaisseType:
		return false
	case f.MemberID != "" && d.MemberID != f.MemberID:
		return false
	case f.GroupID != "" && d.GroupID != f.GroupID:
		return false
	case f.DecisionMadeBy != "" && d.DecisionMadeBy != f.DecisionMadeBy:
		return false
	}
	return true
}

// MatchesCreated reports whether d was created inside the creation bounds.
func (f Filters) MatchesCreated(d models.Demand) bool {
	return inRange(&d.CreatedAt, f.CreatedFrom, f.CreatedTo)
}

// MatchesDesired reports whether the desired date of d is inside the bounds.
// A demand without a desired date fails any bound.
func (f Filters) MatchesDesired(d models.Demand) bool {
	return inRange(d.Terms.DesiredDate, f.DesiredFrom, f.DesiredTo)
}

func inRange(t, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if t == nil {
		return false
	}
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

// SearchKey returns the value of the searchable-text field named field.
func SearchKey(d models.Demand, field string) string {
	switch field {
	case searchtext.FieldByLastName:
		return d.SearchByLastName
	case searchtext.FieldByFirstName:
		return d.SearchByFirstName
	case searchtext.FieldByMatricule:
		return d.SearchByMatricule
	}
	return ""
}

// MergeUnique concatenates sets keeping the first occurrence of each id.
func MergeUnique(sets ...[]models.Demand) []models.Demand {
	seen := make(map[string]struct{})
	var out []models.Demand
	for _, set := range sets {
		for _, d := range set {
			if _, dup := seen[d.ID]; dup {
				continue
			}
			seen[d.ID] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

// SortNewestFirst orders demands by created_at descending, then id
// descending.
func SortNewestFirst(ds []models.Demand) {
	slices.SortStableFunc(ds, func(a, b models.Demand) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}

// FinishSearch applies the date bounds of f to a merged search result,
// sorts it newest first and slices out the requested page. Total counts the
// filtered set.
func FinishSearch(merged []models.Demand, f Filters, page, size int) Page {
	kept := make([]models.Demand, 0, len(merged))
	for _, d := range merged {
		if f.MatchesCreated(d) && f.MatchesDesired(d) {
			kept = append(kept, d)
		}
	}
	SortNewestFirst(kept)
	return Page{
		Items: paging.Slice(kept, page, size),
		Total: int64(len(kept)),
		Page:  page,
		Limit: size,
	}
}
