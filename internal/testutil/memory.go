package testutil

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	demandstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/demands"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/paging"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/searchtext"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
)

// MemoryDemandRepo is an in-process demand repository with the same
// conditional-write and query semantics as the MongoDB store. It lets
// service and handler tests run without a database.
type MemoryDemandRepo struct {
	mu     sync.Mutex
	domain models.Domain
	docs   map[string]models.Demand
	fail   map[string]error

	// Now stamps created_at/updated_at. Defaults to time.Now in UTC.
	Now func() time.Time
}

// NewMemoryDemandRepo returns an empty repository for domain.
func NewMemoryDemandRepo(domain models.Domain) *MemoryDemandRepo {
	return &MemoryDemandRepo{
		domain: domain,
		docs:   make(map[string]models.Demand),
		fail:   make(map[string]error),
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// FailOn makes every call of the named method return err until cleared
// with a nil err. Method names are the Go method names, e.g. "Delete".
func (m *MemoryDemandRepo) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, method)
		return
	}
	m.fail[method] = err
}

// Put stores d as is, replacing any demand with the same id.
func (m *MemoryDemandRepo) Put(d models.Demand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.Domain == "" {
		d.Domain = m.domain
	}
	m.docs[d.ID] = d
}

// Len returns the number of stored demands.
func (m *MemoryDemandRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func (m *MemoryDemandRepo) Domain() models.Domain { return m.domain }

func (m *MemoryDemandRepo) Create(_ context.Context, d models.Demand, matricule string) (models.Demand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["Create"]; err != nil {
		return models.Demand{}, err
	}

	now := m.Now()
	d.ID = demandstore.NewID(m.domain, matricule, now)
	d.Domain = m.domain
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.UpdatedBy == "" {
		d.UpdatedBy = d.CreatedBy
	}
	if _, dup := m.docs[d.ID]; dup {
		return models.Demand{}, demandstore.ErrDuplicateID
	}
	m.docs[d.ID] = d
	return d, nil
}

func (m *MemoryDemandRepo) GetByID(_ context.Context, id string) (models.Demand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["GetByID"]; err != nil {
		return models.Demand{}, err
	}
	d, ok := m.docs[id]
	if !ok {
		return models.Demand{}, demandstore.ErrNotFound
	}
	return d, nil
}

func (m *MemoryDemandRepo) GetByContractID(_ context.Context, contractID string) (models.Demand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ContractID != nil && *d.ContractID == contractID {
			return d, nil
		}
	}
	return models.Demand{}, demandstore.ErrNotFound
}

func (m *MemoryDemandRepo) GetDemandsWithFilters(_ context.Context, f demandstore.Filters) (demandstore.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["GetDemandsWithFilters"]; err != nil {
		return demandstore.Page{}, err
	}

	page, size := paging.Normalize(f.Page, f.Limit)
	if q, ok := searchtext.Query(f.Search); ok {
		sets := make([][]models.Demand, 0, len(searchtext.AllFields))
		for _, field := range searchtext.AllFields {
			sets = append(sets, m.searchField(f, field, q, paging.SearchFetchSize(size)))
		}
		return demandstore.FinishSearch(demandstore.MergeUnique(sets...), f, page, size), nil
	}

	var rows []models.Demand
	for _, d := range m.docs {
		if f.MatchesEquality(d) && f.MatchesCreated(d) {
			rows = append(rows, d)
		}
	}
	demandstore.SortNewestFirst(rows)

	items := make([]models.Demand, 0, size)
	for _, d := range paging.Slice(rows, page, size) {
		if f.MatchesDesired(d) {
			items = append(items, d)
		}
	}
	return demandstore.Page{Items: items, Total: int64(len(rows)), Page: page, Limit: size}, nil
}

func (m *MemoryDemandRepo) searchField(f demandstore.Filters, field, q string, limit int64) []models.Demand {
	lo, hi := searchtext.PrefixRange(q)
	var rows []models.Demand
	for _, d := range m.docs {
		key := demandstore.SearchKey(d, field)
		if f.MatchesEquality(d) && key >= lo && key < hi {
			rows = append(rows, d)
		}
	}
	slices.SortStableFunc(rows, func(a, b models.Demand) int {
		if c := strings.Compare(demandstore.SearchKey(a, field), demandstore.SearchKey(b, field)); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if int64(len(rows)) > limit {
		rows = rows[:limit]
	}
	return rows
}

func (m *MemoryDemandRepo) GetDemandsStats(_ context.Context, f demandstore.Filters) demandstore.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := f
	base.Status = ""
	var st demandstore.Stats
	if m.fail["GetDemandsStats"] != nil {
		return st
	}
	for _, d := range m.docs {
		if base.MatchesEquality(d) && base.MatchesCreated(d) {
			st.Add(d.Status, 1)
		}
	}
	return st
}

func (m *MemoryDemandRepo) UpdateDemand(_ context.Context, id string, u demandstore.Update) (models.Demand, error) {
	return m.update("UpdateDemand", id, u, func(models.Demand) bool { return true })
}

func (m *MemoryDemandRepo) UpdateDemandStatus(_ context.Context, id string, expected models.DemandStatus, u demandstore.Update) (models.Demand, error) {
	return m.update("UpdateDemandStatus", id, u, func(d models.Demand) bool { return d.Status == expected })
}

func (m *MemoryDemandRepo) ClaimConversion(_ context.Context, id, actorID string, staleBefore time.Time) (models.Demand, error) {
	now := m.Now()
	return m.update("ClaimConversion", id, demandstore.Update{
		Set:       map[string]any{"conversion_started_at": now},
		UpdatedBy: actorID,
	}, func(d models.Demand) bool {
		return d.Status == models.DemandApproved && d.ContractID == nil &&
			(d.ConversionStartedAt == nil || d.ConversionStartedAt.Before(staleBefore))
	})
}

func (m *MemoryDemandRepo) ListStaleConversions(_ context.Context, staleBefore time.Time, limit int64) ([]models.Demand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["ListStaleConversions"]; err != nil {
		return nil, err
	}

	var out []models.Demand
	for _, d := range m.docs {
		if d.Status == models.DemandApproved && d.ContractID == nil &&
			d.ConversionStartedAt != nil && d.ConversionStartedAt.Before(staleBefore) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b models.Demand) int {
		return a.ConversionStartedAt.Compare(*b.ConversionStartedAt)
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryDemandRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["Delete"]; err != nil {
		return err
	}
	d, ok := m.docs[id]
	if !ok {
		return demandstore.ErrNotFound
	}
	if d.ContractID != nil || d.ConversionStartedAt != nil {
		return demandstore.ErrStatusChanged
	}
	delete(m.docs, id)
	return nil
}

func (m *MemoryDemandRepo) update(method, id string, u demandstore.Update, guard func(models.Demand) bool) (models.Demand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[method]; err != nil {
		return models.Demand{}, err
	}

	d, ok := m.docs[id]
	if !ok {
		return models.Demand{}, demandstore.ErrNotFound
	}
	if !guard(d) {
		return models.Demand{}, demandstore.ErrStatusChanged
	}
	next, err := demandstore.Apply(d, u, m.Now())
	if err != nil {
		return models.Demand{}, err
	}
	m.docs[id] = next
	return next, nil
}
