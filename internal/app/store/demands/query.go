// internal/app/store/demands/query.go
package demandstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/paging"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/searchtext"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Page is one page of a filtered demand list.
type Page struct {
	Items []models.Demand `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// Stats holds demand counts per status.
type Stats struct {
	Pending   int64 `json:"pending"`
	Approved  int64 `json:"approved"`
	Rejected  int64 `json:"rejected"`
	Converted int64 `json:"converted"`
	Total     int64 `json:"total"`
}

// Add records n demands in status st.
func (s *Stats) Add(st models.DemandStatus, n int64) {
	switch st {
	case models.DemandPending:
		s.Pending += n
	case models.DemandApproved:
		s.Approved += n
	case models.DemandRejected:
		s.Rejected += n
	case models.DemandConverted:
		s.Converted += n
	}
	s.Total += n
}

// GetDemandsWithFilters returns one page of demands matching f.
//
// Without a search term the page is read from a single query sorted newest
// first. The total is a server-side count (0 if the count fails) and the
// desired-date bounds are applied to the returned page only, so a page can
// hold fewer than Limit items while Total still counts them.
//
// With a search term, each searchable-text field is range-queried
// concurrently, the results are merged by id and every remaining filter is
// applied before counting and slicing. The fetch window per field is capped
// so very common prefixes can undercount.
func (s *Store) GetDemandsWithFilters(ctx context.Context, f Filters) (Page, error) {
	page, size := paging.Normalize(f.Page, f.Limit)
	if q, ok := searchtext.Query(f.Search); ok {
		return s.searchPage(ctx, f, q, page, size)
	}
	return s.listPage(ctx, f, page, size)
}

func (s *Store) listPage(ctx context.Context, f Filters, page, size int) (Page, error) {
	filter := f.equality()
	if r := f.createdRange(); r != nil {
		filter["created_at"] = r
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		zap.L().Warn("demand count failed; reporting total=0",
			zap.String("domain", string(s.domain)), zap.Error(err))
		total = 0
	}

	out := Page{Items: []models.Demand{}, Total: total, Page: page, Limit: size}

	skip := paging.Offset(page, size)
	if total > 0 && int64(skip) >= total {
		return out, nil
	}

	query := filter
	if skip > 0 {
		cursor, ok, err := s.cursorAt(ctx, filter, int64(skip))
		if err != nil {
			return Page{}, err
		}
		if !ok {
			return out, nil
		}
		query = bson.M{"$and": []bson.M{filter, cursor.StartAfter()}}
	}

	opts := options.Find().
		SetSort(paging.NewestFirst()).
		SetLimit(int64(size))
	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return Page{}, fmt.Errorf("list demands: %w", err)
	}
	defer cur.Close(ctx)

	var rows []models.Demand
	if err := cur.All(ctx, &rows); err != nil {
		return Page{}, fmt.Errorf("list demands: %w", err)
	}
	for _, d := range rows {
		if f.MatchesDesired(d) {
			out.Items = append(out.Items, d)
		}
	}
	return out, nil
}

// cursorAt returns the sort key of the n-th document of filter in newest
// first order. ok is false when fewer than n documents match.
func (s *Store) cursorAt(ctx context.Context, filter bson.M, n int64) (paging.Cursor, bool, error) {
	opts := options.Find().
		SetSort(paging.NewestFirst()).
		SetLimit(n).
		SetProjection(bson.M{"_id": 1, "created_at": 1})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return paging.Cursor{}, false, fmt.Errorf("list demands: %w", err)
	}
	defer cur.Close(ctx)

	var keys []paging.Cursor
	if err := cur.All(ctx, &keys); err != nil {
		return paging.Cursor{}, false, fmt.Errorf("list demands: %w", err)
	}
	if int64(len(keys)) < n {
		return paging.Cursor{}, false, nil
	}
	return keys[len(keys)-1], true, nil
}

func (s *Store) searchPage(ctx context.Context, f Filters, q string, page, size int) (Page, error) {
	limit := paging.SearchFetchSize(size)

	var (
		wg      sync.WaitGroup
		results = make([][]models.Demand, len(searchtext.AllFields))
		errs    = make([]error, len(searchtext.AllFields))
	)
	for i, field := range searchtext.AllFields {
		wg.Add(1)
		go func(i int, field string) {
			defer wg.Done()
			results[i], errs[i] = s.searchField(ctx, f, field, q, limit)
		}(i, field)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return Page{}, err
		}
	}
	return FinishSearch(MergeUnique(results...), f, page, size), nil
}

func (s *Store) searchField(ctx context.Context, f Filters, field, q string, limit int64) ([]models.Demand, error) {
	lo, hi := searchtext.PrefixRange(q)
	filter := f.equality()
	filter[field] = bson.M{"$gte": lo, "$lt": hi}

	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: 1}, {Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("search demands by %s: %w", field, err)
	}
	defer cur.Close(ctx)

	var rows []models.Demand
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("search demands by %s: %w", field, err)
	}
	return rows, nil
}

// GetDemandsStats counts demands per status. The status filter, search term
// and desired-date bounds are ignored. A failing count reports 0 for its
// status instead of failing the call.
func (s *Store) GetDemandsStats(ctx context.Context, f Filters) Stats {
	base := f
	base.Status = ""
	filter := base.equality()
	if r := base.createdRange(); r != nil {
		filter["created_at"] = r
	}

	var st Stats
	for _, status := range models.DemandStatuses {
		q := bson.M{}
		for k, v := range filter {
			q[k] = v
		}
		q["status"] = status

		n, err := s.c.CountDocuments(ctx, q)
		if err != nil {
			zap.L().Warn("demand status count failed",
				zap.String("domain", string(s.domain)),
				zap.String("status", string(status)),
				zap.Error(err))
			n = 0
		}
		st.Add(status, n)
	}
	return st
}
