// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
)

// PageSize is the default number of demands shown per page in admin lists.
const PageSize = 12

// MaxPageSize bounds caller-supplied limits.
const MaxPageSize = 100

// MaxPage bounds caller-supplied page numbers. Offsets stay far below
// overflow; any page past the data is simply empty.
const MaxPage = 100_000

// SearchFetchCap is the most documents any single search-field query reads.
const SearchFetchCap = 100

// searchFetchFactor widens each search-field query beyond one page so the
// merged set can still fill a page after de-duplication and date filters.
const searchFetchFactor = 5

// Normalize clamps a 1-based page number to [1, MaxPage] and a page size
// to usable values. A non-positive size falls back to PageSize.
func Normalize(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size < 1 {
		size = PageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// Offset returns the number of rows that precede page.
func Offset(page, size int) int {
	page, size = Normalize(page, size)
	return (page - 1) * size
}

// SearchFetchSize returns min(SearchFetchCap, size*5) as int64 for
// Find().SetLimit().
func SearchFetchSize(size int) int64 {
	n := size * searchFetchFactor
	if n > SearchFetchCap {
		n = SearchFetchCap
	}
	if n < 1 {
		n = 1
	}
	return int64(n)
}

// Slice returns rows[(page-1)*size : page*size], clamped to the slice bounds.
// Used for in-memory pagination of a merged search result.
func Slice[T any](rows []T, page, size int) []T {
	page, size = Normalize(page, size)
	start := (page - 1) * size
	if start >= len(rows) {
		return []T{}
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// TotalPages returns how many pages of size are needed for total rows.
func TotalPages(total int64, size int) int {
	_, size = Normalize(1, size)
	if total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// ParsePage extracts the 1-based "page" query parameter. Returns 1 if not
// present or invalid, and caps the value at MaxPage.
func ParsePage(r *http.Request) int {
	n := parsePositive(query.Get(r, "page"), 1)
	if n > MaxPage {
		return MaxPage
	}
	return n
}

// ParseLimit extracts the "limit" query parameter. Returns PageSize if not
// present or invalid, and caps the value at MaxPageSize.
func ParseLimit(r *http.Request) int {
	n := parsePositive(query.Get(r, "limit"), PageSize)
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

func parsePositive(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Cursor is the position of the last row of a page in a list sorted by
// created_at descending with _id descending as tiebreak.
type Cursor struct {
	CreatedAt time.Time `bson:"created_at"`
	ID        string    `bson:"_id"`
}

// StartAfter returns the filter clause selecting rows that sort strictly
// after c in (created_at desc, _id desc) order.
func (c Cursor) StartAfter() bson.M {
	return bson.M{"$or": []bson.M{
		{"created_at": bson.M{"$lt": c.CreatedAt}},
		{"created_at": c.CreatedAt, "_id": bson.M{"$lt": c.ID}},
	}}
}

// NewestFirst is the sort used by every unsearched demand list.
func NewestFirst() bson.D {
	return bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	}
}
