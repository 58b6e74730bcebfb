package activitypub

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/quillpub/quill/db"
)

// Collections is the pagination engine: it turns a request's query
// parameters plus one or more store queries into a collection envelope.
type Collections struct {
	BaseURL string
	DB      *db.DB
}

func NewCollections(baseURL string, database *db.DB) *Collections {
	return &Collections{BaseURL: baseURL, DB: database}
}

type CountFunc func() (int, error)

type ItemsFunc func(limit, offset int) ([]interface{}, error)

// Paginate serves a single-source collection. Without a page parameter it
// returns the pointer envelope and never runs itemsFn; with one it fetches
// the page's slice and wraps it. Malformed count/limit/page parameters fail
// with 400.
func (c *Collections) Paginate(query url.Values, kind, path string, countFn CountFunc, itemsFn ItemsFunc) (map[string]interface{}, error) {
	pageCount := DefaultPageCount

	raw := query.Get("count")
	if raw == "" {
		raw = query.Get("limit")
	}
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, &Error{Status: 400, Message: "count must be a non-negative integer"}
		}
		pageCount = n
	}

	if query.Has("page") {
		page, err := strconv.Atoi(query.Get("page"))
		if err != nil || page < 0 {
			return nil, &Error{Status: 400, Message: "page must be a non-negative integer"}
		}

		items, err := itemsFn(pageCount, pageCount*page)
		if err != nil {
			return nil, err
		}

		return CollectionPageEnvelope(kind+"Page", c.BaseURL, path, page, items, query), nil
	}

	total, err := countFn()
	if err != nil {
		return nil, err
	}

	return CollectionPointer(kind, c.BaseURL, path, total, pageCount, query), nil
}

// PaginateUnion serves an ordered collection drawn from multiple record
// tables at once. All sources are folded into one (kind, id, ts) relation
// ordered by timestamp descending, the page is sliced out of that, and only
// then are the full records fetched per source and put back into slice
// order. The pointer total is the sum of the per-source counts.
func (c *Collections) PaginateUnion(query url.Values, path string, sources []db.UnionSource, transform func([]interface{}) []interface{}) (map[string]interface{}, error) {
	if len(sources) == 0 {
		panic("PaginateUnion: at least one source is required")
	}

	countFn := func() (int, error) {
		return c.DB.UnionCount(sources)
	}

	itemsFn := func(limit, offset int) ([]interface{}, error) {
		rows, err := c.DB.UnionSlice(sources, limit, offset)
		if err != nil {
			return nil, err
		}

		srcByKind := make(map[string]db.UnionSource, len(sources))
		for _, src := range sources {
			srcByKind[src.Kind] = src
		}

		idsByKind := make(map[string][]uuid.UUID)
		for _, row := range rows {
			idsByKind[row.Kind] = append(idsByKind[row.Kind], row.Id)
		}

		fetched := make(map[string]map[uuid.UUID]interface{}, len(idsByKind))
		for kind, ids := range idsByKind {
			src, ok := srcByKind[kind]
			if !ok {
				return nil, fmt.Errorf("no source for kind %q", kind)
			}
			records, err := src.Fetch(ids)
			if err != nil {
				return nil, err
			}
			fetched[kind] = records
		}

		// fetch order is not authoritative; restore the sliced sequence
		items := make([]interface{}, 0, len(rows))
		for _, row := range rows {
			if record, ok := fetched[row.Kind][row.Id]; ok {
				items = append(items, record)
			}
		}

		return transform(items), nil
	}

	return c.Paginate(query, OrderedCollection, path, countFn, itemsFn)
}
