package activitypub

import (
	"net/url"
	"strconv"
)

// DefaultPageCount is the page size used when the request doesn't ask for
// another one.
const DefaultPageCount = 10

const (
	OrderedCollection     = "OrderedCollection"
	Collection            = "Collection"
	OrderedCollectionPage = "OrderedCollectionPage"
	CollectionPage        = "CollectionPage"
)

func buildURL(baseURL, path string) *url.URL {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = &url.URL{}
	}
	u, err := base.Parse(path)
	if err != nil {
		return base
	}
	return u
}

// CollectionPointer builds the summary envelope of a paginated set: the total
// plus links to the first and last page. Query parameters of the incoming
// request are preserved, except that page is stripped and count only shows up
// when it differs from the default.
func CollectionPointer(kind, baseURL, path string, total, pageCount int, query url.Values) map[string]interface{} {
	u := buildURL(baseURL, path)
	q := u.Query()

	for k, vs := range query {
		if len(vs) > 0 {
			q.Set(k, vs[0])
		}
	}
	q.Del("page")

	if pageCount != DefaultPageCount {
		q.Set("count", strconv.Itoa(pageCount))
	} else {
		q.Del("count")
	}

	lastPage := 0
	if pageCount > 0 {
		lastPage = (total + pageCount - 1) / pageCount - 1
		if lastPage < 0 {
			lastPage = 0
		}
	}

	u.RawQuery = q.Encode()
	id := u.String()

	q.Set("page", "0")
	u.RawQuery = q.Encode()
	first := u.String()

	q.Set("page", strconv.Itoa(lastPage))
	u.RawQuery = q.Encode()
	last := u.String()

	return map[string]interface{}{
		"@context":   Namespace,
		"type":       kind,
		"totalItems": total,
		"id":         id,
		"first":      first,
		"last":       last,
	}
}

// CollectionPageEnvelope builds one page of a collection with its navigation
// links. Query parameters of the incoming request are preserved on id, next
// and prev; partOf is the same URL without the page parameter; prev is
// omitted on the first page.
func CollectionPageEnvelope(kind, baseURL, path string, page int, items []interface{}, query url.Values) map[string]interface{} {
	u := buildURL(baseURL, path)
	q := u.Query()

	for k, vs := range query {
		if len(vs) > 0 {
			q.Set(k, vs[0])
		}
	}

	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	id := u.String()

	q.Set("page", strconv.Itoa(page+1))
	u.RawQuery = q.Encode()
	next := u.String()

	var prev string
	if page != 0 {
		q.Set("page", strconv.Itoa(page-1))
		u.RawQuery = q.Encode()
		prev = u.String()
	}

	q.Del("page")
	u.RawQuery = q.Encode()
	partOf := u.String()

	if items == nil {
		items = []interface{}{}
	}

	envelope := map[string]interface{}{
		"@context":     Namespace,
		"type":         kind,
		"id":           id,
		"next":         next,
		"partOf":       partOf,
		"orderedItems": items,
	}

	if page != 0 {
		envelope["prev"] = prev
	}

	return envelope
}

// CreateObject wraps a bare object or link in the Create activity that mints
// it, copying the addressing fields over from the object.
func CreateObject(object map[string]interface{}, actor interface{}) map[string]interface{} {
	act := map[string]interface{}{
		"@context": Namespace,
		"type":     "Create",
		"actor":    actor,
		"object":   object,
	}

	if id, ok := object["id"].(string); ok {
		act["id"] = id + "/activity"
	}

	for _, k := range []string{"to", "bto", "cc", "bcc", "published"} {
		if v, ok := object[k]; ok {
			act[k] = v
		}
	}

	return act
}
