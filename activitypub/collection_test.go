package activitypub

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quillpub/quill/db"
	"github.com/quillpub/quill/domain"
)

func noItems(limit, offset int) ([]interface{}, error) {
	return nil, nil
}

func TestPaginateBadParams(t *testing.T) {
	c := &Collections{BaseURL: testBaseURL}

	tests := []struct {
		name  string
		query string
	}{
		{"non-numeric count", "count=abc"},
		{"negative count", "count=-1"},
		{"non-numeric page", "page=abc"},
		{"negative page", "page=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, _ := url.ParseQuery(tt.query)
			_, err := c.Paginate(query, OrderedCollection, "/@alice/outbox", func() (int, error) { return 0, nil }, noItems)
			apErr, ok := AsError(err)
			if !ok || apErr.Status != 400 {
				t.Errorf("err = %v, want status 400", err)
			}
		})
	}
}

func TestPaginatePointer(t *testing.T) {
	c := &Collections{BaseURL: testBaseURL}

	itemsCalled := false
	items := func(limit, offset int) ([]interface{}, error) {
		itemsCalled = true
		return nil, nil
	}

	doc, err := c.Paginate(url.Values{}, OrderedCollection, "/@alice/outbox", func() (int, error) { return 3, nil }, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if itemsCalled {
		t.Error("pointer requests must not fetch items")
	}
	if doc["totalItems"] != 3 {
		t.Errorf("totalItems = %v, want 3", doc["totalItems"])
	}
}

func TestPaginatePageSlicing(t *testing.T) {
	c := &Collections{BaseURL: testBaseURL}

	var gotLimit, gotOffset int
	items := func(limit, offset int) ([]interface{}, error) {
		gotLimit, gotOffset = limit, offset
		return []interface{}{"x"}, nil
	}

	query, _ := url.ParseQuery("page=2&count=5")
	doc, err := c.Paginate(query, OrderedCollection, "/@alice/outbox", func() (int, error) { return 0, nil }, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotLimit != 5 || gotOffset != 10 {
		t.Errorf("items fetched with limit=%d offset=%d, want 5 and 10", gotLimit, gotOffset)
	}
	if doc["type"] != "OrderedCollectionPage" {
		t.Errorf("type = %v", doc["type"])
	}
}

func TestPaginateUnionPanicsWithoutSources(t *testing.T) {
	c := &Collections{BaseURL: testBaseURL}

	defer func() {
		if recover() == nil {
			t.Error("expected a panic with zero sources")
		}
	}()

	c.PaginateUnion(url.Values{}, "/@alice/outbox", nil, func(items []interface{}) []interface{} { return items })
}

func TestPaginateUnionOrdering(t *testing.T) {
	database := newTestDB(t)
	c := NewCollections(testBaseURL, database)

	alice := seedAccount(t, database, "alice")
	bob := seedAccount(t, database, "bob")

	seedPost(t, database, alice, "first")
	seedPost(t, database, alice, "second")

	// newer than both posts
	rel := &domain.Relationship{
		Id:        uuid.New(),
		Type:      domain.RelFollow,
		Actor:     domain.LocalActor(alice.Id),
		Object:    domain.LocalAccountObject(bob.Id),
		CreatedAt: time.Now().Add(time.Minute),
	}
	if err := database.CreateRelationship(rel); err != nil {
		t.Fatalf("could not create relationship: %v", err)
	}

	sources := []db.UnionSource{
		database.PostsByAccountSource(alice.Id),
		database.RelationshipsByActorSource(alice.Id),
	}

	var order []string
	transform := func(items []interface{}) []interface{} {
		for _, item := range items {
			switch v := item.(type) {
			case *domain.Post:
				order = append(order, "post:"+v.Content)
			case *domain.Relationship:
				order = append(order, "rel:"+string(v.Type))
			}
		}
		return items
	}

	query, _ := url.ParseQuery("page=0")
	doc, err := c.PaginateUnion(query, "/@alice/outbox", sources, transform)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"rel:Follow", "post:second", "post:first"}
	if len(order) != len(expected) {
		t.Fatalf("order = %v, want %v", order, expected)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], expected[i])
		}
	}

	items := doc["orderedItems"].([]interface{})
	if len(items) != 3 {
		t.Errorf("orderedItems has %d entries, want 3", len(items))
	}
}

func TestPaginateUnionTotal(t *testing.T) {
	database := newTestDB(t)
	c := NewCollections(testBaseURL, database)

	alice := seedAccount(t, database, "alice")
	bob := seedAccount(t, database, "bob")
	seedPost(t, database, alice, "one")
	seedPost(t, database, alice, "two")

	rel := &domain.Relationship{
		Id:        uuid.New(),
		Type:      domain.RelFollow,
		Actor:     domain.LocalActor(alice.Id),
		Object:    domain.LocalAccountObject(bob.Id),
		CreatedAt: time.Now(),
	}
	if err := database.CreateRelationship(rel); err != nil {
		t.Fatalf("could not create relationship: %v", err)
	}

	sources := []db.UnionSource{
		database.PostsByAccountSource(alice.Id),
		database.RelationshipsByActorSource(alice.Id),
	}

	doc, err := c.PaginateUnion(url.Values{}, "/@alice/outbox", sources, func(items []interface{}) []interface{} { return items })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc["totalItems"] != 3 {
		t.Errorf("totalItems = %v, want 3", doc["totalItems"])
	}
}
