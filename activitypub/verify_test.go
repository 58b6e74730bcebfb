package activitypub

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quillpub/quill/db"
	"github.com/quillpub/quill/domain"
)

func createNote(actor *domain.Account, content string) map[string]interface{} {
	return map[string]interface{}{
		"@context": Namespace,
		"type":     "Create",
		"actor":    actor.URL(testBaseURL),
		"object": map[string]interface{}{
			"type":    "Note",
			"content": content,
		},
	}
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	apErr, ok := AsError(err)
	if !ok {
		t.Fatalf("err = %v, want status %d", err, status)
	}
	if apErr.Status != status {
		t.Fatalf("status = %d (%s), want %d", apErr.Status, apErr.Message, status)
	}
}

func TestVerifyCreate(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")

	tests := []struct {
		name    string
		content string
		status  int
	}{
		{"short note", "hi", 0},
		{"single rune", "x", 0},
		{"max length", strings.Repeat("a", 500), 0},
		{"multibyte runes count as one", strings.Repeat("ü", 500), 0},
		{"empty", "", 406},
		{"too long", strings.Repeat("a", 501), 406},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, err := verifier.Verify(alice, createNote(alice, tt.content), nil, false)
			if tt.status == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if rel != nil {
					t.Errorf("Create must not produce a relationship, got %v", rel)
				}
				return
			}
			wantStatus(t, err, tt.status)
		})
	}
}

func TestVerifyCreateNonStringContent(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")

	act := createNote(alice, "hi")
	act["object"].(map[string]interface{})["content"] = float64(42)

	_, err := verifier.Verify(alice, act, nil, false)
	wantStatus(t, err, 400)
}

func TestVerifyCreateNonNoteObject(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")

	act := createNote(alice, "hi")
	act["object"].(map[string]interface{})["type"] = "Video"

	_, err := verifier.Verify(alice, act, nil, false)
	wantStatus(t, err, 406)
}

func TestVerifyCreateExistingObject(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")
	post := seedPost(t, database, alice, "hello")

	act := createNote(alice, "hello")
	refs := map[string]*ResolvedRef{"object": {Resource: post}}

	_, err := verifier.Verify(alice, act, refs, false)
	wantStatus(t, err, 406)
}

func TestVerifyActorMismatch(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")
	bob := seedAccount(t, database, "bob")

	_, err := verifier.Verify(bob, createNote(alice, "hi"), nil, false)
	wantStatus(t, err, 403)
}

func TestVerifyCreateAttributionMismatch(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")
	bob := seedAccount(t, database, "bob")

	act := createNote(alice, "hi")
	act["object"].(map[string]interface{})["attributedTo"] = bob.URL(testBaseURL)

	_, err := verifier.Verify(alice, act, nil, false)
	wantStatus(t, err, 403)
}

func TestVerifyUnknownType(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")

	act := map[string]interface{}{
		"@context": Namespace,
		"type":     "Arrive",
		"actor":    alice.URL(testBaseURL),
	}

	_, err := verifier.Verify(alice, act, nil, false)
	if err != ErrUnknownType {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
}

func followActivity(actor, target *domain.Account) (map[string]interface{}, map[string]*ResolvedRef) {
	act := map[string]interface{}{
		"@context": Namespace,
		"type":     "Follow",
		"actor":    actor.URL(testBaseURL),
		"object":   target.ActivityPub(testBaseURL),
	}
	refs := map[string]*ResolvedRef{"object": {Resource: target}}
	return act, refs
}

func TestVerifyFollow(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")
	bob := seedAccount(t, database, "bob")

	act, refs := followActivity(alice, bob)

	rel, err := verifier.Verify(alice, act, refs, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rel.Type != domain.RelFollow {
		t.Errorf("type = %v, want Follow", rel.Type)
	}
	if rel.Actor.AccountId != alice.Id {
		t.Errorf("actor = %v, want alice", rel.Actor)
	}
	if rel.Object.Kind != domain.RefLocalAccount || rel.Object.AccountId != bob.Id {
		t.Errorf("object = %v, want bob", rel.Object)
	}
}

func TestVerifyFollowSelf(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")

	act, refs := followActivity(alice, alice)
	_, err := verifier.Verify(alice, act, refs, false)
	wantStatus(t, err, 400)
}

func TestVerifyFollowUnresolvedObject(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")

	act := map[string]interface{}{
		"@context": Namespace,
		"type":     "Follow",
		"actor":    alice.URL(testBaseURL),
		"object":   "something",
	}

	_, err := verifier.Verify(alice, act, nil, false)
	wantStatus(t, err, 400)
}

func TestVerifyFollowNonAccountObject(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")
	post := seedPost(t, database, alice, "hi")

	act := map[string]interface{}{
		"@context": Namespace,
		"type":     "Follow",
		"actor":    alice.URL(testBaseURL),
		"object":   post.ActivityPub(testBaseURL),
	}
	refs := map[string]*ResolvedRef{"object": {Resource: post}}

	_, err := verifier.Verify(alice, act, refs, false)
	wantStatus(t, err, 406)
}

func persistEdge(t *testing.T, database *db.DB, rel *domain.Relationship) {
	t.Helper()
	rel.Id = uuid.New()
	rel.CreatedAt = time.Now()
	if err := database.CreateRelationship(rel); err != nil {
		t.Fatalf("could not persist relationship: %v", err)
	}
}

func TestVerifyFollowDuplicate(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")
	bob := seedAccount(t, database, "bob")

	act, refs := followActivity(alice, bob)

	rel, err := verifier.Verify(alice, act, refs, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	persistEdge(t, database, rel)

	_, err = verifier.Verify(alice, act, refs, false)
	wantStatus(t, err, 409)
}

func TestVerifyUndoFollow(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")
	bob := seedAccount(t, database, "bob")

	act, refs := followActivity(alice, bob)

	// undoing before the edge exists fails
	_, err := verifier.Verify(alice, act, refs, true)
	wantStatus(t, err, 409)

	rel, err := verifier.Verify(alice, act, refs, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	persistEdge(t, database, rel)

	found, err := verifier.Verify(alice, act, refs, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.Id != rel.Id {
		t.Errorf("undo found edge %v, want %v", found.Id, rel.Id)
	}

	if err := database.DeleteRelationshipById(found.Id); err != nil {
		t.Fatalf("could not delete relationship: %v", err)
	}

	// a second undo has nothing left to remove
	_, err = verifier.Verify(alice, act, refs, true)
	wantStatus(t, err, 409)
}

func TestVerifyLikeAndBoost(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")
	bob := seedAccount(t, database, "bob")
	post := seedPost(t, database, bob, "hello")

	for _, kind := range []string{"Like", "Announce"} {
		t.Run(kind, func(t *testing.T) {
			act := map[string]interface{}{
				"@context": Namespace,
				"type":     kind,
				"actor":    alice.URL(testBaseURL),
				"object":   post.ActivityPub(testBaseURL),
			}
			refs := map[string]*ResolvedRef{"object": {Resource: post}}

			rel, err := verifier.Verify(alice, act, refs, false)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rel.Object.Kind != domain.RefLocalPost || rel.Object.PostId != post.Id {
				t.Errorf("object = %v, want the post", rel.Object)
			}
			persistEdge(t, database, rel)

			_, err = verifier.Verify(alice, act, refs, false)
			wantStatus(t, err, 409)

			found, err := verifier.Verify(alice, act, refs, true)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if found.Id != rel.Id {
				t.Errorf("undo found edge %v, want %v", found.Id, rel.Id)
			}
		})
	}
}

func TestVerifyLikeAccountRejected(t *testing.T) {
	database := newTestDB(t)
	verifier := NewVerifier(testBaseURL, database)
	alice := seedAccount(t, database, "alice")
	bob := seedAccount(t, database, "bob")

	act := map[string]interface{}{
		"@context": Namespace,
		"type":     "Like",
		"actor":    alice.URL(testBaseURL),
		"object":   bob.ActivityPub(testBaseURL),
	}
	refs := map[string]*ResolvedRef{"object": {Resource: bob}}

	_, err := verifier.Verify(alice, act, refs, false)
	wantStatus(t, err, 406)
}
