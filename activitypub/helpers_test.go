package activitypub

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quillpub/quill/db"
	"github.com/quillpub/quill/domain"
)

const testBaseURL = "https://example.com"

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("could not open test database: %v", err)
	}
	return database
}

func seedAccount(t *testing.T, database *db.DB, username string) *domain.Account {
	t.Helper()
	acc := &domain.Account{
		Id:        uuid.New(),
		Username:  username,
		CreatedAt: time.Now(),
	}
	if err := database.CreateAccount(acc); err != nil {
		t.Fatalf("could not create account %s: %v", username, err)
	}
	return acc
}

func seedPost(t *testing.T, database *db.DB, acc *domain.Account, content string) *domain.Post {
	t.Helper()
	err, post := database.CreatePost(domain.SavePost{AuthorId: acc.Id, Content: content})
	if err != nil {
		t.Fatalf("could not create post: %v", err)
	}
	post.Author = acc
	return post
}
