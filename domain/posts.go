package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SavePost struct {
	AuthorId  uuid.UUID
	Content   string
	ReplyToId *uuid.UUID
}

// Post is an immutable note written by a local account
type Post struct {
	Id        uuid.UUID
	AuthorId  uuid.UUID
	Author    *Account // eager-loaded author record
	Content   string
	CreatedAt time.Time
	ReplyToId *uuid.UUID
}

// URL returns the canonical URL of the post, which doubles as its
// ActivityPub id.
func (post *Post) URL(baseURL string) string {
	return post.Author.URL(baseURL) + "/" + post.Id.String()
}

// ActivityPub renders the post as an ActivityPub Note object
func (post *Post) ActivityPub(baseURL string) map[string]interface{} {
	actor := post.Author.URL(baseURL)
	id := post.URL(baseURL)

	return map[string]interface{}{
		"@context":     "https://www.w3.org/ns/activitystreams",
		"type":         "Note",
		"id":           id,
		"attributedTo": actor,
		"to": []interface{}{
			actor + "/followers",
			"https://www.w3.org/ns/activitystreams#Public",
		},
		"content":   post.Content,
		"published": post.CreatedAt.UTC().Format(time.RFC3339),
		"replies":   id + "/replies",
	}
}

// ActivityPubActivity renders the post wrapped in its Create activity
func (post *Post) ActivityPubActivity(baseURL string) map[string]interface{} {
	obj := post.ActivityPub(baseURL)

	return map[string]interface{}{
		"@context":  obj["@context"],
		"id":        obj["id"].(string) + "/activity",
		"type":      "Create",
		"to":        obj["to"],
		"actor":     obj["attributedTo"],
		"published": obj["published"],
		"object":    obj,
	}
}

func (post *Post) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tAuthorId: %s \n\tContent: %s \n\tCreatedAt: %s)", post.Id, post.AuthorId, post.Content, post.CreatedAt)
}
