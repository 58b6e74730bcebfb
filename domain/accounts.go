package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account represents a local actor
type Account struct {
	Id          uuid.UUID
	Username    string
	DisplayName string
	Summary     string
	CreatedAt   time.Time
}

// URL returns the canonical profile URL of the account, which doubles as its
// ActivityPub id.
func (acc *Account) URL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/@" + acc.Username
}

// ActivityPub renders the account as an ActivityPub Person object
func (acc *Account) ActivityPub(baseURL string) map[string]interface{} {
	id := acc.URL(baseURL)

	obj := map[string]interface{}{
		"@context": []interface{}{
			"https://www.w3.org/ns/activitystreams",
			map[string]interface{}{
				"manuallyApprovesFollowers": "as:manuallyApprovesFollowers",
			},
		},
		"id":                        id,
		"type":                      "Person",
		"inbox":                     id + "/inbox",
		"outbox":                    id + "/outbox",
		"followers":                 id + "/followers",
		"following":                 id + "/following",
		"preferredUsername":         acc.Username,
		"name":                      acc.DisplayName,
		"manuallyApprovesFollowers": false,
	}

	if acc.Summary != "" {
		obj["summary"] = acc.Summary
	}

	return obj
}

// Webfinger renders the account as a webfinger discovery document
func (acc *Account) Webfinger(baseURL string) map[string]interface{} {
	profile := acc.URL(baseURL)

	host := baseURL
	if u, err := url.Parse(baseURL); err == nil {
		host = u.Hostname()
	}

	return map[string]interface{}{
		"subject": fmt.Sprintf("acct:%s@%s", acc.Username, host),
		"aliases": []interface{}{profile},
		"links": []interface{}{
			map[string]interface{}{
				"rel":  "http://webfinger.net/rel/profile-page",
				"type": "text/html",
				"href": profile,
			},
			map[string]interface{}{
				"rel":  "self",
				"type": "application/activity+json",
				"href": profile,
			},
			map[string]interface{}{
				"rel":  "self",
				"type": `application/ld+json; profile="https://www.w3.org/ns/activitystreams"`,
				"href": profile,
			},
		},
	}
}

func (acc *Account) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tUsername: %s \n\tCreatedAt: %s)", acc.Id, acc.Username, acc.CreatedAt)
}
