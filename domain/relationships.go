package domain

import (
	"time"

	"github.com/google/uuid"
)

// RelType is the kind of relationship edge between an actor and an object.
type RelType string

const (
	RelFollow RelType = "Follow"
	RelLike   RelType = "Like"
	RelBoost  RelType = "Boost"
)

// ActivityType returns the ActivityPub activity type a relationship
// serializes as. Boosts go over the wire as Announce.
func (t RelType) ActivityType() string {
	if t == RelBoost {
		return "Announce"
	}
	return string(t)
}

// RefKind discriminates which identity field of a reference is set.
type RefKind int

const (
	RefLocalAccount RefKind = iota
	RefLocalPost
	RefRemote
)

// ActorRef identifies the acting side of a relationship: either a local
// account or a remote actor URL, never both.
type ActorRef struct {
	Kind      RefKind
	AccountId uuid.UUID
	Account   *Account // eager-loaded when Kind is RefLocalAccount
	URL       string
}

func LocalActor(id uuid.UUID) ActorRef {
	return ActorRef{Kind: RefLocalAccount, AccountId: id}
}

func RemoteActor(url string) ActorRef {
	return ActorRef{Kind: RefRemote, URL: url}
}

// ObjectRef identifies the target side of a relationship: a local account,
// a local post, or a remote URL.
type ObjectRef struct {
	Kind      RefKind
	AccountId uuid.UUID
	Account   *Account // eager-loaded when Kind is RefLocalAccount
	PostId    uuid.UUID
	Post      *Post // eager-loaded when Kind is RefLocalPost
	URL       string
}

func LocalAccountObject(id uuid.UUID) ObjectRef {
	return ObjectRef{Kind: RefLocalAccount, AccountId: id}
}

func LocalPostObject(id uuid.UUID) ObjectRef {
	return ObjectRef{Kind: RefLocalPost, PostId: id}
}

func RemoteObject(url string) ObjectRef {
	return ObjectRef{Kind: RefRemote, URL: url}
}

// Relationship is a persisted Follow/Like/Boost edge
type Relationship struct {
	Id         uuid.UUID
	Type       RelType
	Actor      ActorRef
	Object     ObjectRef
	Approved   *bool // nil = pending
	ApprovedAt *time.Time
	CreatedAt  time.Time
}

func (ref ActorRef) activityPub(baseURL string) interface{} {
	if ref.Kind == RefRemote {
		return ref.URL
	}
	return ref.Account.ActivityPub(baseURL)
}

func (ref ObjectRef) activityPub(baseURL string) interface{} {
	switch ref.Kind {
	case RefLocalAccount:
		return ref.Account.ActivityPub(baseURL)
	case RefLocalPost:
		return ref.Post.ActivityPub(baseURL)
	default:
		return ref.URL
	}
}

// ActivityPubActivity renders the relationship as the activity that enacted
// it. A Follow renders as an Invite until approved, then as the Accept that
// wraps it.
func (rel *Relationship) ActivityPubActivity(baseURL string) map[string]interface{} {
	actor := rel.Actor.activityPub(baseURL)
	object := rel.Object.activityPub(baseURL)

	base := map[string]interface{}{
		"@context": "https://www.w3.org/ns/activitystreams",
		"type":     rel.Type.ActivityType(),
		"actor":    actor,
		"object":   object,
	}

	if rel.Type != RelFollow {
		return base
	}

	invite := map[string]interface{}{
		"@context": "https://www.w3.org/ns/activitystreams",
		"type":     "Invite",
		"actor":    actor,
		"object":   base,
	}

	if rel.Approved != nil && *rel.Approved {
		return map[string]interface{}{
			"@context": "https://www.w3.org/ns/activitystreams",
			"type":     "Accept",
			"actor":    object,
			"object":   invite,
		}
	}

	return invite
}
