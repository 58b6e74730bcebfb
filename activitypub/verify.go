package activitypub

import (
	"database/sql"
	"errors"
	"unicode/utf8"

	"github.com/quillpub/quill/db"
	"github.com/quillpub/quill/domain"
)

// Verifier checks submitted activities against the store before anything is
// persisted. A nil error means the activity is safe to apply; for
// relationship activities the returned edge is the one to insert (or, when
// undoing, the existing one to delete).
type Verifier struct {
	BaseURL string
	DB      *db.DB
}

func NewVerifier(baseURL string, database *db.DB) *Verifier {
	return &Verifier{BaseURL: baseURL, DB: database}
}

const maxNoteLength = 500

// refID extracts the reference target of an activity field: the string
// itself, or the object's id.
func refID(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]interface{}:
		if id, ok := val["id"].(string); ok {
			return id
		}
	}
	return ""
}

// Verify dispatches the activity to the checker for its type. Types without
// a checker fail with ErrUnknownType; the boundary must treat that as a
// fault, not a client error.
func (v *Verifier) Verify(actor *domain.Account, activity map[string]interface{}, refs map[string]*ResolvedRef, undo bool) (*domain.Relationship, error) {
	if err := v.verifyActor(actor, activity, refs); err != nil {
		return nil, err
	}

	kind, _ := activity["type"].(string)

	switch kind {
	case "Create":
		if undo {
			return nil, &Error{Status: 400, Message: "Create activities cannot be undone"}
		}
		return nil, v.verifyCreate(actor, activity, refs)
	case "Follow":
		return v.verifyFollow(actor, activity, refs, undo)
	case "Like":
		return v.verifyEdge(domain.RelLike, actor, activity, refs, undo)
	case "Announce":
		return v.verifyEdge(domain.RelBoost, actor, activity, refs, undo)
	default:
		return nil, ErrUnknownType
	}
}

// verifyActor checks that the activity's actor field names the account the
// request authenticated as.
func (v *Verifier) verifyActor(actor *domain.Account, activity map[string]interface{}, refs map[string]*ResolvedRef) error {
	field, ok := activity["actor"]
	if !ok {
		return &Error{Status: 400, Message: "activity has no actor"}
	}

	if ref, ok := refs["actor"]; ok && !ref.Remote {
		if acc, ok := ref.Resource.(*domain.Account); ok && acc.Id == actor.Id {
			return nil
		}
		return &Error{Status: 403, Message: "you cannot act as someone else"}
	}

	if refID(field) == actor.URL(v.BaseURL) {
		return nil
	}
	return &Error{Status: 403, Message: "you cannot act as someone else"}
}

func (v *Verifier) verifyCreate(actor *domain.Account, activity map[string]interface{}, refs map[string]*ResolvedRef) error {
	if _, ok := refs["object"]; ok {
		return &Error{Status: 406, Message: "you cannot create an object that already exists"}
	}

	object, ok := activity["object"].(map[string]interface{})
	if !ok {
		return &Error{Status: 400, Message: "Create activities must carry an object"}
	}

	if kind, _ := object["type"].(string); kind != "Note" {
		return &Error{Status: 406, Message: "only Note objects can be created"}
	}

	content, ok := object["content"].(string)
	if !ok {
		return &Error{Status: 400, Message: "Note objects must have string content"}
	}
	if n := utf8.RuneCountInString(content); n < 1 || n > maxNoteLength {
		return &Error{Status: 406, Message: "Note content must be between 1 and 500 characters"}
	}

	if attributed, ok := object["attributedTo"]; ok {
		if ref, ok := refs["attributedTo"]; ok && !ref.Remote {
			if acc, ok := ref.Resource.(*domain.Account); !ok || acc.Id != actor.Id {
				return &Error{Status: 403, Message: "you cannot create objects for someone else"}
			}
		} else if refID(attributed) != actor.URL(v.BaseURL) {
			return &Error{Status: 403, Message: "you cannot create objects for someone else"}
		}
	}

	return nil
}

func (v *Verifier) verifyFollow(actor *domain.Account, activity map[string]interface{}, refs map[string]*ResolvedRef, undo bool) (*domain.Relationship, error) {
	ref, ok := refs["object"]
	if !ok {
		return nil, &Error{Status: 400, Message: "you can only follow users"}
	}

	if obj, ok := activity["object"].(map[string]interface{}); ok {
		if kind, _ := obj["type"].(string); !IsActorType(kind) {
			return nil, &Error{Status: 406, Message: "you can only follow users"}
		}
	}

	var objRef domain.ObjectRef
	if ref.Remote {
		objRef = domain.RemoteObject(refID(activity["object"]))
	} else {
		target, ok := ref.Resource.(*domain.Account)
		if !ok {
			return nil, &Error{Status: 406, Message: "you can only follow users"}
		}
		if target.Id == actor.Id {
			return nil, &Error{Status: 400, Message: "you cannot follow yourself"}
		}
		objRef = domain.LocalAccountObject(target.Id)
	}

	err, existing := v.DB.FindRelationship(domain.RelFollow, domain.LocalActor(actor.Id), objRef)

	if undo {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &Error{Status: 409, Message: "you aren't following that user"}
		}
		if err != nil {
			return nil, err
		}
		return existing, nil
	}

	if err == nil {
		return nil, &Error{Status: 409, Message: "you already follow that user"}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return &domain.Relationship{
		Type:   domain.RelFollow,
		Actor:  domain.LocalActor(actor.Id),
		Object: objRef,
	}, nil
}

// verifyEdge handles Like and Announce, which only differ in their edge type
// and wording.
func (v *Verifier) verifyEdge(rtype domain.RelType, actor *domain.Account, activity map[string]interface{}, refs map[string]*ResolvedRef, undo bool) (*domain.Relationship, error) {
	verb := "like"
	if rtype == domain.RelBoost {
		verb = "boost"
	}

	ref, ok := refs["object"]
	if !ok {
		return nil, &Error{Status: 400, Message: "you can only " + verb + " posts"}
	}

	var objRef domain.ObjectRef
	if ref.Remote {
		objRef = domain.RemoteObject(refID(activity["object"]))
	} else {
		post, ok := ref.Resource.(*domain.Post)
		if !ok {
			return nil, &Error{Status: 406, Message: "you can only " + verb + " posts"}
		}
		objRef = domain.LocalPostObject(post.Id)
	}

	err, existing := v.DB.FindRelationship(rtype, domain.LocalActor(actor.Id), objRef)

	if undo {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &Error{Status: 409, Message: "you haven't " + verb + "ed that post"}
		}
		if err != nil {
			return nil, err
		}
		return existing, nil
	}

	if err == nil {
		return nil, &Error{Status: 409, Message: "you already " + verb + "ed that post"}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return &domain.Relationship{
		Type:   rtype,
		Actor:  domain.LocalActor(actor.Id),
		Object: objRef,
	}, nil
}
