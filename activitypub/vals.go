package activitypub

// Namespace is the ActivityStreams JSON-LD namespace
const Namespace = "https://www.w3.org/ns/activitystreams"

var ActivityTypes = []string{"Accept", "Add", "Announce", "Arrive", "Block", "Create", "Delete", "Dislike", "Flag", "Follow", "Ignore", "Invite", "Join", "Leave", "Like", "Listen", "Move", "Offer", "Question", "Reject", "Read", "Remove", "TentativeReject", "TentativeAccept", "Travel", "Undo", "Update", "View"}

var ActorTypes = []string{"Application", "Group", "Organization", "Person", "Service"}

var ObjectTypes = []string{"Article", "Audio", "Document", "Event", "Image", "Note", "Page", "Place", "Profile", "Relationship", "Tombstone", "Video"}

var LinkTypes = []string{"Mention"}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func IsActivityType(t string) bool { return contains(ActivityTypes, t) }
func IsActorType(t string) bool    { return contains(ActorTypes, t) }
func IsObjectType(t string) bool   { return contains(ObjectTypes, t) }
func IsLinkType(t string) bool     { return contains(LinkTypes, t) }

// HasNamespace reports whether a @context value names the ActivityStreams
// namespace, either directly or as an array member.
func HasNamespace(ctx interface{}) bool {
	switch v := ctx.(type) {
	case string:
		return v == Namespace
	case []interface{}:
		for _, x := range v {
			if s, ok := x.(string); ok && s == Namespace {
				return true
			}
		}
	}
	return false
}
