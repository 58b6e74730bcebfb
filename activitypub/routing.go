package activitypub

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/quillpub/quill/db"
)

// RoutePrefix is the mount point of the ActivityPub router; it is stripped
// before matching resource paths.
const RoutePrefix = "/activityPub"

// Profile paths: /@{handle} is an account, /@{handle}/{uuid} is a post.
// Deeper subpaths (/@john/outbox, /@jane/{uuid}/likes) address the same
// resource.
var profilePathRe = regexp.MustCompile(`^/@([a-z0-9_]{1,32})(?:/([^/]+))?(?:/.*)?$`)

// Resource is a local record addressable by URL that can render itself as an
// ActivityPub object.
type Resource interface {
	ActivityPub(baseURL string) map[string]interface{}
}

// Resolver maps URLs and references to local resources
type Resolver struct {
	BaseURL string
	DB      *db.DB
}

func NewResolver(baseURL string, database *db.DB) *Resolver {
	return &Resolver{BaseURL: baseURL, DB: database}
}

// IsInternal reports whether raw points at this node. Host and port must
// match baseURL exactly; the scheme is irrelevant.
func IsInternal(baseURL, raw string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(base.Hostname(), u.Hostname()) && base.Port() == u.Port()
}

// ResolvePath maps a URL path to the local resource it addresses. Returns
// ErrNoMatch when the path doesn't look like a resource path at all, and
// ErrNotFound when it does but no record exists.
func (r *Resolver) ResolvePath(path string) (Resource, error) {
	path = strings.TrimPrefix(path, RoutePrefix)

	matches := profilePathRe.FindStringSubmatch(path)
	if matches == nil {
		return nil, ErrNoMatch
	}

	if matches[2] != "" {
		if postId, err := uuid.Parse(matches[2]); err == nil {
			err, post := r.DB.ReadPostByIdAndAuthor(postId, matches[1])
			if err != nil {
				return nil, ErrNotFound
			}
			return post, nil
		}
	}

	err, acc := r.DB.ReadAccByUsername(matches[1])
	if err != nil {
		return nil, ErrNotFound
	}
	return acc, nil
}
