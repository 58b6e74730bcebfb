package web

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quillpub/quill/activitypub"
	"github.com/quillpub/quill/db"
	"github.com/quillpub/quill/domain"
	"github.com/quillpub/quill/util"
)

// HandleOutbox serves the user's outbox: their posts and their follow, like
// and boost activities folded into one collection, newest first.
func (s *Server) HandleOutbox(c *gin.Context) {
	username, ok := handleParam(c)
	if !ok {
		return
	}

	err, acc := s.DB.ReadAccByUsername(username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such user"})
		return
	}

	baseURL := s.Conf.BaseURL()
	sources := []db.UnionSource{
		s.DB.PostsByAccountSource(acc.Id),
		s.DB.RelationshipsByActorSource(acc.Id),
	}

	transform := func(items []interface{}) []interface{} {
		activities := make([]interface{}, 0, len(items))
		for _, item := range items {
			switch record := item.(type) {
			case *domain.Post:
				activities = append(activities, record.ActivityPubActivity(baseURL))
			case *domain.Relationship:
				activities = append(activities, record.ActivityPubActivity(baseURL))
			}
		}
		return activities
	}

	doc, err := s.Collections.PaginateUnion(c.Request.URL.Query(), "/@"+username+"/outbox", sources, transform)
	if err != nil {
		renderError(c, err)
		return
	}

	c.Header("Content-Type", activityJSON)
	c.JSON(http.StatusOK, doc)
}

// HandleFollowers serves the accounts following the user, rendered as the
// follow activities that created the edges.
func (s *Server) HandleFollowers(c *gin.Context) {
	username, ok := handleParam(c)
	if !ok {
		return
	}

	err, acc := s.DB.ReadAccByUsername(username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such user"})
		return
	}

	s.serveRelationshipCollection(c, "/@"+username+"/followers",
		func() (int, error) {
			err, n := s.DB.CountFollowersOfAccount(acc.Id)
			return n, err
		},
		func(limit, offset int) (error, *[]domain.Relationship) {
			return s.DB.ReadFollowersOfAccount(acc.Id, limit, offset)
		})
}

// HandleFollowing serves the accounts the user follows
func (s *Server) HandleFollowing(c *gin.Context) {
	username, ok := handleParam(c)
	if !ok {
		return
	}

	err, acc := s.DB.ReadAccByUsername(username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such user"})
		return
	}

	s.serveRelationshipCollection(c, "/@"+username+"/following",
		func() (int, error) {
			err, n := s.DB.CountFollowingOfAccount(acc.Id)
			return n, err
		},
		func(limit, offset int) (error, *[]domain.Relationship) {
			return s.DB.ReadFollowingOfAccount(acc.Id, limit, offset)
		})
}

func (s *Server) serveRelationshipCollection(c *gin.Context, path string, count activitypub.CountFunc, read func(limit, offset int) (error, *[]domain.Relationship)) {
	baseURL := s.Conf.BaseURL()

	items := func(limit, offset int) ([]interface{}, error) {
		err, rels := read(limit, offset)
		if err != nil {
			return nil, err
		}
		activities := make([]interface{}, 0, len(*rels))
		for i := range *rels {
			activities = append(activities, (*rels)[i].ActivityPubActivity(baseURL))
		}
		return activities, nil
	}

	doc, err := s.Collections.Paginate(c.Request.URL.Query(), activitypub.OrderedCollection, path, count, items)
	if err != nil {
		renderError(c, err)
		return
	}

	c.Header("Content-Type", activityJSON)
	c.JSON(http.StatusOK, doc)
}

// HandleInbox rejects deliveries from other servers; this node does not
// federate.
func (s *Server) HandleInbox(c *gin.Context) {
	c.JSON(http.StatusNotAcceptable, gin.H{"error": "Federation Not Implemented"})
}

// HandlePostOutbox accepts a client-submitted activity, verifies it against
// the store and applies it. Bare objects are wrapped in the Create activity
// that mints them before verification.
func (s *Server) HandlePostOutbox(c *gin.Context) {
	username, ok := handleParam(c)
	if !ok {
		return
	}

	account := CurrentAccount(c)
	if account.Username != username {
		c.JSON(http.StatusForbidden, gin.H{"error": "you cannot post to someone else's outbox"})
		return
	}

	var activity map[string]interface{}
	if err := c.ShouldBindJSON(&activity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object"})
		return
	}

	if !activitypub.HasNamespace(activity["@context"]) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "activities must carry the ActivityStreams context"})
		return
	}

	baseURL := s.Conf.BaseURL()
	kind, _ := activity["type"].(string)

	if activitypub.IsObjectType(kind) || activitypub.IsLinkType(kind) {
		activity = activitypub.CreateObject(activity, account.URL(baseURL))
		kind = "Create"
	} else if !activitypub.IsActivityType(kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "that is not an ActivityStreams type"})
		return
	}

	if kind == "Undo" {
		s.applyUndo(c, account, activity)
		return
	}

	resolved, refs, err := s.Resolver.ResolveReferences(activity)
	if err != nil {
		renderError(c, err)
		return
	}

	rel, err := s.Verifier.Verify(account, resolved, refs, false)
	if err != nil {
		renderError(c, err)
		return
	}

	if kind == "Create" {
		s.applyCreate(c, account, resolved)
		return
	}

	rel.Id = uuid.New()
	rel.CreatedAt = time.Now()

	// Local follows need no consent step
	if rel.Type == domain.RelFollow && rel.Object.Kind == domain.RefLocalAccount {
		approved := true
		now := rel.CreatedAt
		rel.Approved = &approved
		rel.ApprovedAt = &now
	}

	if err := s.DB.CreateRelationship(rel); err != nil {
		renderError(c, err)
		return
	}

	err, rel = s.DB.FindRelationship(rel.Type, rel.Actor, rel.Object)
	if err != nil {
		renderError(c, err)
		return
	}

	c.Header("Content-Type", activityJSON)
	c.JSON(http.StatusCreated, rel.ActivityPubActivity(baseURL))
}

// applyUndo verifies the wrapped activity a second time in reversed mode and
// removes the edge it stands for.
func (s *Server) applyUndo(c *gin.Context, account *domain.Account, activity map[string]interface{}) {
	inner, ok := activity["object"].(map[string]interface{})
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Undo activities must carry an activity"})
		return
	}

	resolved, refs, err := s.Resolver.ResolveReferences(inner)
	if err != nil {
		renderError(c, err)
		return
	}

	rel, err := s.Verifier.Verify(account, resolved, refs, true)
	if err != nil {
		renderError(c, err)
		return
	}
	if rel == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "that activity cannot be undone"})
		return
	}

	if err := s.DB.DeleteRelationshipById(rel.Id); err != nil {
		renderError(c, err)
		return
	}

	c.Header("Content-Type", activityJSON)
	c.JSON(http.StatusOK, resolved)
}

// applyCreate persists the verified Note and answers with its Create
// activity.
func (s *Server) applyCreate(c *gin.Context, account *domain.Account, activity map[string]interface{}) {
	object := activity["object"].(map[string]interface{})
	content := util.NormalizeInput(object["content"].(string))

	replyTo, err := s.resolveReplyTarget(object)
	if err != nil {
		renderError(c, err)
		return
	}

	err, post := s.DB.CreatePost(domain.SavePost{
		AuthorId:  account.Id,
		Content:   content,
		ReplyToId: replyTo,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	post.Author = account

	c.Header("Content-Type", activityJSON)
	c.JSON(http.StatusCreated, post.ActivityPubActivity(s.Conf.BaseURL()))
}

func (s *Server) resolveReplyTarget(object map[string]interface{}) (*uuid.UUID, error) {
	raw, ok := object["inReplyTo"].(string)
	if !ok || raw == "" {
		return nil, nil
	}

	if !activitypub.IsInternal(s.Conf.BaseURL(), raw) {
		return nil, &activitypub.Error{Status: 406, Message: "Federation Not Implemented"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, &activitypub.Error{Status: 400, Message: `could not resolve URL "` + raw + `"`}
	}

	res, err := s.Resolver.ResolvePath(u.Path)
	if err != nil {
		return nil, &activitypub.Error{Status: 400, Message: `could not resolve URL "` + raw + `"`}
	}

	post, ok := res.(*domain.Post)
	if !ok {
		return nil, &activitypub.Error{Status: 400, Message: "you can only reply to posts"}
	}

	return &post.Id, nil
}
