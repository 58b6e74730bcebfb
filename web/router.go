package web

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/quillpub/quill/activitypub"
	"github.com/quillpub/quill/db"
	"github.com/quillpub/quill/util"
	"golang.org/x/time/rate"
)

// Server bundles the handlers' shared collaborators
type Server struct {
	Conf        *util.AppConfig
	DB          *db.DB
	Resolver    *activitypub.Resolver
	Collections *activitypub.Collections
	Verifier    *activitypub.Verifier
}

func NewServer(conf *util.AppConfig, database *db.DB) *Server {
	baseURL := conf.BaseURL()
	return &Server{
		Conf:        conf,
		DB:          database,
		Resolver:    activitypub.NewResolver(baseURL, database),
		Collections: activitypub.NewCollections(baseURL, database),
		Verifier:    activitypub.NewVerifier(baseURL, database),
	}
}

func Router(conf *util.AppConfig, database *db.DB) *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))
	g.Use(CORSMiddleware())

	s := NewServer(conf, database)

	// Stricter rate limit for write endpoints: 5 req/sec per IP
	writeLimiter := NewRateLimiter(rate.Limit(5), 10)

	// Max 1MB request body size for submitted activities
	maxBodySize := MaxBytesMiddleware(1 * 1024 * 1024)

	authed := AuthRequired(database)

	g.GET("/feed", s.HandleFeed)
	g.GET("/.well-known/webfinger", s.HandleWebfinger)

	g.GET("/:handle", s.HandleActor)
	g.GET("/:handle/followers", s.HandleFollowers)
	g.GET("/:handle/following", s.HandleFollowing)
	g.GET("/:handle/outbox", s.HandleOutbox)
	g.POST("/:handle/outbox", RateLimitMiddleware(writeLimiter), maxBodySize, authed, s.HandlePostOutbox)
	g.POST("/:handle/inbox", RateLimitMiddleware(writeLimiter), maxBodySize, s.HandleInbox)
	g.GET("/:handle/:entry", s.HandleNote)

	return g
}

// handleParam extracts the username out of a /@{username} path segment.
// Segments without the @ prefix address nothing.
func handleParam(c *gin.Context) (string, bool) {
	handle := c.Param("handle")
	if len(handle) < 2 || handle[0] != '@' {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return "", false
	}
	return handle[1:], true
}

// renderError translates a pipeline failure into a response. Activity types
// the pipeline has no verifier for are a fault on our side, never the
// client's.
func renderError(c *gin.Context, err error) {
	if apErr, ok := activitypub.AsError(err); ok {
		c.JSON(apErr.Status, gin.H{"error": apErr.Message})
		return
	}
	if errors.Is(err, activitypub.ErrUnknownType) {
		log.Printf("activity pipeline fault: %v", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
