package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const activityJSON = "application/activity+json; charset=utf-8"

// HandleActor serves a local account as an ActivityPub Person object
func (s *Server) HandleActor(c *gin.Context) {
	username, ok := handleParam(c)
	if !ok {
		return
	}

	err, acc := s.DB.ReadAccByUsername(username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such user"})
		return
	}

	c.Header("Content-Type", activityJSON)
	c.JSON(http.StatusOK, acc.ActivityPub(s.Conf.BaseURL()))
}

// HandleNote serves a single post as an ActivityPub Note object
func (s *Server) HandleNote(c *gin.Context) {
	username, ok := handleParam(c)
	if !ok {
		return
	}

	postId, err := uuid.Parse(c.Param("entry"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	err, post := s.DB.ReadPostByIdAndAuthor(postId, username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such post"})
		return
	}

	c.Header("Content-Type", activityJSON)
	c.JSON(http.StatusOK, post.ActivityPub(s.Conf.BaseURL()))
}
