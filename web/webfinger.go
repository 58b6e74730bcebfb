package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// HandleWebfinger answers account discovery queries of the form
// resource=acct:user@host
func (s *Server) HandleWebfinger(c *gin.Context) {
	resource := c.Query("resource")
	if !strings.HasPrefix(resource, "acct:") {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such resource"})
		return
	}

	acct := strings.TrimPrefix(resource, "acct:")
	username, host, found := strings.Cut(acct, "@")

	if found && !strings.EqualFold(host, s.domainHost()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such resource"})
		return
	}

	err, acc := s.DB.ReadAccByUsername(username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such resource"})
		return
	}

	c.Header("Content-Type", "application/jrd+json; charset=utf-8")
	c.JSON(http.StatusOK, acc.Webfinger(s.Conf.BaseURL()))
}

func (s *Server) domainHost() string {
	if u, err := url.Parse(s.Conf.BaseURL()); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return s.Conf.Conf.Domain
}
