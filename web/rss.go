package web

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"
	"github.com/quillpub/quill/domain"
	"github.com/quillpub/quill/util"
)

const feedLimit = 50

// HandleFeed serves recent posts as RSS, either for one user or for the
// whole node
func (s *Server) HandleFeed(c *gin.Context) {
	c.Header("Content-Type", "application/xml; charset=utf-8")

	rss, err := s.GetRSS(c.Query("username"))
	if err != nil {
		c.String(http.StatusNotFound, "")
		return
	}
	c.String(http.StatusOK, rss)
}

func (s *Server) GetRSS(username string) (string, error) {
	var err error
	var posts *[]domain.Post
	var title string
	var createdBy string

	baseURL := s.Conf.BaseURL()
	host := s.domainHost()
	link := baseURL + "/feed"

	if username != "" {
		err, posts = s.DB.ReadPostsByUsername(username)
		if err != nil || len(*posts) == 0 {
			log.Println(fmt.Sprintf("Could not get posts from %s!", username), err)
			return "", errors.New("error retrieving posts by username")
		}
		title = fmt.Sprintf("Quill Posts - %s", username)
		createdBy = (*posts)[0].Author.Username
		link = fmt.Sprintf("%s?username=%s", link, username)
	} else {
		err, posts = s.DB.ReadRecentPosts(feedLimit)
		if err != nil || len(*posts) == 0 {
			log.Println("Could not get posts!", err)
			return "", errors.New("error retrieving posts")
		}
		title = "All Quill Posts"
		createdBy = "everyone"
	}

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: fmt.Sprintf("posts published on %s", host),
		Author:      &feeds.Author{Name: createdBy, Email: fmt.Sprintf("%s@%s", createdBy, host)},
		Created:     time.Now(),
	}

	var feedItems []*feeds.Item
	for _, post := range *posts {
		author := post.Author.Username
		feedItems = append(feedItems,
			&feeds.Item{
				Id:      post.Id.String(),
				Title:   post.CreatedAt.Format(util.DateTimeFormat()),
				Link:    &feeds.Link{Href: post.URL(baseURL)},
				Content: post.Content,
				Author:  &feeds.Author{Name: author, Email: fmt.Sprintf("%s@%s", author, host)},
				Created: post.CreatedAt,
			})
	}

	feed.Items = feedItems
	return feed.ToRss()
}
