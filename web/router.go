package web

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/google/uuid"
	"github.com/trollianspace/mastodon/domain"
	"github.com/trollianspace/mastodon/util"
	"golang.org/x/time/rate"
)

// Store is the storage the HTTP layer needs. *db.DB satisfies it.
type Store interface {
	ReadAccByAccessToken(token string) (*domain.Account, error)
	ReadStatusById(id uuid.UUID) (*domain.Status, error)
	ReadPublicStatuses(limit int) ([]domain.Status, error)
	ReadHomeFeed(accountId uuid.UUID, limit int) ([]domain.Status, error)
	ReadStatusesByAccountId(accountId uuid.UUID, limit int) ([]domain.Status, error)
	CreateMediaAttachment(m *domain.MediaAttachment) error
	CreateWebSubscription(sub *domain.WebSubscription) error
}

// Publisher runs the publication pipeline for one submission.
type Publisher interface {
	PostStatus(ctx context.Context, sub *domain.Submission) (*domain.Status, error)
}

// Server holds the HTTP surface: the status API and the RSS feeds.
type Server struct {
	store     Store
	publisher Publisher
	conf      *util.AppConfig
}

func NewServer(store Store, publisher Publisher, conf *util.AppConfig) *Server {
	return &Server{store: store, publisher: publisher, conf: conf}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	// Stricter limit for writes, plus a body cap
	writeLimiter := NewRateLimiter(rate.Limit(5), 10)
	maxBodySize := MaxBytesMiddleware(256 * 1024)

	api := g.Group("/api/v1")
	api.POST("/statuses", RateLimitMiddleware(writeLimiter), maxBodySize, s.handlePostStatus)
	api.GET("/statuses/:id", s.handleGetStatus)
	api.GET("/timelines/home", s.handleHomeTimeline)
	api.GET("/accounts/statuses", s.handleAccountStatuses)
	api.POST("/media", RateLimitMiddleware(writeLimiter), maxBodySize, s.handlePostMedia)
	api.POST("/web_subscriptions", RateLimitMiddleware(writeLimiter), maxBodySize, s.handlePostWebSubscription)

	// RSS Feed
	g.GET("/feed", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")
		rss, err := s.GetRSS()
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rss})
		}
	})

	g.GET("/feed/:id", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")
		feedId, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.Render(404, render.String{Format: ""})
			return
		}
		rssItem, err := s.GetRSSItem(feedId)
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rssItem})
		}
	})

	return g
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	log.Infof("Starting HTTP server on %s:%d", s.conf.Conf.Host, s.conf.Conf.HttpPort)
	return s.Router().Run(fmt.Sprintf(":%d", s.conf.Conf.HttpPort))
}
