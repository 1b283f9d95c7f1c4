package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/feeds"
	"github.com/trollianspace/mastodon/domain"
	"github.com/trollianspace/mastodon/util"
)

const rssFeedLimit = 50

// GetRSS renders the public local timeline as an RSS feed.
func (s *Server) GetRSS() (string, error) {
	statuses, err := s.store.ReadPublicStatuses(rssFeedLimit)
	if err != nil {
		log.Errorf("Could not get public statuses: %v", err)
		return "", errors.New("error retrieving public statuses")
	}

	link := fmt.Sprintf("http://%s:%d/feed", s.conf.Conf.Host, s.conf.Conf.HttpPort)
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - public timeline", util.Name),
		Link:        &feeds.Link{Href: link},
		Description: fmt.Sprintf("public statuses on %s", s.conf.Conf.SslDomain),
		Author:      &feeds.Author{Name: "everyone", Email: fmt.Sprintf("everyone@%s", util.Name)},
		Created:     time.Now(),
	}

	var feedItems []*feeds.Item
	for _, status := range statuses {
		feedItems = append(feedItems, s.feedItem(&status))
	}
	feed.Items = feedItems
	return feed.ToRss()
}

// GetRSSItem renders a single public status as a one-item RSS feed.
func (s *Server) GetRSSItem(id uuid.UUID) (string, error) {
	status, err := s.store.ReadStatusById(id)
	if err != nil {
		log.Errorf("Could not get status: %v", err)
		return "", errors.New("error retrieving status by id")
	}
	if status.Visibility != domain.VisibilityPublic || status.LocalOnly {
		return "", errors.New("status is not public")
	}

	url := fmt.Sprintf("http://%s:%d/feed/%s", s.conf.Conf.Host, s.conf.Conf.HttpPort, status.Id)
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - status", util.Name),
		Link:        &feeds.Link{Href: url},
		Description: fmt.Sprintf("a status on %s", s.conf.Conf.SslDomain),
		Author:      &feeds.Author{Name: status.CreatedBy, Email: fmt.Sprintf("%s@%s", status.CreatedBy, util.Name)},
		Created:     time.Now(),
	}
	feed.Items = []*feeds.Item{s.feedItem(status)}
	return feed.ToRss()
}

func (s *Server) feedItem(status *domain.Status) *feeds.Item {
	content := status.Content
	if status.SpoilerText != "" {
		content = fmt.Sprintf("[%s] %s", status.SpoilerText, content)
	}
	return &feeds.Item{
		Id:      status.Id.String(),
		Title:   status.CreatedAt.Format(util.DateTimeFormat()),
		Link:    &feeds.Link{Href: fmt.Sprintf("http://%s:%d/feed/%s", s.conf.Conf.Host, s.conf.Conf.HttpPort, status.Id)},
		Content: content,
		Author:  &feeds.Author{Name: status.CreatedBy, Email: fmt.Sprintf("%s@%s", status.CreatedBy, util.Name)},
		Created: status.CreatedAt,
	}
}
