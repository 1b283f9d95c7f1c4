package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/trollianspace/mastodon/domain"
)

type statusRequest struct {
	Status      string   `json:"status"`
	InReplyToId string   `json:"in_reply_to_id"`
	MediaIds    []string `json:"media_ids"`
	Sensitive   *bool    `json:"sensitive"`
	SpoilerText string   `json:"spoiler_text"`
	Visibility  string   `json:"visibility"`
	Language    string   `json:"language"`
	LocalOnly   bool     `json:"local_only"`
}

type statusResponse struct {
	Id          string  `json:"id"`
	Account     string  `json:"account"`
	Content     string  `json:"content"`
	SpoilerText string  `json:"spoiler_text"`
	Visibility  string  `json:"visibility"`
	Sensitive   bool    `json:"sensitive"`
	Language    string  `json:"language,omitempty"`
	InReplyToId *string `json:"in_reply_to_id"`
	LocalOnly   bool    `json:"local_only"`
	URI         string  `json:"uri"`
	CreatedAt   string  `json:"created_at"`
}

func renderStatus(status *domain.Status) statusResponse {
	resp := statusResponse{
		Id:          status.Id.String(),
		Account:     status.CreatedBy,
		Content:     status.Content,
		SpoilerText: status.SpoilerText,
		Visibility:  string(status.Visibility),
		Sensitive:   status.Sensitive,
		Language:    status.Language,
		LocalOnly:   status.LocalOnly,
		URI:         status.ObjectURI,
		CreatedAt:   status.CreatedAt.Format(time.RFC3339),
	}
	if status.InReplyToId != nil {
		parent := status.InReplyToId.String()
		resp.InReplyToId = &parent
	}
	return resp
}

// authorize resolves the Bearer token to a local account, or aborts with
// 401.
func (s *Server) authorize(c *gin.Context) *domain.Account {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "The access token is invalid"})
		c.Abort()
		return nil
	}
	acc, err := s.store.ReadAccByAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "The access token is invalid"})
		c.Abort()
		return nil
	}
	return acc
}

func (s *Server) handlePostStatus(c *gin.Context) {
	acc := s.authorize(c)
	if acc == nil {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Status) == "" && req.SpoilerText == "" && len(req.MediaIds) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "status text is empty"})
		return
	}

	sub := &domain.Submission{
		AccountId:      acc.Id,
		Text:           req.Status,
		Sensitive:      req.Sensitive,
		SpoilerText:    req.SpoilerText,
		Language:       req.Language,
		LocalOnly:      req.LocalOnly,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
		Application:    c.GetHeader("User-Agent"),
	}

	if req.Visibility != "" {
		visibility, ok := domain.ParseVisibility(req.Visibility)
		if !ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid visibility"})
			return
		}
		sub.Visibility = visibility
	}

	if req.InReplyToId != "" {
		parentId, err := uuid.Parse(req.InReplyToId)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid in_reply_to_id"})
			return
		}
		sub.InReplyToId = &parentId
	}

	for _, idStr := range req.MediaIds {
		mediaId, err := uuid.Parse(idStr)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid media id"})
			return
		}
		sub.MediaIds = append(sub.MediaIds, mediaId)
	}

	status, err := s.publisher.PostStatus(c.Request.Context(), sub)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Reason})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not publish status"})
		return
	}

	c.JSON(http.StatusOK, renderStatus(status))
}

func (s *Server) handleGetStatus(c *gin.Context) {
	statusId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	status, err := s.store.ReadStatusById(statusId)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	// Non-public statuses are only visible to their owner.
	if status.Visibility != domain.VisibilityPublic && status.Visibility != domain.VisibilityUnlisted {
		acc := s.authorize(c)
		if acc == nil {
			return
		}
		if acc.Id != status.AccountId {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}
	}

	c.JSON(http.StatusOK, renderStatus(status))
}

func (s *Server) handleHomeTimeline(c *gin.Context) {
	acc := s.authorize(c)
	if acc == nil {
		return
	}

	statuses, err := s.store.ReadHomeFeed(acc.Id, 40)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read timeline"})
		return
	}

	resp := make([]statusResponse, 0, len(statuses))
	for i := range statuses {
		resp = append(resp, renderStatus(&statuses[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// handleAccountStatuses lists the caller's own statuses, newest first.
func (s *Server) handleAccountStatuses(c *gin.Context) {
	acc := s.authorize(c)
	if acc == nil {
		return
	}

	statuses, err := s.store.ReadStatusesByAccountId(acc.Id, 40)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read statuses"})
		return
	}

	resp := make([]statusResponse, 0, len(statuses))
	for i := range statuses {
		resp = append(resp, renderStatus(&statuses[i]))
	}
	c.JSON(http.StatusOK, resp)
}

type subscriptionRequest struct {
	CallbackURL string `json:"callback_url"`
}

// handlePostWebSubscription registers a callback URL notified about every
// new federable status.
func (s *Server) handlePostWebSubscription(c *gin.Context) {
	acc := s.authorize(c)
	if acc == nil {
		return
	}

	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !strings.HasPrefix(req.CallbackURL, "http://") && !strings.HasPrefix(req.CallbackURL, "https://") {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "callback_url must be an http(s) URL"})
		return
	}

	sub := &domain.WebSubscription{
		Id:          uuid.New(),
		CallbackURL: req.CallbackURL,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateWebSubscription(sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           sub.Id.String(),
		"callback_url": sub.CallbackURL,
	})
}

type mediaRequest struct {
	FileType string `json:"file_type"`
	URL      string `json:"url"`
}

// handlePostMedia registers an uploaded media file so its id can be
// attached to a later status. The file itself lives wherever URL points.
func (s *Server) handlePostMedia(c *gin.Context) {
	acc := s.authorize(c)
	if acc == nil {
		return
	}

	var req mediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	switch req.FileType {
	case "image", "video", "gifv":
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid file type"})
		return
	}
	if req.URL == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "url is required"})
		return
	}

	media := &domain.MediaAttachment{
		Id:        uuid.New(),
		AccountId: acc.Id,
		FileType:  req.FileType,
		URL:       req.URL,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateMediaAttachment(media); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store attachment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        media.Id.String(),
		"type":      media.FileType,
		"url":       media.URL,
		"status_id": nil,
	})
}
