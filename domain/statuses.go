package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Visibility controls who can see a status.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityUnlisted  Visibility = "unlisted"
	VisibilityFollowers Visibility = "followers"
	VisibilityDirect    Visibility = "direct"
)

// ParseVisibility returns the Visibility for a wire string.
func ParseVisibility(s string) (Visibility, bool) {
	switch Visibility(s) {
	case VisibilityPublic, VisibilityUnlisted, VisibilityFollowers, VisibilityDirect:
		return Visibility(s), true
	}
	return "", false
}

// Submission is one status-creation request. It lives for a single
// publication run and is never persisted.
type Submission struct {
	AccountId      uuid.UUID
	Text           string
	InReplyToId    *uuid.UUID
	MediaIds       []uuid.UUID
	Sensitive      *bool // nil means "use the account default"
	Visibility     Visibility
	SpoilerText    string
	Language       string
	LocalOnly      bool
	IdempotencyKey string
	Application    string
}

type Status struct {
	Id          uuid.UUID
	AccountId   uuid.UUID
	CreatedBy   string // username of the owning account
	Content     string // final text, after quirk masking
	SpoilerText string
	Visibility  Visibility
	Sensitive   bool
	Language    string
	InReplyToId *uuid.UUID
	LocalOnly   bool
	Application string
	ObjectURI   string
	CreatedAt   time.Time
}

// Reply reports whether the status replies to another one.
func (s *Status) Reply() bool {
	return s.InReplyToId != nil
}

func (s *Status) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tCreatedBy: %s \n\tVisibility: %s \n\tContent: %s \n\tCreatedAt: %s)",
		s.Id, s.CreatedBy, s.Visibility, s.Content, s.CreatedAt)
}

// MediaAttachment is an uploaded media file. StatusId stays nil until the
// attachment is bound to exactly one status by the atomic writer.
type MediaAttachment struct {
	Id        uuid.UUID
	AccountId uuid.UUID
	StatusId  *uuid.UUID
	FileType  string // "image", "video" or "gifv"
	URL       string
	CreatedAt time.Time
}

// Video reports whether the attachment is a video type.
func (m *MediaAttachment) Video() bool {
	return m.FileType == "video" || m.FileType == "gifv"
}

// PreviewCard is the crawled link preview for a status.
type PreviewCard struct {
	Id        uuid.UUID
	StatusId  uuid.UUID
	URL       string
	Title     string
	CreatedAt time.Time
}
