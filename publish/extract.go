package publish

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/trollianspace/mastodon/domain"
)

// Extraction collaborators run synchronously after the atomic write.
// Both are idempotent: re-processing a status inserts nothing new.

var (
	mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)
	hashtagPattern = regexp.MustCompile(`#([\pL\pN_]+)`)
)

// MentionStore is what the mention extractor needs from storage.
type MentionStore interface {
	ReadAccByUsername(username string) (*domain.Account, error)
	CreateMention(statusId, accountId uuid.UUID) error
}

// MentionExtractor records a mention row for every @handle that resolves
// to a local account. Unknown handles are skipped silently.
type MentionExtractor struct {
	Store MentionStore
}

func (e *MentionExtractor) Process(status *domain.Status) error {
	for _, match := range mentionPattern.FindAllStringSubmatch(status.Content, -1) {
		acc, err := e.Store.ReadAccByUsername(match[1])
		if err != nil {
			continue
		}
		if err := e.Store.CreateMention(status.Id, acc.Id); err != nil {
			return err
		}
	}
	return nil
}

// TagStore is what the hashtag extractor needs from storage.
type TagStore interface {
	CreateTag(statusId uuid.UUID, name string) error
}

// HashtagExtractor records a tag row for every #hashtag in the content.
type HashtagExtractor struct {
	Store TagStore
}

func (e *HashtagExtractor) Process(status *domain.Status) error {
	for _, match := range hashtagPattern.FindAllStringSubmatch(status.Content, -1) {
		if err := e.Store.CreateTag(status.Id, match[1]); err != nil {
			return err
		}
	}
	return nil
}
