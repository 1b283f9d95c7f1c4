package publish

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/trollianspace/mastodon/domain"
)

type fakeMentionStore struct {
	accounts map[string]uuid.UUID
	mentions []uuid.UUID
}

func (s *fakeMentionStore) ReadAccByUsername(username string) (*domain.Account, error) {
	id, ok := s.accounts[username]
	if !ok {
		return nil, errors.New("no such account")
	}
	return &domain.Account{Id: id, Username: username}, nil
}

func (s *fakeMentionStore) CreateMention(statusId, accountId uuid.UUID) error {
	s.mentions = append(s.mentions, accountId)
	return nil
}

func TestMentionExtractor(t *testing.T) {
	terezi := uuid.New()
	store := &fakeMentionStore{accounts: map[string]uuid.UUID{"terezi": terezi}}
	extractor := &MentionExtractor{Store: store}

	status := &domain.Status{Id: uuid.New(), Content: "hey @terezi and @nobody"}
	if err := extractor.Process(status); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(store.mentions) != 1 || store.mentions[0] != terezi {
		t.Errorf("Expected one mention of terezi, got %v", store.mentions)
	}
}

type fakeTagStore struct {
	tags []string
}

func (s *fakeTagStore) CreateTag(statusId uuid.UUID, name string) error {
	s.tags = append(s.tags, name)
	return nil
}

func TestHashtagExtractor(t *testing.T) {
	store := &fakeTagStore{}
	extractor := &HashtagExtractor{Store: store}

	status := &domain.Status{Id: uuid.New(), Content: "#sgrub is live, no tag here"}
	if err := extractor.Process(status); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(store.tags) != 1 || store.tags[0] != "sgrub" {
		t.Errorf("Expected tag 'sgrub', got %v", store.tags)
	}
}
