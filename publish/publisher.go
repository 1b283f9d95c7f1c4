package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/trollianspace/mastodon/domain"
	"github.com/trollianspace/mastodon/util"
)

// MaxAttachments is the most media ids one submission may carry.
const MaxAttachments = 4

// Store is the storage the publisher needs. *db.DB satisfies it.
type Store interface {
	ReadAccById(id uuid.UUID) (*domain.Account, error)
	ReadStatusById(id uuid.UUID) (*domain.Status, error)
	ResolveUnattachedMedia(ids []uuid.UUID) ([]domain.MediaAttachment, error)
	CreateStatus(status *domain.Status, mediaIds []uuid.UUID) error
	Follows(accountId, targetId uuid.UUID) (bool, error)
}

// TaskRunner accepts a distribution task for asynchronous execution. The
// publisher only waits for the enqueue, never for the execution.
type TaskRunner interface {
	Enqueue(task domain.DistributionTask) error
}

// RelationshipTracker records reply-interaction signals. *db.DB
// satisfies it.
type RelationshipTracker interface {
	RecordInteraction(accountId uuid.UUID, kind string) error
	RecordPotentialFriendship(accountId, targetId uuid.UUID, interaction string) error
	CountPotentialFriendships(accountId, targetId uuid.UUID, interaction string) (int, error)
}

// maxReplySignals caps the stored friendship signals per directed pair;
// past that the pair is already a strong candidate.
const maxReplySignals = 3

// Extractor is a post-write collaborator (mentions, hashtags). Extractors
// are expected to be idempotent; their failure never unwinds the status.
type Extractor interface {
	Process(status *domain.Status) error
}

// Publisher runs the whole publication pipeline for one submission.
// All collaborators are injected; the caller owns their lifecycle.
type Publisher struct {
	Store       Store
	Idempotency IdempotencyStore
	Tasks       TaskRunner
	Tracker     RelationshipTracker
	Languages   LanguageTable
	Detect      LanguageDetector
	Extractors  []Extractor
	Conf        *util.AppConfig
}

// PostStatus publishes one submission:
// idempotency check, attachment validation, derived fields, quirk
// masking, the atomic write, extraction collaborators, fan-out, the
// idempotency record and reply signals. Everything before the write
// aborts with no visible state; everything after is isolated per step and
// never unwinds the persisted status.
func (p *Publisher) PostStatus(ctx context.Context, sub *domain.Submission) (*domain.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	owner, err := p.Store.ReadAccById(sub.AccountId)
	if err != nil {
		return nil, fmt.Errorf("loading account %s: %w", sub.AccountId, err)
	}

	if sub.IdempotencyKey != "" {
		if existingId, ok := p.Idempotency.Lookup(owner.Id, sub.IdempotencyKey); ok {
			existing, err := p.Store.ReadStatusById(existingId)
			if err == nil {
				return existing, nil
			}
			// Treat an unreadable hit as a miss.
			log.Warnf("idempotency hit for %s but status %s unreadable: %v", owner.Id, existingId, err)
		}
	}

	if len(sub.MediaIds) > MaxAttachments {
		return nil, domain.NewValidationError("too many attachments")
	}
	media, err := p.Store.ResolveUnattachedMedia(sub.MediaIds)
	if err != nil {
		return nil, fmt.Errorf("resolving attachments: %w", err)
	}
	videos := 0
	for _, m := range media {
		if m.Video() {
			videos++
		}
	}
	// A video must be the only attachment.
	if videos >= 1 && len(media) > 1 {
		return nil, domain.NewValidationError("cannot mix images and video")
	}

	fields := ResolveFields(sub, owner, p.Languages, p.Detect)

	rules := CompileQuirks(owner.QuirkPatterns, owner.QuirkReplacements)
	content := ApplyQuirks(fields.Text, rules)

	status := &domain.Status{
		Id:          uuid.New(),
		AccountId:   owner.Id,
		CreatedBy:   owner.Username,
		Content:     content,
		SpoilerText: fields.SpoilerText,
		Visibility:  fields.Visibility,
		Sensitive:   fields.Sensitive,
		Language:    fields.Language,
		InReplyToId: sub.InReplyToId,
		LocalOnly:   sub.LocalOnly,
		Application: sub.Application,
		CreatedAt:   time.Now(),
	}
	if p.Conf != nil {
		status.ObjectURI = fmt.Sprintf("https://%s/statuses/%s", p.Conf.Conf.SslDomain, status.Id)
	}

	mediaIds := make([]uuid.UUID, len(media))
	for i, m := range media {
		mediaIds[i] = m.Id
	}
	if err := p.Store.CreateStatus(status, mediaIds); err != nil {
		return nil, err
	}

	for _, extractor := range p.Extractors {
		if err := extractor.Process(status); err != nil {
			log.Warnf("extractor failed for status %s: %v", status.Id, err)
		}
	}

	parent, parentOwner := p.parentOf(status)
	p.dispatch(status, parent, parentOwner)

	if sub.IdempotencyKey != "" {
		p.Idempotency.Record(owner.Id, sub.IdempotencyKey, status.Id)
	}

	p.trackReply(owner, parent, parentOwner)

	return status, nil
}

func (p *Publisher) parentOf(status *domain.Status) (*domain.Status, *domain.Account) {
	if status.InReplyToId == nil {
		return nil, nil
	}
	parent, err := p.Store.ReadStatusById(*status.InReplyToId)
	if err != nil {
		log.Debugf("reply parent %s not readable: %v", *status.InReplyToId, err)
		return nil, nil
	}
	parentOwner, err := p.Store.ReadAccById(parent.AccountId)
	if err != nil {
		log.Debugf("reply parent owner %s not readable: %v", parent.AccountId, err)
		return parent, nil
	}
	return parent, parentOwner
}

func (p *Publisher) trackReply(owner *domain.Account, parent *domain.Status, parentOwner *domain.Account) {
	if parent == nil || parentOwner == nil || parentOwner.Id == owner.Id {
		return
	}

	if err := p.Tracker.RecordInteraction(owner.Id, "reply"); err != nil {
		log.Warnf("recording interaction for %s: %v", owner.Id, err)
	}

	follows, err := p.Store.Follows(owner.Id, parentOwner.Id)
	if err != nil {
		log.Warnf("reading follow %s -> %s: %v", owner.Id, parentOwner.Id, err)
		return
	}
	if follows {
		return
	}
	count, err := p.Tracker.CountPotentialFriendships(owner.Id, parentOwner.Id, "reply")
	if err != nil {
		log.Warnf("counting friendship signals for %s: %v", owner.Id, err)
		return
	}
	if count >= maxReplySignals {
		return
	}
	if err := p.Tracker.RecordPotentialFriendship(owner.Id, parentOwner.Id, "reply"); err != nil {
		log.Warnf("recording potential friendship for %s: %v", owner.Id, err)
	}
}
