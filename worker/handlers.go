package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/trollianspace/mastodon/activitypub"
	"github.com/trollianspace/mastodon/domain"
	"github.com/trollianspace/mastodon/util"
)

// runLocalTimeline materializes the status into the home feeds of its
// owner and every local follower. Feed inserts ignore duplicates, so a
// retried task never double-delivers.
func (w *Worker) runLocalTimeline(item *domain.QueuedTask) error {
	status, err := w.store.ReadStatusById(item.StatusId)
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	if err := w.store.InsertHomeFeed(status.AccountId, status.Id); err != nil {
		return fmt.Errorf("inserting own feed entry: %w", err)
	}

	followers, err := w.store.ReadFollowerAccounts(status.AccountId)
	if err != nil {
		return fmt.Errorf("reading followers: %w", err)
	}
	for _, follower := range followers {
		if !follower.Local() {
			continue
		}
		if err := w.store.InsertHomeFeed(follower.Id, status.Id); err != nil {
			return fmt.Errorf("inserting feed entry for %s: %w", follower.Id, err)
		}
	}
	return nil
}

// runWebSubscription notifies every registered callback about the status.
// A single failing callback fails the task so the whole batch is retried;
// consumers are expected to deduplicate on the status id.
func (w *Worker) runWebSubscription(item *domain.QueuedTask) error {
	status, err := w.store.ReadStatusById(item.StatusId)
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	subs, err := w.store.ReadWebSubscriptions()
	if err != nil {
		return fmt.Errorf("reading subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"id":           status.Id.String(),
		"account":      status.CreatedBy,
		"content":      status.Content,
		"spoiler_text": status.SpoilerText,
		"visibility":   string(status.Visibility),
		"sensitive":    status.Sensitive,
		"language":     status.Language,
		"uri":          status.ObjectURI,
		"created_at":   status.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshalling payload: %w", err)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	for _, sub := range subs {
		req, err := http.NewRequest("POST", sub.CallbackURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("building request for %s: %w", sub.CallbackURL, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", util.GetNameAndVersion())

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("notifying %s: %w", sub.CallbackURL, err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("callback %s returned status %d", sub.CallbackURL, resp.StatusCode)
		}
	}
	return nil
}

// runFederation delivers a signed Create activity to remote inboxes.
// The audience is the owner's followers, except: direct statuses go only
// to their mentioned accounts, and for the reply channel the audience is
// the parent owner's followers, so remote viewers of the thread see the
// reply too.
func (w *Worker) runFederation(item *domain.QueuedTask, reply bool) error {
	if !w.conf.Conf.WithFederation {
		return nil
	}

	status, err := w.store.ReadStatusById(item.StatusId)
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}
	owner, err := w.store.ReadAccById(status.AccountId)
	if err != nil {
		return fmt.Errorf("reading owner: %w", err)
	}

	var parent *domain.Status
	if status.InReplyToId != nil {
		parent, err = w.store.ReadStatusById(*status.InReplyToId)
		if err != nil {
			log.Warnf("worker: reply parent %s unreadable: %v", *status.InReplyToId, err)
			parent = nil
		}
	}

	var audience []domain.Account
	if status.Visibility == domain.VisibilityDirect {
		audience, err = w.store.ReadMentionedAccounts(status.Id)
		if err != nil {
			return fmt.Errorf("reading mentioned accounts: %w", err)
		}
	} else {
		audienceId := status.AccountId
		if reply {
			if parent == nil {
				return nil
			}
			audienceId = parent.AccountId
		}
		audience, err = w.store.ReadFollowerAccounts(audienceId)
		if err != nil {
			return fmt.Errorf("reading followers: %w", err)
		}
	}

	create := activitypub.BuildCreate(status, owner, parent, w.conf)

	seen := make(map[string]bool)
	for _, target := range audience {
		if target.Local() || target.InboxURI == "" || seen[target.InboxURI] {
			continue
		}
		seen[target.InboxURI] = true
		if err := activitypub.SendActivity(create, target.InboxURI, owner, w.conf); err != nil {
			return fmt.Errorf("delivering to %s: %w", target.InboxURI, err)
		}
	}
	return nil
}

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

const maxCrawlBytes = 1 << 20

// runLinkCrawl walks the URLs in the status in order and stores a preview
// card for the first one that responds. A status without links completes
// immediately; if every URL fails the task is retried.
func (w *Worker) runLinkCrawl(item *domain.QueuedTask) error {
	status, err := w.store.ReadStatusById(item.StatusId)
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	urls := util.ExtractURLs(status.Content)
	if len(urls) == 0 {
		return nil
	}

	client := &http.Client{Timeout: 15 * time.Second}
	var lastErr error
	for _, url := range urls {
		title, err := w.crawlTitle(client, url)
		if err != nil {
			log.Debugf("worker: crawling %s: %v", url, err)
			lastErr = err
			continue
		}
		return w.store.CreatePreviewCard(&domain.PreviewCard{
			Id:        uuid.New(),
			StatusId:  status.Id,
			URL:       url,
			Title:     title,
			CreatedAt: time.Now(),
		})
	}
	return lastErr
}

func (w *Worker) crawlTitle(client *http.Client, url string) (string, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", util.GetNameAndVersion())

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCrawlBytes))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	title := ""
	if match := titlePattern.FindSubmatch(body); match != nil {
		title = strings.TrimSpace(string(match[1]))
	}
	return title, nil
}
