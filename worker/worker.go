package worker

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/trollianspace/mastodon/domain"
	"github.com/trollianspace/mastodon/util"
)

// Store is the storage the worker needs. *db.DB satisfies it.
type Store interface {
	EnqueueTask(item *domain.QueuedTask) error
	ReadDueTasks(limit int) ([]domain.QueuedTask, error)
	UpdateTaskAttempt(id uuid.UUID, attempts int, nextRetry time.Time) error
	DeleteTask(id uuid.UUID) error

	ReadStatusById(id uuid.UUID) (*domain.Status, error)
	ReadAccById(id uuid.UUID) (*domain.Account, error)
	ReadFollowerAccounts(targetId uuid.UUID) ([]domain.Account, error)
	ReadMentionedAccounts(statusId uuid.UUID) ([]domain.Account, error)
	InsertHomeFeed(accountId, statusId uuid.UUID) error
	ReadWebSubscriptions() ([]domain.WebSubscription, error)
	CreatePreviewCard(card *domain.PreviewCard) error
}

const (
	pollInterval = 10 * time.Second
	batchSize    = 50
	maxAttempts  = 10
)

var backoffMinutes = []int{1, 5, 15, 60, 240, 1440}

// Worker drains the persistent task queue: one task per (channel, status)
// pair, retried with increasing backoff until it succeeds or runs out of
// attempts. It also implements the publisher's TaskRunner.
type Worker struct {
	store Store
	conf  *util.AppConfig
	done  chan struct{}
}

func New(store Store, conf *util.AppConfig) *Worker {
	return &Worker{
		store: store,
		conf:  conf,
		done:  make(chan struct{}),
	}
}

// Enqueue persists a distribution task for asynchronous execution.
func (w *Worker) Enqueue(task domain.DistributionTask) error {
	return w.store.EnqueueTask(&domain.QueuedTask{
		Id:          uuid.New(),
		Channel:     task.Channel,
		StatusId:    task.StatusId,
		Attempts:    0,
		NextRetryAt: time.Now(),
		CreatedAt:   time.Now(),
	})
}

// Start launches the background polling loop.
func (w *Worker) Start() {
	log.Info("Starting distribution worker...")
	ticker := time.NewTicker(pollInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.processQueue()
			case <-w.done:
				return
			}
		}
	}()
}

func (w *Worker) Stop() {
	close(w.done)
}

func (w *Worker) processQueue() {
	items, err := w.store.ReadDueTasks(batchSize)
	if err != nil {
		log.Errorf("worker: failed to read queue: %v", err)
		return
	}
	if len(items) == 0 {
		return
	}

	log.Debugf("worker: processing %d due tasks", len(items))
	for _, item := range items {
		if err := w.runTask(&item); err != nil {
			w.retry(&item, err)
			continue
		}
		if err := w.store.DeleteTask(item.Id); err != nil {
			log.Errorf("worker: failed to delete task %s: %v", item.Id, err)
		}
	}
}

func (w *Worker) retry(item *domain.QueuedTask, cause error) {
	item.Attempts++
	if item.Attempts >= maxAttempts {
		log.Errorf("worker: giving up on %s for status %s after %d attempts: %v",
			item.Channel, item.StatusId, item.Attempts, cause)
		if err := w.store.DeleteTask(item.Id); err != nil {
			log.Errorf("worker: failed to delete task %s: %v", item.Id, err)
		}
		return
	}

	minutes := backoffMinutes[min(item.Attempts-1, len(backoffMinutes)-1)]
	next := time.Now().Add(time.Duration(minutes) * time.Minute)
	log.Warnf("worker: %s for status %s failed (attempt %d), retry in %dm: %v",
		item.Channel, item.StatusId, item.Attempts, minutes, cause)
	if err := w.store.UpdateTaskAttempt(item.Id, item.Attempts, next); err != nil {
		log.Errorf("worker: failed to reschedule task %s: %v", item.Id, err)
	}
}

func (w *Worker) runTask(item *domain.QueuedTask) error {
	switch item.Channel {
	case domain.ChannelLocalTimeline:
		return w.runLocalTimeline(item)
	case domain.ChannelWebSubscription:
		return w.runWebSubscription(item)
	case domain.ChannelFederation:
		return w.runFederation(item, false)
	case domain.ChannelFederationReply:
		return w.runFederation(item, true)
	case domain.ChannelLinkCrawl:
		return w.runLinkCrawl(item)
	}
	// Unknown channels are dropped, not retried.
	log.Warnf("worker: dropping task %s with unknown channel %s", item.Id, item.Channel)
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
