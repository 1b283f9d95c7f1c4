package publish

import (
	"github.com/charmbracelet/log"
	"github.com/trollianspace/mastodon/domain"
)

// dispatch selects the distribution channels for a freshly persisted
// status and hands one task per channel to the runner. It runs strictly
// after the atomic write and builds the channel set exactly once, so no
// channel is enqueued twice for the same status.
//
// Enqueue failures are reported and swallowed: the status is already
// durable and retries belong to the task runner, not to this pipeline.
func (p *Publisher) dispatch(status *domain.Status, parent *domain.Status, parentOwner *domain.Account) {
	tasks := make([]domain.DistributionTask, 0, 5)

	// The crawl would leak the link target of a warned post.
	if status.SpoilerText == "" {
		tasks = append(tasks, domain.DistributionTask{Channel: domain.ChannelLinkCrawl, StatusId: status.Id})
	}

	tasks = append(tasks, domain.DistributionTask{Channel: domain.ChannelLocalTimeline, StatusId: status.Id})

	if !status.LocalOnly {
		tasks = append(tasks,
			domain.DistributionTask{Channel: domain.ChannelWebSubscription, StatusId: status.Id},
			domain.DistributionTask{Channel: domain.ChannelFederation, StatusId: status.Id},
		)
		if parent != nil && parentOwner != nil && parentOwner.Local() {
			tasks = append(tasks, domain.DistributionTask{Channel: domain.ChannelFederationReply, StatusId: status.Id})
		}
	}

	for _, task := range tasks {
		if err := p.Tasks.Enqueue(task); err != nil {
			log.Errorf("enqueue %s for status %s failed: %v", task.Channel, status.Id, err)
		}
	}
}
