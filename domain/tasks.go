package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channel names a distribution channel a freshly created status is fanned
// out to.
type Channel string

const (
	ChannelLinkCrawl       Channel = "link_crawl"
	ChannelLocalTimeline   Channel = "local_timeline"
	ChannelWebSubscription Channel = "web_subscription"
	ChannelFederation      Channel = "federation"
	ChannelFederationReply Channel = "federation_reply"
)

// DistributionTask is a directive handed to the task runner: deliver the
// given status on the given channel. Produced by the fan-out dispatcher,
// persisted only by the runner.
type DistributionTask struct {
	Channel  Channel
	StatusId uuid.UUID
}

// QueuedTask is a DistributionTask as persisted in the task queue,
// including its retry bookkeeping.
type QueuedTask struct {
	Id          uuid.UUID
	Channel     Channel
	StatusId    uuid.UUID
	Attempts    int
	NextRetryAt time.Time
	CreatedAt   time.Time
}
