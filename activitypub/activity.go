package activitypub

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trollianspace/mastodon/domain"
	"github.com/trollianspace/mastodon/util"
)

const publicAudience = "https://www.w3.org/ns/activitystreams#Public"

// BuildCreate builds a Create activity for a freshly published status.
// parent may be nil; when set its object URI becomes the inReplyTo of the
// note. Addressing follows the status visibility: public statuses go to
// the public collection with followers cc'd, unlisted statuses swap the
// two, followers-only and direct statuses never address the public
// collection.
func BuildCreate(status *domain.Status, owner *domain.Account, parent *domain.Status, conf *util.AppConfig) map[string]interface{} {
	actorURI := fmt.Sprintf("https://%s/users/%s", conf.Conf.SslDomain, owner.Username)
	followersURI := actorURI + "/followers"
	createID := fmt.Sprintf("https://%s/activities/%s", conf.Conf.SslDomain, uuid.New().String())

	var to, cc []string
	switch status.Visibility {
	case domain.VisibilityPublic:
		to = []string{publicAudience}
		cc = []string{followersURI}
	case domain.VisibilityUnlisted:
		to = []string{followersURI}
		cc = []string{publicAudience}
	case domain.VisibilityFollowers:
		to = []string{followersURI}
	default:
		// Direct statuses address nobody at the collection level; the
		// delivery targets are the mentioned inboxes.
		to = []string{}
	}

	note := map[string]interface{}{
		"id":           status.ObjectURI,
		"type":         "Note",
		"attributedTo": actorURI,
		"content":      status.Content,
		"sensitive":    status.Sensitive,
		"published":    status.CreatedAt.Format(time.RFC3339),
		"to":           to,
		"cc":           cc,
	}
	if status.SpoilerText != "" {
		note["summary"] = status.SpoilerText
	}
	if status.Language != "" {
		note["contentMap"] = map[string]string{status.Language: status.Content}
	}
	if parent != nil && parent.ObjectURI != "" {
		note["inReplyTo"] = parent.ObjectURI
	}

	return map[string]interface{}{
		"@context":  "https://www.w3.org/ns/activitystreams",
		"id":        createID,
		"type":      "Create",
		"actor":     actorURI,
		"published": status.CreatedAt.Format(time.RFC3339),
		"to":        to,
		"cc":        cc,
		"object":    note,
	}
}
