package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Account is a local or remote actor. Local accounts have an empty Domain
// and carry publication defaults plus the typing-quirk substitution rules
// applied to everything they post.
type Account struct {
	Id          uuid.UUID
	Username    string
	Domain      string // empty for local accounts
	DisplayName string
	CreatedAt   time.Time

	// Publication defaults
	DefaultVisibility Visibility
	DefaultSensitive  bool
	DefaultLanguage   string

	// Moderation state. Silenced accounts have public posts downgraded
	// to unlisted.
	Silenced bool

	// Typing quirks: ordered substitution rules, pairwise by index.
	// Mismatched list lengths disable the transformation entirely.
	QuirkPatterns     []string
	QuirkReplacements []string

	// Federation
	InboxURI      string
	PublicKeyPem  string
	PrivateKeyPem string

	// API credential for local accounts
	AccessToken string
}

// Local reports whether the account lives on this server.
func (acc *Account) Local() bool {
	return acc.Domain == ""
}

// Acct returns the webfinger-style handle, without a domain for locals.
func (acc *Account) Acct() string {
	if acc.Local() {
		return acc.Username
	}
	return fmt.Sprintf("%s@%s", acc.Username, acc.Domain)
}

func (acc *Account) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tAcct: %s \n\tSilenced: %t \n\tCreatedAt: %s)", acc.Id, acc.Acct(), acc.Silenced, acc.CreatedAt)
}

// Follow represents a follow relationship. AccountId is the follower,
// TargetAccountId the account being followed.
type Follow struct {
	Id              uuid.UUID
	AccountId       uuid.UUID
	TargetAccountId uuid.UUID
	URI             string
	CreatedAt       time.Time
	Accepted        bool
}

// WebSubscription is a callback URL notified about new federable statuses.
type WebSubscription struct {
	Id          uuid.UUID
	CallbackURL string
	CreatedAt   time.Time
}

// PotentialFriendship is a directed interaction signal: Account replied to
// (or otherwise interacted with) Target without following them yet.
type PotentialFriendship struct {
	Id              uuid.UUID
	AccountId       uuid.UUID
	TargetAccountId uuid.UUID
	Interaction     string
	CreatedAt       time.Time
}
