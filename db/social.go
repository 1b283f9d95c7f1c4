package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/trollianspace/mastodon/domain"
)

// Follow queries
const (
	sqlInsertFollow          = `INSERT INTO follows(id, account_id, target_account_id, uri, accepted, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlSelectFollowExists    = `SELECT count(1) FROM follows WHERE account_id = ? AND target_account_id = ? AND accepted = 1`
	sqlSelectFollowerAccounts = sqlSelectAccount + ` INNER JOIN follows ON follows.account_id = accounts.id
                               WHERE follows.target_account_id = ? AND follows.accepted = 1`
)

func (db *DB) CreateFollow(follow *domain.Follow) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertFollow,
			follow.Id.String(),
			follow.AccountId.String(),
			follow.TargetAccountId.String(),
			follow.URI,
			follow.Accepted,
			follow.CreatedAt,
		)
		return err
	})
}

// Follows reports whether accountId has an accepted follow of targetId.
func (db *DB) Follows(accountId, targetId uuid.UUID) (bool, error) {
	var count int
	err := db.db.QueryRow(sqlSelectFollowExists, accountId.String(), targetId.String()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReadFollowerAccounts returns the accounts following targetId.
func (db *DB) ReadFollowerAccounts(targetId uuid.UUID) ([]domain.Account, error) {
	rows, err := db.db.Query(sqlSelectFollowerAccounts, targetId.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return db.collectAccounts(rows)
}

func (db *DB) collectAccounts(rows *sql.Rows) ([]domain.Account, error) {
	var accounts []domain.Account
	for rows.Next() {
		acc, err := scanAccountRow(rows)
		if err != nil {
			return accounts, err
		}
		accounts = append(accounts, *acc)
	}
	return accounts, rows.Err()
}

// Home feed queries
const (
	sqlInsertHomeFeed = `INSERT OR IGNORE INTO home_feed(account_id, status_id, created_at) VALUES (?, ?, ?)`
	sqlSelectHomeFeed = sqlSelectStatus + ` INNER JOIN home_feed ON home_feed.status_id = statuses.id
                        WHERE home_feed.account_id = ? ORDER BY home_feed.created_at DESC LIMIT ?`
)

// InsertHomeFeed adds the status to the account's home timeline. Duplicate
// inserts are ignored so task retries cannot double-deliver.
func (db *DB) InsertHomeFeed(accountId, statusId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertHomeFeed, accountId.String(), statusId.String(), time.Now())
		return err
	})
}

func (db *DB) ReadHomeFeed(accountId uuid.UUID, limit int) ([]domain.Status, error) {
	return db.queryStatuses(sqlSelectHomeFeed, accountId.String(), limit)
}

// Mention and tag queries
const (
	sqlInsertMention          = `INSERT OR IGNORE INTO mentions(id, status_id, account_id, created_at) VALUES (?, ?, ?, ?)`
	sqlSelectMentionedAccounts = sqlSelectAccount + ` INNER JOIN mentions ON mentions.account_id = accounts.id
                                 WHERE mentions.status_id = ?`
	sqlInsertTag = `INSERT OR IGNORE INTO tags(id, status_id, name, created_at) VALUES (?, ?, ?, ?)`
)

func (db *DB) CreateMention(statusId, accountId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertMention, uuid.New().String(), statusId.String(), accountId.String(), time.Now())
		return err
	})
}

func (db *DB) ReadMentionedAccounts(statusId uuid.UUID) ([]domain.Account, error) {
	rows, err := db.db.Query(sqlSelectMentionedAccounts, statusId.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return db.collectAccounts(rows)
}

func (db *DB) CreateTag(statusId uuid.UUID, name string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertTag, uuid.New().String(), statusId.String(), name, time.Now())
		return err
	})
}

// Web subscription queries
const (
	sqlInsertWebSubscription  = `INSERT INTO web_subscriptions(id, callback_url, created_at) VALUES (?, ?, ?)`
	sqlSelectWebSubscriptions = `SELECT id, callback_url, created_at FROM web_subscriptions`
)

func (db *DB) CreateWebSubscription(sub *domain.WebSubscription) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertWebSubscription, sub.Id.String(), sub.CallbackURL, sub.CreatedAt)
		return err
	})
}

func (db *DB) ReadWebSubscriptions() ([]domain.WebSubscription, error) {
	rows, err := db.db.Query(sqlSelectWebSubscriptions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.WebSubscription
	for rows.Next() {
		var sub domain.WebSubscription
		var idStr string
		if err := rows.Scan(&idStr, &sub.CallbackURL, &sub.CreatedAt); err != nil {
			return subs, err
		}
		sub.Id, _ = uuid.Parse(idStr)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Relationship signal queries
const (
	sqlInsertInteraction         = `INSERT INTO interactions(id, account_id, kind, created_at) VALUES (?, ?, ?, ?)`
	sqlInsertPotentialFriendship = `INSERT INTO potential_friendships(id, account_id, target_account_id, interaction, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlCountPotentialFriendships = `SELECT count(1) FROM potential_friendships WHERE account_id = ? AND target_account_id = ? AND interaction = ?`
)

// RecordInteraction notes that the account performed an interaction of the
// given kind (reply, favourite, ...).
func (db *DB) RecordInteraction(accountId uuid.UUID, kind string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertInteraction, uuid.New().String(), accountId.String(), kind, time.Now())
		return err
	})
}

// RecordPotentialFriendship stores a directed signal that accountId
// interacted with targetId without following them.
func (db *DB) RecordPotentialFriendship(accountId, targetId uuid.UUID, interaction string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertPotentialFriendship,
			uuid.New().String(), accountId.String(), targetId.String(), interaction, time.Now())
		return err
	})
}

func (db *DB) CountPotentialFriendships(accountId, targetId uuid.UUID, interaction string) (int, error) {
	var count int
	err := db.db.QueryRow(sqlCountPotentialFriendships, accountId.String(), targetId.String(), interaction).Scan(&count)
	return count, err
}
