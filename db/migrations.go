package db

import (
	"database/sql"

	"github.com/charmbracelet/log"
)

const (
	sqlCreateAccountsTable = `CREATE TABLE IF NOT EXISTS accounts (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL,
		domain TEXT NOT NULL DEFAULT '',
		display_name TEXT DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		default_visibility TEXT DEFAULT 'public',
		default_sensitive INTEGER DEFAULT 0,
		default_language TEXT DEFAULT '',
		silenced INTEGER DEFAULT 0,
		quirk_patterns TEXT DEFAULT '[]',
		quirk_replacements TEXT DEFAULT '[]',
		inbox_uri TEXT DEFAULT '',
		public_key_pem TEXT DEFAULT '',
		private_key_pem TEXT DEFAULT '',
		access_token TEXT DEFAULT '',
		UNIQUE(username, domain)
	)`

	sqlCreateAccountsIndices = `
		CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
		CREATE INDEX IF NOT EXISTS idx_accounts_access_token ON accounts(access_token);
	`

	sqlCreateStatusesTable = `CREATE TABLE IF NOT EXISTS statuses (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		content TEXT NOT NULL,
		spoiler_text TEXT DEFAULT '',
		visibility TEXT DEFAULT 'public',
		sensitive INTEGER DEFAULT 0,
		language TEXT DEFAULT '',
		in_reply_to_id TEXT,
		local_only INTEGER DEFAULT 0,
		application TEXT DEFAULT '',
		object_uri TEXT DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateStatusesIndices = `
		CREATE INDEX IF NOT EXISTS idx_statuses_account_id ON statuses(account_id);
		CREATE INDEX IF NOT EXISTS idx_statuses_created_at ON statuses(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_statuses_in_reply_to_id ON statuses(in_reply_to_id);
	`

	sqlCreateMediaTable = `CREATE TABLE IF NOT EXISTS media_attachments (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		status_id TEXT,
		file_type TEXT NOT NULL,
		url TEXT DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateMediaIndices = `
		CREATE INDEX IF NOT EXISTS idx_media_status_id ON media_attachments(status_id);
		CREATE INDEX IF NOT EXISTS idx_media_account_id ON media_attachments(account_id);
	`

	sqlCreateFollowsTable = `CREATE TABLE IF NOT EXISTS follows (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		target_account_id TEXT NOT NULL,
		uri TEXT DEFAULT '',
		accepted INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(account_id, target_account_id)
	)`

	sqlCreateFollowsIndices = `
		CREATE INDEX IF NOT EXISTS idx_follows_account_id ON follows(account_id);
		CREATE INDEX IF NOT EXISTS idx_follows_target_account_id ON follows(target_account_id);
	`

	sqlCreateHomeFeedTable = `CREATE TABLE IF NOT EXISTS home_feed (
		account_id TEXT NOT NULL,
		status_id TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY(account_id, status_id)
	)`

	sqlCreateMentionsTable = `CREATE TABLE IF NOT EXISTS mentions (
		id TEXT NOT NULL PRIMARY KEY,
		status_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(status_id, account_id)
	)`

	sqlCreateTagsTable = `CREATE TABLE IF NOT EXISTS tags (
		id TEXT NOT NULL PRIMARY KEY,
		status_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(status_id, name)
	)`

	sqlCreateWebSubscriptionsTable = `CREATE TABLE IF NOT EXISTS web_subscriptions (
		id TEXT NOT NULL PRIMARY KEY,
		callback_url TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateInteractionsTable = `CREATE TABLE IF NOT EXISTS interactions (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreatePotentialFriendshipsTable = `CREATE TABLE IF NOT EXISTS potential_friendships (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		target_account_id TEXT NOT NULL,
		interaction TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateTaskQueueTable = `CREATE TABLE IF NOT EXISTS task_queue (
		id TEXT NOT NULL PRIMARY KEY,
		channel TEXT NOT NULL,
		status_id TEXT NOT NULL,
		attempts INTEGER DEFAULT 0,
		next_retry_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateTaskQueueIndices = `
		CREATE INDEX IF NOT EXISTS idx_task_queue_next_retry ON task_queue(next_retry_at);
	`

	sqlCreatePreviewCardsTable = `CREATE TABLE IF NOT EXISTS preview_cards (
		id TEXT NOT NULL PRIMARY KEY,
		status_id TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL,
		title TEXT DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
)

// Migrate creates all tables and indices.
func (db *DB) Migrate() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		tables := map[string]string{
			"accounts":              sqlCreateAccountsTable,
			"statuses":              sqlCreateStatusesTable,
			"media_attachments":     sqlCreateMediaTable,
			"follows":               sqlCreateFollowsTable,
			"home_feed":             sqlCreateHomeFeedTable,
			"mentions":              sqlCreateMentionsTable,
			"tags":                  sqlCreateTagsTable,
			"web_subscriptions":     sqlCreateWebSubscriptionsTable,
			"interactions":          sqlCreateInteractionsTable,
			"potential_friendships": sqlCreatePotentialFriendshipsTable,
			"task_queue":            sqlCreateTaskQueueTable,
			"preview_cards":         sqlCreatePreviewCardsTable,
		}
		for name, createSQL := range tables {
			if err := db.createTableIfNotExists(tx, createSQL, name); err != nil {
				return err
			}
		}

		for _, indices := range []string{
			sqlCreateAccountsIndices,
			sqlCreateStatusesIndices,
			sqlCreateMediaIndices,
			sqlCreateFollowsIndices,
			sqlCreateTaskQueueIndices,
		} {
			if _, err := tx.Exec(indices); err != nil {
				log.Warnf("Failed to create indices: %v", err)
			}
		}
		return nil
	})
}

func (db *DB) createTableIfNotExists(tx *sql.Tx, createSQL string, tableName string) error {
	_, err := tx.Exec(createSQL)
	if err != nil {
		log.Errorf("Error creating table %s: %v", tableName, err)
		return err
	}
	return nil
}
