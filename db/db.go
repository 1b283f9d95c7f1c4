package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/trollianspace/mastodon/domain"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the database struct.
type DB struct {
	db *sql.DB
}

const (
	//Accounts
	sqlInsertAccount = `INSERT INTO accounts(id, username, domain, display_name, created_at,
                        default_visibility, default_sensitive, default_language, silenced,
                        quirk_patterns, quirk_replacements, inbox_uri, public_key_pem, private_key_pem, access_token)
                        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	// Columns stay qualified so the joined variants in social.go are
	// unambiguous against follows/mentions.
	sqlSelectAccount = `SELECT accounts.id, accounts.username, accounts.domain, accounts.display_name, accounts.created_at,
                        accounts.default_visibility, accounts.default_sensitive, accounts.default_language, accounts.silenced,
                        accounts.quirk_patterns, accounts.quirk_replacements, accounts.inbox_uri, accounts.public_key_pem,
                        accounts.private_key_pem, accounts.access_token
                        FROM accounts`
	sqlSelectAccountById          = sqlSelectAccount + ` WHERE id = ?`
	sqlSelectAccountByUsername    = sqlSelectAccount + ` WHERE username = ? AND domain = ''`
	sqlSelectAccountByAccessToken = sqlSelectAccount + ` WHERE access_token = ? AND domain = ''`

	//Statuses
	sqlInsertStatus = `INSERT INTO statuses(id, account_id, content, spoiler_text, visibility,
                        sensitive, language, in_reply_to_id, local_only, application, object_uri, created_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectStatus = `SELECT statuses.id, statuses.account_id, accounts.username, statuses.content,
                        statuses.spoiler_text, statuses.visibility, statuses.sensitive, statuses.language,
                        statuses.in_reply_to_id, statuses.local_only, statuses.application,
                        statuses.object_uri, statuses.created_at
                        FROM statuses INNER JOIN accounts ON accounts.id = statuses.account_id`
	sqlSelectStatusById       = sqlSelectStatus + ` WHERE statuses.id = ?`
	sqlSelectPublicStatuses   = sqlSelectStatus + ` WHERE statuses.visibility = 'public' AND statuses.local_only = 0 AND accounts.domain = '' ORDER BY statuses.created_at DESC LIMIT ?`
	sqlSelectStatusesByAccount = sqlSelectStatus + ` WHERE statuses.account_id = ? ORDER BY statuses.created_at DESC LIMIT ?`

	//Media attachments
	sqlInsertMedia           = `INSERT INTO media_attachments(id, account_id, status_id, file_type, url, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlBindMediaToStatus     = `UPDATE media_attachments SET status_id = ? WHERE id = ? AND status_id IS NULL`
	sqlSelectUnattachedMedia = `SELECT id, account_id, status_id, file_type, url, created_at FROM media_attachments WHERE status_id IS NULL AND id IN (%s)`
)

// Open opens (or creates) the sqlite database at path. The caller owns the
// handle and passes it to whoever needs storage.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Configure connection pool for concurrent access
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Try to enable WAL2 mode, fall back to WAL if not supported
	var journalMode string
	err = sqlDB.QueryRow("PRAGMA journal_mode=WAL2").Scan(&journalMode)
	if err != nil || journalMode == "delete" {
		err = sqlDB.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode)
		if err != nil {
			log.Warnf("Failed to enable WAL mode: %v", err)
		} else {
			log.Infof("Database journal mode: %s (WAL2 not supported, using WAL)", journalMode)
		}
	} else {
		log.Infof("Database journal mode: %s", journalMode)
	}

	// PRAGMAs tuned for a concurrent publication workload
	sqlDB.Exec("PRAGMA synchronous = NORMAL")
	sqlDB.Exec("PRAGMA cache_size = -64000")
	sqlDB.Exec("PRAGMA temp_store = MEMORY")
	sqlDB.Exec("PRAGMA busy_timeout = 5000")
	sqlDB.Exec("PRAGMA foreign_keys = ON")
	sqlDB.Exec("PRAGMA auto_vacuum = INCREMENTAL")

	return &DB{db: sqlDB}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// wrapTransaction runs the given function within a transaction, retrying
// while sqlite reports the database as busy.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	for {
		tx, err := db.db.BeginTx(ctx, nil)
		if err != nil {
			log.Errorf("error starting transaction: %s", err)
			return err
		}
		err = f(tx)
		if err != nil {
			tx.Rollback()
			serr, ok := err.(*sqlite.Error)
			if ok && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			return err
		}
		if err = tx.Commit(); err != nil {
			log.Errorf("error committing transaction: %s", err)
			return err
		}
		return nil
	}
}

func (db *DB) CreateAccount(acc *domain.Account) error {
	patterns, err := json.Marshal(acc.QuirkPatterns)
	if err != nil {
		return err
	}
	replacements, err := json.Marshal(acc.QuirkReplacements)
	if err != nil {
		return err
	}
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertAccount,
			acc.Id.String(),
			acc.Username,
			acc.Domain,
			acc.DisplayName,
			acc.CreatedAt,
			string(acc.DefaultVisibility),
			acc.DefaultSensitive,
			acc.DefaultLanguage,
			acc.Silenced,
			string(patterns),
			string(replacements),
			acc.InboxURI,
			acc.PublicKeyPem,
			acc.PrivateKeyPem,
			acc.AccessToken,
		)
		return err
	})
}

func (db *DB) ReadAccById(id uuid.UUID) (*domain.Account, error) {
	return db.scanAccount(db.db.QueryRow(sqlSelectAccountById, id.String()))
}

func (db *DB) ReadAccByUsername(username string) (*domain.Account, error) {
	return db.scanAccount(db.db.QueryRow(sqlSelectAccountByUsername, username))
}

func (db *DB) ReadAccByAccessToken(token string) (*domain.Account, error) {
	return db.scanAccount(db.db.QueryRow(sqlSelectAccountByAccessToken, token))
}

func (db *DB) scanAccount(row *sql.Row) (*domain.Account, error) {
	return scanAccountRow(row)
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(row rowScanner) (*domain.Account, error) {
	var acc domain.Account
	var idStr, visibility, patterns, replacements string
	err := row.Scan(
		&idStr,
		&acc.Username,
		&acc.Domain,
		&acc.DisplayName,
		&acc.CreatedAt,
		&visibility,
		&acc.DefaultSensitive,
		&acc.DefaultLanguage,
		&acc.Silenced,
		&patterns,
		&replacements,
		&acc.InboxURI,
		&acc.PublicKeyPem,
		&acc.PrivateKeyPem,
		&acc.AccessToken,
	)
	if err != nil {
		return nil, err
	}
	acc.Id, _ = uuid.Parse(idStr)
	acc.DefaultVisibility = domain.Visibility(visibility)
	if err := json.Unmarshal([]byte(patterns), &acc.QuirkPatterns); err != nil {
		log.Warnf("account %s: malformed quirk patterns: %v", acc.Id, err)
	}
	if err := json.Unmarshal([]byte(replacements), &acc.QuirkReplacements); err != nil {
		log.Warnf("account %s: malformed quirk replacements: %v", acc.Id, err)
	}
	return &acc, nil
}

func (db *DB) CreateMediaAttachment(m *domain.MediaAttachment) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		var statusId interface{}
		if m.StatusId != nil {
			statusId = m.StatusId.String()
		}
		_, err := tx.Exec(sqlInsertMedia,
			m.Id.String(),
			m.AccountId.String(),
			statusId,
			m.FileType,
			m.URL,
			m.CreatedAt,
		)
		return err
	})
}

// ResolveUnattachedMedia returns the subset of the given attachments that
// exist and are not yet bound to any status, in id order of the query.
func (db *DB) ResolveUnattachedMedia(ids []uuid.UUID) ([]domain.MediaAttachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}
	query := strings.Replace(sqlSelectUnattachedMedia, "%s", strings.Join(placeholders, ","), 1)

	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var media []domain.MediaAttachment
	for rows.Next() {
		var m domain.MediaAttachment
		var idStr, accountIdStr string
		var statusIdStr sql.NullString
		if err := rows.Scan(&idStr, &accountIdStr, &statusIdStr, &m.FileType, &m.URL, &m.CreatedAt); err != nil {
			return media, err
		}
		m.Id, _ = uuid.Parse(idStr)
		m.AccountId, _ = uuid.Parse(accountIdStr)
		media = append(media, m)
	}
	return media, rows.Err()
}

// CreateStatus persists the status and binds its attachments in a single
// transaction. Either the status row and every binding land together, or
// nothing does. Binding fails when an attachment was grabbed by another
// status in the meantime.
func (db *DB) CreateStatus(status *domain.Status, mediaIds []uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		var inReplyTo interface{}
		if status.InReplyToId != nil {
			inReplyTo = status.InReplyToId.String()
		}
		_, err := tx.Exec(sqlInsertStatus,
			status.Id.String(),
			status.AccountId.String(),
			status.Content,
			status.SpoilerText,
			string(status.Visibility),
			status.Sensitive,
			status.Language,
			inReplyTo,
			status.LocalOnly,
			status.Application,
			status.ObjectURI,
			status.CreatedAt,
		)
		if err != nil {
			return err
		}

		for _, mediaId := range mediaIds {
			res, err := tx.Exec(sqlBindMediaToStatus, status.Id.String(), mediaId.String())
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected != 1 {
				return domain.NewValidationError("attachment already in use")
			}
		}
		return nil
	})
}

func (db *DB) ReadStatusById(id uuid.UUID) (*domain.Status, error) {
	return db.scanStatus(db.db.QueryRow(sqlSelectStatusById, id.String()))
}

func (db *DB) scanStatus(row *sql.Row) (*domain.Status, error) {
	var status domain.Status
	var idStr, accountIdStr, visibility string
	var inReplyTo sql.NullString
	err := row.Scan(
		&idStr,
		&accountIdStr,
		&status.CreatedBy,
		&status.Content,
		&status.SpoilerText,
		&visibility,
		&status.Sensitive,
		&status.Language,
		&inReplyTo,
		&status.LocalOnly,
		&status.Application,
		&status.ObjectURI,
		&status.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	status.Id, _ = uuid.Parse(idStr)
	status.AccountId, _ = uuid.Parse(accountIdStr)
	status.Visibility = domain.Visibility(visibility)
	if inReplyTo.Valid {
		parentId, err := uuid.Parse(inReplyTo.String)
		if err == nil {
			status.InReplyToId = &parentId
		}
	}
	return &status, nil
}

func (db *DB) ReadPublicStatuses(limit int) ([]domain.Status, error) {
	return db.queryStatuses(sqlSelectPublicStatuses, limit)
}

func (db *DB) ReadStatusesByAccountId(accountId uuid.UUID, limit int) ([]domain.Status, error) {
	return db.queryStatuses(sqlSelectStatusesByAccount, accountId.String(), limit)
}

func (db *DB) queryStatuses(query string, args ...interface{}) ([]domain.Status, error) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []domain.Status
	for rows.Next() {
		var status domain.Status
		var idStr, accountIdStr, visibility string
		var inReplyTo sql.NullString
		if err := rows.Scan(&idStr, &accountIdStr, &status.CreatedBy, &status.Content,
			&status.SpoilerText, &visibility, &status.Sensitive, &status.Language,
			&inReplyTo, &status.LocalOnly, &status.Application, &status.ObjectURI, &status.CreatedAt); err != nil {
			return statuses, err
		}
		status.Id, _ = uuid.Parse(idStr)
		status.AccountId, _ = uuid.Parse(accountIdStr)
		status.Visibility = domain.Visibility(visibility)
		if inReplyTo.Valid {
			parentId, err := uuid.Parse(inReplyTo.String)
			if err == nil {
				status.InReplyToId = &parentId
			}
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}
