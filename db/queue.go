package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/trollianspace/mastodon/domain"
)

// Task queue queries
const (
	sqlInsertTask     = `INSERT INTO task_queue(id, channel, status_id, attempts, next_retry_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlSelectDueTasks = `SELECT id, channel, status_id, attempts, next_retry_at, created_at FROM task_queue WHERE next_retry_at <= ? ORDER BY created_at ASC LIMIT ?`
	sqlUpdateTask     = `UPDATE task_queue SET attempts = ?, next_retry_at = ? WHERE id = ?`
	sqlDeleteTask     = `DELETE FROM task_queue WHERE id = ?`
)

func (db *DB) EnqueueTask(item *domain.QueuedTask) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertTask,
			item.Id.String(),
			string(item.Channel),
			item.StatusId.String(),
			item.Attempts,
			item.NextRetryAt,
			item.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadDueTasks(limit int) ([]domain.QueuedTask, error) {
	rows, err := db.db.Query(sqlSelectDueTasks, time.Now(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.QueuedTask
	for rows.Next() {
		var item domain.QueuedTask
		var idStr, channel, statusIdStr string
		if err := rows.Scan(&idStr, &channel, &statusIdStr, &item.Attempts, &item.NextRetryAt, &item.CreatedAt); err != nil {
			return items, err
		}
		item.Id, _ = uuid.Parse(idStr)
		item.StatusId, _ = uuid.Parse(statusIdStr)
		item.Channel = domain.Channel(channel)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (db *DB) UpdateTaskAttempt(id uuid.UUID, attempts int, nextRetry time.Time) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateTask, attempts, nextRetry, id.String())
		return err
	})
}

func (db *DB) DeleteTask(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteTask, id.String())
		return err
	})
}

// Preview card queries
const (
	sqlInsertPreviewCard = `INSERT OR IGNORE INTO preview_cards(id, status_id, url, title, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlSelectPreviewCard = `SELECT id, status_id, url, title, created_at FROM preview_cards WHERE status_id = ?`
)

func (db *DB) CreatePreviewCard(card *domain.PreviewCard) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertPreviewCard,
			card.Id.String(),
			card.StatusId.String(),
			card.URL,
			card.Title,
			card.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadPreviewCard(statusId uuid.UUID) (*domain.PreviewCard, error) {
	row := db.db.QueryRow(sqlSelectPreviewCard, statusId.String())
	var card domain.PreviewCard
	var idStr, statusIdStr string
	err := row.Scan(&idStr, &statusIdStr, &card.URL, &card.Title, &card.CreatedAt)
	if err != nil {
		return nil, err
	}
	card.Id, _ = uuid.Parse(idStr)
	card.StatusId, _ = uuid.Parse(statusIdStr)
	return &card, nil
}
