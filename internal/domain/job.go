package domain

import (
	"database/sql"
	"time"
)

// Job is one marketplace action against one target entity. A job is owned
// exclusively by its batch when BatchID is set; standalone jobs are permitted
// for single-item operations.
type Job struct {
	ID           string         `db:"id"`
	BatchID      sql.NullString `db:"batch_id"`
	Marketplace  string         `db:"marketplace"`
	ActionCode   string         `db:"action_code"`
	TargetID     string         `db:"target_id"`
	Status       string         `db:"status"`
	Priority     int            `db:"priority"`
	RetryCount   int            `db:"retry_count"`
	MaxRetries   int            `db:"max_retries"`
	ErrorMessage string         `db:"error_message"`
	WorkerID     sql.NullString `db:"worker_id"`
	SessionKey   string         `db:"session_key"`
	CreatedBy    string         `db:"created_by"`
	CreatedAt    time.Time      `db:"created_at"`
	StartedAt    sql.NullTime   `db:"started_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
}

// InBatch reports whether the job belongs to a batch.
func (j *Job) InBatch() bool {
	return j.BatchID.Valid && j.BatchID.String != ""
}

// SessionKeyFor derives the remote-actor session address for a job. The actor
// registers the same key when its channel connects, so one marketplace account
// maps to one logical session.
func SessionKeyFor(marketplace, createdBy string) string {
	return marketplace + ":" + createdBy
}
