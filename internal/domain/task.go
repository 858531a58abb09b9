package domain

import (
	"database/sql"
	"time"
)

// Task is an optional ordered sub-step of a job, recorded when an action
// decomposes into multiple dependent remote or network calls. Tasks are owned
// by their job and carry no independent retry policy.
type Task struct {
	ID           string       `db:"id"`
	JobID        string       `db:"job_id"`
	Seq          int          `db:"seq"`
	Name         string       `db:"name"`
	Status       string       `db:"status"`
	ErrorMessage string       `db:"error_message"`
	CreatedAt    time.Time    `db:"created_at"`
	CompletedAt  sql.NullTime `db:"completed_at"`
}
