package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Batch is a user-initiated group of same-marketplace, same-action jobs
// created together. Counts and status are derived from child job state and
// recomputed on every child transition.
type Batch struct {
	ID             string    `db:"id"`
	Code           string    `db:"code"`
	Marketplace    string    `db:"marketplace"`
	ActionCode     string    `db:"action_code"`
	Status         string    `db:"status"`
	Priority       int       `db:"priority"`
	TotalCount     int       `db:"total_count"`
	CompletedCount int       `db:"completed_count"`
	FailedCount    int       `db:"failed_count"`
	CancelledCount int       `db:"cancelled_count"`
	CreatedBy      string    `db:"created_by"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// PendingCount derives the number of children that have not reached a
// terminal state. Must never be negative; a negative value is an invariant
// violation, not a condition to silently clamp.
func (b *Batch) PendingCount() int {
	return b.TotalCount - (b.CompletedCount + b.FailedCount + b.CancelledCount)
}

// ProgressPercent returns completion progress in [0,100], 0 for empty batches.
func (b *Batch) ProgressPercent() float64 {
	if b.TotalCount == 0 {
		return 0
	}
	return float64(b.CompletedCount) / float64(b.TotalCount) * 100
}

// NewBatchCode builds the human-readable batch identifier
// {action_code}_{YYYYMMDDHHMMSS}_{8-hex-random}. Display and log correlation
// only, never a key.
func NewBatchCode(actionCode string, now time.Time) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return actionCode + "_" + now.Format("20060102150405") + "_" + hex.EncodeToString(buf)
}
