package domain

// JobStatusCounts is a per-status census of a batch's child jobs.
type JobStatusCounts struct {
	Pending   int
	Running   int
	Completed int
	Failed    int
	Cancelled int
}

// Total sums all child jobs regardless of status.
func (c JobStatusCounts) Total() int {
	return c.Pending + c.Running + c.Completed + c.Failed + c.Cancelled
}

// Terminal sums the children that have reached a terminal state.
func (c JobStatusCounts) Terminal() int {
	return c.Completed + c.Failed + c.Cancelled
}

// DeriveBatchStatus computes a batch status as a pure function of its child
// job statuses. It must be the single source of batch status anywhere a batch
// is written or rendered; persisting its result is a query optimization only.
//
// An explicitly cancelled batch stays cancelled: children still RUNNING at
// cancellation time may finish afterwards without reverting the batch.
func DeriveBatchStatus(counts JobStatusCounts, cancelled bool) string {
	if cancelled {
		return BatchStatusCancelled
	}

	if counts.Running > 0 {
		return BatchStatusRunning
	}

	total := counts.Total()
	if total == 0 || counts.Pending == total {
		return BatchStatusPending
	}

	if counts.Terminal() < total {
		// No job running, some pending, some terminal: the batch is still
		// making progress between dispatches.
		return BatchStatusRunning
	}

	switch {
	case counts.Completed == total:
		return BatchStatusCompleted
	case counts.Failed == total:
		return BatchStatusFailed
	case counts.Failed > 0:
		return BatchStatusPartiallyFailed
	case counts.Completed > 0:
		// Completed plus cancelled children without an explicit batch cancel:
		// everything that ran succeeded.
		return BatchStatusCompleted
	default:
		return BatchStatusCancelled
	}
}
