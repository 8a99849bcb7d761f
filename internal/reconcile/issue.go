package reconcile

import (
	"fmt"
	"time"
)

// IssueKind classifies a recoverable problem the engine healed or
// worked around.
type IssueKind int

const (
	// IssueBackupUnavailable means the backup store had no usable record
	// when one was wanted, or a backup write failed.
	IssueBackupUnavailable IssueKind = iota
	// IssueIntegrityMismatch means the media/name lists drifted within
	// the tolerated band; logged, not cleaned.
	IssueIntegrityMismatch
	// IssueIntegrityCleaned means drift was severe enough that entries
	// were destructively removed.
	IssueIntegrityCleaned
	// IssueIntegrityDisabled means the circuit breaker tripped and
	// integrity checking is suspended.
	IssueIntegrityDisabled
	// IssuePlaceholderRejected means a placeholder marker was offered
	// where a committed value belongs.
	IssuePlaceholderRejected
	// IssueOperationFailed means an operation's handler returned an
	// error; the queue kept draining.
	IssueOperationFailed
	// IssueQueueFull means a producer's operation was dropped because
	// the queue was at capacity.
	IssueQueueFull
)

// String returns a human-readable representation of the issue kind.
func (k IssueKind) String() string {
	switch k {
	case IssueBackupUnavailable:
		return "backup_unavailable"
	case IssueIntegrityMismatch:
		return "integrity_mismatch"
	case IssueIntegrityCleaned:
		return "integrity_cleaned"
	case IssueIntegrityDisabled:
		return "integrity_disabled"
	case IssuePlaceholderRejected:
		return "placeholder_rejected"
	case IssueOperationFailed:
		return "operation_failed"
	case IssueQueueFull:
		return "queue_full"
	default:
		return "unknown"
	}
}

// Issue records a recoverable problem. Nothing in the engine is fatal;
// issues are the explicit form of what would otherwise be silent
// self-healing, so callers can opt into surfacing them.
type Issue struct {
	Kind   IssueKind
	Op     OpType
	Detail string
	Err    error
	Time   time.Time
}

// String formats the issue for logs.
func (i Issue) String() string {
	if i.Err != nil {
		return fmt.Sprintf("%s during %s: %s (%v)", i.Kind, i.Op, i.Detail, i.Err)
	}
	return fmt.Sprintf("%s during %s: %s", i.Kind, i.Op, i.Detail)
}
