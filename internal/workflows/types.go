package workflows

import (
	"github.com/scour-ai/scour/internal/models"
)

// Error types attached to workflow failures so callers can map them to
// a response without parsing messages.
const (
	ErrTypeRequestValidation  = "RequestValidation"
	ErrTypeBackendUnavailable = "BackendUnavailable"
	ErrTypeTaskFailure        = "TaskFailure"
)

// Search statuses recorded with each finished search.
const (
	StatusCompleted = "completed"
	StatusTimedOut  = "timed_out"
	StatusFailed    = "failed"
)

// SearchOutput is the workflow result: the aggregated answer plus
// enough run detail to audit the traversal.
type SearchOutput struct {
	Answer models.AggregatedAnswer `json:"answer"`
	Status string                  `json:"status"`
}
