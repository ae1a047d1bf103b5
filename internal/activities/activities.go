// Package activities holds the Temporal activities behind the search
// workflows. Activities own all I/O: search backend calls, page
// fetches, oracle decisions, and persistence. Workflow code never
// touches the network directly.
package activities

import (
	"go.uber.org/zap"

	"github.com/scour-ai/scour/internal/db"
	"github.com/scour-ai/scour/internal/fetch"
	"github.com/scour-ai/scour/internal/oracle"
	"github.com/scour-ai/scour/internal/searx"
)

// Activities struct holds dependencies for activities
type Activities struct {
	oracle  *oracle.Client
	searx   *searx.Client
	fetcher *fetch.Fetcher
	store   *db.Store // nil when persistence is disabled
	logger  *zap.Logger
}

// NewActivities creates a new activities instance with dependencies
func NewActivities(oc *oracle.Client, sx *searx.Client, f *fetch.Fetcher, store *db.Store, logger *zap.Logger) *Activities {
	return &Activities{
		oracle:  oc,
		searx:   sx,
		fetcher: f,
		store:   store,
		logger:  logger,
	}
}
