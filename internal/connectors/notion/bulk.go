package notion

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/connect-cli/internal/logger"
)

// DefaultBatchSize is the number of pages updated concurrently.
// Notion does not publish a per-integration concurrency limit.
const DefaultBatchSize = 3

// BulkUpdateRequest describes a bulk property update.
type BulkUpdateRequest struct {
	// PageIDs lists explicit targets. When empty, DatabaseID is queried.
	PageIDs []string
	// DatabaseID selects rows of a database, narrowed by Filter.
	DatabaseID string
	// Filter is a filter expression (see ParseFilter).
	Filter string
	// Set holds "name=value" assignments converted with the schema.
	Set []string
	// Properties holds typed values applied as given.
	Properties map[string]PropertyValue
	// BatchSize bounds concurrent updates; DefaultBatchSize when <= 0.
	BatchSize int
	// DryRun resolves targets without updating them.
	DryRun bool
}

// BulkError records one failed page.
type BulkError struct {
	PageID string `json:"page_id"`
	Error  string `json:"error"`
}

// BulkResult summarises a bulk update. Updated and Errors follow the order
// of the resolved targets.
type BulkResult struct {
	Total   int         `json:"total"`
	Success int         `json:"success"`
	Failed  int         `json:"failed"`
	DryRun  bool        `json:"dry_run,omitempty"`
	Targets []string    `json:"targets,omitempty"`
	Updated []string    `json:"updated"`
	Errors  []BulkError `json:"errors"`
}

// bulkAccumulator collects per-page outcomes from concurrent updates.
type bulkAccumulator struct {
	mu       sync.Mutex
	outcomes []error
}

func (a *bulkAccumulator) record(i int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomes[i] = err
}

// BulkUpdate applies the same property changes to many pages. Individual
// failures are reported in the result; an error is returned only when the
// targets or the updates cannot be resolved, or the context is cancelled.
func (c *Client) BulkUpdate(ctx context.Context, req BulkUpdateRequest) (*BulkResult, error) {
	if len(req.PageIDs) == 0 && req.DatabaseID == "" {
		return nil, ErrNoTargets
	}
	if len(req.Set) == 0 && len(req.Properties) == 0 && !req.DryRun {
		return nil, ErrNoUpdates
	}

	var schema Schema
	if req.DatabaseID != "" {
		db, err := c.Databases.Get(ctx, req.DatabaseID)
		if err != nil {
			return nil, err
		}
		schema = db.Properties
	}

	targets, err := c.resolveTargets(ctx, req, schema)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Total: len(targets), DryRun: req.DryRun, Updated: []string{}, Errors: []BulkError{}}
	if req.DryRun || len(targets) == 0 {
		result.Targets = targets
		return result, nil
	}

	if schema == nil && len(req.Set) > 0 {
		page, err := c.Pages.Get(ctx, targets[0])
		if err != nil {
			return nil, err
		}
		schema = page.Schema()
	}

	props, err := buildUpdates(req, schema)
	if err != nil {
		return nil, err
	}

	acc := c.runBatches(ctx, targets, props, req.BatchSize)

	for i, id := range targets {
		if outcome := acc.outcomes[i]; outcome != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkError{PageID: id, Error: outcome.Error()})
			continue
		}
		result.Success++
		result.Updated = append(result.Updated, id)
	}
	return result, ctx.Err()
}

func (c *Client) resolveTargets(ctx context.Context, req BulkUpdateRequest, schema Schema) ([]string, error) {
	if len(req.PageIDs) > 0 {
		return req.PageIDs, nil
	}

	q := QueryRequest{}
	if strings.TrimSpace(req.Filter) != "" {
		filter, err := ParseFilter(req.Filter, schema)
		if err != nil {
			return nil, err
		}
		q.Filter = filter
	}
	pages, err := c.Databases.QueryAll(ctx, req.DatabaseID, q)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}
	return ids, nil
}

func buildUpdates(req BulkUpdateRequest, schema Schema) (map[string]PropertyValue, error) {
	props := make(map[string]PropertyValue, len(req.Set)+len(req.Properties))
	for name, v := range req.Properties {
		props[name] = v
	}
	for _, assignment := range req.Set {
		name, value, ok := strings.Cut(assignment, "=")
		if !ok {
			return nil, fmt.Errorf("notion: invalid assignment %q, expected name=value", assignment)
		}
		name = strings.TrimSpace(name)
		v, err := schema.BuildValue(name, strings.TrimSpace(value))
		if err != nil {
			return nil, err
		}
		props[name] = v
	}
	return props, nil
}

// runBatches updates targets in consecutive batches. Pages within a batch
// are updated concurrently; the next batch starts when the previous ends.
func (c *Client) runBatches(ctx context.Context, targets []string, props map[string]PropertyValue, size int) *bulkAccumulator {
	if size <= 0 {
		size = DefaultBatchSize
	}
	acc := &bulkAccumulator{outcomes: make([]error, len(targets))}

	for start := 0; start < len(targets); start += size {
		end := min(start+size, len(targets))
		if err := ctx.Err(); err != nil {
			for i := start; i < len(targets); i++ {
				acc.record(i, err)
			}
			break
		}

		logger.Debug("bulk update batch %d-%d of %d", start+1, end, len(targets))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				_, err := c.Pages.Update(ctx, targets[i], UpdatePageRequest{Properties: props})
				acc.record(i, err)
				return nil
			})
		}
		_ = g.Wait()
	}
	return acc
}
