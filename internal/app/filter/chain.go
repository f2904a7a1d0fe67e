package filter

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the request or fails.
// Filters are only applied if they declare they apply to the song.
func (c *Chain) Execute(ctx context.Context, req Request) (Result, error) {
	for _, f := range c.filters {
		if !f.AppliesTo(req.Song) {
			continue
		}

		result, err := f.Check(ctx, req)
		if err != nil {
			return Result{}, errors.Wrapf(err, "filter %s failed", f.Name())
		}
		if !result.Accepted {
			return result, nil
		}
	}
	return Accept(), nil
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
