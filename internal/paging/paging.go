// Package paging drains cursor-paginated list endpoints.
package paging

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

// DefaultMaxPages bounds FetchAll when no explicit limit is given.
const DefaultMaxPages = 10000

// PageFunc fetches one page starting at cursor. An empty cursor requests
// the first page; an empty next cursor means there are no more pages.
type PageFunc[T any] func(ctx context.Context, cursor string) (items []T, next string, err error)

type options struct {
	maxPages int
}

// Option configures FetchAll.
type Option func(*options)

// WithMaxPages limits the number of pages requested. n <= 0 removes the
// limit, in which case a server that never ends its cursor loops forever.
func WithMaxPages(n int) Option {
	return func(o *options) { o.maxPages = n }
}

// FetchAll calls fetch until the cursor runs out and returns every item in
// page order. Any page error aborts the walk and nothing is returned.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T], opts ...Option) ([]T, error) {
	o := options{maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		all    []T
		cursor string
	)
	for page := 1; ; page++ {
		if o.maxPages > 0 && page > o.maxPages {
			return nil, fmt.Errorf("%w: more than %d pages", model.ErrLimitExceeded, o.maxPages)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, next, err := fetch(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}
