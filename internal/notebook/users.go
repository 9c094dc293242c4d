package notebook

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/elnsync/internal/client"
	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/paging"
)

// UserResolver maps directory users to notebook accounts by email. The
// handle-filtered listing is tried first; only when it returns nothing is
// the full user listing scanned.
type UserResolver struct {
	client   client.NotebookClient
	maxPages int
	ttl      time.Duration
	now      func() time.Time

	mu        sync.Mutex
	snapshot  []*model.ExternalUser
	fetchedAt time.Time
}

// UserResolverOption configures a UserResolver.
type UserResolverOption func(*UserResolver)

// WithDirectoryTTL keeps the full user listing for ttl instead of fetching
// it on every fallback. Zero disables the snapshot.
func WithDirectoryTTL(ttl time.Duration) UserResolverOption {
	return func(r *UserResolver) { r.ttl = ttl }
}

// WithUserMaxPages bounds each user listing.
func WithUserMaxPages(n int) UserResolverOption {
	return func(r *UserResolver) { r.maxPages = n }
}

// NewUserResolver creates a UserResolver reading users through c.
func NewUserResolver(c client.NotebookClient, opts ...UserResolverOption) *UserResolver {
	r := &UserResolver{
		client:   c,
		maxPages: paging.DefaultMaxPages,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds the notebook account for u. A user that cannot be matched
// yields (nil, false, nil); listing failures are returned.
func (r *UserResolver) Resolve(ctx context.Context, u model.User) (*model.ExternalUser, bool, error) {
	if strings.TrimSpace(u.Email) == "" {
		return nil, false, nil
	}

	if strings.TrimSpace(u.Username) != "" {
		byHandle, err := r.list(ctx, client.UserFilter{Handle: u.Username})
		if err != nil {
			return nil, false, err
		}
		if len(byHandle) > 0 {
			m := matchEmail(byHandle, u.Email)
			return m, m != nil, nil
		}
	}

	all, err := r.directory(ctx)
	if err != nil {
		return nil, false, err
	}
	m := matchEmail(all, u.Email)
	return m, m != nil, nil
}

// Invalidate drops the directory snapshot.
func (r *UserResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = nil
	r.fetchedAt = time.Time{}
}

func (r *UserResolver) list(ctx context.Context, filter client.UserFilter) ([]*model.ExternalUser, error) {
	return paging.FetchAll(ctx, func(ctx context.Context, cursor string) ([]*model.ExternalUser, string, error) {
		return r.client.ListUsers(ctx, filter, cursor)
	}, paging.WithMaxPages(r.maxPages))
}

func (r *UserResolver) directory(ctx context.Context) ([]*model.ExternalUser, error) {
	if r.ttl <= 0 {
		return r.list(ctx, client.UserFilter{})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot != nil && r.now().Sub(r.fetchedAt) < r.ttl {
		return r.snapshot, nil
	}
	users, err := r.list(ctx, client.UserFilter{})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*model.ExternalUser{}
	}
	r.snapshot = users
	r.fetchedAt = r.now()
	return users, nil
}

// matchEmail returns the first user whose email equals email, ignoring case.
func matchEmail(users []*model.ExternalUser, email string) *model.ExternalUser {
	email = strings.TrimSpace(email)
	for _, u := range users {
		if u != nil && strings.EqualFold(strings.TrimSpace(u.Email), email) {
			return u
		}
	}
	return nil
}
