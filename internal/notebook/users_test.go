package notebook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

func directoryELN() *fakeELN {
	return &fakeELN{
		pageSize: 2,
		users: []*model.ExternalUser{
			{ID: "ent_1", Handle: "alice", Email: "alice@example.com"},
			{ID: "ent_2", Handle: "bob", Email: "bob@example.com"},
			{ID: "ent_3", Handle: "carol-eln", Email: "Carol@Example.com"},
			{ID: "ent_4", Handle: "dave", Email: "dave@example.com"},
			{ID: "ent_5", Handle: "erin", Email: "erin@example.com"},
		},
	}
}

func TestUserResolver_HandleMatch(t *testing.T) {
	f := directoryELN()
	r := NewUserResolver(newFakeClient(t, f))

	u, ok, err := r.Resolve(context.Background(), model.User{Username: "alice", Email: "alice@example.com"})
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v, %v", u, ok, err)
	}
	if u.ID != "ent_1" {
		t.Errorf("ID = %q, want ent_1", u.ID)
	}
	if n := f.countRequests("GET /api/v2/users"); n != 1 {
		t.Errorf("user requests = %d, want 1", n)
	}
}

func TestUserResolver_FallbackToFullListing(t *testing.T) {
	f := directoryELN()
	r := NewUserResolver(newFakeClient(t, f))

	// No external handle "carol", so the handle query returns nothing.
	u, ok, err := r.Resolve(context.Background(), model.User{Username: "carol", Email: "carol@example.com"})
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v, %v", u, ok, err)
	}
	if u.ID != "ent_3" {
		t.Errorf("ID = %q, want ent_3", u.ID)
	}
	// One handle query plus three pages of the full listing.
	if n := f.countRequests("GET /api/v2/users?handles=carol"); n != 1 {
		t.Errorf("handle requests = %d, want 1", n)
	}
	if n := f.countRequests("GET /api/v2/users"); n != 4 {
		t.Errorf("user requests = %d, want 4", n)
	}
}

func TestUserResolver_UnreliableHandleFilter(t *testing.T) {
	f := directoryELN()
	f.ignoreHandles = true
	r := NewUserResolver(newFakeClient(t, f))

	u, ok, err := r.Resolve(context.Background(), model.User{Username: "erin", Email: "erin@example.com"})
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v, %v", u, ok, err)
	}
	if u.ID != "ent_5" {
		t.Errorf("ID = %q, want ent_5", u.ID)
	}
}

func TestUserResolver_HandleResultsWithoutEmailMatch(t *testing.T) {
	f := directoryELN()
	r := NewUserResolver(newFakeClient(t, f))

	u, ok, err := r.Resolve(context.Background(), model.User{Username: "bob", Email: "robert@example.com"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok || u != nil {
		t.Errorf("Resolve = %v, %v; want not found", u, ok)
	}
	if n := f.countRequests("GET /api/v2/users"); n != 1 {
		t.Errorf("user requests = %d, want 1 (no fallback)", n)
	}
}

func TestUserResolver_NotFound(t *testing.T) {
	f := directoryELN()
	r := NewUserResolver(newFakeClient(t, f))

	u, ok, err := r.Resolve(context.Background(), model.User{Username: "zed", Email: "zed@example.com"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok || u != nil {
		t.Errorf("Resolve = %v, %v; want not found", u, ok)
	}
}

func TestUserResolver_ListingErrorPropagates(t *testing.T) {
	f := directoryELN()
	f.failUsers = true
	r := NewUserResolver(newFakeClient(t, f))

	_, _, err := r.Resolve(context.Background(), model.User{Username: "alice", Email: "alice@example.com"})
	if !errors.Is(err, model.ErrExternalService) {
		t.Fatalf("err = %v, want ErrExternalService", err)
	}
}

func TestUserResolver_DirectorySnapshot(t *testing.T) {
	f := directoryELN()
	f.pageSize = 0
	r := NewUserResolver(newFakeClient(t, f), WithDirectoryTTL(time.Minute))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	ctx := context.Background()

	for _, u := range []model.User{
		{Username: "carol", Email: "carol@example.com"},
		{Username: "nobody", Email: "dave@example.com"},
	} {
		if _, ok, err := r.Resolve(ctx, u); err != nil || !ok {
			t.Fatalf("Resolve(%s) = %v, %v", u.Username, ok, err)
		}
	}
	if n := f.countRequests("GET /api/v2/users?"); n != 2 {
		t.Errorf("handle requests = %d, want 2", n)
	}
	if n := f.countRequests("GET /api/v2/users"); n != 3 {
		t.Errorf("user requests = %d, want 3 (one full listing)", n)
	}

	now = now.Add(2 * time.Minute)
	if _, _, err := r.Resolve(ctx, model.User{Username: "nobody", Email: "bob@example.com"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if n := f.countRequests("GET /api/v2/users"); n != 5 {
		t.Errorf("user requests = %d, want 5 after expiry", n)
	}
}

func TestUserResolver_Invalidate(t *testing.T) {
	f := directoryELN()
	f.pageSize = 0
	r := NewUserResolver(newFakeClient(t, f), WithDirectoryTTL(time.Hour))
	ctx := context.Background()
	u := model.User{Username: "nobody", Email: "dave@example.com"}

	if _, _, err := r.Resolve(ctx, u); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, _, err := r.Resolve(ctx, u); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	full := f.countRequests("GET /api/v2/users") - f.countRequests("GET /api/v2/users?")
	if full != 1 {
		t.Fatalf("full listings = %d, want 1 while cached", full)
	}

	r.Invalidate()
	if _, ok, err := r.Resolve(ctx, u); err != nil || !ok {
		t.Fatalf("Resolve after Invalidate = %v, %v", ok, err)
	}
	full = f.countRequests("GET /api/v2/users") - f.countRequests("GET /api/v2/users?")
	if full != 2 {
		t.Errorf("full listings = %d, want 2 after Invalidate", full)
	}
}

func TestUserResolver_BlankEmail(t *testing.T) {
	f := directoryELN()
	r := NewUserResolver(newFakeClient(t, f))

	_, ok, err := r.Resolve(context.Background(), model.User{Username: "alice"})
	if err != nil || ok {
		t.Fatalf("Resolve = %v, %v; want not found", ok, err)
	}
	if n := len(f.requestLog()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestMatchEmail(t *testing.T) {
	users := directoryELN().users
	for _, tc := range []struct {
		email string
		want  string
	}{
		{"dave@example.com", "ent_4"},
		{"carol@example.com", "ent_3"},
		{"  BOB@example.com ", "ent_2"},
		{"bob@example.org", ""},
		{"", ""},
	} {
		got := matchEmail(users, tc.email)
		var id string
		if got != nil {
			id = got.ID
		}
		if id != tc.want {
			t.Errorf("matchEmail(%q) = %q, want %q", tc.email, id, tc.want)
		}
	}
}
