package idgen

import (
	"regexp"
	"testing"
)

func TestFolderRefID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^fr-[0-9a-z]{12}$`)
	for i := 0; i < 100; i++ {
		id, err := FolderRefID()
		if err != nil {
			t.Fatalf("FolderRefID() error on iteration %d: %v", i, err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("FolderRefID() = %q, does not match %s", id, pattern)
		}
		if !Valid(id, FolderRefPrefix) {
			t.Fatalf("Valid(%q) = false", id)
		}
	}
}

func TestFolderRefID_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := FolderRefID()
		if err != nil {
			t.Fatalf("FolderRefID() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestWithPrefix(t *testing.T) {
	id, err := WithPrefix("req-")
	if err != nil {
		t.Fatalf("WithPrefix error: %v", err)
	}
	if len(id) != len("req-")+Length {
		t.Errorf("len = %d, want %d (id=%q)", len(id), len("req-")+Length, id)
	}
	if !Valid(id, "req-") {
		t.Errorf("Valid(%q, req-) = false", id)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"fr-abcdefghijkl", true},
		{"fr-0123456789ab", true},
		{"fr-ABCDEFGHIJKL", false},
		{"fr-abc", false},
		{"xx-abcdefghijkl", false},
		{"fr-abcdefghijk_", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.id, FolderRefPrefix); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
