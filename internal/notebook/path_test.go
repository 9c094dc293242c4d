package notebook

import (
	"context"
	"testing"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

func TestBuildPath(t *testing.T) {
	tests := []struct {
		segment string
		names   []string
		want    string
	}{
		{"Oncology/", []string{"Study A"}, "/Oncology/Study A"},
		{"Oncology/", []string{"Study A", "Assay 1"}, "/Oncology/Study A/Assay 1"},
		{"", []string{"Study A"}, "/Study A"},
		{"Oncology/", []string{"", "Assay 1"}, "/Oncology/Assay 1"},
		{"Oncology/", nil, "/Oncology/"},
	}
	for _, tt := range tests {
		if got := BuildPath(tt.segment, tt.names...); got != tt.want {
			t.Errorf("BuildPath(%q, %q) = %q, want %q", tt.segment, tt.names, got, tt.want)
		}
	}
}

func TestPathResolver_ProjectSegment(t *testing.T) {
	f := &fakeELN{projects: []*model.Project{{ID: "src_1", Name: "Oncology"}}}
	r := NewPathResolver(newFakeClient(t, f), testLogger())
	ctx := context.Background()

	if got := r.ProjectSegment(ctx, &model.Folder{ID: "lib_1", ProjectID: "src_1"}); got != "Oncology/" {
		t.Errorf("segment = %q, want Oncology/", got)
	}
	if got := r.Resolve(ctx, &model.Folder{ID: "lib_1", ProjectID: "src_1"}, "ST-1", "AS-7"); got != "/Oncology/ST-1/AS-7" {
		t.Errorf("Resolve = %q", got)
	}
}

func TestPathResolver_UnresolvableProject(t *testing.T) {
	f := &fakeELN{}
	r := NewPathResolver(newFakeClient(t, f), testLogger())
	ctx := context.Background()

	if got := r.ProjectSegment(ctx, &model.Folder{ID: "lib_1", ProjectID: "missing"}); got != "" {
		t.Errorf("segment = %q, want empty", got)
	}
	if got := r.Resolve(ctx, &model.Folder{ID: "lib_1", ProjectID: "missing"}, "ST-1"); got != "/ST-1" {
		t.Errorf("Resolve = %q, want /ST-1", got)
	}

	before := len(f.requestLog())
	if got := r.ProjectSegment(ctx, &model.Folder{ID: "lib_1"}); got != "" {
		t.Errorf("segment = %q, want empty", got)
	}
	if after := len(f.requestLog()); after != before {
		t.Errorf("folder without project made %d requests", after-before)
	}
}
