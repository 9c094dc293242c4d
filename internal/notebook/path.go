package notebook

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alfredjeanlab/elnsync/internal/client"
	"github.com/alfredjeanlab/elnsync/internal/model"
)

// PathResolver derives display paths such as "/Oncology/ST-1 Tox/AS-7 ELISA".
type PathResolver struct {
	client client.NotebookClient
	logger *slog.Logger
}

// NewPathResolver creates a PathResolver reading projects through c.
func NewPathResolver(c client.NotebookClient, logger *slog.Logger) *PathResolver {
	return &PathResolver{client: c, logger: logger}
}

// ProjectSegment returns "<project name>/" for the folder's project. Any
// failure yields "" and is logged, never returned.
func (r *PathResolver) ProjectSegment(ctx context.Context, folder *model.Folder) string {
	if folder == nil || strings.TrimSpace(folder.ProjectID) == "" {
		return ""
	}
	p, err := r.client.GetProject(ctx, folder.ProjectID)
	if err != nil {
		r.logger.Warn("resolving folder project", "folder", folder.ID, "project", folder.ProjectID, "err", err)
		return ""
	}
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return ""
	}
	return p.Name + "/"
}

// Resolve returns the full path for folder followed by the owner names.
func (r *PathResolver) Resolve(ctx context.Context, folder *model.Folder, names ...string) string {
	return BuildPath(r.ProjectSegment(ctx, folder), names...)
}

// BuildPath joins a project segment and record names into "/<segment><a>/<b>".
// Blank names are skipped.
func BuildPath(segment string, names ...string) string {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			parts = append(parts, n)
		}
	}
	return "/" + segment + strings.Join(parts, "/")
}
