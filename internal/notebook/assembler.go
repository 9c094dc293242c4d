// Package notebook synchronizes research records with folders and entries
// in the external lab notebook service.
package notebook

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/elnsync/internal/client"
	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/paging"
)

// DefaultMaxDepth bounds how deep Assemble descends below the root folder.
const DefaultMaxDepth = 64

// NoLimit disables a page or depth guard.
const NoLimit = -1

// Assembler builds folder trees by listing each folder's children.
type Assembler struct {
	client      client.NotebookClient
	maxPages    int
	maxDepth    int
	concurrency int
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithMaxDepth limits the tree depth; the root is depth 0.
func WithMaxDepth(n int) AssemblerOption {
	return func(a *Assembler) { a.maxDepth = n }
}

// WithConcurrency sets how many sibling subtrees are fetched at once.
// Values below 2 fetch sequentially.
func WithConcurrency(n int) AssemblerOption {
	return func(a *Assembler) { a.concurrency = n }
}

// WithMaxPages bounds each children listing.
func WithMaxPages(n int) AssemblerOption {
	return func(a *Assembler) { a.maxPages = n }
}

// NewAssembler creates an Assembler reading folders through c.
func NewAssembler(c client.NotebookClient, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		client:      c,
		maxPages:    paging.DefaultMaxPages,
		maxDepth:    DefaultMaxDepth,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the tree under root and attaches each entry to the folder
// whose id equals the entry's FolderID. Entries keep their input order.
// Entries outside the tree are ignored.
func (a *Assembler) Assemble(ctx context.Context, root *model.Folder, entries []*model.Entry) (*model.FolderTree, error) {
	return a.build(ctx, root, groupByFolder(entries), true, nil, 0)
}

// AssembleShallow builds the folder structure under root without entries.
func (a *Assembler) AssembleShallow(ctx context.Context, root *model.Folder) (*model.FolderTree, error) {
	return a.build(ctx, root, nil, false, nil, 0)
}

func groupByFolder(entries []*model.Entry) map[string][]*model.Entry {
	byFolder := make(map[string][]*model.Entry)
	for _, e := range entries {
		if e == nil {
			continue
		}
		byFolder[e.FolderID] = append(byFolder[e.FolderID], e)
	}
	return byFolder
}

// ancestry is an immutable linked list of the folder ids above a node, so
// concurrent branches can share a prefix.
type ancestry struct {
	id     string
	parent *ancestry
}

func (p *ancestry) contains(id string) bool {
	for n := p; n != nil; n = n.parent {
		if n.id == id {
			return true
		}
	}
	return false
}

func (a *Assembler) build(ctx context.Context, folder *model.Folder, byFolder map[string][]*model.Entry, withEntries bool, above *ancestry, depth int) (*model.FolderTree, error) {
	if folder == nil {
		return nil, fmt.Errorf("%w: nil folder", model.ErrMalformedEntity)
	}
	if a.maxDepth > 0 && depth > a.maxDepth {
		return nil, fmt.Errorf("%w: folder %s is deeper than %d levels", model.ErrLimitExceeded, folder.ID, a.maxDepth)
	}

	node := &model.FolderTree{Folder: folder}
	if withEntries {
		node.Entries = byFolder[folder.ID]
	}

	children, err := paging.FetchAll(ctx, func(ctx context.Context, cursor string) ([]*model.Folder, string, error) {
		return a.client.ListFolders(ctx, client.FolderFilter{ParentFolderID: folder.ID}, cursor)
	}, paging.WithMaxPages(a.maxPages))
	if err != nil {
		return nil, fmt.Errorf("list children of folder %s: %w", folder.ID, err)
	}
	if len(children) == 0 {
		return node, nil
	}

	path := &ancestry{id: folder.ID, parent: above}
	for _, child := range children {
		if child == nil {
			return nil, fmt.Errorf("%w: nil child of folder %s", model.ErrMalformedEntity, folder.ID)
		}
		if path.contains(child.ID) {
			return nil, fmt.Errorf("%w: folder %s is its own ancestor", model.ErrCycleDetected, child.ID)
		}
	}

	node.Children = make([]*model.FolderTree, len(children))
	if a.concurrency < 2 || len(children) < 2 {
		for i, child := range children {
			sub, err := a.build(ctx, child, byFolder, withEntries, path, depth+1)
			if err != nil {
				return nil, err
			}
			node.Children[i] = sub
		}
		return node, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, child := range children {
		g.Go(func() error {
			sub, err := a.build(gctx, child, byFolder, withEntries, path, depth+1)
			if err != nil {
				return err
			}
			node.Children[i] = sub
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return node, nil
}
