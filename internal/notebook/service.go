package notebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/elnsync/internal/client"
	"github.com/alfredjeanlab/elnsync/internal/events"
	"github.com/alfredjeanlab/elnsync/internal/idgen"
	"github.com/alfredjeanlab/elnsync/internal/model"
	"github.com/alfredjeanlab/elnsync/internal/paging"
	"github.com/alfredjeanlab/elnsync/internal/store"
)

// SyncState is the outcome of a folder lookup-or-create.
type SyncState string

const (
	StateFound   SyncState = "found"
	StateCreated SyncState = "created"
)

// FolderResult is returned by CreateFolderForRecord. Folder is nil when an
// existing reference was found.
type FolderResult struct {
	Ref    *model.FolderRef `json:"ref"`
	Folder *model.Folder    `json:"folder,omitempty"`
	State  SyncState        `json:"state"`
}

// Config holds the Service settings.
type Config struct {
	// Tenant is the notebook's display host, e.g. "acme.notebook.example".
	// It only builds folder URLs.
	Tenant string

	// ProgramFolderID is the pre-existing folder used for programs whose
	// record carries no FolderID.
	ProgramFolderID string

	// MaxPages and MaxDepth bound listings and tree depth. Zero selects
	// the package default; NoLimit removes the guard.
	MaxPages     int
	MaxDepth     int
	Concurrency  int
	DirectoryTTL time.Duration

	// Namer names new folders and entries. Defaults to CodeNamer.
	Namer Namer
}

// Service links research records to notebook folders and writes entries
// into them. It never updates or deletes remote folders or entries.
type Service struct {
	client    client.NotebookClient
	store     store.Store
	publisher events.Publisher
	namer     Namer
	assembler *Assembler
	paths     *PathResolver
	users     *UserResolver
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires a Service. A nil publisher disables events.
func NewService(c client.NotebookClient, st store.Store, pub events.Publisher, cfg Config, logger *slog.Logger) *Service {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = paging.DefaultMaxPages
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	namer := cfg.Namer
	if namer == nil {
		namer = CodeNamer
	}
	return &Service{
		client:    c,
		store:     st,
		publisher: pub,
		namer:     namer,
		assembler: NewAssembler(c,
			WithMaxPages(cfg.MaxPages),
			WithMaxDepth(cfg.MaxDepth),
			WithConcurrency(cfg.Concurrency),
		),
		paths: NewPathResolver(c, logger),
		users: NewUserResolver(c,
			WithUserMaxPages(cfg.MaxPages),
			WithDirectoryTTL(cfg.DirectoryTTL),
		),
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Users returns the resolver used for entry authors.
func (s *Service) Users() *UserResolver { return s.users }

// Ref returns the folder reference for a record, or ErrNotConfigured.
func (s *Service) Ref(ctx context.Context, kind model.RecordKind, recordID string) (*model.FolderRef, error) {
	ref, err := s.store.GetFolderRef(ctx, kind, recordID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %s", model.ErrNotConfigured, kind, recordID)
	}
	if err != nil {
		return nil, fmt.Errorf("get folder ref for %s %s: %w", kind, recordID, err)
	}
	if !ref.IsConfigured() {
		return nil, fmt.Errorf("%w: %s %s", model.ErrNotConfigured, kind, recordID)
	}
	return ref, nil
}

// FindFolder looks up the folder a reference points at, without assembly.
func (s *Service) FindFolder(ctx context.Context, ref *model.FolderRef) (*model.Folder, error) {
	if !ref.IsConfigured() {
		return nil, model.ErrNotConfigured
	}
	folder, err := s.client.GetFolder(ctx, ref.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("get folder %s: %w", ref.ExternalID, err)
	}
	return folder, nil
}

// FindFolderForRecord looks up the folder linked to a record.
func (s *Service) FindFolderForRecord(ctx context.Context, kind model.RecordKind, recordID string) (*model.Folder, error) {
	ref, err := s.Ref(ctx, kind, recordID)
	if err != nil {
		return nil, err
	}
	return s.FindFolder(ctx, ref)
}

// FindFullFolder assembles the folder a reference points at with every
// entry of its project attached, and sets the tree's display path from the
// project name followed by ownerNames.
func (s *Service) FindFullFolder(ctx context.Context, ref *model.FolderRef, ownerNames ...string) (*model.FolderTree, error) {
	folder, err := s.FindFolder(ctx, ref)
	if err != nil {
		return nil, err
	}
	entries, err := paging.FetchAll(ctx, func(ctx context.Context, cursor string) ([]*model.Entry, string, error) {
		return s.client.ListEntries(ctx, client.EntryFilter{ProjectID: folder.ProjectID}, cursor)
	}, paging.WithMaxPages(s.cfg.MaxPages))
	if err != nil {
		return nil, fmt.Errorf("list entries of project %s: %w", folder.ProjectID, err)
	}
	tree, err := s.assembler.Assemble(ctx, folder, entries)
	if err != nil {
		return nil, fmt.Errorf("assemble folder %s: %w", folder.ID, err)
	}
	tree.Path = s.paths.Resolve(ctx, folder, ownerNames...)
	return tree, nil
}

// FindFullFolderForRecord is FindFullFolder for the record's stored reference.
func (s *Service) FindFullFolderForRecord(ctx context.Context, r *model.Record) (*model.FolderTree, error) {
	if err := checkRecord(r); err != nil {
		return nil, err
	}
	ref, err := s.Ref(ctx, r.Kind, r.ID)
	if err != nil {
		return nil, err
	}
	return s.FindFullFolder(ctx, ref, OwnerNames(r)...)
}

// CreateFolderForRecord returns the record's existing folder reference or
// creates one. Programs link a pre-existing folder; studies and assays get
// a new folder under their parent's folder.
func (s *Service) CreateFolderForRecord(ctx context.Context, r *model.Record) (*FolderResult, error) {
	if err := checkRecord(r); err != nil {
		return nil, err
	}

	existing, err := s.store.GetFolderRef(ctx, r.Kind, r.ID)
	switch {
	case err == nil && existing.IsConfigured():
		return &FolderResult{Ref: existing, State: StateFound}, nil
	case err != nil && !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("get folder ref for %s %s: %w", r.Kind, r.ID, err)
	case err != nil:
		existing = nil
	}

	var (
		folder *model.Folder
		topic  string
	)
	if r.Kind == model.RecordProgram {
		folder, err = s.linkProgramFolder(ctx, r)
		topic = events.TopicFolderLinked
	} else {
		folder, err = s.createChildFolder(ctx, r)
		topic = events.TopicFolderCreated
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ref := &model.FolderRef{
		RecordKind: r.Kind,
		RecordID:   r.ID,
		ExternalID: folder.ID,
		Name:       folder.Name,
		URL:        s.folderURL(folder.ID),
		Path:       s.paths.Resolve(ctx, folder, OwnerNames(r)...),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing != nil {
		ref.ID = existing.ID
		ref.CreatedAt = existing.CreatedAt
		err = s.store.UpdateFolderRef(ctx, ref)
	} else {
		if ref.ID, err = idgen.FolderRefID(); err != nil {
			return nil, err
		}
		err = s.store.CreateFolderRef(ctx, ref)
	}
	if err != nil {
		s.logger.Error("folder created but reference not saved",
			"record_kind", r.Kind, "record_id", r.ID, "folder", folder.ID, "err", err)
		return nil, fmt.Errorf("save folder ref for %s %s: %w", r.Kind, r.ID, err)
	}

	var event any = events.FolderCreated{Ref: ref, Folder: folder}
	if topic == events.TopicFolderLinked {
		event = events.FolderLinked{Ref: ref, Folder: folder}
	}
	s.publish(ctx, topic, event)
	return &FolderResult{Ref: ref, Folder: folder, State: StateCreated}, nil
}

// linkProgramFolder confirms the program's pre-existing folder. Programs
// cannot be created remotely, so a missing folder id fails before any
// request is made.
func (s *Service) linkProgramFolder(ctx context.Context, r *model.Record) (*model.Folder, error) {
	folderID := strings.TrimSpace(r.FolderID)
	if folderID == "" {
		folderID = strings.TrimSpace(s.cfg.ProgramFolderID)
	}
	if folderID == "" {
		return nil, fmt.Errorf("%w: program %s has no pre-existing notebook folder", model.ErrMalformedEntity, r.ID)
	}
	folder, err := s.client.GetFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("get program folder %s: %w", folderID, err)
	}
	if _, err := s.assembler.AssembleShallow(ctx, folder); err != nil {
		return nil, fmt.Errorf("confirm program folder %s: %w", folderID, err)
	}
	return folder, nil
}

func (s *Service) createChildFolder(ctx context.Context, r *model.Record) (*model.Folder, error) {
	parentKind := model.RecordProgram
	if r.Kind == model.RecordAssay {
		parentKind = model.RecordStudy
	}
	parent := r.Ancestor(parentKind)
	if parent == nil {
		return nil, fmt.Errorf("%w: %s %s has no parent %s", model.ErrMalformedEntity, r.Kind, r.ID, parentKind)
	}
	parentRef, err := s.Ref(ctx, parentKind, parent.ID)
	if err != nil {
		return nil, err
	}
	folder, err := s.client.CreateFolder(ctx, &client.CreateFolderRequest{
		Name:           s.namer.FolderName(r),
		ParentFolderID: parentRef.ExternalID,
	})
	if err != nil {
		return nil, fmt.Errorf("create folder for %s %s: %w", r.Kind, r.ID, err)
	}
	return folder, nil
}

// RepairFolderRef points a record's reference at folderID, creating the
// reference if it does not exist. It is the only way to re-point one.
func (s *Service) RepairFolderRef(ctx context.Context, kind model.RecordKind, recordID, folderID string, ownerNames ...string) (*model.FolderRef, error) {
	if !kind.IsValid() || strings.TrimSpace(recordID) == "" {
		return nil, fmt.Errorf("%w: record kind and id are required", model.ErrMalformedEntity)
	}
	if strings.TrimSpace(folderID) == "" {
		return nil, fmt.Errorf("%w: folder id is required", model.ErrMalformedEntity)
	}
	folder, err := s.client.GetFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("get folder %s: %w", folderID, err)
	}
	if len(ownerNames) == 0 {
		ownerNames = []string{folder.Name}
	}

	now := s.now().UTC()
	ref, err := s.store.GetFolderRef(ctx, kind, recordID)
	create := errors.Is(err, model.ErrNotFound)
	if err != nil && !create {
		return nil, fmt.Errorf("get folder ref for %s %s: %w", kind, recordID, err)
	}
	var previous string
	if create {
		id, err := idgen.FolderRefID()
		if err != nil {
			return nil, err
		}
		ref = &model.FolderRef{ID: id, RecordKind: kind, RecordID: recordID, CreatedAt: now}
	} else {
		previous = ref.ExternalID
	}
	ref.ExternalID = folder.ID
	ref.Name = folder.Name
	ref.URL = s.folderURL(folder.ID)
	ref.Path = s.paths.Resolve(ctx, folder, ownerNames...)
	ref.UpdatedAt = now

	if create {
		err = s.store.CreateFolderRef(ctx, ref)
	} else {
		err = s.store.UpdateFolderRef(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("save folder ref for %s %s: %w", kind, recordID, err)
	}
	s.publish(ctx, events.TopicFolderRepair, events.FolderRepaired{Ref: ref, PreviousFolderID: previous})
	return ref, nil
}

// CreateEntryForRecord creates an entry in the record's folder. Team
// members who cannot be matched to a notebook account are logged and left
// out of the author list; lookup errors abort the call.
func (s *Service) CreateEntryForRecord(ctx context.Context, r *model.Record, templateID string) (*model.Entry, error) {
	if err := checkRecord(r); err != nil {
		return nil, err
	}
	ref, err := s.Ref(ctx, r.Kind, r.ID)
	if err != nil {
		return nil, err
	}

	var (
		authorIDs  []string
		unresolved []string
		seen       = make(map[string]bool)
	)
	for _, member := range r.Team() {
		u, ok, err := s.users.Resolve(ctx, member)
		if err != nil {
			return nil, fmt.Errorf("resolve author %s: %w", member.Username, err)
		}
		if !ok {
			s.logger.Warn("no notebook account for team member",
				"record_kind", r.Kind, "record_id", r.ID, "username", member.Username, "email", member.Email)
			unresolved = append(unresolved, member.Username)
			continue
		}
		if !seen[u.ID] {
			seen[u.ID] = true
			authorIDs = append(authorIDs, u.ID)
		}
	}

	var schema *model.AssayTypeSchema
	if r.Kind == model.RecordAssay && strings.TrimSpace(r.AssayType) != "" {
		schema, err = s.store.GetSchema(ctx, r.AssayType)
		if errors.Is(err, model.ErrNotFound) {
			s.logger.Warn("assay type schema not found, using field names", "assay_type", r.AssayType, "record_id", r.ID)
			schema, err = nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get schema %q: %w", r.AssayType, err)
		}
	}

	entry, err := s.client.CreateEntry(ctx, &client.CreateEntryRequest{
		Name:            s.namer.FolderName(r),
		FolderID:        ref.ExternalID,
		EntryTemplateID: strings.TrimSpace(templateID),
		AuthorIDs:       authorIDs,
		CustomFields:    EntryFields(r, schema),
	})
	if err != nil {
		return nil, fmt.Errorf("create entry for %s %s: %w", r.Kind, r.ID, err)
	}

	s.publish(ctx, events.TopicEntryCreated, events.EntryCreated{
		RecordKind: r.Kind,
		RecordID:   r.ID,
		Entry:      entry,
		Unresolved: unresolved,
	})
	return entry, nil
}

// ListTemplates returns every entry template.
func (s *Service) ListTemplates(ctx context.Context) ([]*model.Template, error) {
	return paging.FetchAll(ctx, s.client.ListTemplates, paging.WithMaxPages(s.cfg.MaxPages))
}

// ListProjects returns every project.
func (s *Service) ListProjects(ctx context.Context) ([]*model.Project, error) {
	return paging.FetchAll(ctx, s.client.ListProjects, paging.WithMaxPages(s.cfg.MaxPages))
}

// ListEntrySchemas returns every entry schema defined in the notebook.
func (s *Service) ListEntrySchemas(ctx context.Context) ([]*model.EntrySchema, error) {
	return paging.FetchAll(ctx, s.client.ListEntrySchemas, paging.WithMaxPages(s.cfg.MaxPages))
}

func (s *Service) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "err", err)
	}
}

// folderURL builds the browser URL of a folder from the tenant host.
func (s *Service) folderURL(folderID string) string {
	tenant := strings.TrimRight(strings.TrimSpace(s.cfg.Tenant), "/")
	if tenant == "" {
		return ""
	}
	if !strings.Contains(tenant, "://") {
		tenant = "https://" + tenant
	}
	return tenant + "/folders/" + url.PathEscape(folderID)
}

func checkRecord(r *model.Record) error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: nil record", model.ErrMalformedEntity)
	case !r.Kind.IsValid():
		return fmt.Errorf("%w: unknown record kind %q", model.ErrMalformedEntity, r.Kind)
	case strings.TrimSpace(r.ID) == "":
		return fmt.Errorf("%w: record id is required", model.ErrMalformedEntity)
	}
	return nil
}
