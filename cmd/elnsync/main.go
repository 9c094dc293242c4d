package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/elnsync/internal/assay"
	"github.com/alfredjeanlab/elnsync/internal/client"
	"github.com/alfredjeanlab/elnsync/internal/config"
	"github.com/alfredjeanlab/elnsync/internal/events"
	"github.com/alfredjeanlab/elnsync/internal/notebook"
	"github.com/alfredjeanlab/elnsync/internal/store"
	"github.com/alfredjeanlab/elnsync/internal/store/postgres"
	"github.com/alfredjeanlab/elnsync/internal/store/sqlite"
	"github.com/alfredjeanlab/elnsync/internal/ui"
)

var (
	jsonOutput bool
	noColor    bool
	envFiles   []string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "elnsync <command>",
	Short:         "Sync research records with an electronic lab notebook",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFiles(envFiles...); err != nil {
			return err
		}
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load (default .env)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "notebook", Title: "Notebook:"},
		&cobra.Group{ID: "schemas", Title: "Assay schemas:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Notebook
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(entryCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(userCmd)

	// Assay schemas
	rootCmd.AddCommand(schemaCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the PostgreSQL store when the database URL names one and
// the SQLite store otherwise.
func openStore(ctx context.Context) (store.Store, error) {
	if cfg.IsPostgres() {
		return postgres.New(cfg.DatabaseURL)
	}
	return sqlite.New(ctx, cfg.DatabaseURL)
}

// newNotebookClient builds the notebook API client from the environment.
func newNotebookClient() (*client.HTTPClient, error) {
	if err := cfg.RequireNotebook(); err != nil {
		return nil, err
	}
	creds := client.Credentials{
		Token:        cfg.Token,
		Username:     cfg.Username,
		Password:     cfg.Password,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}
	var opts []client.AuthorizerOption
	if cfg.TokenCache {
		opts = append(opts, client.WithTokenCache(client.NewMemoryTokenCache()))
	}
	auth := client.NewAuthorizer(cfg.RootURL, creds, opts...)
	logger.Debug("notebook client", "root_url", cfg.RootURL, "auth", auth.Strategy())
	return client.NewHTTPClient(client.Options{
		RootURL:   cfg.RootURL,
		Auth:      auth,
		Timeout:   cfg.RequestTimeout,
		UserAgent: "elnsync",
	}), nil
}

func notebookConfig() notebook.Config {
	return notebook.Config{
		Tenant:          cfg.Tenant,
		ProgramFolderID: cfg.ProgramFolderID,
		MaxPages:        guardLimit(cfg.MaxPages),
		MaxDepth:        guardLimit(cfg.MaxDepth),
		Concurrency:     cfg.TreeConcurrency,
		DirectoryTTL:    cfg.UserCacheTTL,
	}
}

// guardLimit maps a configured limit of 0 to an unbounded guard.
func guardLimit(n int) int {
	if n == 0 {
		return notebook.NoLimit
	}
	return n
}

// app is what a one-shot command needs. Close releases it.
type app struct {
	store    store.Store
	client   *client.HTTPClient
	notebook *notebook.Service
	registry *assay.Registry
	pub      events.Publisher
}

// openApp opens the store and, when withNotebook is set, the notebook
// client. Events go to NATS when ELNSYNC_NATS_URL is set.
func openApp(ctx context.Context, withNotebook bool) (*app, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	a := &app{store: st, pub: &events.NoopPublisher{}}
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			st.Close()
			return nil, err
		}
		a.pub = pub
	}
	a.registry = assay.NewRegistry(st, a.pub, logger)
	if withNotebook {
		c, err := newNotebookClient()
		if err != nil {
			a.Close()
			return nil, err
		}
		a.client = c
		a.notebook = notebook.NewService(c, st, a.pub, notebookConfig(), logger)
	}
	return a, nil
}

func (a *app) Close() {
	if a.client != nil {
		a.client.Close()
	}
	if err := a.pub.Close(); err != nil {
		logger.Warn("error closing publisher", "err", err)
	}
	if err := a.store.Close(); err != nil {
		logger.Warn("error closing store", "err", err)
	}
}
