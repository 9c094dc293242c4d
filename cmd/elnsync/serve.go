package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/elnsync/internal/assay"
	"github.com/alfredjeanlab/elnsync/internal/config"
	"github.com/alfredjeanlab/elnsync/internal/events"
	"github.com/alfredjeanlab/elnsync/internal/export"
	"github.com/alfredjeanlab/elnsync/internal/notebook"
	"github.com/alfredjeanlab/elnsync/internal/server"
	"github.com/alfredjeanlab/elnsync/internal/store"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the HTTP API, gRPC health server and background jobs",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}

		var bus events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			bus = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			bus = &events.NoopPublisher{}
			logger.Info("events disabled (ELNSYNC_NATS_URL not set)")
		}
		stream := server.NewEventStream(logger)
		publisher := stream.Publisher(bus)

		registry := assay.NewRegistry(st, publisher, logger)
		if cfg.SchemaCatalog != "" {
			if err := loadCatalog(ctx, registry, cfg.SchemaCatalog); err != nil {
				publisher.Close()
				st.Close()
				return err
			}
			go func() {
				err := config.WatchCatalog(ctx, cfg.SchemaCatalog, logger, func(c *config.Catalog) {
					if _, err := registry.DefineAll(ctx, c.Schemas); err != nil {
						logger.Error("reloading schema catalog", "path", cfg.SchemaCatalog, "err", err)
						return
					}
					logger.Info("schema catalog reloaded", "path", cfg.SchemaCatalog, "schemas", len(c.Schemas))
				})
				if err != nil {
					logger.Error("schema catalog watcher stopped", "err", err)
				}
			}()
		}

		var nb *notebook.Service
		if cfg.RootURL != "" {
			c, err := newNotebookClient()
			if err != nil {
				publisher.Close()
				st.Close()
				return err
			}
			defer c.Close()
			nb = notebook.NewService(c, st, publisher, notebookConfig(), logger)
		} else {
			logger.Warn("notebook routes disabled (ELN_ROOT_URL not set)")
		}

		srv := server.New(nb, registry, stream, logger)
		grpcServer, health := server.NewGRPCServer(cfg.AuthToken, logger)

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			publisher.Close()
			st.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: srv.NewHTTPHandler(server.HTTPOptions{
				AuthToken:   cfg.AuthToken,
				CORSOrigins: cfg.CORSOrigins,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		scheduler := startExportScheduler(ctx, st)

		logger.Info("elnsync server started", "grpc_addr", cfg.GRPCAddr, "http_addr", cfg.HTTPAddr)
		<-ctx.Done()
		logger.Info("shutting down")

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("export scheduler stopped")
		}

		health.Shutdown()
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}
		logger.Info("shutdown complete")
		return nil
	},
}

// loadCatalog defines every schema in the catalog file.
func loadCatalog(ctx context.Context, registry *assay.Registry, path string) error {
	cat, err := config.LoadCatalog(path)
	if err != nil {
		return err
	}
	saved, err := registry.DefineAll(ctx, cat.Schemas)
	if err != nil {
		return err
	}
	logger.Info("schema catalog loaded", "path", path, "schemas", len(saved))
	return nil
}

// exportDestinations returns the configured export destinations.
func exportDestinations(ctx context.Context) []export.Destination {
	var dests []export.Destination
	if cfg.ExportS3Bucket != "" {
		s3Dest, err := export.NewS3Destination(ctx, cfg.ExportS3Bucket, cfg.ExportS3Key, cfg.ExportS3Region, cfg.ExportS3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 export destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("export S3 destination enabled", "bucket", cfg.ExportS3Bucket, "key", cfg.ExportS3Key)
		}
	}
	if cfg.ExportGitRepo != "" {
		dests = append(dests, export.NewGitDestination(cfg.ExportGitRepo, cfg.ExportGitFile, cfg.ExportGitBranch))
		logger.Info("export git destination enabled", "repo", cfg.ExportGitRepo, "file", cfg.ExportGitFile)
	}
	return dests
}

func startExportScheduler(ctx context.Context, st store.Store) *export.Scheduler {
	if cfg.ExportInterval <= 0 {
		return nil
	}
	dests := exportDestinations(ctx)
	if len(dests) == 0 {
		return nil
	}
	scheduler := export.NewScheduler(st, dests, cfg.ExportInterval, logger)
	scheduler.Start()
	logger.Info("export scheduler started", "interval", cfg.ExportInterval)
	return scheduler
}
