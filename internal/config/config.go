// Package config loads elnsync settings from the environment and assay type
// schema catalogs from TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Notebook service
	RootURL         string        // ELN_ROOT_URL (required for notebook operations)
	Tenant          string        // ELN_TENANT (host used in folder URLs; defaults to the root URL host)
	Token           string        // ELN_TOKEN
	Username        string        // ELN_USERNAME
	Password        string        // ELN_PASSWORD
	ClientID        string        // ELN_CLIENT_ID
	ClientSecret    string        // ELN_CLIENT_SECRET
	TokenCache      bool          // ELN_TOKEN_CACHE (default false)
	RequestTimeout  time.Duration // ELN_REQUEST_TIMEOUT (default 30s)
	MaxPages        int           // ELN_MAX_PAGES (default 10000, 0 = unbounded)
	MaxDepth        int           // ELN_MAX_DEPTH (default 64, 0 = unbounded)
	TreeConcurrency int           // ELN_TREE_CONCURRENCY (default 1)
	UserCacheTTL    time.Duration // ELN_USER_CACHE_TTL (default 0 = no cache)
	ProgramFolderID string        // ELN_PROGRAM_FOLDER_ID

	DatabaseURL   string     // ELNSYNC_DATABASE_URL (postgres:// URL or SQLite path; default "elnsync.db")
	HTTPAddr      string     // ELNSYNC_HTTP_ADDR (default ":8080")
	GRPCAddr      string     // ELNSYNC_GRPC_ADDR (default ":9090")
	NATSURL       string     // ELNSYNC_NATS_URL (optional, empty = no events)
	AuthToken     string     // ELNSYNC_AUTH_TOKEN (optional, empty = auth disabled)
	CORSOrigins   []string   // ELNSYNC_CORS_ORIGINS (comma separated)
	SchemaCatalog string     // ELNSYNC_SCHEMA_CATALOG (TOML or YAML file)
	LogLevel      slog.Level // ELNSYNC_LOG_LEVEL (default info)

	// Export settings
	ExportInterval   time.Duration // ELNSYNC_EXPORT_INTERVAL (default 0 = disabled)
	ExportS3Bucket   string        // ELNSYNC_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string        // ELNSYNC_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string        // ELNSYNC_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string        // ELNSYNC_EXPORT_S3_KEY (default "elnsync/export.jsonl")
	ExportGitRepo    string        // ELNSYNC_EXPORT_GIT_REPO (enables git when set; path to clone)
	ExportGitFile    string        // ELNSYNC_EXPORT_GIT_FILE (default "elnsync.jsonl")
	ExportGitBranch  string        // ELNSYNC_EXPORT_GIT_BRANCH (default "main")
}

// Load reads the configuration from the environment. It fails only on
// malformed values; use RequireNotebook before talking to the notebook.
func Load() (*Config, error) {
	c := &Config{
		RootURL:          strings.TrimRight(os.Getenv("ELN_ROOT_URL"), "/"),
		Tenant:           os.Getenv("ELN_TENANT"),
		Token:            os.Getenv("ELN_TOKEN"),
		Username:         os.Getenv("ELN_USERNAME"),
		Password:         os.Getenv("ELN_PASSWORD"),
		ClientID:         os.Getenv("ELN_CLIENT_ID"),
		ClientSecret:     os.Getenv("ELN_CLIENT_SECRET"),
		ProgramFolderID:  os.Getenv("ELN_PROGRAM_FOLDER_ID"),
		DatabaseURL:      envOrDefault("ELNSYNC_DATABASE_URL", "elnsync.db"),
		HTTPAddr:         envOrDefault("ELNSYNC_HTTP_ADDR", ":8080"),
		GRPCAddr:         envOrDefault("ELNSYNC_GRPC_ADDR", ":9090"),
		NATSURL:          os.Getenv("ELNSYNC_NATS_URL"),
		AuthToken:        os.Getenv("ELNSYNC_AUTH_TOKEN"),
		CORSOrigins:      splitList(os.Getenv("ELNSYNC_CORS_ORIGINS")),
		SchemaCatalog:    os.Getenv("ELNSYNC_SCHEMA_CATALOG"),
		ExportS3Bucket:   os.Getenv("ELNSYNC_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("ELNSYNC_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("ELNSYNC_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Key:      envOrDefault("ELNSYNC_EXPORT_S3_KEY", "elnsync/export.jsonl"),
		ExportGitRepo:    os.Getenv("ELNSYNC_EXPORT_GIT_REPO"),
		ExportGitFile:    envOrDefault("ELNSYNC_EXPORT_GIT_FILE", "elnsync.jsonl"),
		ExportGitBranch:  envOrDefault("ELNSYNC_EXPORT_GIT_BRANCH", "main"),
	}

	var errs []error
	c.TokenCache = parseBool("ELN_TOKEN_CACHE", false, &errs)
	c.RequestTimeout = parseDuration("ELN_REQUEST_TIMEOUT", 30*time.Second, &errs)
	c.MaxPages = parseInt("ELN_MAX_PAGES", 10000, &errs)
	c.MaxDepth = parseInt("ELN_MAX_DEPTH", 64, &errs)
	c.TreeConcurrency = parseInt("ELN_TREE_CONCURRENCY", 1, &errs)
	c.UserCacheTTL = parseDuration("ELN_USER_CACHE_TTL", 0, &errs)
	c.ExportInterval = parseDuration("ELNSYNC_EXPORT_INTERVAL", 0, &errs)

	if err := c.LogLevel.UnmarshalText([]byte(envOrDefault("ELNSYNC_LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("ELNSYNC_LOG_LEVEL: %w", err))
	}

	if c.Tenant == "" {
		c.Tenant = hostOf(c.RootURL)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// RequireNotebook reports an error when the notebook root URL is unset.
func (c *Config) RequireNotebook() error {
	if c.RootURL == "" {
		return fmt.Errorf("ELN_ROOT_URL is required")
	}
	return nil
}

// IsPostgres reports whether DatabaseURL names a PostgreSQL server.
func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// LoadEnvFiles loads KEY=value files into the environment without
// overriding variables that are already set. With no paths it reads ./.env
// and a missing file is not an error.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func parseInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	if n < 0 {
		*errs = append(*errs, fmt.Errorf("%s: must not be negative", key))
		return fallback
	}
	return n
}

func parseDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// hostOf returns the host of a URL, or "" when it has none.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
