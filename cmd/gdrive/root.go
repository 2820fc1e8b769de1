// Command gdrive is a CLI for Google Drive built on the gdrive-go library.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/korpela/gdrive-go"
	"github.com/korpela/gdrive-go/internal/api"
	"github.com/korpela/gdrive-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// cfg holds the effective configuration loaded by PersistentPreRunE.
var cfg *config.Config

// httpClientTimeout bounds every metadata request. Media transfers use a
// client without a deadline because large files legitimately take longer.
const httpClientTimeout = 30 * time.Second

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gdrive",
		Short:   "Google Drive CLI client",
		Long:    "A fast Google Drive CLI for listing, transferring and sharing files.",
		Version: version,
		// Cobra's default error/usage printing is handled in main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newFindCmd())
	cmd.AddCommand(newStatCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newTrashCmd())
	cmd.AddCommand(newShareCmd())
	cmd.AddCommand(newTreeCmd())

	return cmd
}

// loadConfig reads the config file named by --config, GDRIVE_GO_CONFIG, or
// the platform default, in that order of precedence.
func loadConfig() error {
	path := config.DefaultConfigPath()
	if env := os.Getenv("GDRIVE_GO_CONFIG"); env != "" {
		path = env
	}

	if flagConfigPath != "" {
		path = flagConfigPath
	}

	loaded, err := config.LoadOrDefault(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg = loaded

	return nil
}

// buildLogger creates an slog.Logger from the config file's log settings.
// --verbose and --quiet override the configured level. Format "auto" picks
// text on a terminal and JSON otherwise, so piped logs stay parseable.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	format := cfg.LogFormat
	if format == "auto" {
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			format = "text"
		} else {
			format = "json"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// credentials returns the OAuth client credentials from the config file,
// falling back to environment variables.
func credentials() api.Credentials {
	creds := api.Credentials{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret}

	if creds.ClientID == "" {
		creds.ClientID = os.Getenv("GDRIVE_GO_CLIENT_ID")
	}

	if creds.ClientSecret == "" {
		creds.ClientSecret = os.Getenv("GDRIVE_GO_CLIENT_SECRET")
	}

	return creds
}

// buildClient wires a gdrive.Client from the stored token.
func buildClient(ctx context.Context) (*gdrive.Client, *slog.Logger, error) {
	logger := buildLogger()

	ts, err := api.FileTokenSource(ctx, cfg.TokenPath, credentials(), logger)
	if err != nil {
		if errors.Is(err, api.ErrNotLoggedIn) {
			return nil, nil, fmt.Errorf("not logged in — run 'gdrive login' first")
		}

		return nil, nil, err
	}

	httpClient := &http.Client{Timeout: httpClientTimeout}
	gw := api.NewClient(api.DefaultBaseURL, api.DefaultUploadBaseURL, httpClient, ts, logger)

	client := gdrive.NewClient(gw, logger,
		gdrive.WithPageSize(cfg.PageSize),
		gdrive.WithExportMIME(cfg.ExportMIME))

	return client, logger, nil
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
