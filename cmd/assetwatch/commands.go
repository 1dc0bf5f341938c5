package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ykvlv/assetwatch/internal/app"
	"github.com/ykvlv/assetwatch/internal/config"
	"github.com/ykvlv/assetwatch/internal/logger"
	"github.com/ykvlv/assetwatch/internal/transfer"
)

var (
	exportFormat string
	exportFile   string
	importFile   string
	importFormat string
)

// bootstrap loads configuration, builds the logger and opens the app.
func bootstrap(ctx context.Context) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	return a, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the reminder schedule and the optional Telegram bot",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, log, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	// Ignore sync error (common on some platforms).
	defer func() { _ = log.Sync() }()
	defer a.Close()

	if err := a.Run(cmd.Context()); err != nil {
		log.Error("app run failed", zap.Error(err))
		return err
	}
	return nil
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder sweep and print the report",
		Long: `Run the same sweep the schedule runs and print its report as JSON.

Reminders already sent today are not sent again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, log, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer a.Close()

			rep, err := a.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every resource to a JSON or YAML document",
		Long: `Export all resources, including their notification settings.

Examples:
  # JSON to stdout
  assetwatch export

  # YAML to a file
  assetwatch export -o yaml -f resources.yaml`,
		RunE: runExport,
	}
	cmd.Flags().StringVarP(&exportFormat, "output", "o", "json", "Output format: json, yaml")
	cmd.Flags().StringVarP(&exportFile, "filename", "f", "", "File to write (default stdout)")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	format, err := transfer.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	a, log, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	defer a.Close()

	env, err := transfer.Export(cmd.Context(), a.Store(), time.Now())
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportFile != "" {
		f, err := os.Create(exportFile)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportFile, err)
		}
		defer f.Close()
		w = f
	}
	if err := transfer.Encode(w, env, format); err != nil {
		return err
	}
	if exportFile != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d resources to %s\n", len(env.Resources), exportFile)
	}
	return nil
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load resources from a JSON or YAML document",
		Long: `Import resources. Existing ids are overwritten, resources without an
id are created.

The format follows the file extension unless --format is given.

Examples:
  assetwatch import -f resources.yaml
  assetwatch import -f backup.txt --format json`,
		RunE: runImport,
	}
	cmd.Flags().StringVarP(&importFile, "filename", "f", "", "File to import (required)")
	cmd.Flags().StringVar(&importFormat, "format", "", "Input format: json, yaml")
	_ = cmd.MarkFlagRequired("filename")
	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	name := importFormat
	if name == "" {
		name = formatFromExt(importFile)
	}
	format, err := transfer.ParseFormat(name)
	if err != nil {
		return err
	}
	f, err := os.Open(importFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", importFile, err)
	}
	defer f.Close()
	env, err := transfer.Decode(f, format)
	if err != nil {
		return err
	}

	a, log, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	defer a.Close()

	rep, err := transfer.Import(cmd.Context(), a.Store(), env.Resources)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d, failed %d\n", rep.Imported, rep.Failed)
	for _, e := range rep.Errors {
		fmt.Fprintf(out, "  #%d %s: %s\n", e.Index, e.Name, e.Error)
	}
	if rep.Failed > 0 {
		return fmt.Errorf("%d resources were rejected", rep.Failed)
	}
	return nil
}

func formatFromExt(path string) string {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}
