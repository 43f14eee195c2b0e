package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobingest/internal/app"
	"github.com/JakeFAU/jobingest/internal/config"
	"github.com/JakeFAU/jobingest/internal/logging"
	"github.com/JakeFAU/jobingest/internal/server"
)

var version = "0.1.0"

// cli carries state shared by the subcommands once the root pre-run has loaded it.
type cli struct {
	configPath string
	cfg        config.Config
	logger     *zap.Logger
}

func (c *cli) setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	c.cfg = cfg
	c.logger = logger
	return nil
}

func (c *cli) sync() {
	if c.logger == nil {
		return
	}
	if err := c.logger.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", err)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "jobingest",
		Short: "Ingest job-posting feeds into Postgres and MongoDB",
		Long: `jobingest reads job-posting feeds, drops incomplete and duplicate postings,
normalizes numeric and timestamp fields and stores every posting both as a
flat row and as a structured document.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		newRunCmd(c),
		newSchemaCmd(c),
		newExportCmd(c),
		newVersionCmd(),
	)
	return root
}

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run [feed...]",
		Short: "Ingest the given feeds (or feed.locations)",
		Long: `Ingest one or more feeds. Each feed is a local path, a file:// or http(s)://
URL, or a gs://bucket/object location. Without arguments the feeds listed in
feed.locations are used. A JSON run summary is written to stdout.`,
		PersistentPreRunE: c.setup,
		RunE:              c.run,
	}
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer c.closeApp(a)

	if addr := c.cfg.Metrics.Addr; addr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			srv := server.New(a.Ready, c.logger.Named("server"))
			if err := srv.ListenAndServe(srvCtx, addr); err != nil {
				c.logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	summary, err := a.Run(ctx, args)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return writeJSON(cmd, summary)
}

func newSchemaCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:               "schema",
		Short:             "Create the jobs table if it does not exist",
		PersistentPreRunE: c.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.EnsureSchema(cmd.Context(), c.cfg); err != nil {
				return err
			}
			c.logger.Info("schema ensured",
				zap.String("provider", c.cfg.Stores.Relational),
				zap.String("table", c.cfg.Postgres.Table),
			)
			return nil
		},
	}
}

func newExportCmd(c *cli) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:               "export",
		Short:             "Dump the jobs table and the document collection to CSV",
		PersistentPreRunE: c.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer c.closeApp(a)

			res, err := a.Export(cmd.Context(), outDir)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			return writeJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory receiving postgres_data.csv and mongodb_data.csv")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "jobingest v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func (c *cli) closeApp(a *app.App) {
	// stores are closed even when the run context was cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		c.logger.Warn("close stores failed", zap.Error(err))
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
