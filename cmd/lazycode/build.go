package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/DeusData/lazycode/internal/cache"
	"github.com/DeusData/lazycode/internal/config"
	"github.com/DeusData/lazycode/internal/discover"
	"github.com/DeusData/lazycode/internal/pipeline"
	"github.com/DeusData/lazycode/internal/watcher"
)

func newBuildCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "build <dist-dir>",
		Short: "Transform the bundles of a built app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings()
			if err != nil {
				return err
			}
			c := openCache(cfg)
			if c != nil {
				defer c.Close()
			}
			opts, err := pipelineOptions(cfg, args[0], c)
			if err != nil {
				return err
			}
			report, err := pipeline.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	addBuildFlags(cmd.Flags())
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dist-dir>",
		Short: "Build, then re-transform bundles whenever they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings()
			if err != nil {
				return err
			}
			c := openCache(cfg)
			if c != nil {
				defer c.Close()
			}
			opts, err := pipelineOptions(cfg, args[0], c)
			if err != nil {
				return err
			}
			p, err := pipeline.New(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := p.Run(ctx)
			if err != nil {
				// A broken bundle should not stop the watch; the next rebuild retries it.
				slog.Warn("watch.build", "err", err)
			} else {
				printReport(cmd.OutOrStdout(), report)
			}

			watcher.New(args[0], opts.Discover, p.TransformFile).Run(ctx)
			return nil
		},
	}
	addBuildFlags(cmd.Flags())
	return cmd
}

// openCache opens the result cache when enabled. Failures are logged and
// the build continues uncached.
func openCache(cfg *config.Config) *cache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}
	c, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		slog.Warn("cache.open", "path", cfg.Cache.Path, "err", err)
		return nil
	}
	return c
}

func pipelineOptions(cfg *config.Config, distDir string, c *cache.Cache) (pipeline.Options, error) {
	lc, err := cfg.ToLazy()
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		DistDir: distDir,
		OutDir:  cfg.OutDir,
		Lazy:    lc,
		Discover: &discover.Options{
			AppName:   lc.AppName,
			Include:   cfg.Include,
			IndexFile: cfg.IndexFile,
		},
		Cache:  c,
		Verify: cfg.Verify,
	}, nil
}

func printReport(w io.Writer, r *pipeline.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"File", "Modules", "Bytes in", "Bytes out", "Cached", "Written"})
	for _, f := range r.Files {
		t.AppendRow(table.Row{f.RelPath, f.Modules, f.BytesIn, f.BytesOut, f.CacheHit, f.Written})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d files", len(r.Files)), r.Modules, "", "", r.CacheHits, ""})
	t.Render()
}
