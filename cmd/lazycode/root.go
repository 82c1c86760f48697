package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/DeusData/lazycode/internal/config"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	version   string
	cfgFile   string
	verbose   bool
	logFormat string
	cfg       *config.Loaded
}

func newRootCmd(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:   "lazycode",
		Short: "Defer parsing of AMD module bodies in built bundles",
		Long: `lazycode rewrites the define() calls of an AMD bundle so that module
bodies are kept as strings (or wrapped in eval / new Function) and only
parsed when the module is first required.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd.ErrOrStderr(), a.verbose, a.logFormat)
			if skipConfig(cmd) {
				return nil
			}
			loaded, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = loaded
			if loaded.File != "" {
				slog.Debug("config.loaded", "file", loaded.File)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./"+config.FileName+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log format (text|json)")

	root.AddCommand(
		newTransformCmd(a),
		newBuildCmd(a),
		newWatchCmd(a),
		newModulesCmd(a),
		newMCPCmd(a),
		newConfigCmd(a),
		newCacheCmd(a),
		newVersionCmd(a),
	)
	return root
}

// skipConfig reports commands that must work without a valid config.
func skipConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "completion", "__complete", "version":
		return true
	case "init":
		return cmd.Parent() != nil && cmd.Parent().Name() == "config"
	}
	return false
}

func setupLogging(w io.Writer, verbose bool, format string) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// addTransformFlags registers the flags every transforming command accepts.
// Their names are mapped to config keys by config.Load.
func addTransformFlags(fs *pflag.FlagSet) {
	fs.String("mode", "", "transform mode (strings|eval|function|none)")
	fs.String("app", "", "application name; enables initializer collection")
	fs.StringSlice("iife", nil, "module id whose body is wrapped in an IIFE (repeatable)")
	fs.String("quote", "", "quote character for generated strings (' or \")")
	fs.Bool("emit-empty", false, "emit the registry even when no module was found")
	fs.Bool("verify", false, "re-parse the output with esbuild before writing")
}

// addBuildFlags registers the flags of commands that run the pipeline.
func addBuildFlags(fs *pflag.FlagSet) {
	addTransformFlags(fs)
	fs.StringSlice("include", nil, "extra bundle pattern relative to the dist directory (repeatable)")
	fs.String("index", "", "also transform the local scripts this HTML file (relative to the dist directory) loads")
	fs.String("out", "", "write results under this directory instead of in place")
	fs.Bool("no-cache", false, "do not read or write the result cache")
	fs.String("cache-path", "", "result cache database (default: ~/.cache/lazycode/cache.db)")
}

func (a *app) settings() (*config.Config, error) {
	if a.cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return a.cfg.Config, nil
}
