package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/lazycode/internal/amd"
	"github.com/DeusData/lazycode/internal/discover"
	"github.com/DeusData/lazycode/internal/lazy"
	"github.com/DeusData/lazycode/internal/pipeline"
)

// requestConfig applies per-call overrides to a copy of the server config.
func (s *Server) requestConfig(args map[string]any) (lazy.Config, error) {
	cfg := *s.cfg
	if v := getStringArg(args, "mode"); v != "" {
		cfg.Mode = v
	}
	if v := getStringArg(args, "app_name"); v != "" {
		cfg.AppName = v
	}
	if v := getStringArg(args, "quote"); v != "" {
		cfg.Quote = v
	}
	iife, ok, err := getStringSliceArg(args, "wrap_in_iife")
	if err != nil {
		return lazy.Config{}, err
	}
	if ok {
		cfg.WrapInIIFE = iife
	}
	return cfg.ToLazy()
}

func (s *Server) handleTransformSource(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	source, ok := args["source"].(string)
	if !ok {
		return errResult("source is required"), nil
	}

	cfg, err := s.requestConfig(args)
	if err != nil {
		return errResult(fmt.Sprintf("config: %v", err)), nil
	}
	t, err := lazy.New(cfg)
	if err != nil {
		return errResult(fmt.Sprintf("config: %v", err)), nil
	}
	res, err := t.Transform([]byte(source))
	if err != nil {
		return errResult(fmt.Sprintf("transform: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"output":       res.Output,
		"mode":         res.Mode,
		"module_count": len(res.Modules),
		"anchor":       res.Anchor,
	}), nil
}

func (s *Server) handleListModules(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	source, ok := args["source"].(string)
	if !ok {
		return errResult("source is required"), nil
	}

	mods, err := amd.Extract([]byte(source))
	if err != nil {
		return errResult(fmt.Sprintf("extract: %v", err)), nil
	}
	if mods == nil {
		mods = []amd.Module{}
	}

	appName := getStringArg(args, "app_name")
	if appName == "" {
		appName = s.cfg.AppName
	}
	matcher := lazy.NewInitializerMatcher(appName)
	inits := []lazy.Initializer{}
	for _, m := range mods {
		if match, ok := matcher.Match(m.ID); ok {
			inits = append(inits, match)
		}
	}

	return jsonResult(map[string]any{
		"modules":      mods,
		"count":        len(mods),
		"initializers": inits,
	}), nil
}

func (s *Server) handleTransformBundle(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	dist := getStringArg(args, "dist_dir")
	if dist == "" {
		return errResult("dist_dir is required"), nil
	}

	cfg, err := s.requestConfig(args)
	if err != nil {
		return errResult(fmt.Sprintf("config: %v", err)), nil
	}
	outDir := getStringArg(args, "out_dir")
	if outDir == "" {
		outDir = s.cfg.OutDir
	}

	c := s.cache
	if !s.cfg.Cache.Enabled {
		c = nil
	}
	report, err := pipeline.Run(ctx, pipeline.Options{
		DistDir: dist,
		OutDir:  outDir,
		Lazy:    cfg,
		Discover: &discover.Options{
			AppName:   cfg.AppName,
			Include:   s.cfg.Include,
			IndexFile: s.cfg.IndexFile,
		},
		Cache:  c,
		Verify: s.cfg.Verify,
	})
	if err != nil {
		return errResult(fmt.Sprintf("build: %v", err)), nil
	}
	return jsonResult(report), nil
}
