// Package pipeline runs the lazy transform over the bundles of a built app:
// discovery, cache lookup, transform, optional verification and an atomic
// write of each output.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DeusData/lazycode/internal/cache"
	"github.com/DeusData/lazycode/internal/discover"
	"github.com/DeusData/lazycode/internal/lazy"
	"github.com/DeusData/lazycode/internal/verify"
)

// Options configures a pipeline run.
type Options struct {
	// DistDir is the build output to scan.
	DistDir string
	// OutDir receives the transformed bundles at the same relative paths.
	// Empty means rewrite in place. Eval and function output is not a fixed
	// point of the transform, so an in-place rebuild relies on Cache to
	// recognize bundles it already wrote.
	OutDir string
	// Lazy is the transformer configuration.
	Lazy lazy.Config
	// Discover selects bundles; nil selects assets/*.js.
	Discover *discover.Options
	// Cache is consulted before transforming; nil disables caching.
	Cache *cache.Cache
	// Verify re-parses each output with esbuild before it is written.
	Verify bool
	// Workers bounds concurrent files; 0 means GOMAXPROCS.
	Workers int
}

// FileResult describes one processed bundle.
type FileResult struct {
	RelPath  string        `json:"rel_path"`
	OutPath  string        `json:"out_path"`
	Modules  int           `json:"modules"`
	BytesIn  int           `json:"bytes_in"`
	BytesOut int           `json:"bytes_out"`
	CacheHit bool          `json:"cache_hit"`
	Written  bool          `json:"written"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Report summarizes a run. Files are in discovery order.
type Report struct {
	Files     []FileResult  `json:"files"`
	Modules   int           `json:"modules"`
	CacheHits int           `json:"cache_hits"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Pipeline holds the state shared by every file of a run.
type Pipeline struct {
	opts        Options
	transformer *lazy.Transformer
	fingerprint string
	distDir     string

	// cacheOff is set after the first cache error so a broken database is
	// reported once and then bypassed.
	cacheOff sync.Once
	cache    *cache.Cache
	mu       sync.Mutex
}

// New validates opts and prepares a Pipeline.
func New(opts Options) (*Pipeline, error) {
	t, err := lazy.New(opts.Lazy)
	if err != nil {
		return nil, err
	}
	dist, err := filepath.Abs(opts.DistDir)
	if err != nil {
		return nil, err
	}
	if opts.OutDir != "" {
		if opts.OutDir, err = filepath.Abs(opts.OutDir); err != nil {
			return nil, err
		}
	}
	return &Pipeline{
		opts:        opts,
		transformer: t,
		fingerprint: t.Config().Fingerprint(),
		distDir:     dist,
		cache:       opts.Cache,
	}, nil
}

// Run is New followed by Pipeline.Run.
func Run(ctx context.Context, opts Options) (*Report, error) {
	p, err := New(opts)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}

// Run transforms every discovered bundle. The first failing file cancels
// the rest; outputs already written stay written.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	mode := p.transformer.Config().Mode
	slog.Info("pipeline.start", "dist", p.distDir, "mode", mode)
	if p.opts.OutDir == "" && p.activeCache() == nil && (mode == lazy.ModeEval || mode == lazy.ModeFunction) {
		slog.Warn("pipeline.inplace.uncached", "mode", mode,
			"hint", "rebuilding the same dist dir wraps module bodies again")
	}

	files, err := discover.Discover(ctx, p.distDir, p.opts.Discover)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	slog.Info("pipeline.discovered", "files", len(files))

	results := make([]FileResult, len(files))
	workers := p.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := p.processFile(f.Path, f.RelPath)
			if err != nil {
				return fmt.Errorf("%s: %w", f.RelPath, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Files: results, Elapsed: time.Since(start)}
	for _, r := range results {
		report.Modules += r.Modules
		if r.CacheHit {
			report.CacheHits++
		}
	}
	slog.Info("pipeline.done", "files", len(results), "modules", report.Modules,
		"cache_hits", report.CacheHits, "elapsed", report.Elapsed)
	return report, nil
}

// TransformFile processes a single bundle given by absolute or dist-relative
// path. It matches watcher.TransformFunc.
func (p *Pipeline) TransformFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.distDir, path)
	}
	rel, err := filepath.Rel(p.distDir, path)
	if err != nil {
		return err
	}
	_, err = p.processFile(path, filepath.ToSlash(rel))
	return err
}

func (p *Pipeline) processFile(path, rel string) (FileResult, error) {
	start := time.Now()
	res := FileResult{RelPath: rel, OutPath: p.outPath(path, rel)}

	src, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("read: %w", err)
	}
	res.BytesIn = len(src)

	key := cache.Key(p.fingerprint, src)
	out, modules, hit := p.cacheGet(key)
	if !hit {
		r, err := p.transformer.Transform(src)
		if err != nil {
			return res, err
		}
		out, modules = []byte(r.Output), len(r.Modules)
		if p.opts.Verify {
			if err := verify.JS(r.Output); err != nil {
				return res, err
			}
		}
		p.cachePut(key, out, modules)
		// Rewritten in place, the output is the next run's input.
		if res.OutPath == path && !bytes.Equal(out, src) {
			p.cachePut(cache.Key(p.fingerprint, out), out, modules)
		}
	}
	res.Modules = modules
	res.BytesOut = len(out)
	res.CacheHit = hit

	if res.OutPath != path || !bytes.Equal(out, src) {
		if err := writeAtomic(res.OutPath, out); err != nil {
			return res, err
		}
		res.Written = true
	}
	res.Elapsed = time.Since(start)

	slog.Info("pipeline.file.done", "path", rel, "modules", res.Modules,
		"bytes_in", res.BytesIn, "bytes_out", res.BytesOut, "cache_hit", hit, "written", res.Written)
	return res, nil
}

func (p *Pipeline) outPath(path, rel string) string {
	if p.opts.OutDir == "" {
		return path
	}
	return filepath.Join(p.opts.OutDir, filepath.FromSlash(rel))
}

func (p *Pipeline) activeCache() *cache.Cache {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache
}

// disableCache turns caching off for the rest of the run after a failure.
func (p *Pipeline) disableCache(op string, err error) {
	p.cacheOff.Do(func() {
		slog.Warn("pipeline.cache.disabled", "op", op, "err", err)
		p.mu.Lock()
		p.cache = nil
		p.mu.Unlock()
	})
}

func (p *Pipeline) cacheGet(key string) ([]byte, int, bool) {
	c := p.activeCache()
	if c == nil {
		return nil, 0, false
	}
	out, modules, ok, err := c.Get(key)
	if err != nil {
		p.disableCache("get", err)
		return nil, 0, false
	}
	return out, modules, ok
}

func (p *Pipeline) cachePut(key string, out []byte, modules int) {
	c := p.activeCache()
	if c == nil {
		return
	}
	if err := c.Put(key, out, modules); err != nil {
		p.disableCache("put", err)
	}
}

// writeAtomic writes data to a temp file next to path and renames it into
// place, keeping the mode of an existing file.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return fmt.Errorf("stat: %w", statErr)
	}

	tmp, err := os.CreateTemp(dir, ".lazycode-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err = tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
