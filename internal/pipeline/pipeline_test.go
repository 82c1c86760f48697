package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/DeusData/lazycode/internal/amd"
	"github.com/DeusData/lazycode/internal/cache"
	"github.com/DeusData/lazycode/internal/discover"
	"github.com/DeusData/lazycode/internal/lazy"
)

const bundle = `define("app/a", ["exports"], function (exports) {
  exports.a = 1;
});
define("app/b", ["app/a"], function (a) {
  return a;
});
`

func writeDist(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRunInPlace(t *testing.T) {
	dist := writeDist(t, map[string]string{
		"assets/app.js":    bundle,
		"assets/vendor.js": "var v = 1;\n",
	})

	report, err := Run(context.Background(), Options{
		DistDir:  dist,
		Lazy:     lazy.Config{Mode: lazy.ModeStrings},
		Discover: &discover.Options{AppName: "app"},
		Verify:   true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Files) != 1 || report.Modules != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	f := report.Files[0]
	if f.RelPath != "assets/app.js" || !f.Written || f.CacheHit {
		t.Errorf("unexpected file result %+v", f)
	}

	out := readFile(t, filepath.Join(dist, "assets", "app.js"))
	if !strings.HasPrefix(out, "var __lazyStringModules__ = {") || strings.Contains(out, "define(") {
		t.Errorf("bundle not transformed:\n%s", out)
	}
	if readFile(t, filepath.Join(dist, "assets", "vendor.js")) != "var v = 1;\n" {
		t.Error("undiscovered bundle should be untouched")
	}
}

func TestRunOutDir(t *testing.T) {
	dist := writeDist(t, map[string]string{"assets/app.js": bundle})
	out := filepath.Join(t.TempDir(), "out")

	report, err := Run(context.Background(), Options{
		DistDir: dist,
		OutDir:  out,
		Lazy:    lazy.Config{Mode: lazy.ModeEval},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if readFile(t, filepath.Join(dist, "assets", "app.js")) != bundle {
		t.Error("input should be untouched when OutDir is set")
	}
	got := readFile(t, report.Files[0].OutPath)
	if !strings.Contains(got, "eval('") {
		t.Errorf("expected eval wrapping:\n%s", got)
	}
	if report.Files[0].OutPath != filepath.Join(out, "assets", "app.js") {
		t.Errorf("OutPath = %s", report.Files[0].OutPath)
	}
}

func TestRunUsesCache(t *testing.T) {
	dist := writeDist(t, map[string]string{"assets/app.js": bundle})
	c, err := cache.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	opts := Options{
		DistDir: dist,
		OutDir:  filepath.Join(t.TempDir(), "out"),
		Lazy:    lazy.Config{Mode: lazy.ModeFunction},
		Cache:   c,
	}
	first, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHits != 0 || second.CacheHits != 1 {
		t.Errorf("cache hits = %d, %d", first.CacheHits, second.CacheHits)
	}
	if second.Modules != 2 {
		t.Errorf("cached run should report modules, got %d", second.Modules)
	}
	if entries, _, _ := c.Stats(); entries != 1 {
		t.Errorf("expected 1 cache entry, got %d", entries)
	}

	// A different configuration must not reuse the entry.
	opts.Lazy = lazy.Config{Mode: lazy.ModeEval}
	third, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHits != 0 {
		t.Error("changed config should miss the cache")
	}
}

func TestRunInPlaceRebuildIsNoop(t *testing.T) {
	for _, mode := range []lazy.Mode{lazy.ModeEval, lazy.ModeFunction, lazy.ModeStrings} {
		t.Run(string(mode), func(t *testing.T) {
			dist := writeDist(t, map[string]string{"assets/app.js": bundle})
			c, err := cache.OpenMemory()
			if err != nil {
				t.Fatal(err)
			}
			defer c.Close()

			opts := Options{DistDir: dist, Lazy: lazy.Config{Mode: mode}, Cache: c}
			if _, err := Run(context.Background(), opts); err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(dist, "assets", "app.js")
			first := readFile(t, path)

			second, err := Run(context.Background(), opts)
			if err != nil {
				t.Fatal(err)
			}
			if got := readFile(t, path); got != first {
				t.Errorf("rebuild changed the bundle:\n%s\nwant\n%s", got, first)
			}
			f := second.Files[0]
			if !f.CacheHit || f.Written {
				t.Errorf("unexpected file result %+v", f)
			}
			if f.Modules != 2 {
				t.Errorf("modules = %d, want 2", f.Modules)
			}
		})
	}
}

func TestRunSurvivesBrokenCache(t *testing.T) {
	dist := writeDist(t, map[string]string{"assets/app.js": bundle})
	c, err := cache.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	c.Close()

	report, err := Run(context.Background(), Options{
		DistDir: dist,
		Lazy:    lazy.Config{Mode: lazy.ModeStrings},
		Cache:   c,
	})
	if err != nil {
		t.Fatalf("cache errors should not fail the run: %v", err)
	}
	if report.Modules != 2 {
		t.Errorf("modules = %d", report.Modules)
	}
}

func TestRunMalformedLeavesFileUntouched(t *testing.T) {
	broken := `define("app/x", function () {});` + "\n"
	dist := writeDist(t, map[string]string{"assets/app.js": broken})

	_, err := Run(context.Background(), Options{
		DistDir: dist,
		Lazy:    lazy.Config{Mode: lazy.ModeStrings},
	})
	if !errors.Is(err, amd.ErrMalformedDefine) {
		t.Fatalf("expected ErrMalformedDefine, got %v", err)
	}
	if !strings.Contains(err.Error(), "assets/app.js") {
		t.Errorf("error should name the file: %v", err)
	}
	if readFile(t, filepath.Join(dist, "assets", "app.js")) != broken {
		t.Error("failed transform must not write output")
	}
}

func TestRunSkipsUnchangedWrite(t *testing.T) {
	dist := writeDist(t, map[string]string{"assets/app.js": "var x = 1;\n"})

	report, err := Run(context.Background(), Options{
		DistDir: dist,
		Lazy:    lazy.Config{Mode: lazy.ModeStrings},
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Files[0].Written {
		t.Error("identical in-place output should not be rewritten")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{
		DistDir: t.TempDir(),
		Lazy:    lazy.Config{Mode: "lazy"},
	})
	if !errors.Is(err, lazy.ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	dist := writeDist(t, map[string]string{"assets/app.js": bundle})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Options{DistDir: dist, Lazy: lazy.Config{Mode: lazy.ModeStrings}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTransformFile(t *testing.T) {
	dist := writeDist(t, map[string]string{"assets/app.js": bundle})
	p, err := New(Options{DistDir: dist, Lazy: lazy.Config{Mode: lazy.ModeStrings}})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.TransformFile(context.Background(), "assets/app.js"); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(readFile(t, filepath.Join(dist, "assets", "app.js")), "define(") {
		t.Error("TransformFile should rewrite the bundle")
	}
	// Running again over the output is a no-op.
	before := readFile(t, filepath.Join(dist, "assets", "app.js"))
	if err := p.TransformFile(context.Background(), filepath.Join(dist, "assets", "app.js")); err != nil {
		t.Fatal(err)
	}
	if readFile(t, filepath.Join(dist, "assets", "app.js")) != before {
		t.Error("second transform should not change the output")
	}
}

func TestWriteAtomicKeepsMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not preserved on windows")
	}
	path := filepath.Join(t.TempDir(), "app.js")
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := writeAtomic(path, []byte("new")); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v", info.Mode().Perm())
	}
	if readFile(t, path) != "new" {
		t.Error("content not replaced")
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}
}
