// Package discover finds the bundles a build should transform.
package discover

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/DeusData/lazycode/internal/lang"
)

// IgnoreDirs are directory names never descended into.
var IgnoreDirs = map[string]bool{
	".cache": true, ".git": true, ".hg": true, ".svn": true,
	".idea": true, ".vscode": true, ".npm": true, ".yarn": true,
	".pnpm-store": true, "bower_components": true, "coverage": true,
	"node_modules": true, "tmp": true,
}

// IgnoreFileName holds extra patterns in the dist directory, one per line.
const IgnoreFileName = ".lazycodeignore"

// DefaultPattern selects the bundles when neither an app name nor include
// patterns are configured.
const DefaultPattern = "assets/*.js"

// FileInfo describes a bundle selected for transformation.
type FileInfo struct {
	Path    string // absolute path
	RelPath string // slash-separated, relative to the dist directory
	Size    int64
}

// Options configures bundle discovery.
type Options struct {
	// AppName adds assets/<AppName>.js to the patterns.
	AppName string
	// Include holds slash-separated path.Match patterns relative to the dist
	// directory. A pattern without a slash matches the base name.
	Include []string
	// IndexFile, relative to the dist directory, adds the local scripts its
	// <script src> tags load (e.g. "index.html").
	IndexFile string
	// IgnoreFile overrides <dist>/.lazycodeignore.
	IgnoreFile string
}

// Patterns returns the effective include patterns for opts, not counting
// scripts found through IndexFile.
func (o *Options) Patterns() []string {
	var pats []string
	if o != nil {
		if o.AppName != "" {
			pats = append(pats, "assets/"+escapePattern(o.AppName)+".js")
		}
		pats = append(pats, o.Include...)
	}
	if len(pats) == 0 && (o == nil || o.IndexFile == "") {
		pats = []string{DefaultPattern}
	}
	return pats
}

func matchAny(patterns []string, rel string) (bool, error) {
	for _, p := range patterns {
		target := rel
		if !strings.Contains(p, "/") {
			target = path.Base(rel)
		}
		ok, err := path.Match(p, target)
		if err != nil {
			return false, fmt.Errorf("pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// shouldSkipDir returns true if the directory should be skipped during discovery.
func shouldSkipDir(name, rel string, extraIgnore []string) bool {
	if IgnoreDirs[name] {
		return true
	}
	skip, _ := matchAny(extraIgnore, rel)
	return skip
}

// Discover walks distDir and returns the JavaScript files matching opts, in
// lexical order.
func Discover(ctx context.Context, distDir string, opts *Options) ([]FileInfo, error) {
	distDir, err := filepath.Abs(distDir)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	patterns := opts.Patterns()
	if _, err := matchAny(patterns, ""); err != nil {
		return nil, err
	}
	if opts != nil && opts.IndexFile != "" {
		index, err := os.ReadFile(filepath.Join(distDir, opts.IndexFile))
		if err != nil {
			return nil, fmt.Errorf("index: %w", err)
		}
		fromIndex, err := indexPatterns(index)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, fromIndex...)
	}

	ignPath := filepath.Join(distDir, IgnoreFileName)
	if opts != nil && opts.IgnoreFile != "" {
		ignPath = opts.IgnoreFile
	}
	extraIgnore, _ := loadIgnoreFile(ignPath)

	var files []FileInfo

	err = filepath.WalkDir(distDir, func(p string, d os.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if p == distDir {
				return walkErr
			}
			return filepath.SkipDir
		}

		rel, _ := filepath.Rel(distDir, p)
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && shouldSkipDir(d.Name(), rel, extraIgnore) {
				return filepath.SkipDir
			}
			return nil
		}
		if l, ok := lang.LanguageForExtension(filepath.Ext(p)); !ok || l != lang.JavaScript {
			return nil
		}
		if skip, _ := matchAny(extraIgnore, rel); skip {
			return nil
		}
		if ok, _ := matchAny(patterns, rel); !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{Path: p, RelPath: rel, Size: info.Size()})
		return nil
	})

	return files, err
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}
