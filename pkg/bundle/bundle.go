// Package bundle is the build-time pre-pass that discovers every package a
// template tree transitively needs and materializes each one under an output
// directory, ready to be embedded into the program or used as a warm package
// cache.
package bundle

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	libfetchurl "github.com/lucasew/fetchurl"

	"typstkit/pkg/fileid"
	"typstkit/pkg/parse/imports"
	"typstkit/pkg/parse/specifier"
	"typstkit/pkg/registry"
)

const templateRootGuidance = `template root not configured

Choose one of the following:

  1. Pass --templates <dir> to "typstkit bundle"
  2. Set the TYPSTKIT_TEMPLATE_DIR environment variable

The directory should contain the .typ sources whose package imports
will be bundled.`

// Config configures a bundling run.
type Config struct {
	// TemplateRoot is the directory scanned for package imports. Required.
	TemplateRoot string
	// OutputDir receives the materialized namespace/name/version tree. Required.
	OutputDir string

	RegistryURL string
	Client      *http.Client
	RetryCount  int
	Backoff     registry.Backoff

	// LockPath, when set, pins archive hashes across runs and verifies
	// re-downloads against them.
	LockPath string

	// OnDownload is invoked before each package download, for progress
	// reporting.
	OnDownload func(spec fileid.PackageSpec)
}

// FailedDownloadsError aggregates every package that could not be
// downloaded. The pre-pass is a build gate: partial success is not
// actionable, so any failure fails the whole run.
type FailedDownloadsError struct {
	Specs []fileid.PackageSpec
}

func (e *FailedDownloadsError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to download %d package(s):\n", len(e.Specs))
	for _, spec := range e.Specs {
		fmt.Fprintf(&b, "  - %s\n", spec)
	}
	b.WriteString("\nCheck your network connection and retry; already materialized packages are cached and will not be re-downloaded.")
	return b.String()
}

// Run scans the template root for package imports and expands the dependency
// graph breadth-first: each package's manifest dependencies and its own
// source imports are enqueued until no new specs are discovered. Every spec
// is visited at most once, so dependency cycles terminate.
func Run(ctx context.Context, cfg Config) error {
	if cfg.TemplateRoot == "" {
		return errors.New(templateRootGuidance)
	}
	if st, err := os.Stat(cfg.TemplateRoot); err != nil || !st.IsDir() {
		return fmt.Errorf("template root %q is not a directory\n\n%s", cfg.TemplateRoot, templateRootGuidance)
	}
	if cfg.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var lock *LockFile
	if cfg.LockPath != "" {
		var err error
		lock, err = LoadLockFile(cfg.LockPath)
		if err != nil {
			return err
		}
	}

	seeds := scanPackages(cfg.TemplateRoot)
	slog.Info("scanned templates", "root", cfg.TemplateRoot, "packages", len(seeds))

	dl := registry.Downloader{
		Client:     cfg.Client,
		BaseURL:    cfg.RegistryURL,
		RetryCount: cfg.RetryCount,
		Backoff:    cfg.Backoff,
	}
	cache := registry.NewDiskCache(cfg.OutputDir)

	queue := seeds
	visited := map[fileid.PackageSpec]bool{}
	var failed []fileid.PackageSpec

	for len(queue) > 0 {
		spec := queue[0]
		queue = queue[1:]
		if visited[spec] {
			continue
		}
		visited[spec] = true

		pkgDir := filepath.Join(cfg.OutputDir, filepath.FromSlash(spec.Dir()))
		if st, err := os.Stat(pkgDir); err == nil && st.IsDir() {
			slog.Debug("package already materialized", "package", spec.String())
		} else {
			if cfg.OnDownload != nil {
				cfg.OnDownload(spec)
			}
			slog.Info("downloading package", "package", spec.String())
			if err := fetchPackage(ctx, &dl, cache, lock, spec); err != nil {
				slog.Error("package download failed", "package", spec.String(), "err", err)
				failed = append(failed, spec)
				continue
			}
		}

		// Declared dependencies from the manifest.
		manifest, err := ReadManifest(pkgDir)
		if err != nil {
			slog.Warn("skipping unreadable manifest", "package", spec.String(), "err", err)
		} else {
			queue = append(queue, manifest.DependencySpecs()...)
		}

		// Packages may import other packages without declaring them.
		queue = append(queue, scanPackages(pkgDir)...)
	}

	if lock != nil {
		if err := lock.Save(); err != nil {
			return err
		}
	}
	if len(failed) > 0 {
		return &FailedDownloadsError{Specs: failed}
	}
	return nil
}

// scanPackages walks dir for .typ files and collects every package specifier
// imported by them. Unreadable or undecodable files are logged and skipped; a
// single bad file must not hide packages referenced elsewhere.
func scanPackages(dir string) []fileid.PackageSpec {
	var specs []fileid.PackageSpec
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping unreadable path", "path", path, "err", err)
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != ".typ" {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable template", "path", path, "err", err)
			return nil
		}
		if !utf8.Valid(b) {
			slog.Warn("skipping non-utf8 template", "path", path)
			return nil
		}
		for _, target := range imports.Scan(string(b)) {
			if spec, ok := specifier.Parse(target); ok {
				specs = append(specs, spec)
			}
		}
		return nil
	})
	return specs
}

// fetchPackage downloads one archive and unpacks it into the output tree.
// When the lockfile pins a hash for the spec, the download is verified
// against it; otherwise the archive hash is recorded after the fact.
func fetchPackage(ctx context.Context, dl *registry.Downloader, cache *registry.DiskCache, lock *LockFile, spec fileid.PackageSpec) error {
	if lock != nil {
		if expected := lock.Hash(spec); expected != "" {
			return fetchVerified(ctx, dl, cache, spec, expected)
		}
	}

	archive, err := dl.FetchArchive(ctx, spec)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(archive)

	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return fmt.Errorf("failed to decompress %s: %w", spec, err)
	}
	defer gz.Close()
	if err := cache.StoreArchive(spec, gz); err != nil {
		return err
	}

	if lock != nil {
		lock.Record(spec, hex.EncodeToString(sum[:]))
	}
	return nil
}

// fetchVerified downloads through fetchurl, which checks the archive against
// the pinned sha256 before anything is unpacked.
func fetchVerified(ctx context.Context, dl *registry.Downloader, cache *registry.DiskCache, spec fileid.PackageSpec, expected string) error {
	client := dl.Client
	if client == nil {
		client = http.DefaultClient
	}

	tmp, err := os.CreateTemp("", "typstkit-*.tar.gz")
	if err != nil {
		return fmt.Errorf("failed to create temp archive: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	fetcher := libfetchurl.NewFetcher(client)
	err = fetcher.Fetch(ctx, libfetchurl.FetchOptions{
		URLs: []string{dl.ArchiveURL(spec)},
		Algo: "sha256",
		Hash: expected,
		Out:  tmp,
	})
	if err != nil {
		return fmt.Errorf("verified fetch of %s failed: %w", spec, err)
	}

	if _, err := tmp.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to rewind temp archive: %w", err)
	}
	gz, err := gzip.NewReader(tmp)
	if err != nil {
		return fmt.Errorf("failed to decompress %s: %w", spec, err)
	}
	defer gz.Close()
	return cache.StoreArchive(spec, gz)
}
