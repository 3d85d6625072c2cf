package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"typstkit/pkg/fileid"
)

func archiveBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(content)),
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// multiRegistry serves a set of archives and counts requests per path.
func multiRegistry(t *testing.T, archives map[string][]byte) (*httptest.Server, func(path string) int) {
	t.Helper()
	var mu sync.Mutex
	counts := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		counts[r.URL.Path]++
		mu.Unlock()
		archive, ok := archives[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(archive)
	}))
	t.Cleanup(srv.Close)
	return srv, func(path string) int {
		mu.Lock()
		defer mu.Unlock()
		return counts[path]
	}
}

func writeTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunExpandsCyclicGraph(t *testing.T) {
	// alpha and beta declare each other: the traversal must still terminate
	// and fetch each exactly once.
	archives := map[string][]byte{
		"/preview/alpha-1.0.0.tar.gz": archiveBytes(t, map[string]string{
			"lib.typ":    "#let alpha = 1",
			"typst.toml": "[package]\nname = \"alpha\"\nversion = \"1.0.0\"\n[package.dependencies]\nbeta = \"preview:2.0.0\"\n",
		}),
		"/preview/beta-2.0.0.tar.gz": archiveBytes(t, map[string]string{
			"lib.typ":    "#let beta = 2",
			"typst.toml": "[package]\nname = \"beta\"\nversion = \"2.0.0\"\n[package.dependencies]\nalpha = \"preview:1.0.0\"\n",
		}),
	}
	srv, count := multiRegistry(t, archives)

	templates := t.TempDir()
	writeTemplate(t, templates, "main.typ", `#import "@preview/alpha:1.0.0"`)
	out := t.TempDir()

	err := Run(context.Background(), Config{
		TemplateRoot: templates,
		OutputDir:    out,
		RegistryURL:  srv.URL,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, dir := range []string{"preview/alpha/1.0.0/lib.typ", "preview/beta/2.0.0/lib.typ"} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(dir))); err != nil {
			t.Errorf("expected %s to be materialized: %v", dir, err)
		}
	}
	if got := count("/preview/alpha-1.0.0.tar.gz"); got != 1 {
		t.Errorf("alpha fetched %d times, want 1", got)
	}
	if got := count("/preview/beta-2.0.0.tar.gz"); got != 1 {
		t.Errorf("beta fetched %d times, want 1", got)
	}
}

func TestRunFollowsImplicitImports(t *testing.T) {
	// gamma does not declare delta in its manifest but imports it from source.
	archives := map[string][]byte{
		"/preview/gamma-1.0.0.tar.gz": archiveBytes(t, map[string]string{
			"lib.typ": `#import "@preview/delta:0.1.0"`,
		}),
		"/preview/delta-0.1.0.tar.gz": archiveBytes(t, map[string]string{
			"lib.typ": "#let delta = 4",
		}),
	}
	srv, _ := multiRegistry(t, archives)

	templates := t.TempDir()
	writeTemplate(t, templates, "main.typ", `#import "@preview/gamma:1.0.0"`)
	out := t.TempDir()

	err := Run(context.Background(), Config{
		TemplateRoot: templates,
		OutputDir:    out,
		RegistryURL:  srv.URL,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "preview", "delta", "0.1.0", "lib.typ")); err != nil {
		t.Errorf("implicit dependency not materialized: %v", err)
	}
}

func TestRunAggregatesFailures(t *testing.T) {
	srv, _ := multiRegistry(t, map[string][]byte{
		"/preview/good-1.0.0.tar.gz": archiveBytes(t, map[string]string{"lib.typ": "ok"}),
	})

	templates := t.TempDir()
	writeTemplate(t, templates, "main.typ",
		"#import \"@preview/good:1.0.0\"\n#import \"@preview/missing:1.0.0\"\n")
	out := t.TempDir()

	err := Run(context.Background(), Config{
		TemplateRoot: templates,
		OutputDir:    out,
		RegistryURL:  srv.URL,
		RetryCount:   1,
	})

	var failed *FailedDownloadsError
	if !errors.As(err, &failed) {
		t.Fatalf("Run() error = %v, want FailedDownloadsError", err)
	}
	want := fileid.PackageSpec{Namespace: "preview", Name: "missing", Version: "1.0.0"}
	if len(failed.Specs) != 1 || failed.Specs[0] != want {
		t.Errorf("failed specs = %v, want [%v]", failed.Specs, want)
	}

	// The good package still materialized; the failure did not abort the scan.
	if _, err := os.Stat(filepath.Join(out, "preview", "good", "1.0.0", "lib.typ")); err != nil {
		t.Errorf("good package not materialized: %v", err)
	}
}

func TestRunSkipsMaterializedPackages(t *testing.T) {
	srv, count := multiRegistry(t, nil)

	templates := t.TempDir()
	writeTemplate(t, templates, "main.typ", `#import "@preview/warm:1.0.0"`)
	out := t.TempDir()
	if err := os.MkdirAll(filepath.Join(out, "preview", "warm", "1.0.0"), 0755); err != nil {
		t.Fatal(err)
	}

	err := Run(context.Background(), Config{
		TemplateRoot: templates,
		OutputDir:    out,
		RegistryURL:  srv.URL,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := count("/preview/warm-1.0.0.tar.gz"); got != 0 {
		t.Errorf("warm package fetched %d times, want 0", got)
	}
}

func TestRunRequiresTemplateRoot(t *testing.T) {
	err := Run(context.Background(), Config{OutputDir: t.TempDir()})
	if err == nil {
		t.Fatal("Run() expected error for missing template root")
	}
}

func TestRunSkipsBadTemplates(t *testing.T) {
	srv, _ := multiRegistry(t, map[string][]byte{
		"/preview/good-1.0.0.tar.gz": archiveBytes(t, map[string]string{"lib.typ": "ok"}),
	})

	templates := t.TempDir()
	writeTemplate(t, templates, "broken.typ", string([]byte{0xff, 0xfe, 0x00}))
	writeTemplate(t, templates, "main.typ", `#import "@preview/good:1.0.0"`)
	out := t.TempDir()

	err := Run(context.Background(), Config{
		TemplateRoot: templates,
		OutputDir:    out,
		RegistryURL:  srv.URL,
	})
	if err != nil {
		t.Fatalf("Run() error = %v (a bad template must not abort the scan)", err)
	}
	if _, err := os.Stat(filepath.Join(out, "preview", "good", "1.0.0", "lib.typ")); err != nil {
		t.Errorf("good package not materialized: %v", err)
	}
}

func TestRunRecordsLockfile(t *testing.T) {
	srv, _ := multiRegistry(t, map[string][]byte{
		"/preview/good-1.0.0.tar.gz": archiveBytes(t, map[string]string{"lib.typ": "ok"}),
	})

	templates := t.TempDir()
	writeTemplate(t, templates, "main.typ", `#import "@preview/good:1.0.0"`)
	out := t.TempDir()
	lockPath := filepath.Join(t.TempDir(), "typstkit.lock.toml")

	err := Run(context.Background(), Config{
		TemplateRoot: templates,
		OutputDir:    out,
		RegistryURL:  srv.URL,
		LockPath:     lockPath,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lock, err := LoadLockFile(lockPath)
	if err != nil {
		t.Fatalf("LoadLockFile() error = %v", err)
	}
	spec := fileid.PackageSpec{Namespace: "preview", Name: "good", Version: "1.0.0"}
	if lock.Hash(spec) == "" {
		t.Error("expected archive hash to be pinned in the lockfile")
	}
}
