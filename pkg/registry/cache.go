package registry

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"typstkit/pkg/fileid"
	"typstkit/pkg/resolver"
)

// Cache stores unpacked package archives and serves individual entries.
// Stored content is treated as immutable: a hit is never re-fetched.
type Cache interface {
	// Lookup returns the raw bytes for id, or ok=false when the package (or
	// the entry within it) is not cached.
	Lookup(spec fileid.PackageSpec, id fileid.FileID) ([]byte, bool, error)
	// StoreArchive unpacks an uncompressed tar stream under spec.
	StoreArchive(spec fileid.PackageSpec, archive io.Reader) error
}

// DiskCache persists unpacked packages under root/namespace/name/version,
// surviving process restarts.
type DiskCache struct {
	root string
}

func NewDiskCache(root string) *DiskCache {
	return &DiskCache{root: root}
}

func (c *DiskCache) dir(spec fileid.PackageSpec) string {
	return filepath.Join(c.root, filepath.FromSlash(spec.Dir()))
}

func (c *DiskCache) Lookup(spec fileid.PackageSpec, id fileid.FileID) ([]byte, bool, error) {
	path := filepath.Join(c.dir(spec), filepath.FromSlash(id.RootlessPath()))
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, &resolver.IOError{Path: path, Err: err}
	}
	return b, true, nil
}

// StoreArchive unpacks into a temporary sibling directory and renames it into
// place, so a failed unpack never leaves a half-written package behind.
func (c *DiskCache) StoreArchive(spec fileid.PackageSpec, archive io.Reader) error {
	dest := c.dir(spec)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return &resolver.IOError{Path: dest, Err: err}
	}

	tmp := dest + ".tmp"
	_ = os.RemoveAll(tmp)
	if err := ExtractTar(archive, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.RemoveAll(tmp)
		// A concurrent resolution may have materialized the package first;
		// cached content is immutable, so theirs is as good as ours.
		if st, statErr := os.Stat(dest); statErr == nil && st.IsDir() {
			return nil
		}
		return &resolver.IOError{Path: dest, Err: err}
	}
	return nil
}

// MemoryCache keeps decoded archive entries in a map keyed by FileID. The
// lock is held only around map access, never across decompression.
type MemoryCache struct {
	mu    sync.Mutex
	files map[fileid.FileID][]byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{files: map[fileid.FileID][]byte{}}
}

func (c *MemoryCache) Lookup(_ fileid.PackageSpec, id fileid.FileID) ([]byte, bool, error) {
	c.mu.Lock()
	b, ok := c.files[id]
	c.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(b), true, nil
}

func (c *MemoryCache) StoreArchive(spec fileid.PackageSpec, archive io.Reader) error {
	decoded := map[fileid.FileID][]byte{}
	tr := tar.NewReader(archive)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &resolver.MalformedArchiveError{Err: err}
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		b, err := io.ReadAll(tr)
		if err != nil {
			return &resolver.MalformedArchiveError{Err: err}
		}
		decoded[fileid.New(spec, hdr.Name)] = b
	}

	c.mu.Lock()
	for id, b := range decoded {
		c.files[id] = b
	}
	c.mu.Unlock()
	return nil
}

// ExtractTar unpacks an uncompressed tar stream into destDir. Entries that
// would escape destDir are skipped.
func ExtractTar(r io.Reader, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return &resolver.IOError{Path: destDir, Err: err}
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &resolver.MalformedArchiveError{Err: err}
		}

		name := filepath.FromSlash(hdr.Name)
		if !filepath.IsLocal(name) {
			continue
		}
		target := filepath.Join(destDir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return &resolver.IOError{Path: target, Err: err}
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return &resolver.IOError{Path: target, Err: err}
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
			if err != nil {
				return &resolver.IOError{Path: target, Err: err}
			}
			if _, err := io.Copy(f, tr); err != nil {
				_ = f.Close()
				return &resolver.MalformedArchiveError{Err: err}
			}
			if err := f.Close(); err != nil {
				return &resolver.IOError{Path: target, Err: err}
			}
		}
	}
}
