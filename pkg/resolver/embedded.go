package resolver

import (
	"bytes"
	"fmt"
	"io/fs"

	"typstkit/pkg/fileid"
)

// Embedded serves package content from a directory tree baked into the
// program, normally an embed.FS over the output of `typstkit bundle`. The
// tree is flattened into a map once at construction; resolution is a single
// lookup with zero I/O. Keys follow the cache layout:
// namespace/name/version/vpath for package ids, the bare vpath otherwise.
type Embedded struct {
	files map[string][]byte
}

// NewEmbedded walks fsys and indexes every regular file.
func NewEmbedded(fsys fs.FS) (*Embedded, error) {
	files := map[string][]byte{}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		files[p] = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index embedded packages: %w", err)
	}
	return &Embedded{files: files}, nil
}

func (e *Embedded) key(id fileid.FileID) string {
	if pkg, ok := id.Package(); ok {
		return pkg.Dir() + "/" + id.RootlessPath()
	}
	return id.RootlessPath()
}

func (e *Embedded) ResolveSource(id fileid.FileID) (Source, error) {
	b, ok := e.files[e.key(id)]
	if !ok {
		return Source{}, NotFound(id)
	}
	return DecodeSource(id, b)
}

func (e *Embedded) ResolveBinary(id fileid.FileID) ([]byte, error) {
	b, ok := e.files[e.key(id)]
	if !ok {
		return nil, NotFound(id)
	}
	return bytes.Clone(b), nil
}
