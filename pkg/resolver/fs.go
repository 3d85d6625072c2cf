package resolver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"typstkit/pkg/fileid"
)

// FileSystem resolves local ids against a root directory. Package-scoped ids
// are served from an optional local package root laid out as
// namespace/name/version; without one they are not found, leaving them to the
// registry or embedded resolvers later in the chain.
type FileSystem struct {
	root        string
	packageRoot string
}

func NewFileSystem(root string) *FileSystem {
	return &FileSystem{root: root}
}

// WithPackageRoot sets the directory used to look up package-scoped ids.
func (f *FileSystem) WithPackageRoot(dir string) *FileSystem {
	f.packageRoot = dir
	return f
}

func (f *FileSystem) resolveBytes(id fileid.FileID) ([]byte, error) {
	dir := f.root
	if pkg, ok := id.Package(); ok {
		if f.packageRoot == "" {
			return nil, NotFound(id)
		}
		dir = filepath.Join(f.packageRoot, filepath.FromSlash(pkg.Dir()))
	}

	path := filepath.Join(dir, filepath.FromSlash(id.RootlessPath()))
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NotFound(id)
		}
		return nil, &IOError{Path: path, Err: err}
	}
	return b, nil
}

func (f *FileSystem) ResolveSource(id fileid.FileID) (Source, error) {
	b, err := f.resolveBytes(id)
	if err != nil {
		return Source{}, err
	}
	return DecodeSource(id, b)
}

func (f *FileSystem) ResolveBinary(id fileid.FileID) ([]byte, error) {
	return f.resolveBytes(id)
}
