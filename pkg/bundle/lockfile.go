package bundle

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"typstkit/pkg/fileid"
)

// LockFile pins the sha256 of every downloaded package archive, keyed by
// specifier string. Pinned archives are verified on re-download.
type LockFile struct {
	path string

	Archives map[string]string `toml:"archives"`
}

// LoadLockFile reads a lockfile, returning an empty one when the file does
// not exist yet.
func LoadLockFile(path string) (*LockFile, error) {
	out := &LockFile{path: path, Archives: map[string]string{}}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return out, nil
	}
	if _, err := toml.DecodeFile(path, out); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if out.Archives == nil {
		out.Archives = map[string]string{}
	}
	return out, nil
}

// Hash returns the pinned archive hash for spec, or "" when unpinned.
func (l *LockFile) Hash(spec fileid.PackageSpec) string {
	return l.Archives[spec.String()]
}

// Record pins the archive hash for spec.
func (l *LockFile) Record(spec fileid.PackageSpec, hash string) {
	l.Archives[spec.String()] = hash
}

// Save writes the lockfile back to disk.
func (l *LockFile) Save() error {
	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", l.path, err)
	}
	enc := toml.NewEncoder(f)
	if err := enc.Encode(l); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", l.path, err)
	}
	return f.Close()
}
