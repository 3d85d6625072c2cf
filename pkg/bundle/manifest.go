package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"typstkit/pkg/fileid"
)

// ManifestName is the package manifest file at every package root.
const ManifestName = "typst.toml"

// Manifest is the subset of the package manifest the dependency pre-pass
// needs: the explicit dependency table.
type Manifest struct {
	Package ManifestPackage `toml:"package"`
}

type ManifestPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	// Dependencies maps dependency name to "namespace:version".
	Dependencies map[string]string `toml:"dependencies"`
}

// ReadManifest loads the manifest from a package directory. A missing
// manifest yields an empty one; packages are not required to declare their
// dependencies.
func ReadManifest(dir string) (*Manifest, error) {
	out := &Manifest{}
	path := filepath.Join(dir, ManifestName)
	if _, err := toml.DecodeFile(path, out); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return out, nil
}

// DependencySpecs converts the dependency table into package specs. Entries
// that do not follow the "namespace:version" form are skipped.
func (m *Manifest) DependencySpecs() []fileid.PackageSpec {
	var specs []fileid.PackageSpec
	for name, value := range m.Package.Dependencies {
		namespace, version, ok := strings.Cut(value, ":")
		if !ok || namespace == "" || version == "" {
			continue
		}
		specs = append(specs, fileid.PackageSpec{
			Namespace: namespace,
			Name:      name,
			Version:   version,
		})
	}
	return specs
}
