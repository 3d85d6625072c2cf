package fileid

import (
	"fmt"
	"path"
	"strings"
)

// PackageSpec identifies a distributable package: a registry namespace, a
// package name and an exact version. Versions are compared as opaque strings.
type PackageSpec struct {
	Namespace string
	Name      string
	Version   string
}

// String renders the canonical specifier form, e.g. "@preview/cetz:0.3.2".
func (s PackageSpec) String() string {
	return fmt.Sprintf("@%s/%s:%s", s.Namespace, s.Name, s.Version)
}

// Dir returns the cache subdirectory for the package, "namespace/name/version".
func (s PackageSpec) Dir() string {
	return path.Join(s.Namespace, s.Name, s.Version)
}

// IsZero reports whether the spec is the zero value.
func (s PackageSpec) IsZero() bool {
	return s == PackageSpec{}
}

// FileID is the universal lookup key for resolvable content: an optional
// package reference plus a rooted, slash-separated virtual path. FileIDs are
// immutable values, compared by value, and usable directly as map keys.
type FileID struct {
	pkg    PackageSpec
	hasPkg bool
	vpath  string
}

// New returns a FileID scoped to the given package.
func New(pkg PackageSpec, vpath string) FileID {
	return FileID{pkg: pkg, hasPkg: true, vpath: normalize(vpath)}
}

// NewLocal returns a FileID for a resource local to the invoking project.
func NewLocal(vpath string) FileID {
	return FileID{vpath: normalize(vpath)}
}

// Package returns the package reference, if any.
func (id FileID) Package() (PackageSpec, bool) {
	return id.pkg, id.hasPkg
}

// VPath returns the rooted virtual path, e.g. "/lib.typ".
func (id FileID) VPath() string {
	return id.vpath
}

// RootlessPath returns the virtual path without the leading slash, suitable
// for joining onto a package or cache directory.
func (id FileID) RootlessPath() string {
	return strings.TrimPrefix(id.vpath, "/")
}

func (id FileID) String() string {
	if id.hasPkg {
		return id.pkg.String() + id.vpath
	}
	return id.vpath
}

// normalize produces a rooted, cleaned virtual path. Virtual paths are always
// slash-separated, independent of the host filesystem.
func normalize(vpath string) string {
	vpath = strings.ReplaceAll(vpath, "\\", "/")
	if !strings.HasPrefix(vpath, "/") {
		vpath = "/" + vpath
	}
	return path.Clean(vpath)
}
