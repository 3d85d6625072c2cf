// Package specifier parses package specifier strings of the form
// "@namespace/name:version".
package specifier

import (
	"strings"

	"typstkit/pkg/fileid"
)

// Parse extracts a PackageSpec from a specifier string. ok is false when the
// string is not a well-formed specifier: missing the leading "@", missing the
// version, or containing invalid identifier or version characters.
func Parse(s string) (spec fileid.PackageSpec, ok bool) {
	rest, found := strings.CutPrefix(s, "@")
	if !found {
		return fileid.PackageSpec{}, false
	}

	namespace, nameVersion, found := strings.Cut(rest, "/")
	if !found {
		return fileid.PackageSpec{}, false
	}
	name, version, found := strings.Cut(nameVersion, ":")
	if !found {
		return fileid.PackageSpec{}, false
	}

	if !validIdent(namespace) || !validIdent(name) || !validVersion(version) {
		return fileid.PackageSpec{}, false
	}
	return fileid.PackageSpec{Namespace: namespace, Name: name, Version: version}, true
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func validVersion(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}
