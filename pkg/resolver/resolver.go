// Package resolver supplies the document compiler with source text and binary
// assets it cannot locate itself. Individual resolvers each answer for one
// backing store (memory, filesystem, embedded data, package registry) and are
// composed into an ordered Chain.
package resolver

import (
	"strings"
	"unicode/utf8"

	"typstkit/pkg/fileid"
)

// Source is decoded text content together with the id it was resolved for.
// The byte-order mark, if any, has been stripped.
type Source struct {
	ID   fileid.FileID
	Text string
}

// Resolver answers "do you have content for this id" for source text and
// binary data independently. A resolver may meaningfully implement only one
// of the two operations and return not-found for the other.
type Resolver interface {
	ResolveSource(id fileid.FileID) (Source, error)
	ResolveBinary(id fileid.FileID) ([]byte, error)
}

// DecodeSource turns raw bytes into a Source. Invalid UTF-8 is rejected with
// InvalidEncodingError so callers can tell "missing" from "unreadable".
func DecodeSource(id fileid.FileID, b []byte) (Source, error) {
	if !utf8.Valid(b) {
		return Source{}, &InvalidEncodingError{Path: id.VPath()}
	}
	text := strings.TrimPrefix(string(b), "\ufeff")
	return Source{ID: id, Text: text}, nil
}
