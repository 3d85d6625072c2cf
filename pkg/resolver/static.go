package resolver

import (
	"bytes"

	"typstkit/pkg/fileid"
)

// MainSource serves exactly one source file, the entry point of a
// compilation. Every other id is not found.
type MainSource struct {
	source Source
}

// NewMainSource builds a MainSource from raw bytes.
func NewMainSource(id fileid.FileID, content []byte) (*MainSource, error) {
	src, err := DecodeSource(id, content)
	if err != nil {
		return nil, err
	}
	return &MainSource{source: src}, nil
}

func (m *MainSource) ResolveSource(id fileid.FileID) (Source, error) {
	if id == m.source.ID {
		return m.source, nil
	}
	return Source{}, NotFound(id)
}

func (m *MainSource) ResolveBinary(id fileid.FileID) ([]byte, error) {
	return nil, NotFound(id)
}

// StaticSources serves a fixed set of in-memory source files. Binary
// requests are always not found.
type StaticSources struct {
	sources map[fileid.FileID]Source
}

// NewStaticSources decodes the given contents up front. Invalid UTF-8 in any
// entry fails construction.
func NewStaticSources(contents map[fileid.FileID][]byte) (*StaticSources, error) {
	sources := make(map[fileid.FileID]Source, len(contents))
	for id, b := range contents {
		src, err := DecodeSource(id, b)
		if err != nil {
			return nil, err
		}
		sources[id] = src
	}
	return &StaticSources{sources: sources}, nil
}

func (s *StaticSources) ResolveSource(id fileid.FileID) (Source, error) {
	if src, ok := s.sources[id]; ok {
		return src, nil
	}
	return Source{}, NotFound(id)
}

func (s *StaticSources) ResolveBinary(id fileid.FileID) ([]byte, error) {
	return nil, NotFound(id)
}

// StaticBinaries serves a fixed set of in-memory binary files. Source
// requests are always not found.
type StaticBinaries struct {
	binaries map[fileid.FileID][]byte
}

func NewStaticBinaries(binaries map[fileid.FileID][]byte) *StaticBinaries {
	copied := make(map[fileid.FileID][]byte, len(binaries))
	for id, b := range binaries {
		copied[id] = bytes.Clone(b)
	}
	return &StaticBinaries{binaries: copied}
}

func (s *StaticBinaries) ResolveSource(id fileid.FileID) (Source, error) {
	return Source{}, NotFound(id)
}

func (s *StaticBinaries) ResolveBinary(id fileid.FileID) ([]byte, error) {
	if b, ok := s.binaries[id]; ok {
		return bytes.Clone(b), nil
	}
	return nil, NotFound(id)
}
