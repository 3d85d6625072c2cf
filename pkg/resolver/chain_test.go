package resolver

import (
	"errors"
	"testing"

	"typstkit/pkg/fileid"
)

// stubResolver answers every request with a fixed result and counts calls.
type stubResolver struct {
	source      Source
	binary      []byte
	err         error
	sourceCalls int
	binaryCalls int
}

func (s *stubResolver) ResolveSource(id fileid.FileID) (Source, error) {
	s.sourceCalls++
	if s.err != nil {
		return Source{}, s.err
	}
	return s.source, nil
}

func (s *stubResolver) ResolveBinary(id fileid.FileID) ([]byte, error) {
	s.binaryCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.binary, nil
}

func TestChainFirstSuccessWins(t *testing.T) {
	id := fileid.NewLocal("main.typ")
	failing := &stubResolver{err: NotFound(id)}
	succeeding := &stubResolver{source: Source{ID: id, Text: "hello"}}

	tests := []struct {
		name  string
		chain Chain
	}{
		{name: "failing resolver first", chain: Chain{failing, succeeding}},
		{name: "succeeding resolver first", chain: Chain{succeeding, failing}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := tt.chain.ResolveSource(id)
			if err != nil {
				t.Fatalf("ResolveSource() error = %v", err)
			}
			if src.Text != "hello" {
				t.Errorf("ResolveSource() text = %q, want %q", src.Text, "hello")
			}
		})
	}
}

func TestChainReturnsLastError(t *testing.T) {
	id := fileid.NewLocal("main.typ")
	first := errors.New("error from first resolver")
	last := errors.New("error from last resolver")

	chain := Chain{&stubResolver{err: first}, &stubResolver{err: last}}

	_, err := chain.ResolveSource(id)
	if !errors.Is(err, last) {
		t.Errorf("ResolveSource() error = %v, want last resolver's error", err)
	}

	_, err = chain.ResolveBinary(id)
	if !errors.Is(err, last) {
		t.Errorf("ResolveBinary() error = %v, want last resolver's error", err)
	}
}

func TestEmptyChainNotFound(t *testing.T) {
	id := fileid.NewLocal("main.typ")

	_, err := Chain{}.ResolveSource(id)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("ResolveSource() error = %v, want NotFoundError", err)
	}
	if notFound.Path != "/main.typ" {
		t.Errorf("NotFoundError path = %q, want %q", notFound.Path, "/main.typ")
	}
}
