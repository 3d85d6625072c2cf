package resolver

import "typstkit/pkg/fileid"

// Chain tries an ordered list of resolvers and returns the first success.
// When every resolver fails it returns the error of the last one tried:
// later resolvers are the more specific fallbacks, so their failure reason is
// the more diagnostic one.
type Chain []Resolver

func (c Chain) ResolveSource(id fileid.FileID) (Source, error) {
	lastErr := NotFound(id)
	for _, r := range c {
		src, err := r.ResolveSource(id)
		if err == nil {
			return src, nil
		}
		lastErr = err
	}
	return Source{}, lastErr
}

func (c Chain) ResolveBinary(id fileid.FileID) ([]byte, error) {
	lastErr := NotFound(id)
	for _, r := range c {
		b, err := r.ResolveBinary(id)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
