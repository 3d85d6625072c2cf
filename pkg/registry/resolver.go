package registry

import (
	"bytes"
	"compress/gzip"
	"context"
	"log/slog"
	"net/http"

	"typstkit/pkg/fileid"
	"typstkit/pkg/resolver"
)

// DefaultNamespace is the public registry namespace this resolver serves.
const DefaultNamespace = "preview"

// Options configures a Resolver. The zero value targets the public registry
// with the default client, retry count and namespace.
type Options struct {
	Client     *http.Client
	BaseURL    string
	RetryCount int
	// Backoff delays retry attempts. Left nil, failed fetches are retried
	// immediately.
	Backoff   Backoff
	Namespace string
}

// Resolver serves package-scoped ids by fetching registry archives on cache
// miss and reading entries back out of the cache. Ids without a package
// reference, or in a foreign namespace, are not found.
type Resolver struct {
	dl        Downloader
	cache     Cache
	namespace string
}

func New(cache Cache, opts Options) *Resolver {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Resolver{
		dl: Downloader{
			Client:     opts.Client,
			BaseURL:    opts.BaseURL,
			RetryCount: opts.RetryCount,
			Backoff:    opts.Backoff,
		},
		cache:     cache,
		namespace: namespace,
	}
}

func (r *Resolver) resolveBytes(id fileid.FileID) ([]byte, error) {
	pkg, ok := id.Package()
	if !ok || pkg.Namespace != r.namespace {
		return nil, resolver.NotFound(id)
	}

	// A lookup failure before the fetch is only a cache miss.
	if b, ok, err := r.cache.Lookup(pkg, id); err == nil && ok {
		return b, nil
	} else if err != nil {
		slog.Debug("package cache lookup failed", "package", pkg.String(), "err", err)
	}

	slog.Info("fetching package", "package", pkg.String(), "url", r.dl.ArchiveURL(pkg))
	archive, err := r.dl.FetchArchive(context.Background(), pkg)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, &resolver.MalformedArchiveError{Err: err}
	}
	defer gz.Close()

	if err := r.cache.StoreArchive(pkg, gz); err != nil {
		return nil, err
	}

	b, ok, err := r.cache.Lookup(pkg, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The archive did not contain the requested path.
		return nil, resolver.NotFound(id)
	}
	return b, nil
}

func (r *Resolver) ResolveSource(id fileid.FileID) (resolver.Source, error) {
	b, err := r.resolveBytes(id)
	if err != nil {
		return resolver.Source{}, err
	}
	return resolver.DecodeSource(id, b)
}

func (r *Resolver) ResolveBinary(id fileid.FileID) ([]byte, error) {
	return r.resolveBytes(id)
}
