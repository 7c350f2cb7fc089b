package metacache

import (
	"context"

	"bibclean/internal/csl"
	"bibclean/internal/pipeline"
)

// CachingResolver wraps a resolver with the on-disk metadata cache.
// DOI fetches are served from the cache when possible; searches always
// go to the registry since their results depend on index freshness.
type CachingResolver struct {
	inner pipeline.Resolver
	cache *Cache
}

// NewCachingResolver wraps inner with cache.
func NewCachingResolver(inner pipeline.Resolver, cache *Cache) *CachingResolver {
	return &CachingResolver{inner: inner, cache: cache}
}

// FetchByDOI consults the cache before hitting the registry and stores
// fresh documents on the way back. Cache faults are ignored; the
// registry result wins.
func (r *CachingResolver) FetchByDOI(ctx context.Context, doi string) (*csl.Document, error) {
	if doc, ok, err := r.cache.Get(doi); err == nil && ok {
		return doc, nil
	}

	doc, err := r.inner.FetchByDOI(ctx, doi)
	if err != nil {
		return nil, err
	}

	_ = r.cache.Put(doi, doc)
	return doc, nil
}

// SearchDOI delegates to the wrapped resolver.
func (r *CachingResolver) SearchDOI(ctx context.Context, title, author string) (string, error) {
	return r.inner.SearchDOI(ctx, title, author)
}
