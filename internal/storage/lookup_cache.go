package storage

import (
	"context"
	"math"
)

// Lookup is the song-resolution half of Tx.
type Lookup interface {
	LookupSong(ctx context.Context, title, artist string, duration float64) (string, string, bool, error)
}

type lookupKey struct {
	title, artist string
	duration      uint64 // exact bits, so 326.0 and 326.01 never share an entry
}

type lookupResult struct {
	songID, artistID string
	found            bool
}

// CachedLookup memoizes song lookups. Both hits and misses are cached;
// errors are not. It is meant to live for one event pass, while the songs
// and artists dimensions do not change.
type CachedLookup struct {
	cache  map[lookupKey]lookupResult
	hits   int64
	misses int64
}

// NewCachedLookup returns an empty cache.
func NewCachedLookup() *CachedLookup {
	return &CachedLookup{cache: make(map[lookupKey]lookupResult)}
}

// Through returns a Lookup that consults the cache before next.
func (c *CachedLookup) Through(next Lookup) Lookup {
	return cachedLookup{c: c, next: next}
}

// Stats returns cache hits and misses so far.
func (c *CachedLookup) Stats() (hits, misses int64) { return c.hits, c.misses }

type cachedLookup struct {
	c    *CachedLookup
	next Lookup
}

func (l cachedLookup) LookupSong(ctx context.Context, title, artist string, duration float64) (string, string, bool, error) {
	k := lookupKey{title: title, artist: artist, duration: math.Float64bits(duration)}
	if r, ok := l.c.cache[k]; ok {
		l.c.hits++
		return r.songID, r.artistID, r.found, nil
	}
	l.c.misses++
	songID, artistID, found, err := l.next.LookupSong(ctx, title, artist, duration)
	if err != nil {
		return "", "", false, err
	}
	l.c.cache[k] = lookupResult{songID: songID, artistID: artistID, found: found}
	return songID, artistID, found, nil
}
