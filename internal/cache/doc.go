// Package cache provides the content-addressable media cache.
//
// Entries live as flat files named <key><ext> inside a single directory,
// keyed either by a hash of a normalized source URL or by a platform-native
// unique file id. Entries are written once and then only read; a directive
// that forces a re-fetch overwrites the entry in place.
//
// Writes go through a temporary file and an atomic rename, so two requests
// racing on the same key both succeed and the last rename wins. The content
// is equivalent either way, so no lock guards the check-then-populate path.
//
//	store, err := cache.New(cache.Options{Dir: dir})
//	path, err := store.Put(ctx, cache.KeyForURL(url), body)
//	if path, ok := store.Get(cache.KeyForURL(url)); ok { ... }
package cache
