// Package artwork prepares cover thumbnails for pictures referenced by a
// request, so the cover directive can find them in the cache.
package artwork
