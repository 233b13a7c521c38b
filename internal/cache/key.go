package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// TrackingParams lists query parameters that do not change which media a URL
// points at. They are stripped before hashing so equivalent links share one
// cache entry.
var TrackingParams = []string{"list", "index", "si", "pp", "feature"}

// Key identifies a cache entry.
//
// Name is either a content hash of a normalized URL or a platform-native
// unique id. Ext is the file extension including the leading dot; an empty Ext
// means the store's default extension.
type Key struct {
	Name string
	Ext  string
}

// KeyForURL derives the key for a source URL. Tracking parameters are removed
// first, so KeyForURL(u) == KeyForURL(u + "&list=xyz").
func KeyForURL(raw string) Key {
	sum := sha256.Sum256([]byte(NormalizeURL(raw)))
	return Key{Name: hex.EncodeToString(sum[:])}
}

// KeyForFileID derives the key for a platform-native unique file id.
func KeyForFileID(id string) Key {
	return Key{Name: sanitizeID(id)}
}

// WithExt returns a copy of k that maps to a file with the given extension.
func (k Key) WithExt(ext string) Key {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	k.Ext = ext
	return k
}

func (k Key) String() string {
	return k.Name + k.Ext
}

// NormalizeURL trims whitespace and removes tracking query parameters while
// keeping the order of the remaining ones. Strings that do not parse as URLs
// are returned trimmed.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	return StripQueryParams(s, TrackingParams...)
}

// StripQueryParams removes every occurrence of the named query parameters
// from raw. The order of the remaining parameters is preserved.
func StripQueryParams(raw string, params ...string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}

	drop := make(map[string]struct{}, len(params))
	for _, p := range params {
		drop[p] = struct{}{}
	}

	pairs := strings.Split(u.RawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		name := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			name = pair[:i]
		}
		if unescaped, err := url.QueryUnescape(name); err == nil {
			name = unescaped
		}
		if _, ok := drop[name]; ok {
			continue
		}
		kept = append(kept, pair)
	}

	u.RawQuery = strings.Join(kept, "&")
	u.ForceQuery = false
	return u.String()
}

// sanitizeID keeps platform ids usable as file names.
func sanitizeID(id string) string {
	id = strings.TrimSpace(id)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
