// Package workfile manages request-private copies of cached media.
//
// Every edit in the pipeline runs against a working file, never against a
// cache entry, so a failed edit cannot corrupt the cache. Working files are
// named tmp_<uuid><ext> inside a dedicated directory and are removed by the
// owner once delivered or superseded.
package workfile
