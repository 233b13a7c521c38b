// Package delivery hands finished files to their destination and remembers
// them in the cache, so a later reply to a delivered file is a cache hit.
package delivery
