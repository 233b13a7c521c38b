// Package fetch turns a request into private working copies of its audio.
//
// A request either replies to a message carrying an audio attachment, in
// which case that single file is used, or carries media links. Links are
// classified, looked up in the cache and downloaded on a miss by a bounded
// pool of workers. Each link succeeds or fails on its own: the orchestrator
// waits for every worker, reports each failure, and returns the working files
// of the links that did succeed together with a *Failure.
//
// Files handed to callers are always copies made by the workfile manager,
// never cache entries, so callers may edit or delete them freely.
package fetch
