// Package transform applies a parsed directive set to working files.
//
// The engine keeps a frontier, the ordered files still being edited. Each
// directive, in the order it first appeared in the message, replaces the
// frontier with the concatenated results of applying it to every frontier
// file. Fan-out directives such as cuthead therefore multiply the work of
// every directive that follows them:
//
//	engine := transform.NewEngine(transform.Options{Tool: tool, Covers: covers, Files: files})
//	out, err := engine.Apply(ctx, paths, set)
//
// Every file handed to Apply or created by it ends up either in the returned
// slice or deleted.
package transform
