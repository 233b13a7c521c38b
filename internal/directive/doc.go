// Package directive parses the editing directives carried in a message.
//
// Each non-empty line of a message whose first word names a recognized
// directive becomes one occurrence of that directive; every other line is
// ignored. All arity and uniqueness rules are checked here, once, so a bad
// message fails before any file is fetched or edited.
//
//	set, err := directive.Parse(message)
//	if d, ok := set.Get(directive.KindCut); ok { ... }
package directive
