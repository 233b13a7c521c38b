// Package pipeline runs one request end to end.
//
// A request is handled in this order:
//
//  1. Sweep expired cache entries.
//  2. Parse directives. Malformed or duplicate directives fail the request
//     before anything is fetched.
//  3. Prepare the cover thumbnail and check that every asset exists.
//  4. Fetch working files. Links that fail are reported; the rest carry on.
//  5. Apply the directives. Files whose edits fail are reported and dropped.
//  6. Deliver every remaining file.
//
// Working files are deleted on every path, including failures.
//
// Progress is reported through a callback:
//
//	p, err := pipeline.New(pipeline.Options{
//	    Fetcher: orchestrator,
//	    Engine:  engine,
//	    Deliver: sink,
//	    OnEvent: func(e pipeline.Event) { fmt.Println(e.Message) },
//	})
//	result, err := p.Handle(ctx, pipeline.Request{Text: "https://youtu.be/abc\ncut 0:10 0:20"})
package pipeline
