// Package links finds media links in free-form text.
//
// Tokens that look like secure URLs are matched against per-platform song and
// playlist patterns. Playlist links are expanded into their songs through an
// Expander, and every resulting song URL has its playlist tracking parameter
// removed.
//
// # Usage
//
//	c := links.NewClassifier(links.PlatformExpanders{
//	    Fallback: ytdlpClient,
//	    ByPlatform: map[model.Platform]links.Expander{
//	        model.PlatformBandcamp: bandcampExpander,
//	    },
//	}, logger)
//
//	songs := c.Classify(ctx, "have a listen https://youtu.be/dQw4w9WgXcQ")
//
// Classification is best effort. Unrecognized tokens and failed expansions are
// logged and dropped rather than returned as errors.
package links
