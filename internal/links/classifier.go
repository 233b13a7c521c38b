package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/handiism/songbot/internal/cache"
	"github.com/handiism/songbot/internal/logging"
	"github.com/handiism/songbot/internal/model"
)

// ErrClassification marks a URL whose shape no platform recognizes.
var ErrClassification = errors.New("unsupported link")

// PlaylistParam is the query parameter that ties a song URL to a playlist.
const PlaylistParam = "list"

// Expander resolves a playlist link into the URLs of its songs, in playlist
// order.
type Expander interface {
	ExpandPlaylist(ctx context.Context, playlist model.SourceLink) ([]string, error)
}

// ExpanderFunc adapts a function to the Expander interface.
type ExpanderFunc func(ctx context.Context, playlist model.SourceLink) ([]string, error)

// ExpandPlaylist calls f.
func (f ExpanderFunc) ExpandPlaylist(ctx context.Context, playlist model.SourceLink) ([]string, error) {
	return f(ctx, playlist)
}

// PlatformExpanders routes expansion to a per-platform Expander, falling back
// to Fallback for platforms without one.
type PlatformExpanders struct {
	ByPlatform map[model.Platform]Expander
	Fallback   Expander
}

// ExpandPlaylist implements Expander.
func (p PlatformExpanders) ExpandPlaylist(ctx context.Context, playlist model.SourceLink) ([]string, error) {
	if e, ok := p.ByPlatform[playlist.Platform]; ok && e != nil {
		return e.ExpandPlaylist(ctx, playlist)
	}
	if p.Fallback != nil {
		return p.Fallback.ExpandPlaylist(ctx, playlist)
	}
	return nil, fmt.Errorf("no playlist expander for %s", playlist.Platform)
}

// Match classifies a single token. Tokens that are not secure URLs, or that no
// platform recognizes, return an error wrapping ErrClassification.
func Match(token string) (model.SourceLink, error) {
	if !strings.HasPrefix(token, "https") {
		return model.SourceLink{}, fmt.Errorf("%w: %q is not a secure URL", ErrClassification, token)
	}
	for _, p := range patterns {
		if link, ok := p.match(token); ok {
			return link, nil
		}
	}
	return model.SourceLink{}, fmt.Errorf("%w: %q", ErrClassification, token)
}

// Classifier extracts song links from text.
type Classifier struct {
	expander Expander
	logger   *slog.Logger
}

// NewClassifier creates a Classifier. A nil expander drops every playlist.
func NewClassifier(expander Expander, logger *slog.Logger) *Classifier {
	return &Classifier{expander: expander, logger: logging.OrDiscard(logger)}
}

// Classify returns the song links found in text.
//
// Platforms are visited in model.Platforms order. Within one platform, links
// keep the order they appear in the text, and each playlist is replaced in
// place by its expansion. Duplicates are kept.
func (c *Classifier) Classify(ctx context.Context, text string) []model.SourceLink {
	var matched []model.SourceLink
	for _, token := range strings.Fields(text) {
		if !strings.HasPrefix(token, "https") {
			continue
		}
		link, err := Match(token)
		if err != nil {
			c.logger.Debug("dropping link", "error", err)
			continue
		}
		matched = append(matched, link)
	}
	if len(matched) == 0 {
		return nil
	}

	var out []model.SourceLink
	for _, platform := range model.Platforms {
		for _, link := range matched {
			if link.Platform != platform {
				continue
			}
			if !link.IsPlaylist() {
				out = append(out, stripPlaylist(link))
				continue
			}
			for _, song := range c.expand(ctx, link) {
				out = append(out, stripPlaylist(song))
			}
		}
	}
	return out
}

func (c *Classifier) expand(ctx context.Context, playlist model.SourceLink) []model.SourceLink {
	if c.expander == nil {
		c.logger.Warn("no playlist expander configured", "url", playlist.URL)
		return nil
	}

	urls, err := c.expander.ExpandPlaylist(ctx, playlist)
	if err != nil {
		c.logger.Warn("playlist expansion failed", "url", playlist.URL, "error", err)
		return nil
	}

	songs := make([]model.SourceLink, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if !strings.HasPrefix(u, "https") || strings.Contains(u, "playlist") || u == playlist.URL {
			continue
		}
		songs = append(songs, model.SourceLink{URL: u, Platform: playlist.Platform, Kind: model.KindSong})
	}
	c.logger.Debug("playlist expanded", "url", playlist.URL, "songs", len(songs))
	return songs
}

func stripPlaylist(link model.SourceLink) model.SourceLink {
	link.URL = cache.StripQueryParams(link.URL, PlaylistParam)
	return link
}
