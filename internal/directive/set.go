package directive

import (
	"context"
	"fmt"
	"strings"
)

// Set is the ordered collection of directives found in one message.
//
// Distinct kinds keep the order in which they first appear, which is also the
// order the transform chain applies them in. Repeated occurrences of one kind
// keep message order.
type Set struct {
	order      []Kind
	raw        map[Kind][][]string
	directives map[Kind]Directive
}

// Parse extracts and validates the directives in text.
func Parse(text string) (*Set, error) {
	s := &Set{
		raw:        make(map[Kind][][]string),
		directives: make(map[Kind]Directive),
	}

	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		kind, ok := LookupKind(fields[0])
		if !ok {
			continue
		}
		if _, seen := s.raw[kind]; !seen {
			s.order = append(s.order, kind)
		}
		s.raw[kind] = append(s.raw[kind], fields[1:])
	}

	for _, kind := range s.order {
		d, err := build(kind, s.raw[kind])
		if err != nil {
			return nil, err
		}
		s.directives[kind] = d
	}
	return s, nil
}

// Kinds returns the distinct directive kinds in application order.
func (s *Set) Kinds() []Kind {
	return append([]Kind(nil), s.order...)
}

// Len returns the number of distinct directives.
func (s *Set) Len() int {
	return len(s.order)
}

// Has reports whether kind occurs in the set.
func (s *Set) Has(kind Kind) bool {
	_, ok := s.directives[kind]
	return ok
}

// Get returns the validated directive for kind.
func (s *Set) Get(kind Kind) (Directive, bool) {
	d, ok := s.directives[kind]
	return d, ok
}

// Directives returns every validated directive in application order.
func (s *Set) Directives() []Directive {
	out := make([]Directive, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.directives[k])
	}
	return out
}

// Raw returns the argument lists of every occurrence of kind, in message
// order.
func (s *Set) Raw(kind Kind) [][]string {
	return s.raw[kind]
}

// SplitChapters reports whether the fetch step must split by chapters.
func (s *Set) SplitChapters() bool {
	return s.Has(KindSplitChapters)
}

// CoverURL returns the picture URL of the cover directive, if any.
func (s *Set) CoverURL() (string, bool) {
	d, ok := s.Get(KindCover)
	if !ok {
		return "", false
	}
	return d.CoverURL, true
}

// AssetChecker reports whether a prepared cover thumbnail exists for a
// picture URL.
type AssetChecker interface {
	HasCover(ctx context.Context, pictureURL string) bool
}

// CheckAssets verifies that every external asset referenced by the set has
// been prepared.
func (s *Set) CheckAssets(ctx context.Context, assets AssetChecker) error {
	url, ok := s.CoverURL()
	if !ok {
		return nil
	}
	if assets == nil || !assets.HasCover(ctx, url) {
		return fmt.Errorf("%w: no thumbnail prepared for %s", ErrMissingAsset, url)
	}
	return nil
}
