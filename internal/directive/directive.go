package directive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/handiism/songbot/internal/model"
)

var (
	ErrDuplicateDirective = errors.New("duplicate directive")
	ErrMalformedDirective = errors.New("malformed directive")
	ErrMissingAsset       = errors.New("missing asset")
)

// DefaultCutHeadSeconds is how many files cuthead produces without an
// argument.
const DefaultCutHeadSeconds = 5

// Replacement is one find/replace step of replacetitle.
type Replacement struct {
	Old string
	New string
}

// Directive is a validated directive. Only the fields relevant to Kind are
// set.
type Directive struct {
	Kind Kind

	// Value is the new tag value for metadata directives.
	Value string

	// CoverURL is the picture URL for cover.
	CoverURL string

	// Replacements holds every replacetitle occurrence in message order.
	Replacements []Replacement

	// Start and End bound a cut.
	Start model.Offset
	End   model.Offset

	// Seconds is the number of files cuthead produces.
	Seconds int
}

// Field returns the tag field a metadata directive rewrites.
func (d Directive) Field() (model.Field, bool) {
	if d.Kind.Category() != CategoryMetadata {
		return "", false
	}
	return model.Field(d.Kind), true
}

// ApplyReplacements runs each replacement against title in order, each one
// seeing the result of the previous, trimming surrounding space after every
// step.
func ApplyReplacements(title string, replacements []Replacement) string {
	for _, r := range replacements {
		title = strings.TrimSpace(strings.ReplaceAll(title, r.Old, r.New))
	}
	return title
}

func build(kind Kind, occurrences [][]string) (Directive, error) {
	if !kind.Repeatable() && len(occurrences) > 1 {
		return Directive{}, fmt.Errorf("%w: %s can only be used once, got %d", ErrDuplicateDirective, kind, len(occurrences))
	}

	d := Directive{Kind: kind}
	args := occurrences[0]

	switch kind {
	case KindTitle, KindArtist, KindAlbum:
		if len(args) == 0 {
			return Directive{}, fmt.Errorf("%w: %s needs a value", ErrMalformedDirective, kind)
		}
		d.Value = strings.Join(args, " ")

	case KindCover:
		if len(args) != 1 {
			return Directive{}, fmt.Errorf("%w: cover expects one picture URL, got %d arguments", ErrMalformedDirective, len(args))
		}
		d.CoverURL = args[0]

	case KindReplaceTitle:
		for _, a := range occurrences {
			r, err := parseReplacement(a)
			if err != nil {
				return Directive{}, err
			}
			d.Replacements = append(d.Replacements, r)
		}

	case KindCut:
		if len(args) != 2 {
			return Directive{}, fmt.Errorf("%w: cut expects start and end, got %d arguments", ErrMalformedDirective, len(args))
		}
		start, err := model.ParseOffset(args[0])
		if err != nil {
			return Directive{}, fmt.Errorf("%w: cut start: %v", ErrMalformedDirective, err)
		}
		end, err := model.ParseOffset(args[1])
		if err != nil {
			return Directive{}, fmt.Errorf("%w: cut end: %v", ErrMalformedDirective, err)
		}
		d.Start, d.End = start, end

	case KindCutHead:
		d.Seconds = DefaultCutHeadSeconds
		switch len(args) {
		case 0:
		case 1:
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return Directive{}, fmt.Errorf("%w: cuthead expects a positive number of seconds, got %q", ErrMalformedDirective, args[0])
			}
			d.Seconds = n
		default:
			return Directive{}, fmt.Errorf("%w: too many arguments for cuthead (expected 0 or 1)", ErrMalformedDirective)
		}

	case KindSplitChapters:
		if len(args) != 0 {
			return Directive{}, fmt.Errorf("%w: splitchapters takes no arguments", ErrMalformedDirective)
		}
	}

	return d, nil
}

// parseReplacement reads "old;new". A trailing ";" with nothing after it
// deletes old.
func parseReplacement(args []string) (Replacement, error) {
	arg := strings.TrimSpace(strings.Join(args, " "))

	var r Replacement
	if strings.HasSuffix(arg, ";") {
		r.Old = strings.Trim(arg, ";")
	} else {
		parts := strings.Split(arg, ";")
		if len(parts) != 2 {
			return Replacement{}, fmt.Errorf("%w: replacetitle expects old;new, got %q", ErrMalformedDirective, arg)
		}
		r.Old, r.New = parts[0], parts[1]
	}

	if r.Old == "" {
		return Replacement{}, fmt.Errorf("%w: replacetitle has nothing to replace in %q", ErrMalformedDirective, arg)
	}
	return r, nil
}
