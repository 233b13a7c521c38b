package fetch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/handiism/songbot/internal/model"
)

// ErrFetch marks a failed retrieval of a source.
var ErrFetch = errors.New("fetch failed")

// LinkError is the failure of a single link.
type LinkError struct {
	Link model.SourceLink
	Err  error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Link.URL, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// Is makes every LinkError match ErrFetch.
func (e *LinkError) Is(target error) bool {
	return target == ErrFetch
}

// Failure aggregates the link errors of one fetch. Working files of the
// links that succeeded are returned alongside it.
type Failure struct {
	Errors []*LinkError
	Total  int
}

func (f *Failure) Error() string {
	msgs := make([]string, len(f.Errors))
	for i, e := range f.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d of %d links failed: %s", len(f.Errors), f.Total, strings.Join(msgs, "; "))
}

func (f *Failure) Unwrap() []error {
	errs := make([]error, len(f.Errors))
	for i, e := range f.Errors {
		errs[i] = e
	}
	return errs
}
