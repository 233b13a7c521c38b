package transform

import (
	"fmt"
	"strings"

	"github.com/handiism/songbot/internal/directive"
)

// FileError is the failure of one directive on one file.
type FileError struct {
	Path string
	Kind directive.Kind
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Kind, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Failure collects the files dropped during one Apply.
type Failure struct {
	Errors []*FileError
}

func (f *Failure) Error() string {
	msgs := make([]string, len(f.Errors))
	for i, e := range f.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d file(s) failed: %s", len(f.Errors), strings.Join(msgs, "; "))
}

func (f *Failure) Unwrap() []error {
	errs := make([]error, len(f.Errors))
	for i, e := range f.Errors {
		errs[i] = e
	}
	return errs
}
