package bundle

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrFileNotFound reports a missing input file.
	ErrFileNotFound = errors.New("file not found")
	// ErrFormat reports content that is not a JSON object.
	ErrFormat = errors.New("invalid bundle format")
	// ErrMissingParent reports a nested assignment whose parent section
	// does not exist in the target.
	ErrMissingParent = errors.New("missing parent section")
	// ErrMissingKey reports a key that a source document does not have.
	ErrMissingKey = errors.New("missing source key")
)

// FormatError describes invalid bundle content.
type FormatError struct {
	// Path is the file that failed to parse; empty for in-memory data.
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parsing JSON: %v", e.Err)
	}
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFormat) hold for every FormatError.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// KeyError reports a key path that cannot be resolved.
type KeyError struct {
	// Path is the full path being read or assigned.
	Path Path
	// Missing is the prefix of Path that could not be found, or that
	// exists but is not an object.
	Missing Path
	// NotObject is set when Missing exists but holds a non-object value.
	NotObject bool
	// InSource is set when the key was looked up in a source document
	// rather than the merge target.
	InSource bool
}

func (e *KeyError) Error() string {
	switch {
	case e.InSource:
		return fmt.Sprintf("source has no key %q", e.Path.String())
	case e.NotObject:
		return fmt.Sprintf("cannot set %q: %q is not an object", e.Path.String(), e.Missing.String())
	default:
		return fmt.Sprintf("cannot set %q: missing parent section %q", e.Path.String(), e.Missing.String())
	}
}

// Is matches ErrMissingKey for source lookups and ErrMissingParent for
// target assignments.
func (e *KeyError) Is(target error) bool {
	if e.InSource {
		return target == ErrMissingKey
	}
	return target == ErrMissingParent
}
