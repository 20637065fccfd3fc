package git

import (
	"errors"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrorKind classifies repository failures.
type ErrorKind uint8

const (
	// KindNotFound: a reference, commit or tree path does not exist.
	KindNotFound ErrorKind = iota + 1
	// KindIO: the underlying store could not be read.
	KindIO
	// KindCorrupt: an object decoded but was structurally invalid.
	KindCorrupt
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindIO:
		return "i/o error"
	case KindCorrupt:
		return "corrupt object"
	default:
		return "repository error"
	}
}

// Sentinels for errors.Is against a *RepositoryError.
var (
	ErrNotFound = errors.New("not found")
	ErrIO       = errors.New("i/o error")
	ErrCorrupt  = errors.New("corrupt object")
)

// RepositoryError is the only error type surfaced by the walker and the
// tracer. Its message is derived from the object store error it wraps.
type RepositoryError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *RepositoryError) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

func (e *RepositoryError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrIO:
		return e.Kind == KindIO
	case ErrCorrupt:
		return e.Kind == KindCorrupt
	}
	return false
}

func notFound(op string, err error) error {
	return &RepositoryError{Kind: KindNotFound, Op: op, Err: err}
}

// wrapError attaches op to err, classifying go-git errors on the way. Errors
// that already are a *RepositoryError keep their kind.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var repoErr *RepositoryError
	if errors.As(err, &repoErr) {
		return &RepositoryError{Kind: repoErr.Kind, Op: op, Err: err}
	}
	return &RepositoryError{Kind: classify(err), Op: op, Err: err}
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound),
		errors.Is(err, plumbing.ErrObjectNotFound),
		errors.Is(err, object.ErrFileNotFound),
		errors.Is(err, object.ErrDirectoryNotFound),
		errors.Is(err, object.ErrEntryNotFound),
		errors.Is(err, gitlib.ErrRepositoryNotExists):
		return KindNotFound
	case errors.Is(err, plumbing.ErrInvalidType),
		errors.Is(err, object.ErrUnsupportedObject):
		return KindCorrupt
	default:
		return KindIO
	}
}
