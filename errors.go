package ext2

import (
	"fmt"
	"syscall"

	"github.com/hashicorp/go-multierror"
)

// DriverError wraps a POSIX errno code with an optional custom message, the
// way most of this simulator's failures are reported. Most of the error
// kinds in the spec have a faithful errno equivalent; use NewDriverError /
// NewDriverErrorWithMessage for those.
type DriverError struct {
	Errno   syscall.Errno
	message string
}

func (e *DriverError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.Errno.Error()
}

// Is lets errors.Is(err, syscall.ENOENT) and similar comparisons work
// against a *DriverError.
func (e *DriverError) Is(target error) bool {
	errno, ok := target.(syscall.Errno)
	return ok && errno == e.Errno
}

// NewDriverError builds a DriverError whose message is just the errno's
// default text.
func NewDriverError(errno syscall.Errno) *DriverError {
	return &DriverError{Errno: errno, message: errno.Error()}
}

// NewDriverErrorWithMessage builds a DriverError with a custom message,
// prefixed by the errno's default text for context.
func NewDriverErrorWithMessage(errno syscall.Errno, message string) *DriverError {
	return &DriverError{
		Errno:   errno,
		message: fmt.Sprintf("%s: %s", errno.Error(), message),
	}
}

// Error kinds named in the spec that map cleanly onto POSIX errno values.
const (
	ErrnoNotMounted       = syscall.ENODEV
	ErrnoIO               = syscall.EIO
	ErrnoNoSpace          = syscall.ENOSPC
	ErrnoNoInode          = syscall.ENOSPC
	ErrnoNotFound         = syscall.ENOENT
	ErrnoExists           = syscall.EEXIST
	ErrnoNotDirectory     = syscall.ENOTDIR
	ErrnoIsDirectory      = syscall.EISDIR
	ErrnoNotEmpty         = syscall.ENOTEMPTY
	ErrnoPermissionDenied = syscall.EACCES
	ErrnoBadPath          = syscall.EINVAL
	ErrnoBadDescriptor    = syscall.EBADF
	ErrnoTooManyOpenFiles = syscall.EMFILE
	ErrnoInvalidFormat    = syscall.EUCLEAN
	ErrnoOutOfRange       = syscall.ERANGE
)

// sessionError is a small sentinel-error type for the two spec error kinds
// that have no honest POSIX equivalent: being logged out, and failing a
// login attempt. Modeled on the teacher's string-constant DiskoError type.
type sessionError string

func (e sessionError) Error() string { return string(e) }

// ErrNotLoggedIn is returned by any operation that requires an active
// session when none is present.
const ErrNotLoggedIn = sessionError("not logged in")

// ErrBadCredentials is returned by Login when the username/password pair
// doesn't match the user registry.
const ErrBadCredentials = sessionError("invalid username or password")

// rollback reports cause, the failure that triggered an unwind, together
// with any error raised while undoing the partial work that preceded it.
// cause is always present in the result; a cleanup failure is appended
// rather than discarded, so it's visible to the caller instead of masked.
func rollback(cause error, cleanups ...func() error) error {
	merr := multierror.Append(nil, cause)
	for _, cleanup := range cleanups {
		if err := cleanup(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}
