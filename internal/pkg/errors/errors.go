package errors

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid argument")
	ErrInternal = errors.New("internal")

	// ErrStorage marks read/write failures against persisted state. Always
	// aborts the current operation, never swallowed.
	ErrStorage = errors.New("storage failure")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}
