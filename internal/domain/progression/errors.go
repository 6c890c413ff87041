package progression

import (
	"errors"
	"fmt"
)

// Error kinds returned by the engine. Callers match them with errors.Is and
// map them onto transport status codes.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation error")
	ErrBadRequest = errors.New("bad request")
)

func notFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrBadRequest)
}

// Kind returns the sentinel error kind wrapped by err, or nil for
// infrastructure failures.
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrBadRequest} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
