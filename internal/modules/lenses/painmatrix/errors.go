package painmatrix

import (
	"errors"
	"fmt"
)

var (
	ErrMissingDeps  = errors.New("painmatrix: missing deps")
	ErrInvalidInput = errors.New("painmatrix: invalid input")
)

// GenerationError marks a fatal build failure. No partial matrix accompanies it.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("failed to generate pain matrix (%s): %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func fail(stage string, err error) error {
	if err == nil {
		return nil
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return err
	}
	return &GenerationError{Stage: stage, Err: err}
}
