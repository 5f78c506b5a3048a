package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrDuplicate is returned by stores when a unique constraint rejects an insert.
var ErrDuplicate = stderrors.New("duplicate record")

type AppError struct {
	Code Code
	Op   string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Op)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func WrapWithCode(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code: code,
		Op:   op,
		Err:  err,
	}
}

// New builds an AppError without an underlying cause.
func New(code Code, op string) error {
	return &AppError{Code: code, Op: op}
}

// Newf builds an AppError whose cause is a formatted message.
func Newf(code Code, op, format string, args ...any) error {
	return &AppError{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

// CodeOf returns the code of the outermost AppError in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
