package service

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrConflict means the username or email is already registered.
	ErrConflict = errors.New("username or email already registered")
	// ErrUnauthorized covers unknown users and wrong passwords alike.
	ErrUnauthorized = errors.New("invalid username or password")
	// ErrBadRequest wraps input validation failures.
	ErrBadRequest = errors.New("bad request")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

func tooLong(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return badRequest("%s must be at most %d characters", field, limit)
	}
	return nil
}
