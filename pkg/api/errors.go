package api

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Sizes of the fixed char arrays in collectd's structures, terminator included.
const (
	DataMaxNameLen = 128
	NotifMaxMsgLen = 256
)

var (
	// ErrTooLong reports a string that does not fit a fixed-size C array.
	ErrTooLong = errors.New("string too long")

	// ErrNulByte reports a string with an embedded NUL byte, which C would
	// silently truncate.
	ErrNulByte = errors.New("string contains nul byte")

	// ErrInvalidUTF8 reports a C array that is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("string is not valid utf-8")

	ErrEmptyField = errors.New("field must not be empty")
	ErrNoValues   = errors.New("value list has no values")

	// ErrNoDispatcher is returned by Submit before the daemon binding is loaded.
	ErrNoDispatcher = errors.New("no dispatcher installed, is the collectd binding imported?")

	// ErrValueCountMismatch reports a value list whose length differs from
	// its data set.
	ErrValueCountMismatch = errors.New("number of values does not match data set")
)

// ArrayError describes why a Go string could not be copied into a C array.
type ArrayError struct {
	Err error
	// Pos is the offset of the offending NUL byte, or the string length
	// when the string is too long.
	Pos int
	Max int
}

func (e *ArrayError) Error() string {
	if errors.Is(e.Err, ErrNulByte) {
		return fmt.Sprintf("nul byte found at position %d", e.Pos)
	}
	return fmt.Sprintf("length %d exceeds maximum of %d", e.Pos, e.Max-1)
}

func (e *ArrayError) Unwrap() error {
	return e.Err
}

// FieldError is a validation failure of a single named field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// DispatchError carries a non-zero status returned by the daemon.
type DispatchError struct {
	Op     string
	Status int
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s failed with status %d", e.Op, e.Status)
}

// CheckArray reports whether s fits into a C char array of the given size,
// leaving room for the terminating NUL.
func CheckArray(s string, size int) error {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return &ArrayError{Err: ErrNulByte, Pos: i, Max: size}
		}
	}
	if len(s) >= size {
		return &ArrayError{Err: ErrTooLong, Pos: len(s), Max: size}
	}
	return nil
}

// ToArray returns s as a zero padded byte array of the given size.
func ToArray(s string, size int) ([]byte, error) {
	if err := CheckArray(s, size); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	copy(buf, s)
	return buf, nil
}

// FromArray converts a NUL terminated C array to a string. Bytes after the
// first NUL are ignored; a missing terminator uses the whole array.
func FromArray(b []byte) (string, error) {
	for i, c := range b {
		if c == 0 {
			b = b[:i]
			break
		}
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}
