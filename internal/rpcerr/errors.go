package rpcerr

// file: internal/rpcerr/errors.go

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// Wrap wraps an existing error with a message and stack trace,
// preserving the original cause.
func Wrap(cause error, message string) error {
	if cause == nil {
		return nil
	}
	return errors.Wrap(cause, message)
}

// ErrorWithDetails attaches a category and code to err as retrievable
// detail strings, following the "category:VALUE" / "code:VALUE"
// convention GetCategory/GetCode read back.
func ErrorWithDetails(err error, category Category, code Code, extra map[string]interface{}) error {
	if err == nil {
		return nil
	}
	wrapped := errors.WithDetail(err, "category:"+string(category))
	wrapped = errors.WithDetail(wrapped, "code:"+strconv.Itoa(int(code)))
	for k, v := range extra {
		wrapped = errors.WithDetail(wrapped, k+":"+toDetailString(v))
	}
	return wrapped
}

func toDetailString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	default:
		return errors.Newf("%v", t).Error()
	}
}

// GetCategory extracts the category attached via ErrorWithDetails, or
// the empty string if none is present.
func GetCategory(err error) Category {
	for _, detail := range errors.GetAllDetails(err) {
		if rest, ok := strings.CutPrefix(detail, "category:"); ok {
			return Category(rest)
		}
	}
	return ""
}

// GetCode extracts the code attached via ErrorWithDetails, defaulting
// to CodeInternalError when none is present or it fails to parse.
func GetCode(err error) Code {
	for _, detail := range errors.GetAllDetails(err) {
		if rest, ok := strings.CutPrefix(detail, "code:"); ok {
			if n, parseErr := strconv.Atoi(rest); parseErr == nil {
				return Code(n)
			}
		}
	}
	return CodeInternalError
}

// Is reports whether err (or its cause chain) carries the given category.
func Is(err error, category Category) bool {
	return GetCategory(err) == category
}
