// Package apperr defines the error kinds shared by the services and the
// transport layer. Errors are built with cockroachdb/errors and carry one or
// more sentinel marks that callers test with errors.Is.
package apperr

import (
	"fmt"

	cr "github.com/cockroachdb/errors"
)

var (
	ErrNotFound           = cr.New("not found")
	ErrValidation         = cr.New("validation failed")
	ErrForbidden          = cr.New("forbidden")
	ErrCommentNotEligible = cr.New("comment not eligible")
	ErrConflict           = cr.New("conflict")
)

func NotFound(format string, args ...any) error {
	return cr.Mark(cr.NewWithDepth(1, fmt.Sprintf(format, args...)), ErrNotFound)
}

func Validation(format string, args ...any) error {
	return cr.Mark(cr.NewWithDepth(1, fmt.Sprintf(format, args...)), ErrValidation)
}

// Forbidden is also a Validation error; clients that only know the
// validation kind still see a 4xx.
func Forbidden(format string, args ...any) error {
	err := cr.Mark(cr.NewWithDepth(1, fmt.Sprintf(format, args...)), ErrForbidden)
	return cr.Mark(err, ErrValidation)
}

func CommentNotEligible(format string, args ...any) error {
	return cr.Mark(cr.NewWithDepth(1, fmt.Sprintf(format, args...)), ErrCommentNotEligible)
}

func Conflict(format string, args ...any) error {
	return cr.Mark(cr.NewWithDepth(1, fmt.Sprintf(format, args...)), ErrConflict)
}

func Is(err, target error) bool {
	return cr.Is(err, target)
}

// Kind returns a stable machine-readable name for err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case cr.Is(err, ErrNotFound):
		return "not_found"
	case cr.Is(err, ErrForbidden):
		return "forbidden"
	case cr.Is(err, ErrCommentNotEligible):
		return "comment_not_eligible"
	case cr.Is(err, ErrValidation):
		return "validation"
	case cr.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
