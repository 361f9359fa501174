package downloader

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrorCategory classifies failures for reporting and exit codes.
type ErrorCategory string

const (
	CategoryUnknown     ErrorCategory = "unknown"
	CategoryInvalidArgs ErrorCategory = "invalid_args"
	CategoryInvalidURL  ErrorCategory = "invalid_url"
	CategoryResolution  ErrorCategory = "resolution"
	CategoryNetwork     ErrorCategory = "network"
	CategoryProcessing  ErrorCategory = "processing"
	CategoryFilesystem  ErrorCategory = "filesystem"
	CategoryUnavailable ErrorCategory = "unavailable"
	CategoryInterrupted ErrorCategory = "interrupted"
)

// CategorizedError attaches a category to an underlying error.
type CategorizedError struct {
	Category ErrorCategory
	Err      error
}

func (e CategorizedError) Error() string {
	if e.Err == nil {
		return string(e.Category)
	}
	return e.Err.Error()
}

func (e CategorizedError) Unwrap() error {
	return e.Err
}

func wrapCategory(category ErrorCategory, err error) error {
	if err == nil {
		return nil
	}
	var existing CategorizedError
	if errors.As(err, &existing) {
		return err
	}
	return CategorizedError{Category: category, Err: err}
}

// WrapCategory is wrapCategory for callers outside the package.
func WrapCategory(category ErrorCategory, err error) error {
	return wrapCategory(category, err)
}

// CategoryOf returns the category of err, or CategoryUnknown.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return CategoryInterrupted
	}
	var categorized CategorizedError
	if errors.As(err, &categorized) {
		return categorized.Category
	}
	return CategoryUnknown
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CategoryOf(err) {
	case CategoryInvalidArgs, CategoryInvalidURL:
		return 2
	case CategoryResolution:
		return 3
	case CategoryNetwork:
		return 4
	case CategoryProcessing:
		return 5
	case CategoryFilesystem:
		return 6
	case CategoryUnavailable:
		return 7
	case CategoryInterrupted:
		return 130
	default:
		return 1
	}
}

type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// markReported flags err as already shown to the user.
func markReported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

// IsReported reports whether err has already been printed.
func IsReported(err error) bool {
	var reported reportedError
	return errors.As(err, &reported)
}

var (
	secretParamPattern = regexp.MustCompile(`(?i)[?&](access_token|token|key|auth|signature|hmac)=[^&\s]*`)
	urlPattern         = regexp.MustCompile(`https?://[^\s"']+`)
)

const (
	redactedParam = "[REDACTED]"
	redactedURL   = "[URL_REDACTED]"
)

// Sanitize redacts credential-like query parameters and then every embedded
// URL from msg. Segment URLs routinely carry access tokens.
func Sanitize(msg string) string {
	msg = secretParamPattern.ReplaceAllString(msg, redactedParam)
	return urlPattern.ReplaceAllString(msg, redactedURL)
}

// SanitizeError renders err for display.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}

// errorf is fmt.Errorf wrapped into a category.
func errorf(category ErrorCategory, format string, args ...any) error {
	return wrapCategory(category, fmt.Errorf(format, args...))
}
