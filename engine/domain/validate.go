package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxContentLength is the largest accepted submission, in characters.
const MaxContentLength = 10000

// ValidateContent checks an inbound idea or task text. Whitespace-only
// input counts as empty.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if n := utf8.RuneCountInString(content); n > MaxContentLength {
		return fmt.Errorf("%w: %d > %d", ErrContentTooLong, n, MaxContentLength)
	}
	return nil
}
