package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

// ValidateStatusBody checks a status body. Length is counted in characters,
// not bytes.
func ValidateStatusBody(body string, maxLen int) ValidationErrors {
	errs := make(ValidationErrors)

	if strings.TrimSpace(body) == "" {
		errs.Add("body", "Status body is required")
	} else if !utf8.ValidString(body) {
		errs.Add("body", "Status body must be valid UTF-8")
	} else if strings.ContainsRune(body, 0) {
		errs.Add("body", "Status body must not contain NUL characters")
	} else if n := utf8.RuneCountInString(body); n > maxLen {
		errs.Add("body", fmt.Sprintf("Status body is too long (%d characters, max %d)", n, maxLen))
	}

	return errs
}
