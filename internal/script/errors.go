package script

import (
	"strconv"
	"strings"
)

// ValidationError captures a single slide-level validation problem.
type ValidationError struct {
	Slide   int // -1 for script-level problems
	Field   string
	Message string
	Warning bool
}

func (e ValidationError) Error() string {
	parts := []string{formatSlide(e.Slide)}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	parts = append(parts, e.Message)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// ValidationErrors aggregates multiple validation issues.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

// Issues returns a copy of the underlying validation errors.
func (errs ValidationErrors) Issues() []ValidationError {
	return append([]ValidationError(nil), errs...)
}

// Fatal returns only the non-warning issues.
func (errs ValidationErrors) Fatal() ValidationErrors {
	var out ValidationErrors
	for _, err := range errs {
		if !err.Warning {
			out = append(out, err)
		}
	}
	return out
}

func formatSlide(index int) string {
	if index < 0 {
		return "script"
	}
	return "slide " + strconv.Itoa(index)
}
