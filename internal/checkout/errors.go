package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrCheckoutNotFound = errors.New("checkout not found")
	ErrCheckoutBusy     = errors.New("checkout is processing another request")
	ErrCheckoutClosed   = errors.New("checkout is closed")
	ErrUnknownField     = errors.New("unknown field")
	ErrFieldLocked      = errors.New("field is set by the account check and cannot be edited")
	ErrSubmitted        = errors.New("payment has already been submitted")
)

// SubmitErrorKey holds form-level errors in ValidationErrors.
const SubmitErrorKey = "submit"

// ValidationErrors maps a field name to its message.
type ValidationErrors map[string]string

func (ve ValidationErrors) Error() string {
	keys := make([]string, 0, len(ve))
	for k := range ve {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	messages := make([]string, len(keys))
	for i, k := range keys {
		messages[i] = fmt.Sprintf("%s: %s", k, ve[k])
	}
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(messages, "; "))
}

func (ve ValidationErrors) Add(field, message string) {
	ve[field] = message
}

func (ve ValidationErrors) clone() ValidationErrors {
	out := make(ValidationErrors, len(ve))
	for k, v := range ve {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func IsValidationErrors(err error) bool {
	var validationErrors ValidationErrors
	return errors.As(err, &validationErrors)
}
