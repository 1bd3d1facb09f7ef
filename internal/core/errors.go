package core

import "strings"

// FieldError carries field-level detail for a validation failure.
type FieldError struct {
	Field string `json:"field"`
	Err   error  `json:"-"`
}

func (f FieldError) Message() string {
	return f.Err.Error()
}

// FieldErrors aggregates validation failures so a caller sees every bad
// field at once instead of fixing them one at a time.
type FieldErrors []FieldError

func (fe FieldErrors) Add(field string, err error) FieldErrors {
	return append(fe, FieldError{Field: field, Err: err})
}

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// OrNil returns the list as an error, or nil when nothing failed.
// A typed nil slice inside a non-nil error interface is a classic trap,
// so the conversion happens in exactly one place.
func (fe FieldErrors) OrNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Unwrap lets errors.Is see through to the sentinel errors inside.
func (fe FieldErrors) Unwrap() []error {
	errs := make([]error, len(fe))
	for i, f := range fe {
		errs[i] = f.Err
	}
	return errs
}
