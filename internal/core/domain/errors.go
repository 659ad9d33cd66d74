package domain

import (
	"errors"
	"strings"
)

// Cause is the fixed failure taxonomy rendered by the API error classifier.
type Cause int

const (
	CauseUnknown Cause = iota
	CauseWrongCredential
	CauseUnknownIdentity
	CauseReauthenticationFailed
	CausePasswordConfirmationMismatch
	CauseMalformedIdentifier
	CauseMalformedPaginationQuery
	CauseValidationFailure
	CauseDuplicateUnique
	CauseTransientStoreFailure
	CauseNoMatch
	CauseInternal
)

var causeNames = map[Cause]string{
	CauseUnknown:                      "unknown",
	CauseWrongCredential:              "wrong_credential",
	CauseUnknownIdentity:              "unknown_identity",
	CauseReauthenticationFailed:       "reauthentication_failed",
	CausePasswordConfirmationMismatch: "password_confirmation_mismatch",
	CauseMalformedIdentifier:          "malformed_identifier",
	CauseMalformedPaginationQuery:     "malformed_pagination_query",
	CauseValidationFailure:            "validation_failure",
	CauseDuplicateUnique:              "duplicate_unique",
	CauseTransientStoreFailure:        "transient_store_failure",
	CauseNoMatch:                      "no_match",
	CauseInternal:                     "internal",
}

func (c Cause) String() string {
	if name, ok := causeNames[c]; ok {
		return name
	}
	return causeNames[CauseUnknown]
}

// Store-level sentinels returned by repositories.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrStoreTimeout = errors.New("record store unavailable")
)

// FieldError is a single per-attribute validation complaint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Failure is a classified error. Fields is set for ValidationFailure and
// DuplicateUnique; Err keeps the underlying cause for logging only.
type Failure struct {
	Cause  Cause
	Fields []FieldError
	Err    error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Cause.String())
	for _, fe := range f.Fields {
		b.WriteString("; ")
		b.WriteString(fe.Field)
		b.WriteString(": ")
		b.WriteString(fe.Message)
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches another *Failure by cause so errors.Is(err, domain.Fail(c)) works.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Cause == f.Cause
}

// Fail builds a Failure with no fields and no wrapped error.
func Fail(cause Cause) *Failure {
	return &Failure{Cause: cause}
}

// Wrap builds a Failure around err.
func Wrap(cause Cause, err error) *Failure {
	return &Failure{Cause: cause, Err: err}
}

// Invalid builds a field-scoped Failure.
func Invalid(cause Cause, fields ...FieldError) *Failure {
	return &Failure{Cause: cause, Fields: fields}
}

// CauseOf extracts the Cause from err, or CauseUnknown.
func CauseOf(err error) Cause {
	var f *Failure
	if errors.As(err, &f) {
		return f.Cause
	}
	return CauseUnknown
}
