package core

import "errors"

// Error taxonomy shared by the services and the HTTP layer.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFoundOrForbidden = errors.New("not found")
	ErrDuplicateCategory   = errors.New("category already exists")
	ErrUpstream            = errors.New("upstream failure")
)

var (
	ErrInvalidAmount      = Invalid("amount", "invalid amount")
	ErrInvalidDate        = Invalid("date", "invalid date")
	ErrInvalidType        = Invalid("type", "type must be income or expense")
	ErrEmptyDescription   = Invalid("description", "empty description")
	ErrDescriptionTooLong = Invalid("description", "description too long (max 255 characters)")
	ErrEmptyName          = Invalid("name", "empty name")
	ErrNameTooLong        = Invalid("name", "name too long (max 100 characters)")
	ErrInvalidCategory    = Invalid("category", "unknown category")
	ErrUsernameTaken      = Invalid("username", "Username already exists.")
	ErrEmailTaken         = Invalid("email", "Email already exists.")
)

// ValidationError describes a single rejected field. It matches ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

// Invalid builds a ValidationError for field.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Upstream marks err as a collaborator failure while keeping the cause for logs.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	return &upstreamError{cause: err}
}

type upstreamError struct {
	cause error
}

func (e *upstreamError) Error() string {
	return "upstream failure: " + e.cause.Error()
}

func (e *upstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.cause}
}

// PublicMessage returns the short, caller-safe text for err.
func PublicMessage(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Msg
	case errors.Is(err, ErrNotFoundOrForbidden):
		return "Record not found."
	case errors.Is(err, ErrDuplicateCategory):
		return "A category with this name and type already exists."
	default:
		return "Something went wrong. Please try again."
	}
}
