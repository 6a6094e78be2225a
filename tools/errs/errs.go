// Package errs implements the typed-result error taxonomy described in
// spec §7: the business layer raises a CodeError carrying one of the
// wire-protocol error codes, and the transport layer (REST or socket)
// maps it to an HTTP status or an error frame. Store, cache and hashing
// failures are passed up as plain errors; the REST layer renders any
// error that is not a *CodeError as PERSIST_FAILED.
package errs

import "strings"

// Code is one of the enumerated wire-protocol error codes (spec §6).
type Code string

const (
	AuthInvalid        Code = "AUTH_INVALID"
	AuthExpired        Code = "AUTH_EXPIRED"
	ValidationError    Code = "VALIDATION_ERROR"
	NotFound           Code = "NOT_FOUND"
	Conflict           Code = "CONFLICT"
	Forbidden          Code = "FORBIDDEN"
	NotGroupMember     Code = "NOT_GROUP_MEMBER"
	MissingRecipient   Code = "MISSING_RECIPIENT"
	MissingGroup       Code = "MISSING_GROUP"
	InvalidMessageType Code = "INVALID_MESSAGE_TYPE"
	ParseError         Code = "PARSE_ERROR"
	PersistFailed      Code = "PERSIST_FAILED"
	RateLimited        Code = "RATE_LIMITED"
	PolicyViolation    Code = "POLICY_VIOLATION"
)

// FieldDetail is one entry of a VALIDATION_ERROR's details array.
type FieldDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// CodeError is the typed result every component returns instead of an
// ad-hoc error; it carries enough to render both a REST envelope error
// object and a socket error frame.
type CodeError struct {
	Code    Code
	Msg     string
	Details []FieldDetail
}

func New(code Code, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

// WithDetail appends one field-level diagnostic and returns the receiver,
// so callers can chain: errs.New(...).WithDetail("content", "too long").
func (e *CodeError) WithDetail(field, reason string) *CodeError {
	e.Details = append(e.Details, FieldDetail{Field: field, Reason: reason})
	return e
}

func (e *CodeError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

// Is reports whether target is a *CodeError with the same code, so
// errors.Is matches on the code and ignores the message.
func (e *CodeError) Is(target error) bool {
	t, ok := target.(*CodeError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// HTTPStatus maps a code to the REST status the transport layer emits.
func (c Code) HTTPStatus() int {
	switch c {
	case AuthInvalid, AuthExpired:
		return 401
	case Forbidden:
		return 403
	case NotFound:
		return 404
	case Conflict:
		return 409
	case RateLimited:
		return 429
	case ValidationError, MissingRecipient, MissingGroup, InvalidMessageType, ParseError, NotGroupMember:
		return 400
	case PersistFailed:
		return 500
	case PolicyViolation:
		return 409
	default:
		return 500
	}
}
