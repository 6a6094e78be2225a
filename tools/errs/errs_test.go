package errs

import "testing"

func TestCodeHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{AuthInvalid, 401},
		{AuthExpired, 401},
		{Forbidden, 403},
		{NotFound, 404},
		{Conflict, 409},
		{RateLimited, 429},
		{ValidationError, 400},
		{MissingRecipient, 400},
		{MissingGroup, 400},
		{InvalidMessageType, 400},
		{ParseError, 400},
		{NotGroupMember, 400},
		{PersistFailed, 500},
		{PolicyViolation, 409},
		{Code("SOMETHING_UNKNOWN"), 500},
	}

	for _, c := range cases {
		t.Run(string(c.code), func(t *testing.T) {
			if got := c.code.HTTPStatus(); got != c.want {
				t.Errorf("HTTPStatus(%s) = %d, want %d", c.code, got, c.want)
			}
		})
	}
}

func TestCodeErrorWithDetail(t *testing.T) {
	err := New(ValidationError, "validation failed").
		WithDetail("content", "too long").
		WithDetail("recipient_id", "required")

	if len(err.Details) != 2 {
		t.Fatalf("want 2 details, got %d", len(err.Details))
	}
	if err.Details[0].Field != "content" || err.Details[0].Reason != "too long" {
		t.Errorf("unexpected first detail: %+v", err.Details[0])
	}
	if err.Error() != "VALIDATION_ERROR: validation failed" {
		t.Errorf("unexpected Error() string: %s", err.Error())
	}
}

func TestCodeErrorIs(t *testing.T) {
	err := New(AuthInvalid, "invalid credentials")
	same := New(AuthInvalid, "a different message")
	different := New(NotFound, "no such user")

	if !err.Is(same) {
		t.Error("expected errors with the same code to match Is()")
	}
	if err.Is(different) {
		t.Error("expected errors with different codes not to match Is()")
	}
	if err.Is(nil) {
		t.Error("expected Is(nil) to be false")
	}
}
