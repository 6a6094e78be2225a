package auth

import (
	"testing"

	"chatserver/tools/errs"
)

func TestSignupInputValidation(t *testing.T) {
	cases := []struct {
		name    string
		input   SignupInput
		wantErr bool
	}{
		{"valid", SignupInput{Username: "alice", Email: "alice@example.com", Password: "longenough"}, false},
		{"username too short", SignupInput{Username: "ab", Email: "alice@example.com", Password: "longenough"}, true},
		{"missing email", SignupInput{Username: "alice", Email: "", Password: "longenough"}, true},
		{"invalid email", SignupInput{Username: "alice", Email: "not-an-email", Password: "longenough"}, true},
		{"password too short", SignupInput{Username: "alice", Email: "alice@example.com", Password: "short"}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := validate.Struct(c.input)
			if (err != nil) != c.wantErr {
				t.Errorf("validate.Struct(%+v) error = %v, wantErr %v", c.input, err, c.wantErr)
			}
		})
	}
}

func TestValidationErrorProducesFieldDetails(t *testing.T) {
	in := SignupInput{Username: "ab", Email: "not-an-email", Password: "short"}
	err := validate.Struct(in)
	if err == nil {
		t.Fatal("expected validation to fail for this input")
	}

	ce := validationError(err)
	if ce.Code != errs.ValidationError {
		t.Errorf("want code %s, got %s", errs.ValidationError, ce.Code)
	}
	if len(ce.Details) != 3 {
		t.Errorf("want 3 field details (username, email, password), got %d: %+v", len(ce.Details), ce.Details)
	}
}

func TestDummyHashIsAValidBcryptHash(t *testing.T) {
	if dummyHash == "" {
		t.Fatal("expected dummyHash to be initialized at package load")
	}
	if len(dummyHash) < 50 {
		t.Errorf("dummyHash does not look like a bcrypt hash: %q", dummyHash)
	}
}
