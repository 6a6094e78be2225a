package security

import (
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

func TestHashPasswordAndCompare(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !ComparePassword(hash, "correct horse battery staple") {
		t.Error("expected correct password to compare true")
	}
	if ComparePassword(hash, "wrong password") {
		t.Error("expected wrong password to compare false")
	}
}

func TestHashPasswordProducesDistinctHashesForSamePassword(t *testing.T) {
	a, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	b, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if a == b {
		t.Error("expected bcrypt salting to produce distinct hashes for the same password")
	}
}

func TestNewOpaqueTokenIsHighEntropyAndUnique(t *testing.T) {
	a, err := NewOpaqueToken()
	if err != nil {
		t.Fatalf("NewOpaqueToken: %v", err)
	}
	b, err := NewOpaqueToken()
	if err != nil {
		t.Fatalf("NewOpaqueToken: %v", err)
	}
	if a == b {
		t.Error("expected two calls to NewOpaqueToken to differ")
	}
	if len(a) != 64 { // 32 bytes hex-encoded
		t.Errorf("want 64-char hex token, got length %d", len(a))
	}
}

func TestHashTokenIsDeterministic(t *testing.T) {
	raw := "some-opaque-token-value"
	if HashToken(raw) != HashToken(raw) {
		t.Error("expected HashToken to be deterministic")
	}
	if HashToken(raw) == HashToken(raw+"x") {
		t.Error("expected different inputs to hash differently")
	}
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	opts := Options{Secret: []byte("test-secret-key-not-for-prod"), Alg: "HS256"}

	signed, claims, err := IssueAccessToken(opts, "user-1", "alice", "user", "alice@example.com")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if claims.ExpireAt-claims.IssuedAt != int64(AccessTokenTTL.Seconds()) {
		t.Errorf("want %v TTL, got %d seconds", AccessTokenTTL, claims.ExpireAt-claims.IssuedAt)
	}

	got, err := VerifyAccessToken(opts, signed)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if got.UserID != "user-1" || got.Username != "alice" || got.Role != "user" || got.Email != "alice@example.com" {
		t.Errorf("unexpected claims round trip: %+v", got)
	}
}

func TestVerifyAccessTokenRejectsWrongSecret(t *testing.T) {
	opts := Options{Secret: []byte("secret-a")}
	other := Options{Secret: []byte("secret-b")}

	signed, _, err := IssueAccessToken(opts, "user-1", "alice", "user", "alice@example.com")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := VerifyAccessToken(other, signed); err == nil {
		t.Error("expected verification with a different secret to fail")
	}
}

func TestVerifyAccessTokenRejectsExpired(t *testing.T) {
	opts := Options{Secret: []byte("test-secret")}
	past := time.Now().Add(-time.Hour)
	expired := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub":      "alice@example.com",
		"user_id":  "user-1",
		"username": "alice",
		"role":     "user",
		"iat":      past.Add(-AccessTokenTTL).Unix(),
		"exp":      past.Unix(),
	})
	signed, err := expired.SignedString(opts.Secret)
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}

	if _, err := VerifyAccessToken(opts, signed); err == nil {
		t.Fatal("expected a token whose exp is in the past to fail verification")
	}
}

func TestVerifyAccessTokenRejectsMalformed(t *testing.T) {
	opts := Options{Secret: []byte("test-secret")}
	if _, err := VerifyAccessToken(opts, "not.a.jwt"); err == nil {
		t.Error("expected malformed token to fail verification")
	}
}

func TestSigningMethodRejectsUnsupportedAlg(t *testing.T) {
	_, _, err := IssueAccessToken(Options{Secret: []byte("k"), Alg: "RS256"}, "u", "n", "r", "e")
	if err == nil {
		t.Fatal("expected unsupported alg to error")
	}
	if !strings.Contains(err.Error(), "unsupported alg") {
		t.Errorf("unexpected error message: %v", err)
	}
}
