// Package security adapts the teacher's HMAC JWT helper to the exact
// claim schema and token lifetimes spec §4.1 requires, and adds the
// password hashing and opaque-token helpers the auth and token services
// build on.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
	ResetTokenTTL   = time.Hour

	// BcryptCost is the minimum cost spec §4.2 requires for signup.
	BcryptCost = 12
)

// Options controls the signing key, algorithm and lifetimes for access
// tokens. AccessTTL defaults to AccessTokenTTL when zero, so callers
// that don't care about the spec's configurable timeouts can leave it
// unset. RefreshTTL is carried for callers; this package does not read it.
type Options struct {
	Secret []byte
	Alg    string // HS256/HS384/HS512, default HS256

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AccessClaims mirrors the wire schema in spec §4.1: subject is the
// user's email, plus user_id/username/role and the standard iat/exp.
type AccessClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Email    string `json:"sub"`
	IssuedAt int64  `json:"iat"`
	ExpireAt int64  `json:"exp"`
}

// HashToken returns the hex SHA-256 digest of an opaque token, the only
// form refresh and reset tokens are ever stored in.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewOpaqueToken returns a high-entropy random string suitable for a
// refresh or reset token. 32 bytes of crypto/rand hex-encoded gives 256
// bits of entropy, matching the "opaque high-entropy string" language
// in spec §4.1.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate opaque token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword bcrypt-hashes a password at BcryptCost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword reports whether password matches hash, in constant
// time (bcrypt.CompareHashAndPassword already is).
func ComparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueAccessToken signs a new access token for the given identity,
// valid for opts.AccessTTL (AccessTokenTTL when zero).
func IssueAccessToken(opts Options, userID, username, role, email string) (token string, claims AccessClaims, err error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", AccessClaims{}, err
	}
	ttl := opts.AccessTTL
	if ttl <= 0 {
		ttl = AccessTokenTTL
	}
	now := time.Now()
	claims = AccessClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		Email:    email,
		IssuedAt: now.Unix(),
		ExpireAt: now.Add(ttl).Unix(),
	}

	mapClaims := jwtlib.MapClaims{
		"sub":      claims.Email,
		"user_id":  claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
		"iat":      claims.IssuedAt,
		"exp":      claims.ExpireAt,
	}
	tok := jwtlib.NewWithClaims(method, mapClaims)
	signed, err := tok.SignedString(opts.Secret)
	if err != nil {
		return "", AccessClaims{}, err
	}
	return signed, claims, nil
}

// VerifyAccessToken checks signature, expiry and claim schema, returning
// AUTH_INVALID-worthy errors for any failure — callers translate a
// non-nil error into that code, per spec §4.1.
func VerifyAccessToken(opts Options, token string) (AccessClaims, error) {
	if _, err := signingMethod(opts.Alg); err != nil {
		return AccessClaims{}, err
	}
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return opts.Secret, nil
	})
	if err != nil {
		return AccessClaims{}, err
	}
	if !parsed.Valid {
		return AccessClaims{}, errors.New("token not valid")
	}
	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return AccessClaims{}, errors.New("claims type mismatch")
	}

	userID, _ := mapClaims["user_id"].(string)
	username, _ := mapClaims["username"].(string)
	role, _ := mapClaims["role"].(string)
	email, _ := mapClaims["sub"].(string)
	if userID == "" || username == "" || email == "" {
		return AccessClaims{}, errors.New("incomplete claim schema")
	}
	iat, _ := mapClaims["iat"].(float64)
	exp, _ := mapClaims["exp"].(float64)

	return AccessClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		Email:    email,
		IssuedAt: int64(iat),
		ExpireAt: int64(exp),
	}, nil
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s", alg)
	}
}
