package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"chatserver/service/token"
	"chatserver/tools/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Middleware only ever calls tk.VerifyAccess, which in turn only reads
// the token service's signing options — it never touches the store or
// cache the service also holds, so a real database/Redis isn't needed
// to exercise it.
func newTestTokenService(secret []byte) *token.Service {
	return token.New(nil, nil, secret, token.Config{})
}

func runMiddleware(t *testing.T, tk *token.Service, authHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false

	engine := gin.New()
	engine.Use(Middleware(tk))
	engine.GET("/", func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec, reached
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	tk := newTestTokenService([]byte("secret"))
	rec, reached := runMiddleware(t, tk, "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("want 401, got %d", rec.Code)
	}
	if reached {
		t.Error("handler must not run without a bearer token")
	}
}

func TestMiddlewareRejectsMalformedHeader(t *testing.T) {
	tk := newTestTokenService([]byte("secret"))
	rec, reached := runMiddleware(t, tk, "not-a-bearer-token")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("want 401, got %d", rec.Code)
	}
	if reached {
		t.Error("handler must not run with a malformed header")
	}
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	secret := []byte("shared-secret")
	tk := newTestTokenService(secret)

	signed, _, err := security.IssueAccessToken(security.Options{Secret: secret, Alg: "HS256"}, "user-1", "alice", "user", "alice@example.com")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	rec, reached := runMiddleware(t, tk, "Bearer "+signed)

	if rec.Code != http.StatusOK {
		t.Errorf("want 200, got %d", rec.Code)
	}
	if !reached {
		t.Error("expected handler to run with a valid token")
	}
}

func TestMiddlewareRejectsTokenSignedWithDifferentSecret(t *testing.T) {
	tk := newTestTokenService([]byte("correct-secret"))

	signed, _, err := security.IssueAccessToken(security.Options{Secret: []byte("wrong-secret"), Alg: "HS256"}, "user-1", "alice", "user", "alice@example.com")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	rec, reached := runMiddleware(t, tk, "Bearer "+signed)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("want 401, got %d", rec.Code)
	}
	if reached {
		t.Error("handler must not run with a token signed by a different secret")
	}
}

func TestUserIDReadsClaimSetByMiddleware(t *testing.T) {
	secret := []byte("shared-secret")
	tk := newTestTokenService(secret)
	signed, _, err := security.IssueAccessToken(security.Options{Secret: secret, Alg: "HS256"}, "user-42", "bob", "user", "bob@example.com")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	var seenUserID string
	engine := gin.New()
	engine.Use(Middleware(tk))
	engine.GET("/", func(c *gin.Context) {
		seenUserID = UserID(c)
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if seenUserID != "user-42" {
		t.Errorf("want user-42, got %q", seenUserID)
	}
}
