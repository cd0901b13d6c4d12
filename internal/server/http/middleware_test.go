package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/avolkhov/melodeon/internal/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func probeRouter(codec *token.Codec) *gin.Engine {
	r := gin.New()
	r.GET("/protected", RequireAuth(codec), func(c *gin.Context) {
		identity, _ := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"username": identity.Username, "is_admin": identity.IsAdmin})
	})
	r.GET("/optional", OptionalAuth(codec), func(c *gin.Context) {
		_, ok := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})
	r.GET("/admin", RequireAuth(codec), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func get(t *testing.T, r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_HeaderMatrix(t *testing.T) {
	t.Parallel()

	codec := token.New([]byte("test-secret"), time.Hour)
	valid, err := codec.Issue(uuid.Must(uuid.NewV4()), "alice", false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	expired, err := token.New([]byte("test-secret"), -time.Minute).Issue(uuid.Must(uuid.NewV4()), "bob", false)
	if err != nil {
		t.Fatalf("Issue(expired): %v", err)
	}
	r := probeRouter(codec)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc123", http.StatusUnauthorized},
		{"bearer without token", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
		{"case-insensitive scheme", "bearer " + valid, http.StatusOK},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if w := get(t, r, "/protected", tc.header); w.Code != tc.status {
				t.Fatalf("status=%d, want=%d (body=%s)", w.Code, tc.status, w.Body)
			}
		})
	}
}

func TestRequireAuth_DistinctMessagesSameClass(t *testing.T) {
	t.Parallel()

	codec := token.New([]byte("test-secret"), time.Hour)
	r := probeRouter(codec)

	missing := get(t, r, "/protected", "")
	malformed := get(t, r, "/protected", "Token abc")
	if missing.Code != http.StatusUnauthorized || malformed.Code != http.StatusUnauthorized {
		t.Fatalf("status class differs: %d vs %d", missing.Code, malformed.Code)
	}
	if missing.Body.String() == malformed.Body.String() {
		t.Fatalf("missing-header and format-error messages should differ")
	}
}

func TestOptionalAuth(t *testing.T) {
	t.Parallel()

	codec := token.New([]byte("test-secret"), time.Hour)
	valid, err := codec.Issue(uuid.Must(uuid.NewV4()), "alice", false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	r := probeRouter(codec)

	for header, want := range map[string]string{
		"":                `"authenticated":false`,
		"Bearer garbage":  `"authenticated":false`,
		"Bearer " + valid: `"authenticated":true`,
	} {
		w := get(t, r, "/optional", header)
		if w.Code != http.StatusOK {
			t.Fatalf("optional route must not fail: %d", w.Code)
		}
		if body := w.Body.String(); !strings.Contains(body, want) {
			t.Fatalf("header=%q body=%s, want %s", header, body, want)
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	codec := token.New([]byte("test-secret"), time.Hour)
	admin, err := codec.Issue(uuid.Must(uuid.NewV4()), "root", true)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	plain, err := codec.Issue(uuid.Must(uuid.NewV4()), "user", false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	r := probeRouter(codec)

	if w := get(t, r, "/admin", "Bearer "+admin); w.Code != http.StatusOK {
		t.Fatalf("admin token rejected: %d", w.Code)
	}
	if w := get(t, r, "/admin", "Bearer "+plain); w.Code != http.StatusForbidden {
		t.Fatalf("non-admin status=%d, want 403", w.Code)
	}
	if w := get(t, r, "/admin", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status=%d, want 401", w.Code)
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := get(t, r, "/boom", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "kaboom") {
		t.Fatalf("panic detail leaked to the client: %s", w.Body)
	}
}
