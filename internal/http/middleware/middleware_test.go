package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"shiptrack/internal/domain"

	"github.com/gin-gonic/gin"
)

type staticParser struct {
	token string
	actor domain.RequestContext
}

func (p staticParser) ParseToken(raw string) (domain.RequestContext, error) {
	if raw != p.token {
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "invalid token"}
	}
	return p.actor, nil
}

func newEngine(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	parser := staticParser{token: "good", actor: domain.RequestContext{UserID: 9, Role: domain.RoleCustomer, ClientID: 3}}
	r.GET("/protected", RequireAuth(parser), RequireRoles(roles...), func(c *gin.Context) {
		actor, ok := Actor(c)
		ctxActor, ctxOK := domain.ActorFrom(c.Request.Context())
		if !ok || !ctxOK || actor.UserID != ctxActor.UserID {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"clientId": actor.ClientID, "requestId": actor.RequestID})
	})
	r.GET("/role-only", RequireRoles(domain.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serve(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := newEngine(domain.RoleCustomer)

	cases := []struct {
		auth string
		want int
	}{
		{"", http.StatusUnauthorized},
		{"Basic good", http.StatusUnauthorized},
		{"Bearer bad", http.StatusUnauthorized},
		{"Bearer good", http.StatusOK},
		{"bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		if w := serve(r, "/protected", tc.auth); w.Code != tc.want {
			t.Fatalf("auth %q: expected %d, got %d", tc.auth, tc.want, w.Code)
		}
	}
}

func TestRequireRoles(t *testing.T) {
	if w := serve(newEngine(domain.RoleAdmin), "/protected", "Bearer good"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer on admin route, got %d", w.Code)
	}
	if w := serve(newEngine(domain.RoleAdmin, domain.RoleCustomer), "/protected", "Bearer good"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 when role listed, got %d", w.Code)
	}
	if w := serve(newEngine(), "/role-only", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without authenticated role, got %d", w.Code)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	r := newEngine(domain.RoleCustomer)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}

	w = serve(r, "/protected", "Bearer good")
	if got := w.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Fatalf("expected generated uuid, got %q", got)
	}
}

func TestRequestIDOnRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/public", func(c *gin.Context) {
		c.String(http.StatusOK, domain.RequestIDFrom(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("X-Request-ID", "trace-7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "trace-7" {
		t.Fatalf("expected request id on request context, got %q", w.Body.String())
	}
}
