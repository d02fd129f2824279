package middlewares_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/libraryhub/internal/auth"
	"github.com/geocoder89/libraryhub/internal/cache"
	"github.com/geocoder89/libraryhub/internal/domain/user"
	"github.com/geocoder89/libraryhub/internal/http/middlewares"
	"github.com/geocoder89/libraryhub/internal/observability"
	"github.com/geocoder89/libraryhub/internal/repo/memory"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mwEnv struct {
	router *gin.Engine
	store  *memory.UsersRepo
	cache  cache.Users
	jwt    *auth.Manager
}

func newMWEnv(t *testing.T) *mwEnv {
	t.Helper()

	store := memory.NewUsersRepo()
	jwtManager := auth.NewManager("test-secret", time.Hour)
	userCache := cache.NewMemoryUsers(time.Minute)
	metrics := observability.NewProm(prometheus.NewRegistry())

	mw := middlewares.NewAuthMiddleware(jwtManager, store, userCache, metrics)

	r := gin.New()
	r.GET("/protected", mw.RequireAuth(), func(c *gin.Context) {
		u, ok := middlewares.CurrentUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"email": u.Email})
	})
	r.GET("/check", mw.CheckAuth())

	return &mwEnv{router: r, store: store, cache: userCache, jwt: jwtManager}
}

func (e *mwEnv) get(path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)

	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	return w
}

func (e *mwEnv) seed(t *testing.T) (user.User, string) {
	t.Helper()

	u, err := e.store.Create(context.Background(), "Ann Lee", "ann@example.com", "hash", user.RoleUser)

	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	token, err := e.jwt.Issue(u.ID)

	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	return u, token
}

func expiredToken(t *testing.T, userID string) string {
	t.Helper()

	past := auth.NewManager("test-secret", time.Nanosecond)

	token, err := past.Issue(userID)

	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	return token
}

func TestRequireAuthRejections(t *testing.T) {
	env := newMWEnv(t)
	u, _ := env.seed(t)

	orphan, err := env.jwt.Issue("no-such-user")

	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not-a-token"},
		{"expired token", "Bearer " + expiredToken(t, u.ID)},
		{"user absent", "Bearer " + orphan},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := env.get("/protected", tc.header)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("got status %d, want 401, body=%s", w.Code, w.Body.String())
			}

			var resp struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal failed: %v body=%s", err, w.Body.String())
			}

			if resp.Success || resp.Message == "" {
				t.Fatalf("unexpected envelope: %+v", resp)
			}
		})
	}
}

func TestRequireAuthAttachesSanitizedUser(t *testing.T) {
	env := newMWEnv(t)
	_, token := env.seed(t)

	w := env.get("/protected", "Bearer "+token)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
}

func TestCheckAuthAlwaysResponds200(t *testing.T) {
	env := newMWEnv(t)
	u, token := env.seed(t)

	tests := []struct {
		name              string
		header            string
		wantAuthenticated bool
	}{
		{"no header", "", false},
		{"malformed", "Bearer nope", false},
		{"expired", "Bearer " + expiredToken(t, u.ID), false},
		{"valid", "Bearer " + token, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := env.get("/check", tc.header)

			if w.Code != http.StatusOK {
				t.Fatalf("check must always be 200, got %d", w.Code)
			}

			var resp struct {
				Success         bool            `json:"success"`
				IsAuthenticated bool            `json:"isAuthenticated"`
				User            json.RawMessage `json:"user"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal failed: %v body=%s", err, w.Body.String())
			}

			if !resp.Success {
				t.Fatal("expected success=true")
			}

			if resp.IsAuthenticated != tc.wantAuthenticated {
				t.Fatalf("isAuthenticated=%v, want %v", resp.IsAuthenticated, tc.wantAuthenticated)
			}

			if !tc.wantAuthenticated && string(resp.User) != "null" {
				t.Fatalf("user should be null, got %s", resp.User)
			}
		})
	}
}

func TestResolveServesFromCache(t *testing.T) {
	env := newMWEnv(t)
	u, token := env.seed(t)

	// prime the cache
	if w := env.get("/protected", "Bearer "+token); w.Code != http.StatusOK {
		t.Fatalf("prime request failed: %d", w.Code)
	}

	if _, ok := env.cache.Get(context.Background(), u.ID); !ok {
		t.Fatal("expected the resolved user to be cached")
	}
}
