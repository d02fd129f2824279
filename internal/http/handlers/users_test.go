package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/libraryhub/internal/auth"
	"github.com/geocoder89/libraryhub/internal/cache"
	"github.com/geocoder89/libraryhub/internal/domain/user"
	"github.com/geocoder89/libraryhub/internal/http/handlers"
	"github.com/geocoder89/libraryhub/internal/http/middlewares"
	"github.com/geocoder89/libraryhub/internal/repo/memory"
	"github.com/geocoder89/libraryhub/internal/security"
	"github.com/gin-gonic/gin"
)

type usersEnv struct {
	router *gin.Engine
	store  *memory.UsersRepo
	jwt    *auth.Manager
}

func newUsersEnv(t *testing.T) *usersEnv {
	t.Helper()

	store := memory.NewUsersRepo()
	jwtManager := auth.NewManager("test-secret", time.Hour)
	userCache := cache.NewMemoryUsers(time.Minute)
	metrics := newTestMetrics()

	authMW := middlewares.NewAuthMiddleware(jwtManager, store, userCache, metrics)
	h := handlers.NewUsersHandler(store, userCache)

	r := gin.New()
	users := r.Group("/users", authMW.RequireAuth())
	users.GET("/profile", h.GetProfile)
	users.PUT("/profile", h.UpdateProfile)
	users.PUT("/password", h.ChangePassword)
	users.GET("", authMW.RequireRole(user.RoleAdmin), h.ListUsers)

	return &usersEnv{router: r, store: store, jwt: jwtManager}
}

// seedUser creates an account with the given password and returns it
// with a valid session token.
func (e *usersEnv) seedUser(t *testing.T, name, email, password, role string) (user.User, string) {
	t.Helper()

	hash, err := security.HashPassword(password)

	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	u, err := e.store.Create(context.Background(), name, email, hash, role)

	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	token, err := e.jwt.Issue(u.ID)

	if err != nil {
		t.Fatalf("token issue failed: %v", err)
	}

	return u, token
}

func (e *usersEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	return w
}

func TestGetProfile(t *testing.T) {
	env := newUsersEnv(t)
	_, token := env.seedUser(t, "Ann Lee", "ann@example.com", "secret1", user.RoleUser)

	w := env.do(http.MethodGet, "/users/profile", token, "")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	resp := decodeEnvelope(t, w)
	u, ok := resp.Data["user"].(map[string]any)

	if !ok || u["email"] != "ann@example.com" {
		t.Fatalf("unexpected user payload: %v", resp.Data["user"])
	}
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	env := newUsersEnv(t)
	env.seedUser(t, "Ann Lee", "ann@example.com", "secret1", user.RoleUser)
	bob, token := env.seedUser(t, "Bob Kim", "bob@example.com", "secret2", user.RoleUser)

	// someone else's email, any case variant
	w := env.do(http.MethodPut, "/users/profile", token, `{"email":"ANN@example.com"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}

	if msg := decodeEnvelope(t, w).Message; msg != "Email is already taken" {
		t.Fatalf("unexpected message: %q", msg)
	}

	// your own unchanged email is a no-op
	w = env.do(http.MethodPut, "/users/profile", token, `{"email":"bob@example.com"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("own-email update: got status %d, body=%s", w.Code, w.Body.String())
	}

	got, err := env.store.GetByID(context.Background(), bob.ID)

	if err != nil || got.Email != "bob@example.com" {
		t.Fatalf("record changed unexpectedly: %+v err=%v", got, err)
	}
}

func TestUpdateProfileName(t *testing.T) {
	env := newUsersEnv(t)
	ann, token := env.seedUser(t, "Ann Lee", "ann@example.com", "secret1", user.RoleUser)

	w := env.do(http.MethodPut, "/users/profile", token, `{"name":"Ann Chen"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	resp := decodeEnvelope(t, w)

	if resp.Message != "Profile updated successfully" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}

	got, err := env.store.GetByID(context.Background(), ann.ID)

	if err != nil || got.Name != "Ann Chen" || got.Email != "ann@example.com" {
		t.Fatalf("unexpected record: %+v err=%v", got, err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newUsersEnv(t)
	ann, token := env.seedUser(t, "Ann Lee", "ann@example.com", "secret1", user.RoleUser)

	before, _ := env.store.GetByID(context.Background(), ann.ID)

	t.Run("wrong current password", func(t *testing.T) {
		w := env.do(http.MethodPut, "/users/password", token, `{"currentPassword":"wrong-password","newPassword":"secret2"}`)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("got status %d, want 401, body=%s", w.Code, w.Body.String())
		}

		if msg := decodeEnvelope(t, w).Message; msg != "Current password is incorrect" {
			t.Fatalf("unexpected message: %q", msg)
		}

		after, _ := env.store.GetByID(context.Background(), ann.ID)

		if after.PasswordHash != before.PasswordHash {
			t.Fatal("stored hash must be unchanged after a rejected change")
		}
	})

	t.Run("success", func(t *testing.T) {
		w := env.do(http.MethodPut, "/users/password", token, `{"currentPassword":"secret1","newPassword":"secret2"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
		}

		after, _ := env.store.GetByID(context.Background(), ann.ID)

		if after.PasswordHash == before.PasswordHash {
			t.Fatal("stored hash should have been replaced")
		}

		if err := security.CheckPassword(after.PasswordHash, "secret2"); err != nil {
			t.Fatalf("new password does not verify: %v", err)
		}

		if !after.UpdatedAt.After(before.UpdatedAt) {
			t.Fatalf("updatedAt not bumped: %v -> %v", before.UpdatedAt, after.UpdatedAt)
		}
	})
}

func TestListUsersRequiresAdmin(t *testing.T) {
	env := newUsersEnv(t)
	env.seedUser(t, "Ann Lee", "ann@example.com", "secret1", user.RoleUser)
	_, userToken := env.seedUser(t, "Bob Kim", "bob@example.com", "secret2", user.RoleUser)
	_, adminToken := env.seedUser(t, "Root", "root@example.com", "secret3", user.RoleAdmin)

	w := env.do(http.MethodGet, "/users", userToken, "")

	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin: got status %d, want 403", w.Code)
	}

	w = env.do(http.MethodGet, "/users", adminToken, "")

	if w.Code != http.StatusOK {
		t.Fatalf("admin: got status %d, body=%s", w.Code, w.Body.String())
	}

	resp := decodeEnvelope(t, w)

	if count, ok := resp.Data["count"].(float64); !ok || int(count) != 3 {
		t.Fatalf("unexpected count: %v", resp.Data["count"])
	}
}
