package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/libraryhub/internal/auth"
	"github.com/geocoder89/libraryhub/internal/cache"
	"github.com/geocoder89/libraryhub/internal/domain/user"
	"github.com/geocoder89/libraryhub/internal/http/middlewares"
	"github.com/geocoder89/libraryhub/internal/observability"
	"github.com/geocoder89/libraryhub/internal/repo"
	"github.com/geocoder89/libraryhub/internal/security"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	store   repo.CredentialStore
	jwt     *auth.Manager
	users   cache.Users
	metrics *observability.Prom
}

func NewAuthHandler(store repo.CredentialStore, jwtManager *auth.Manager, userCache cache.Users, metrics *observability.Prom) *AuthHandler {
	return &AuthHandler{
		store:   store,
		jwt:     jwtManager,
		users:   userCache,
		metrics: metrics,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.store.Create(ctx.Request.Context(), req.Name, req.Email, hash, user.RoleUser)

	if err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			h.metrics.ObserveAuth("register", false)
			RespondError(ctx, http.StatusBadRequest, "User with this email already exists")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	token, err := h.jwt.Issue(u.ID)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	h.users.Set(ctx.Request.Context(), u.Public())
	h.metrics.ObserveAuth("register", true)

	Respond(ctx, http.StatusCreated, "User registered successfully", gin.H{
		"user":  u.Public(),
		"token": token,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	foundUser, err := h.store.GetByEmail(ctx.Request.Context(), req.Email)

	if err != nil {
		// same message as a bad password; must not leak which field was wrong
		h.metrics.ObserveAuth("login", false)
		RespondUnauthorized(ctx, "Invalid credentials")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.metrics.ObserveAuth("login", false)
		RespondUnauthorized(ctx, "Invalid credentials")
		return
	}

	token, err := h.jwt.Issue(foundUser.ID)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	h.users.Set(ctx.Request.Context(), foundUser.Public())
	h.metrics.ObserveAuth("login", true)

	Respond(ctx, http.StatusOK, "Login successful", gin.H{
		"user":  foundUser.Public(),
		"token": token,
	})
}

// Me returns the user the session middleware attached.
func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	Respond(ctx, http.StatusOK, "", gin.H{"user": u})
}
