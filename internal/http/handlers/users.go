package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/geocoder89/libraryhub/internal/cache"
	"github.com/geocoder89/libraryhub/internal/domain/user"
	"github.com/geocoder89/libraryhub/internal/http/middlewares"
	"github.com/geocoder89/libraryhub/internal/repo"
	"github.com/geocoder89/libraryhub/internal/security"
	"github.com/gin-gonic/gin"
)

type UsersHandler struct {
	store repo.CredentialStore
	users cache.Users
}

func NewUsersHandler(store repo.CredentialStore, userCache cache.Users) *UsersHandler {
	return &UsersHandler{
		store: store,
		users: userCache,
	}
}

type UpdateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=2,max=50"`
	Email *string `json:"email" binding:"omitempty,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

func (h *UsersHandler) GetProfile(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	Respond(ctx, http.StatusOK, "", gin.H{"user": u})
}

func (h *UsersHandler) UpdateProfile(ctx *gin.Context) {
	cur, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	var req UpdateProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// Uniqueness is checked against the whole table. Changing the email
	// to its current value (any case) is a no-op and always succeeds.
	if req.Email != nil && !strings.EqualFold(*req.Email, cur.Email) {
		existing, err := h.store.GetByEmail(ctx.Request.Context(), *req.Email)

		if err == nil && existing.ID != cur.ID {
			RespondError(ctx, http.StatusBadRequest, "Email is already taken")
			return
		}

		if err != nil && !errors.Is(err, repo.ErrUserNotFound) {
			RespondInternal(ctx, "Could not update profile")
			return
		}
	}

	updated, err := h.store.UpdateProfile(ctx.Request.Context(), cur.ID, repo.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
	})

	if err != nil {
		switch {
		case errors.Is(err, repo.ErrEmailTaken):
			RespondError(ctx, http.StatusBadRequest, "Email is already taken")
		case errors.Is(err, repo.ErrUserNotFound):
			RespondNotFound(ctx, "User not found")
		default:
			RespondInternal(ctx, "Could not update profile")
		}
		return
	}

	h.users.Delete(ctx.Request.Context(), cur.ID)
	h.users.Set(ctx.Request.Context(), updated.Public())

	Respond(ctx, http.StatusOK, "Profile updated successfully", gin.H{"user": updated.Public()})
}

func (h *UsersHandler) ChangePassword(ctx *gin.Context) {
	cur, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	var req ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// The context user is sanitized; fetch the record with the hash.
	full, err := h.store.GetByID(ctx.Request.Context(), cur.ID)

	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not change password")
		return
	}

	if err := security.CheckPassword(full.PasswordHash, req.CurrentPassword); err != nil {
		RespondUnauthorized(ctx, "Current password is incorrect")
		return
	}

	newHash, err := security.HashPassword(req.NewPassword)

	if err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	if _, err := h.store.UpdatePassword(ctx.Request.Context(), cur.ID, newHash); err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	h.users.Delete(ctx.Request.Context(), cur.ID)

	Respond(ctx, http.StatusOK, "Password changed successfully", nil)
}

// ListUsers is the admin-only account listing.
func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	all, err := h.store.List(ctx.Request.Context())

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	out := make([]user.Public, 0, len(all))

	for _, u := range all {
		out = append(out, u.Public())
	}

	Respond(ctx, http.StatusOK, "", gin.H{
		"users": out,
		"count": len(out),
	})
}
