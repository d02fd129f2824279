package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the uniform response body. Every endpoint, success or
// failure, responds with this shape.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func Respond(ctx *gin.Context, status int, message string, data any) {
	ctx.JSON(status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func RespondError(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, Envelope{
		Success: false,
		Message: message,
	})
}

func RespondValidation(ctx *gin.Context, errs []string) {
	ctx.JSON(http.StatusBadRequest, Envelope{
		Success: false,
		Message: "Validation error",
		Errors:  errs,
	})
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, message)
}
