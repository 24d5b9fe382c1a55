package handler

import (
	"net/http"

	"notes-server/internal/domain"
	"notes-server/internal/httperror"
	"notes-server/internal/middleware"
	"notes-server/internal/service"
	"notes-server/pkg/response"
)

type AuthHandler struct {
	authService *service.AuthService
	errors      *httperror.Writer
}

func NewAuthHandler(authService *service.AuthService, errors *httperror.Writer) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		errors:      errors,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.errors.Write(w, err)
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		h.errors.Write(w, err)
		return
	}

	response.Created(w, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.errors.Write(w, err)
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		h.errors.Write(w, err)
		return
	}

	response.Success(w, resp)
}

// Token reports the identity carried by a valid token without consulting the
// user store.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{
		"user_id": middleware.GetUserID(r),
	})
}
