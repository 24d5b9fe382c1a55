package handler

import (
	"net/http"

	"notes-server/internal/httperror"
	"notes-server/internal/middleware"
	"notes-server/internal/service"
	"notes-server/pkg/response"
)

type UserHandler struct {
	userService *service.UserService
	errors      *httperror.Writer
}

func NewUserHandler(userService *service.UserService, errors *httperror.Writer) *UserHandler {
	return &UserHandler{
		userService: userService,
		errors:      errors,
	}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetByID(r.Context(), middleware.GetUserID(r))
	if err != nil {
		h.errors.Write(w, err)
		return
	}

	response.Success(w, user)
}
