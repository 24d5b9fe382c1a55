package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"notes-server/internal/domain"
	"notes-server/internal/httperror"
	"notes-server/internal/middleware"
	"notes-server/internal/service"
	"notes-server/pkg/response"
)

type NoteHandler struct {
	service *service.NoteService
	errors  *httperror.Writer
}

func NewNoteHandler(service *service.NoteService, errors *httperror.Writer) *NoteHandler {
	return &NoteHandler{
		service: service,
		errors:  errors,
	}
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNoteRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.errors.Write(w, err)
		return
	}

	note, err := h.service.Create(r.Context(), middleware.GetUserID(r), &req)
	if err != nil {
		h.errors.Write(w, err)
		return
	}

	response.Created(w, note)
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.List(r.Context(), middleware.GetUserID(r))
	if err != nil {
		h.errors.Write(w, err)
		return
	}

	response.Success(w, notes)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.Get(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"])
	if err != nil {
		h.errors.Write(w, err)
		return
	}

	response.Success(w, note)
}

// Update accepts both {"title": "x"} and {"fields": [{"field": "title", "value": "x"}]}.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateNoteRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.errors.Write(w, err)
		return
	}

	note, err := h.service.Update(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"], &req)
	if err != nil {
		h.errors.Write(w, err)
		return
	}

	response.Success(w, note)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.Delete(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"])
	if err != nil {
		h.errors.Write(w, err)
		return
	}

	response.Success(w, note)
}
