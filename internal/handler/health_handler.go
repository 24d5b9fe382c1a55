package handler

import (
	"net/http"

	"notes-server/pkg/response"
)

const serviceName = "notes-server"

func Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

func Root(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]interface{}{
		"message": "Notes API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"/api/v1/auth/register": "POST",
			"/api/v1/auth/login":    "POST",
			"/api/v1/auth/token":    "GET (token)",
			"/api/v1/users/me":      "GET (protected)",
			"/api/v1/notes":         "GET, POST (protected)",
			"/api/v1/notes/{id}":    "GET, PATCH, PUT, DELETE (protected)",
			"/ws":                   "GET (protected)",
		},
	})
}
