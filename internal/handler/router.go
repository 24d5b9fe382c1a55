package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"notes-server/internal/config"
	"notes-server/internal/domain"
	"notes-server/internal/httperror"
	"notes-server/internal/logger"
	"notes-server/internal/middleware"
)

type Router struct {
	Auth      *AuthHandler
	User      *UserHandler
	Note      *NoteHandler
	WebSocket *WebSocketHandler

	Tokens middleware.TokenVerifier
	Users  middleware.UserChecker
	Errors *httperror.Writer
	Log    *logger.Logger

	TokenHeader string
	CORS        config.CORSConfig
}

// NewRouter wires every route. Registration and login are open, token
// introspection only resolves the token, and everything else passes the full
// gate.
func NewRouter(rt Router) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(rt.Log))
	r.Use(middleware.Recovery(rt.Errors, rt.Log))
	r.Use(middleware.CORSMiddleware(
		rt.CORS.AllowedOrigins,
		rt.CORS.AllowedMethods,
		rt.CORS.AllowedHeaders,
	))
	r.Use(middleware.DeviceID)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt.Errors.Write(w, domain.NewNotFoundError("route not found"))
	})

	fromHeader := middleware.FromHeader(rt.TokenHeader)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", rt.Auth.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/login", rt.Auth.Login).Methods("POST", "OPTIONS")

	resolved := api.PathPrefix("/auth/token").Subrouter()
	resolved.Use(middleware.Pipeline(rt.Errors, rt.Log, middleware.FetchUser(rt.Tokens, fromHeader)))
	resolved.HandleFunc("", rt.Auth.Token).Methods("GET", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Gate(rt.Errors, rt.Log, rt.Tokens, rt.Users, fromHeader))

	protected.HandleFunc("/users/me", rt.User.GetMe).Methods("GET", "OPTIONS")

	protected.HandleFunc("/notes", rt.Note.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/notes", rt.Note.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/notes/{id}", rt.Note.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/notes/{id}", rt.Note.Update).Methods("PATCH", "PUT", "OPTIONS")
	protected.HandleFunc("/notes/{id}", rt.Note.Delete).Methods("DELETE", "OPTIONS")

	if rt.WebSocket != nil {
		stream := r.PathPrefix("/ws").Subrouter()
		stream.Use(middleware.Gate(rt.Errors, rt.Log, rt.Tokens, rt.Users,
			middleware.FromHeaderOrQuery(rt.TokenHeader, "token")))
		stream.HandleFunc("", rt.WebSocket.HandleConnection).Methods("GET")
	}

	r.HandleFunc("/health", Health).Methods("GET")
	r.HandleFunc("/", Root).Methods("GET")

	return r
}
