package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"notes-server/internal/config"
	"notes-server/internal/handler"
	"notes-server/internal/httperror"
	"notes-server/internal/logger"
	"notes-server/internal/repository"
	"notes-server/internal/repository/couchdb"
	"notes-server/internal/repository/memory"
	"notes-server/internal/repository/postgres"
	"notes-server/internal/service"
	"notes-server/internal/websocket"
	"notes-server/pkg/hash"
	"notes-server/pkg/jwt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("error", "text").Fatal("failed to load configuration", "error", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	userRepo, noteRepo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", "driver", cfg.Store.Driver, "error", err)
	}
	defer closeStore()

	wsManager := websocket.NewManager(websocket.Config{
		MaxConnPerUser: cfg.WebSocket.MaxConnPerUser,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
	}, log)
	go wsManager.Run(ctx)

	tokens := jwt.NewManager(jwt.StaticKey(cfg.JWT.Secret), cfg.JWT.Expiration)
	errs := httperror.NewWriter(!cfg.IsProduction())

	authService := service.NewAuthService(userRepo, tokens, hash.NewBcrypt(cfg.Auth.BcryptCost), log)
	userService := service.NewUserService(userRepo)
	syncService := service.NewSyncService(wsManager, log)
	noteService := service.NewNoteService(noteRepo, syncService, log)

	r := handler.NewRouter(handler.Router{
		Auth:        handler.NewAuthHandler(authService, errs),
		User:        handler.NewUserHandler(userService, errs),
		Note:        handler.NewNoteHandler(noteService, errs),
		WebSocket:   handler.NewWebSocketHandler(wsManager, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, log),
		Tokens:      tokens,
		Users:       userService,
		Errors:      errs,
		Log:         log,
		TokenHeader: cfg.Auth.TokenHeader,
		CORS:        cfg.CORS,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", "addr", cfg.Addr(), "env", cfg.Server.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed to start", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return
	}

	log.Info("server stopped gracefully")
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.UserRepository, repository.NoteRepository, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("connected to postgres")
		return postgres.NewUserRepository(db), postgres.NewNoteRepository(db), closer(db, log), nil

	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return store.Users(), store.Notes(), func() {}, nil

	default:
		client, err := couchdb.Connect(ctx, cfg.CouchURL(), cfg.Database.Name)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("connected to couchdb", "host", cfg.Database.Host, "port", cfg.Database.Port, "db", cfg.Database.Name)
		return couchdb.NewUserRepository(client, cfg.Database.Name),
			couchdb.NewNoteRepository(client, cfg.Database.Name),
			func() {
				if err := client.Close(); err != nil {
					log.Error("failed to close couchdb client", "error", err)
				}
			}, nil
	}
}

func closer(db *sql.DB, log *logger.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}
}
