package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"notes-server/internal/domain"
	"notes-server/internal/logger"
	"notes-server/internal/repository"
	"notes-server/pkg/hash"
)

const invalidCredentials = "invalid email or password"

// TokenIssuer mints identity tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	TTL() time.Duration
}

type AuthService struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
	hasher   hash.Hasher
	log      *logger.Logger
	now      func() time.Time

	dummyMu   sync.Mutex
	dummyHash string
}

func NewAuthService(userRepo repository.UserRepository, tokens TokenIssuer, hasher hash.Hasher, log *logger.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		hasher:   hasher,
		log:      log,
		now:      time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, domain.NewInternalError("failed to check email", err)
	}
	if exists {
		return nil, domain.NewConflictError("email already in use")
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, domain.NewInternalError("failed to hash password", err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hashed,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewConflictError("email already in use")
		}
		return nil, domain.NewInternalError("failed to create user", err)
	}

	s.log.Info("user registered", "user_id", user.ID)

	return s.respond(user)
}

// Login never reveals whether the email or the password was wrong.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.compareDummy(req.Password)
			return nil, domain.NewAuthenticationError(invalidCredentials)
		}
		return nil, domain.NewInternalError("failed to find user", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, hash.ErrMismatch) {
			return nil, domain.NewAuthenticationError(invalidCredentials)
		}
		return nil, domain.NewInternalError("failed to verify password", err)
	}

	return s.respond(user)
}

func (s *AuthService) respond(user *domain.User) (*domain.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, domain.NewInternalError("failed to issue token", err)
	}

	return &domain.AuthResponse{
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		User:      user.Public(),
	}, nil
}

// compareDummy spends the same bcrypt work as a real login so unknown emails
// cannot be told apart by response time. A failed dummy hash is retried on the
// next call; preparing it costs a hash of its own.
func (s *AuthService) compareDummy(password string) {
	h := s.dummy()
	if h == "" {
		return
	}
	_ = s.hasher.Compare(h, password)
}

func (s *AuthService) dummy() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyHash == "" {
		h, err := s.hasher.Hash(uuid.New().String())
		if err != nil {
			s.log.Warn("failed to prepare dummy hash", "error", err)
			return ""
		}
		s.dummyHash = h
	}
	return s.dummyHash
}
