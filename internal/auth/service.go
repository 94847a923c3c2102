package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/printforge/printforge/internal/shared"
)

const tokenKeyPrefix = "printforge:token:"

// ErrTokenInvalid indicates a missing or expired token.
var ErrTokenInvalid = errors.New("token invalid or expired")

// Service wraps authentication business rules. Issued tokens live in
// Redis so the API stays stateless across instances.
type Service struct {
	repo     Repository
	redis    *redis.Client
	tokenTTL time.Duration
}

// NewService constructs a new Service.
func NewService(repo Repository, redisClient *redis.Client, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &Service{repo: repo, redis: redisClient, tokenTTL: tokenTTL}
}

// Authenticate validates email/password credentials and issues a bearer token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, *shared.Actor, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}

	actor := &shared.Actor{UserID: user.ID, Email: user.Email, Role: user.Role}
	token := uuid.NewString()
	payload, err := json.Marshal(actor)
	if err != nil {
		return "", nil, fmt.Errorf("auth: marshal actor: %w", err)
	}
	if err := s.redis.Set(ctx, tokenKeyPrefix+token, payload, s.tokenTTL).Err(); err != nil {
		return "", nil, fmt.Errorf("auth: store token: %w", err)
	}
	return token, actor, nil
}

// Resolve looks up the actor for a bearer token.
func (s *Service) Resolve(ctx context.Context, token string) (*shared.Actor, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	payload, err := s.redis.Get(ctx, tokenKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("auth: load token: %w", err)
	}
	var actor shared.Actor
	if err := json.Unmarshal(payload, &actor); err != nil {
		return nil, ErrTokenInvalid
	}
	return &actor, nil
}

// Revoke deletes a bearer token.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.redis.Del(ctx, tokenKeyPrefix+token).Err()
}
