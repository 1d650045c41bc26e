package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/pokvault/pokvault/internal/domain"
)

const apiTokenPrefix = "pok_"

type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByHandle(ctx context.Context, handle string) (*domain.User, error)
}

type APITokenRepositoryInterface interface {
	Create(ctx context.Context, t *domain.APIToken) error
	GetByHash(ctx context.Context, hash string) (*domain.APIToken, error)
	Revoke(ctx context.Context, id string) error
}

type AuthService struct {
	userRepo  UserRepositoryInterface
	tokenRepo APITokenRepositoryInterface
	uuidGen   UUIDGenerator
}

func NewAuthService(userRepo UserRepositoryInterface, tokenRepo APITokenRepositoryInterface) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

func NewAuthServiceWithUUIDGen(userRepo UserRepositoryInterface, tokenRepo APITokenRepositoryInterface, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		uuidGen:   uuidGen,
	}
}

func (s *AuthService) CreateUser(ctx context.Context, handle string) (*domain.User, error) {
	if strings.TrimSpace(handle) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user handle is required")
	}

	user := &domain.User{
		ID:        s.uuidGen.NewString(),
		Handle:    handle,
		CreatedAt: time.Now().UTC(),
	}

	if err := domain.ValidateUser(user); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// CreateToken mints a new API token for the user and returns the raw
// token. Only the sha256 digest is stored; the raw value is unrecoverable
// after this call.
func (s *AuthService) CreateToken(ctx context.Context, userID, name string) (string, error) {
	if userID == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	if name == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "token name is required")
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return "", err
	}

	token, err := generateAPIToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API token", err)
	}

	record := &domain.APIToken{
		ID:        s.uuidGen.NewString(),
		UserID:    userID,
		Name:      name,
		TokenHash: hashToken(token),
		CreatedAt: time.Now().UTC(),
	}

	if err := domain.ValidateAPIToken(record); err != nil {
		return "", err
	}

	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return "", err
	}

	return token, nil
}

// ValidateToken resolves a raw bearer token to the owning user ID.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (string, error) {
	if !IsValidAPIToken(token) {
		return "", domain.ErrInvalidAPIToken
	}

	record, err := s.tokenRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		return "", err
	}

	if record.Revoked {
		return "", domain.ErrAPITokenRevoked
	}

	return record.UserID, nil
}

func (s *AuthService) RevokeToken(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "token ID is required")
	}

	return s.tokenRepo.Revoke(ctx, tokenID)
}

func generateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiTokenPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiTokenPrefix) {
		return false
	}
	hexPart := token[len(apiTokenPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	if _, err := hex.DecodeString(hexPart); err != nil {
		return false
	}
	return true
}

// IsAuthError reports whether err is a credential problem rather than an
// infrastructure failure, so handlers can map it to 401.
func IsAuthError(err error) bool {
	return errors.Is(err, domain.ErrInvalidAPIToken) || errors.Is(err, domain.ErrAPITokenRevoked)
}
