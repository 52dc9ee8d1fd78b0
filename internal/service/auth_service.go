package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushq/student-records-api/internal/models"
	appErrors "github.com/campushq/student-records-api/pkg/errors"
)

// AuthConfig defines configuration for session token issuance.
type AuthConfig struct {
	Secret      string
	TokenExpiry time.Duration
	Issuer      string
}

// AuthService validates credentials and issues stateless session tokens.
// No session state is held server-side; logout is a no-op acknowledgement.
type AuthService struct {
	store     CredentialStore
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(store CredentialStore, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.TokenExpiry <= 0 {
		config.TokenExpiry = 24 * time.Hour
	}
	return &AuthService{store: store, validator: validate, logger: logger, config: config}
}

// Login verifies the submitted credentials and returns a signed session token
// valid for the configured expiry.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	principal, err := s.store.Verify(ctx, req.Username, req.Password)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrInvalidCredentials.Code) {
			s.logger.Info("login failed", zap.String("username", req.Username))
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	token, expiresAt, err := s.generateToken(principal)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session token")
	}

	s.logger.Info("login successful", zap.String("username", principal.Username))
	return &models.LoginResponse{
		Token:     token,
		Username:  principal.Username,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken parses and verifies a session token, returning the claims.
// A malformed token is a normal error return, never a panic.
func (s *AuthService) ValidateToken(tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// Logout acknowledges the client-side session discard. Sessions are stateless
// so there is nothing to revoke.
func (s *AuthService) Logout() {
	s.logger.Debug("logout acknowledged")
}

func (s *AuthService) generateToken(principal *models.Principal) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.SessionClaims{
		UserID:   principal.ID,
		Username: principal.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   principal.Username,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
