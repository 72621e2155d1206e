package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-docs-api/internal/infra/supabase"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

type identityUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type remoteUserVerifier interface {
	GetUser(ctx context.Context, accessToken string) (*supabase.AuthUser, error)
}

// IdentityConfig mirrors the auth section of the configuration.
type IdentityConfig struct {
	JWTSecret    string
	Issuer       string
	Audience     string
	RemoteVerify bool
}

// accessClaims are the claims the hosted auth provider puts in its access tokens.
type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IdentityService turns a bearer access token into a Session.
type IdentityService struct {
	users  identityUserLookup
	remote remoteUserVerifier
	cfg    IdentityConfig
	logger *zap.Logger
}

// NewIdentityService constructs the service. remote may be nil.
func NewIdentityService(users identityUserLookup, remote remoteUserVerifier, cfg IdentityConfig, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{users: users, remote: remote, cfg: cfg, logger: logger}
}

// Authenticate verifies the token and loads the caller's profile.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, appErrors.ErrUnauthorized
	}

	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has no subject")
	}

	if s.cfg.RemoteVerify && s.remote != nil {
		remoteUser, err := s.remote.GetUser(ctx, token)
		if err != nil {
			return nil, err
		}
		if remoteUser.ID != claims.Subject {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token subject mismatch")
		}
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "no profile for this account")
		}
		return nil, appErrors.Backend(err, "users.findById")
	}
	if !user.IsActive {
		return nil, appErrors.ErrInactiveAccount
	}
	if !user.Role.Valid() {
		s.logger.Warn("user has unknown role", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
		return nil, appErrors.ErrForbidden
	}

	session := &models.Session{Identity: user.Identity(), TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

func (s *IdentityService) parse(token string) (*accessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	if s.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.cfg.Audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}
