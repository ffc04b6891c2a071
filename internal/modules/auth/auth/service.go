package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/modules/auth/attempt"
	"github.com/qalam-news/core/internal/modules/auth/user"
	"github.com/qalam-news/core/internal/pkg/apperr"
	jwtpkg "github.com/qalam-news/core/internal/pkg/jwt"
	"github.com/qalam-news/core/internal/pkg/session"
	"github.com/qalam-news/core/internal/policy"
	"go.uber.org/zap"
)

// Service authenticates users and issues, verifies and revokes access tokens.
type Service struct {
	users    *user.Service
	signer   *jwtpkg.Signer
	attempts *attempt.Tracker
	denylist session.Denylist
	lockout  Lockout
	logger   *zap.Logger
}

func NewService(users *user.Service, signer *jwtpkg.Signer, attempts *attempt.Tracker, denylist session.Denylist, lockout Lockout, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if denylist == nil {
		denylist = session.NewMemoryDenylist()
	}
	return &Service{
		users:    users,
		signer:   signer,
		attempts: attempts,
		denylist: denylist,
		lockout:  lockout,
		logger:   logger.Named("AuthService"),
	}
}

// Authenticate checks, in order: lockout, user lookup, active flag, password.
// Every outcome is recorded as a login attempt. The returned error carries the
// precise reason; the HTTP layer collapses the credential reasons into one message.
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (*TokenResult, error) {
	username := user.NormalizeUsername(in.Username)
	record := func(success bool, reason string) {
		s.attempts.Record(attempt.Attempt{
			Username:  username,
			IP:        in.IP,
			UserAgent: in.UserAgent,
			Success:   success,
			Reason:    reason,
		})
	}

	if s.lockout.enabled() {
		failures, err := s.attempts.CountRecentFailures(ctx, username, s.lockout.Window)
		if err != nil {
			s.logger.Warn("lockout check failed", zap.String("username", username), zap.Error(err))
		} else if failures >= s.lockout.MaxFailures {
			record(false, attempt.ReasonAccountLocked)
			s.logger.Info("login rejected", zap.String("username", username), zap.String("reason", attempt.ReasonAccountLocked))
			return nil, apperr.ErrAccountLocked
		}
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			s.users.CheckPassword(nil, in.Password)
			record(false, attempt.ReasonUserNotFound)
			s.logger.Info("login rejected", zap.String("username", username), zap.String("reason", attempt.ReasonUserNotFound))
			return nil, err
		}
		record(false, attempt.ReasonInternal)
		s.logger.Error("login lookup failed", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	if !u.Active {
		s.users.CheckPassword(nil, in.Password)
		record(false, attempt.ReasonAccountDisabled)
		s.logger.Info("login rejected", zap.String("username", username), zap.String("reason", attempt.ReasonAccountDisabled))
		return nil, apperr.ErrAccountDisabled
	}

	if !s.users.CheckPassword(u, in.Password) {
		record(false, attempt.ReasonInvalidCredentials)
		s.logger.Info("login rejected", zap.String("username", username), zap.String("reason", attempt.ReasonInvalidCredentials))
		return nil, apperr.ErrInvalidCredentials
	}

	result, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	if at, err := s.users.RecordLogin(ctx, u.ID, in.IP); err != nil {
		s.logger.Warn("update last login failed", zap.String("uid", u.ID), zap.Error(err))
	} else {
		u.LastLogin = &at
		u.LastLoginIP = in.IP
	}
	record(true, "")
	s.logger.Info("login succeeded", zap.String("uid", u.ID), zap.String("username", username))
	return result, nil
}

// Verify decodes token into claims. Expired tokens fail with TokenExpired; bad
// signatures, malformed tokens and revoked tokens fail with TokenInvalid.
func (s *Service) Verify(ctx context.Context, token string) (*policy.Claims, error) {
	parsed, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, jwtpkg.ErrTokenExpired) {
			return nil, apperr.Wrap(apperr.CodeTokenExpired, err)
		}
		return nil, apperr.Wrap(apperr.CodeTokenInvalid, err)
	}
	revoked, err := s.denylist.IsRevoked(ctx, parsed.ID)
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, apperr.New(apperr.CodeTokenInvalid, "token revoked")
	}
	return claimsFromToken(parsed), nil
}

// Logout revokes the token behind claims until it would have expired.
func (s *Service) Logout(ctx context.Context, claims *policy.Claims) error {
	if claims == nil || claims.TokenID == "" {
		return apperr.ErrTokenInvalid
	}
	if err := s.denylist.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info("logout", zap.String("uid", claims.UserID))
	return nil
}

// Refresh issues a new token for a still valid session and revokes the old one.
// The user is re-read so role, permission and active changes apply.
func (s *Service) Refresh(ctx context.Context, claims *policy.Claims) (*TokenResult, error) {
	if claims == nil || claims.UserID == "" {
		return nil, apperr.ErrTokenInvalid
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.New(apperr.CodeTokenInvalid, "user no longer exists")
		}
		return nil, err
	}
	if !u.Active {
		return nil, apperr.ErrAccountDisabled
	}
	result, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	if err := s.denylist.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		s.logger.Warn("revoke refreshed token failed", zap.String("uid", u.ID), zap.Error(err))
	}
	return result, nil
}

// CurrentUser returns the account behind claims.
func (s *Service) CurrentUser(ctx context.Context, claims *policy.Claims) (*models.User, error) {
	if claims == nil {
		return nil, apperr.ErrTokenInvalid
	}
	return s.users.GetByID(ctx, claims.UserID)
}

func (s *Service) issue(u *models.User) (*TokenResult, error) {
	perms := make([]string, len(u.Permissions))
	for i, p := range u.Permissions {
		perms[i] = string(p)
	}
	token, claims, err := s.signer.Sign(u.ID, string(u.Role), perms)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &TokenResult{Token: token, ExpiresAt: claims.ExpiresAtTime(), User: u}, nil
}
