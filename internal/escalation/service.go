package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// DefaultSessionTimeout applies when the admin account carries no override.
const DefaultSessionTimeout = 15 * time.Minute

// RightsResolver resolves admin roles into their (global scope) right set.
type RightsResolver interface {
	ExpandedRightsForRoles(ctx context.Context, roleNames []string) []string
}

// Service manages admin escalation sessions. Escalation is an explicit step
// on top of normal authentication: the user re-proves the password of an
// enabled admin account and receives a token whose lifetime is independent
// of the login session.
type Service struct {
	accounts AccountRepository
	store    *Store
	resolver RightsResolver
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(accounts AccountRepository, store *Store, resolver RightsResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{accounts: accounts, store: store, resolver: resolver, logger: logger}
}

// Elevate verifies the password against the user's admin account and mints
// an escalation token. Any previous escalation for the user is replaced.
func (s *Service) Elevate(ctx context.Context, userID int64, password string) (string, *Session, error) {
	account, err := s.accounts.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil, shared.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("escalation: elevate %d: %w", userID, err)
	}
	if !account.IsEnabled {
		return "", nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}

	ttl := account.SessionTimeout
	if ttl <= 0 {
		ttl = DefaultSessionTimeout
	}
	token := uuid.NewString()
	if err := s.store.Save(ctx, token, userID, ttl); err != nil {
		return "", nil, err
	}

	session := s.buildSession(ctx, account, time.Now().Add(ttl))
	s.logger.Info("admin escalation granted", slog.Int64("user_id", userID), slog.Duration("ttl", ttl))
	return token, session, nil
}

// Validate resolves a token to its session. Missing, expired and revoked
// tokens all come back ErrUnauthorized; a token whose admin account has been
// disabled since elevation fails closed the same way.
func (s *Service) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, shared.ErrUnauthorized
	}
	userID, err := s.store.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrStoreUnavailable) {
			// Cannot verify means deny: unavailable data never grants access.
			s.logger.Warn("escalation store unavailable", slog.Any("error", err))
			return nil, shared.ErrUnauthorized
		}
		return nil, err
	}
	account, err := s.accounts.FindByUserID(ctx, userID)
	if err != nil || !account.IsEnabled {
		s.logger.Warn("escalation token for unusable admin account", slog.Int64("user_id", userID))
		return nil, shared.ErrUnauthorized
	}

	expiresAt := time.Now().Add(DefaultSessionTimeout)
	if remaining, err := s.store.RemainingTTL(ctx, token); err == nil {
		expiresAt = time.Now().Add(remaining)
	}
	return s.buildSession(ctx, account, expiresAt), nil
}

// IsActive re-checks that the user still holds a live, unrevoked escalation.
func (s *Service) IsActive(ctx context.Context, userID int64) bool {
	_, err := s.store.ActiveToken(ctx, userID)
	return err == nil
}

// RolesAndRights returns the admin roles and their merged rights for an
// actively escalated user. Admin rights are global scope only, never
// department scoped.
func (s *Service) RolesAndRights(ctx context.Context, userID int64) ([]string, []string, error) {
	if !s.IsActive(ctx, userID) {
		return nil, nil, shared.ErrUnauthorized
	}
	account, err := s.accounts.FindByUserID(ctx, userID)
	if err != nil || !account.IsEnabled {
		return nil, nil, shared.ErrUnauthorized
	}
	rights := s.resolver.ExpandedRightsForRoles(ctx, account.AdminRoles)
	return account.AdminRoles, rights, nil
}

// Revoke drops the user's escalation immediately.
func (s *Service) Revoke(ctx context.Context, userID int64) error {
	return s.store.Revoke(ctx, userID)
}

func (s *Service) buildSession(ctx context.Context, account *AdminAccount, expiresAt time.Time) *Session {
	return &Session{
		UserID:            account.UserID,
		AdminRoles:        account.AdminRoles,
		AdminAccessRights: s.resolver.ExpandedRightsForRoles(ctx, account.AdminRoles),
		ExpiresAt:         expiresAt,
	}
}
