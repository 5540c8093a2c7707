// Package services contains server-side business logic. This file
// implements CredentialService, which orchestrates login, refresh, and
// logout: verifying credentials, rotating refresh-token records through
// SessionPolicy, and minting access tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token with the refresh-token
// record whose value the transport places into a cookie.
type TokenPair struct {
	AccessToken  string
	RefreshToken *models.RefreshToken
}

// CredentialService provides the session-credential operations:
// - Login: verify identifier/password and mint a token pair
// - Refresh: consume a refresh token, rotate, and mint a new pair
// - Logout: revoke a refresh token
//
// The service holds no locks of its own; correctness under concurrent
// requests relies entirely on the store's atomic keyed operations.
type CredentialService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	sessions                    *SessionPolicy
	logger                      logging.Logger
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewCredentialService constructs a CredentialService using repositories
// and server config.
func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, sessions *SessionPolicy, l logging.Logger, cfg *config.Config) *CredentialService {
	return &CredentialService{
		db:                          db,
		repomanager:                 m,
		sessions:                    sessions,
		logger:                      l.With("module", "credentials"),
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Login verifies the identifier/password pair and issues a fresh token
// pair bound to deviceKey. An unknown identifier and a wrong password
// both yield ErrAuthenticationFailed, so the response cannot be used to
// probe which accounts exist.
func (s *CredentialService) Login(ctx context.Context, identifier, plainPassword, deviceKey string) (*TokenPair, error) {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.FindByIDOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("error searching account: %w", err)
	}

	if !password.Verify(plainPassword, account.PasswordHash) {
		return nil, common.ErrAuthenticationFailed
	}

	return s.issuePair(ctx, account, deviceKey)
}

// Refresh exchanges a presented refresh token for a fresh pair. The
// presented token is consumed first, before any other check, so a
// replayed value can never succeed twice: the loser of a race observes
// the deletion and fails with ErrInvalidRefreshToken.
//
// The deviceKey is the one of the refreshing request, which may differ
// from the stored record's; by default the mismatch is tolerated and the
// new record is stored under the presented key. With strict device
// binding the refresh is rejected instead (the token stays consumed
// either way).
func (s *CredentialService) Refresh(ctx context.Context, presentedToken, deviceKey string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	consumed, err := repo.DeleteByToken(ctx, presentedToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("error consuming refresh token: %w", err)
	}

	if consumed.Expired(time.Now()) {
		// The record is already gone, so the expired value cannot be
		// retried either.
		return nil, common.ErrRefreshTokenExpired
	}

	if consumed.DeviceKey != deviceKey {
		if s.sessions.StrictDeviceBinding() {
			s.logger.Warn(ctx, "refresh rejected: device key mismatch", "user_id", consumed.UserID)
			return nil, common.ErrDeviceMismatch
		}
		s.logger.Info(ctx, "refresh device key changed", "user_id", consumed.UserID)
	}

	account, err := s.repomanager.Accounts(s.db).FindByIDOrEmail(ctx, consumed.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Orphaned token: never mint credentials for an account that
			// no longer exists.
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("error searching account: %w", err)
	}

	pair, err := s.issuePair(ctx, account, deviceKey)
	if err != nil {
		// The old record is consumed and no replacement was stored; the
		// device has to authenticate again.
		s.logger.Error(ctx, "refresh token consumed but not replaced",
			"user_id", consumed.UserID, "error", err.Error())
		return nil, err
	}
	return pair, nil
}

// Logout revokes the record for the presented token. An absent token is
// not an error: logging out an already-used or expired session is a
// no-op, so the operation is idempotent.
func (s *CredentialService) Logout(ctx context.Context, presentedToken string) error {
	repo := s.repomanager.RefreshTokens(s.db)

	if _, err := repo.DeleteByToken(ctx, presentedToken); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// --- helpers below ---

func (s *CredentialService) issuePair(ctx context.Context, account *models.Account, deviceKey string) (*TokenPair, error) {
	record, err := s.sessions.Rotate(ctx, account.ID, deviceKey)
	if err != nil {
		return nil, err
	}

	access, err := auth.GenerateToken(account, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: access, RefreshToken: record}, nil
}
