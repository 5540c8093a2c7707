package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// AccountService implements account registration, lookup, listing, and
// deletion. Deleting an account also revokes every refresh-token record
// it owns, in one transaction.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

// NewAccountService constructs an AccountService bound to the given
// database handle and repository manager.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "accounts"),
	}
}

// Register creates a new account with a bcrypt-hashed password. When no
// roles are given the account gets the default user role. A duplicate
// email yields ErrEmailTaken.
func (s *AccountService) Register(ctx context.Context, email, plainPassword string, roles []string) (*models.Account, error) {
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.Create(ctx, &models.Account{
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
	})
	if err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, common.ErrEmailTaken
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}
	return account, nil
}

// Find returns the account whose id or email equals the given value, or
// common.ErrorNotFound.
func (s *AccountService) Find(ctx context.Context, idOrEmail string) (*models.Account, error) {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.FindByIDOrEmail(ctx, idOrEmail)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error searching account: %w", err)
	}
	return account, nil
}

// List returns every account, newest first.
func (s *AccountService) List(ctx context.Context) ([]*models.Account, error) {
	repo := s.repomanager.Accounts(s.db)

	result, err := repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}
	return result, nil
}

// Delete removes an account and revokes all of its sessions. Only the
// account owner or an admin may delete; anyone else gets ErrForbidden.
// An unknown id yields common.ErrorNotFound.
func (s *AccountService) Delete(ctx context.Context, id string, actor *auth.Claims) error {
	if _, err := s.repomanager.Accounts(s.db).FindByIDOrEmail(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error searching account: %w", err)
	}

	if actor == nil || (actor.UserID != id && !actor.HasRole(models.RoleAdmin)) {
		return common.ErrForbidden
	}

	// Account row and its refresh-token records go together: an account
	// must not vanish while its sessions stay usable.
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		revoked, err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, id)
		if err != nil {
			return fmt.Errorf("error revoking sessions: %w", err)
		}
		if revoked > 0 {
			s.logger.Info(ctx, "revoked sessions for deleted account", "user_id", id, "count", revoked)
		}
		return s.repomanager.Accounts(tx).Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting account: %w", err)
	}
	return nil
}
