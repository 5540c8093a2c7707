// Package accounts declares the repository contract for account records.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository defines persistence operations for accounts.
type Repository interface {
	// Create stores a new account and returns it with ID and CreatedAt
	// populated. A duplicate email yields common.ErrEmailTaken.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// FindByIDOrEmail looks up an account whose id or email equals the
	// given value. Implementations return common.ErrorNotFound when absent.
	FindByIDOrEmail(ctx context.Context, idOrEmail string) (*models.Account, error)

	// FindAll returns every account, newest first.
	FindAll(ctx context.Context) ([]*models.Account, error)

	// Delete removes an account by id. Deleting an absent id returns
	// common.ErrorNotFound.
	Delete(ctx context.Context, id string) error
}
