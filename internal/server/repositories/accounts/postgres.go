package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code raised when the accounts
// email constraint is hit.
const uniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account row. The id and created_at values come from
// the database.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (email, password_hash, roles)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		account.Email, account.PasswordHash, rolesToDB(account.Roles)).
		Scan(&account.ID, &account.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrEmailTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

// FindByIDOrEmail returns the account whose id or email matches the value.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) FindByIDOrEmail(ctx context.Context, idOrEmail string) (*models.Account, error) {
	query := `
		SELECT id, email, password_hash, roles, created_at
		FROM accounts
		WHERE id::text = $1 OR email = $1
	`
	account := &models.Account{}
	var roles string
	err := r.db.QueryRowContext(ctx, query, idOrEmail).
		Scan(&account.ID, &account.Email, &account.PasswordHash, &roles, &account.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	account.Roles = rolesFromDB(roles)
	return account, nil
}

// FindAll returns every account, newest first.
func (r *PostgresRepository) FindAll(ctx context.Context) ([]*models.Account, error) {
	query := `
		SELECT id, email, password_hash, roles, created_at
		FROM accounts
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		account := &models.Account{}
		var roles string
		if err := rows.Scan(&account.ID, &account.Email, &account.PasswordHash, &roles, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		account.Roles = rolesFromDB(roles)
		result = append(result, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Delete removes an account by id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM accounts
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Roles are stored as a comma-separated text column.

func rolesToDB(roles []string) string {
	return strings.Join(roles, ",")
}

func rolesFromDB(roles string) []string {
	if roles == "" {
		return nil
	}
	return strings.Split(roles, ",")
}
