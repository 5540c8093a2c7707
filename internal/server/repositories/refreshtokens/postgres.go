// Package refreshtokens provides a PostgreSQL-backed repository for the
// refresh-token records used in the authentication flow. Atomicity of
// rotation and consumption comes from single statements: an upsert over
// the (user_id, device_key) unique constraint and DELETE ... RETURNING.
package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByToken returns the record for the given token value.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT token, user_id, device_key, expires_at, created_at
		FROM refresh_tokens
		WHERE token = $1
	`
	record := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&record.Token, &record.UserID, &record.DeviceKey, &record.ExpiresAt, &record.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return record, nil
}

// FindByUserAndDevice returns the live record for the (userID, deviceKey)
// pair, or common.ErrorNotFound.
func (r *PostgresRepository) FindByUserAndDevice(ctx context.Context, userID, deviceKey string) (*models.RefreshToken, error) {
	query := `
		SELECT token, user_id, device_key, expires_at, created_at
		FROM refresh_tokens
		WHERE user_id = $1 AND device_key = $2
	`
	record := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, userID, deviceKey).
		Scan(&record.Token, &record.UserID, &record.DeviceKey, &record.ExpiresAt, &record.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return record, nil
}

// UpsertForDevice replaces the live record for (userID, deviceKey) or
// creates one. The single INSERT ... ON CONFLICT statement is what makes
// rotation safe under concurrent refreshes for the same pair.
func (r *PostgresRepository) UpsertForDevice(ctx context.Context, userID, deviceKey, token string, expiresAt time.Time) (*models.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (user_id, device_key, token, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT refresh_tokens_user_device_key
		DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, created_at = now()
		RETURNING token, user_id, device_key, expires_at, created_at
	`
	record := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, userID, deviceKey, token, expiresAt).
		Scan(&record.Token, &record.UserID, &record.DeviceKey, &record.ExpiresAt, &record.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return record, nil
}

// DeleteByToken removes a record and returns it. The DELETE ... RETURNING
// statement both consumes and reads in one atomic step, so a token value
// can be consumed at most once.
func (r *PostgresRepository) DeleteByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE token = $1
		RETURNING token, user_id, device_key, expires_at, created_at
	`
	record := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&record.Token, &record.UserID, &record.DeviceKey, &record.ExpiresAt, &record.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return record, nil
}

// DeleteByUser removes every record owned by userID.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE user_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return affected, nil
}
