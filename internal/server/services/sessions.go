package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// SessionPolicy owns the device-binding rules for refresh-token records:
// one live record per (user, device) pair, replaced on every successful
// login or refresh. It is the single place the uniqueness invariant is
// enforced.
type SessionPolicy struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	refreshTokenValidityDuration time.Duration
	strictDeviceBinding          bool
}

// NewSessionPolicy constructs a SessionPolicy using repositories and
// server config.
func NewSessionPolicy(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *SessionPolicy {
	return &SessionPolicy{
		db:                           db,
		repomanager:                  m,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		strictDeviceBinding:          cfg.StrictDeviceBinding,
	}
}

// Rotate draws a fresh random token value and a new expiry window for the
// (userID, deviceKey) pair and atomically replaces any live record for
// that pair in the store. Token values are never reused: every rotation
// generates a new UUID.
func (p *SessionPolicy) Rotate(ctx context.Context, userID, deviceKey string) (*models.RefreshToken, error) {
	token := uuid.NewString()
	expiresAt := time.Now().Add(p.refreshTokenValidityDuration)

	repo := p.repomanager.RefreshTokens(p.db)
	record, err := repo.UpsertForDevice(ctx, userID, deviceKey, token, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("error rotating refresh token: %w", err)
	}
	return record, nil
}

// StrictDeviceBinding reports whether a refresh presented from a device
// other than the one the record was issued to must be rejected. Off by
// default: user agents drift between requests from the same client.
func (p *SessionPolicy) StrictDeviceBinding() bool {
	return p.strictDeviceBinding
}
