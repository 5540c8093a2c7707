// Package refreshtokens declares the repository contract for refresh-token
// records: one live record per (user, device) pair, atomically rotated.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository defines keyed storage operations for refresh-token records.
//
// The service layer holds no locks of its own; request-level correctness
// rests entirely on UpsertForDevice and DeleteByToken being atomic.
type Repository interface {
	// FindByToken looks up a record by its opaque token value.
	// Implementations return common.ErrorNotFound when the token is absent.
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// FindByUserAndDevice returns the live record for the (userID,
	// deviceKey) pair, or common.ErrorNotFound.
	FindByUserAndDevice(ctx context.Context, userID, deviceKey string) (*models.RefreshToken, error)

	// UpsertForDevice atomically replaces the live record for (userID,
	// deviceKey) or creates one if absent. When two calls race for the
	// same pair, exactly one of the competing tokens ends up live and both
	// callers observe a fully-written record.
	UpsertForDevice(ctx context.Context, userID, deviceKey, token string, expiresAt time.Time) (*models.RefreshToken, error)

	// DeleteByToken removes a record and returns it in one atomic step.
	// Deleting an absent token returns common.ErrorNotFound; the caller
	// decides whether that is an error. Of two concurrent deletes for the
	// same token, exactly one receives the record.
	DeleteByToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteByUser removes every record for userID and returns the number
	// of records removed.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
