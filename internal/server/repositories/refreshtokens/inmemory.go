package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// InMemoryRepository is a map-backed Repository used in tests. A single
// mutex gives it the same atomicity guarantees as the Postgres
// implementation, which makes it usable for exercising races at the
// service level.
type InMemoryRepository struct {
	mu      sync.Mutex
	byToken map[string]models.RefreshToken
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byToken: make(map[string]models.RefreshToken)}
}

func (r *InMemoryRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	result := record
	return &result, nil
}

func (r *InMemoryRepository) FindByUserAndDevice(ctx context.Context, userID, deviceKey string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range r.byToken {
		if record.UserID == userID && record.DeviceKey == deviceKey {
			result := record
			return &result, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *InMemoryRepository) UpsertForDevice(ctx context.Context, userID, deviceKey, token string, expiresAt time.Time) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Drop the previous record for the pair, if any, inside the same
	// critical section that stores the replacement.
	for t, record := range r.byToken {
		if record.UserID == userID && record.DeviceKey == deviceKey {
			delete(r.byToken, t)
			break
		}
	}

	stored := models.RefreshToken{
		Token:     token,
		UserID:    userID,
		DeviceKey: deviceKey,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	r.byToken[token] = stored

	result := stored
	return &result, nil
}

func (r *InMemoryRepository) DeleteByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(r.byToken, token)

	result := record
	return &result, nil
}

func (r *InMemoryRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for t, record := range r.byToken {
		if record.UserID == userID {
			delete(r.byToken, t)
			n++
		}
	}
	return n, nil
}

// Len reports the number of live records; test helper.
func (r *InMemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byToken)
}
