package accounts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/google/uuid"
)

// InMemoryRepository is a map-backed Repository used in tests.
type InMemoryRepository struct {
	mu   sync.Mutex
	byID map[string]models.Account
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byID: make(map[string]models.Account)}
}

func (r *InMemoryRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.byID {
		if a.Email == account.Email {
			return nil, common.ErrEmailTaken
		}
	}

	stored := *account
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now()
	r.byID[stored.ID] = stored

	result := stored
	return &result, nil
}

func (r *InMemoryRepository) FindByIDOrEmail(ctx context.Context, idOrEmail string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.byID[idOrEmail]; ok {
		result := a
		return &result, nil
	}
	for _, a := range r.byID {
		if a.Email == idOrEmail {
			result := a
			return &result, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *InMemoryRepository) FindAll(ctx context.Context) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*models.Account, 0, len(r.byID))
	for _, a := range r.byID {
		copy := a
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}
