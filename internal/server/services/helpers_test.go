package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	accountsrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/accounts"
	refreshrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

// fakeRepoManager vends the in-memory repositories regardless of the DBTX
// handed in, which lets service tests run without a real database while
// still exercising the transactional code paths against sqlmock.
type fakeRepoManager struct {
	accounts      *accountsrepo.InMemoryRepository
	refreshTokens *refreshrepo.InMemoryRepository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accountsrepo.Repository {
	return m.accounts
}
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshrepo.Repository {
	return m.refreshTokens
}

type testEnv struct {
	db          *sql.DB
	mock        sqlmock.Sqlmock
	rm          *fakeRepoManager
	cfg         *config.Config
	sessions    *SessionPolicy
	credentials *CredentialService
	accounts    *AccountService
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	return cfg
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm := &fakeRepoManager{
		accounts:      accountsrepo.NewInMemoryRepository(),
		refreshTokens: refreshrepo.NewInMemoryRepository(),
	}

	log := discardLogger()
	sessions := NewSessionPolicy(db, rm, cfg)

	return &testEnv{
		db:          db,
		mock:        mock,
		rm:          rm,
		cfg:         cfg,
		sessions:    sessions,
		credentials: NewCredentialService(db, rm, sessions, log, cfg),
		accounts:    NewAccountService(db, rm, log),
	}
}

func (e *testEnv) register(t *testing.T, email, password string, roles ...string) *models.Account {
	t.Helper()
	account, err := e.accounts.Register(context.Background(), email, password, roles)
	require.NoError(t, err)
	return account
}
