// Package authctl implements the operator CLI that manages accounts
// directly against the database, bypassing the HTTP API. Its main use is
// bootstrapping the first admin account.
package authctl

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

type App struct {
	db       *sql.DB
	accounts *services.AccountService
	out      io.Writer
}

func NewApp(ctx context.Context, dsn string) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	return &App{
		db:       db,
		accounts: services.NewAccountService(db, rm, logger),
		out:      os.Stdout,
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

// Register prompts for credentials and creates the account with the given
// roles. The password is read twice without echo and must match.
func (a *App) Register(ctx context.Context, roles []string) error {

	email, password, err := promptCredentials(bufio.NewReader(os.Stdin), a.out)
	if err != nil {
		return err
	}

	account, err := a.accounts.Register(ctx, email, password, roles)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Created account %s (%s)\n", account.Email, account.ID)
	return nil
}

// promptCredentials reads the email from reader and the password twice
// from the terminal without echo.
func promptCredentials(reader *bufio.Reader, w io.Writer) (string, string, error) {

	fmt.Fprint(w, "Email:\n> ")
	email, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", "", err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return "", "", errors.New("email is required")
	}

	fmt.Fprint(w, "Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", "", err
	}

	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", "", err
	}

	if string(first) != string(second) {
		return "", "", errors.New("passwords do not match")
	}

	return email, string(first), nil
}
