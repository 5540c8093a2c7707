package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeIssuer struct {
	loginFn   func(ctx context.Context, identifier, plainPassword, deviceKey string) (*services.TokenPair, error)
	refreshFn func(ctx context.Context, presentedToken, deviceKey string) (*services.TokenPair, error)
	logoutFn  func(ctx context.Context, presentedToken string) error
}

func (f *fakeIssuer) Login(ctx context.Context, identifier, plainPassword, deviceKey string) (*services.TokenPair, error) {
	return f.loginFn(ctx, identifier, plainPassword, deviceKey)
}

func (f *fakeIssuer) Refresh(ctx context.Context, presentedToken, deviceKey string) (*services.TokenPair, error) {
	return f.refreshFn(ctx, presentedToken, deviceKey)
}

func (f *fakeIssuer) Logout(ctx context.Context, presentedToken string) error {
	return f.logoutFn(ctx, presentedToken)
}

type fakeDirectory struct {
	registerFn func(ctx context.Context, email, plainPassword string, roles []string) (*models.Account, error)
	findFn     func(ctx context.Context, idOrEmail string) (*models.Account, error)
	listFn     func(ctx context.Context) ([]*models.Account, error)
	deleteFn   func(ctx context.Context, id string, actor *auth.Claims) error
}

func (f *fakeDirectory) Register(ctx context.Context, email, plainPassword string, roles []string) (*models.Account, error) {
	return f.registerFn(ctx, email, plainPassword, roles)
}

func (f *fakeDirectory) Find(ctx context.Context, idOrEmail string) (*models.Account, error) {
	return f.findFn(ctx, idOrEmail)
}

func (f *fakeDirectory) List(ctx context.Context) ([]*models.Account, error) {
	return f.listFn(ctx)
}

func (f *fakeDirectory) Delete(ctx context.Context, id string, actor *auth.Claims) error {
	return f.deleteFn(ctx, id, actor)
}

func testServer(issuer CredentialIssuer, directory AccountDirectory) (*Server, *config.Config) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewServer(cfg, log, issuer, directory), cfg
}

func testPair(userID, deviceKey string) *services.TokenPair {
	return &services.TokenPair{
		AccessToken: "access-" + uuid.NewString(),
		RefreshToken: &models.RefreshToken{
			Token:     uuid.NewString(),
			UserID:    userID,
			DeviceKey: deviceKey,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
}

func refreshCookie(t *testing.T, res *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	t.Fatalf("no %q cookie in response", refreshCookieName)
	return nil
}

func TestLogin_SetsCookieAndReturnsAccessToken(t *testing.T) {
	var gotDeviceKey string
	issuer := &fakeIssuer{
		loginFn: func(_ context.Context, identifier, plainPassword, deviceKey string) (*services.TokenPair, error) {
			require.Equal(t, "a@b.com", identifier)
			require.Equal(t, "s3cret", plainPassword)
			gotDeviceKey = deviceKey
			return testPair("u1", deviceKey), nil
		},
	}
	srv, _ := testServer(issuer, &fakeDirectory{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.com","password":"s3cret"}`))
	req.Header.Set("User-Agent", "test-browser/1.0")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "access_token")

	cookie := refreshCookie(t, rec.Result())
	require.NotEmpty(t, cookie.Value)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, "/", cookie.Path)

	want := deviceKeyFromRequest(req)
	require.Equal(t, want, gotDeviceKey, "login must receive the derived device key")
	require.Len(t, gotDeviceKey, 64, "device key is hex(sha256)")
}

func TestLogin_BadCredentials(t *testing.T) {
	issuer := &fakeIssuer{
		loginFn: func(context.Context, string, string, string) (*services.TokenPair, error) {
			return nil, common.ErrAuthenticationFailed
		},
	}
	srv, _ := testServer(issuer, &fakeDirectory{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, rec.Result().Cookies())
}

func TestLogin_MalformedBody(t *testing.T) {
	srv, _ := testServer(&fakeIssuer{}, &fakeDirectory{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_CreatedAndConflict(t *testing.T) {
	directory := &fakeDirectory{
		registerFn: func(_ context.Context, email, plainPassword string, roles []string) (*models.Account, error) {
			if email == "taken@b.com" {
				return nil, common.ErrEmailTaken
			}
			return &models.Account{ID: uuid.NewString(), Email: email, Roles: []string{models.RoleUser}}, nil
		},
	}
	srv, _ := testServer(&fakeIssuer{}, directory)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"a@b.com","password":"s3cret"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), "a@b.com")
	require.NotContains(t, rec.Body.String(), "password")

	req = httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"taken@b.com","password":"s3cret"}`))
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_WeakPasswordRejected(t *testing.T) {
	srv, _ := testServer(&fakeIssuer{}, &fakeDirectory{})

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"a@b.com","password":"abc"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh_RotatesCookie(t *testing.T) {
	replacement := testPair("u1", "dev")
	issuer := &fakeIssuer{
		refreshFn: func(_ context.Context, presentedToken, deviceKey string) (*services.TokenPair, error) {
			require.Equal(t, "old-token", presentedToken)
			return replacement, nil
		},
	}
	srv, _ := testServer(issuer, &fakeDirectory{})

	req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "old-token"})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookie := refreshCookie(t, rec.Result())
	require.Equal(t, replacement.RefreshToken.Token, cookie.Value)
}

func TestRefresh_MissingCookie(t *testing.T) {
	srv, _ := testServer(&fakeIssuer{}, &fakeDirectory{})

	req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_InvalidTokenClearsCookie(t *testing.T) {
	issuer := &fakeIssuer{
		refreshFn: func(context.Context, string, string) (*services.TokenPair, error) {
			return nil, common.ErrInvalidRefreshToken
		},
	}
	srv, _ := testServer(issuer, &fakeDirectory{})

	req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "stolen"})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	cookie := refreshCookie(t, rec.Result())
	require.Empty(t, cookie.Value)
	require.Negative(t, cookie.MaxAge)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	issuer := &fakeIssuer{
		refreshFn: func(context.Context, string, string) (*services.TokenPair, error) {
			return nil, common.ErrRefreshTokenExpired
		},
	}
	srv, _ := testServer(issuer, &fakeDirectory{})

	req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "stale"})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "expired")
}

func TestLogout_ClearsCookie(t *testing.T) {
	var loggedOut string
	issuer := &fakeIssuer{
		logoutFn: func(_ context.Context, presentedToken string) error {
			loggedOut = presentedToken
			return nil
		},
	}
	srv, _ := testServer(issuer, &fakeDirectory{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "live-token"})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "live-token", loggedOut)
	cookie := refreshCookie(t, rec.Result())
	require.Negative(t, cookie.MaxAge)
}

func TestLogout_WithoutCookieStillSucceeds(t *testing.T) {
	srv, _ := testServer(&fakeIssuer{}, &fakeDirectory{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}

func bearerFor(t *testing.T, cfg *config.Config, account *models.Account, validity time.Duration) string {
	t.Helper()
	token, err := auth.GenerateToken(account, []byte(cfg.SecretKey), validity)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestUserRoutes_RequireAuth(t *testing.T) {
	srv, _ := testServer(&fakeIssuer{}, &fakeDirectory{})

	req := httptest.NewRequest(http.MethodGet, "/user/", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "missing access token")
}

func TestUserRoutes_ExpiredTokenDistinctMessage(t *testing.T) {
	srv, cfg := testServer(&fakeIssuer{}, &fakeDirectory{})
	account := &models.Account{ID: uuid.NewString(), Email: "a@b.com", Roles: []string{models.RoleUser}}

	req := httptest.NewRequest(http.MethodGet, "/user/", nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, account, -time.Minute))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "access token expired")
}

func TestListAccounts(t *testing.T) {
	directory := &fakeDirectory{
		listFn: func(context.Context) ([]*models.Account, error) {
			return []*models.Account{
				{ID: "u1", Email: "a@b.com", Roles: []string{models.RoleUser}},
				{ID: "u2", Email: "b@b.com", Roles: []string{models.RoleUser}},
			}, nil
		},
	}
	srv, cfg := testServer(&fakeIssuer{}, directory)
	account := &models.Account{ID: "u1", Email: "a@b.com", Roles: []string{models.RoleUser}}

	req := httptest.NewRequest(http.MethodGet, "/user/", nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, account, time.Minute))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "a@b.com")
	require.Contains(t, rec.Body.String(), "b@b.com")
}

func TestGetAccount_NotFound(t *testing.T) {
	directory := &fakeDirectory{
		findFn: func(context.Context, string) (*models.Account, error) {
			return nil, common.ErrorNotFound
		},
	}
	srv, cfg := testServer(&fakeIssuer{}, directory)
	account := &models.Account{ID: "u1", Email: "a@b.com", Roles: []string{models.RoleUser}}

	req := httptest.NewRequest(http.MethodGet, "/user/missing@b.com", nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, account, time.Minute))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAccount_PassesCallerClaims(t *testing.T) {
	targetID := uuid.NewString()
	var gotActor *auth.Claims
	directory := &fakeDirectory{
		deleteFn: func(_ context.Context, id string, actor *auth.Claims) error {
			require.Equal(t, targetID, id)
			gotActor = actor
			return nil
		},
	}
	srv, cfg := testServer(&fakeIssuer{}, directory)
	account := &models.Account{ID: targetID, Email: "a@b.com", Roles: []string{models.RoleUser}}

	req := httptest.NewRequest(http.MethodDelete, "/user/"+targetID, nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, account, time.Minute))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, gotActor)
	require.Equal(t, targetID, gotActor.UserID)
}

func TestDeleteAccount_InvalidID(t *testing.T) {
	srv, cfg := testServer(&fakeIssuer{}, &fakeDirectory{})
	account := &models.Account{ID: uuid.NewString(), Email: "a@b.com", Roles: []string{models.RoleUser}}

	req := httptest.NewRequest(http.MethodDelete, "/user/not-a-uuid", nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, account, time.Minute))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAccount_Forbidden(t *testing.T) {
	directory := &fakeDirectory{
		deleteFn: func(context.Context, string, *auth.Claims) error {
			return common.ErrForbidden
		},
	}
	srv, cfg := testServer(&fakeIssuer{}, directory)
	account := &models.Account{ID: uuid.NewString(), Email: "b@b.com", Roles: []string{models.RoleUser}}

	req := httptest.NewRequest(http.MethodDelete, "/user/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, account, time.Minute))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeviceKey_StablePerUserAgent(t *testing.T) {
	a := httptest.NewRequest(http.MethodGet, "/", nil)
	a.Header.Set("User-Agent", "browser-a")
	b := httptest.NewRequest(http.MethodGet, "/", nil)
	b.Header.Set("User-Agent", "browser-a")
	c := httptest.NewRequest(http.MethodGet, "/", nil)
	c.Header.Set("User-Agent", "browser-b")

	require.Equal(t, deviceKeyFromRequest(a), deviceKeyFromRequest(b))
	require.NotEqual(t, deviceKeyFromRequest(a), deviceKeyFromRequest(c))
}
