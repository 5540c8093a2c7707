package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

func toAccountResponse(a *models.Account) accountResponse {
	return accountResponse{ID: a.ID, Email: a.Email, Roles: a.Roles, CreatedAt: a.CreatedAt}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !strings.Contains(req.Email, "@") || len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "email and password (6+ characters) are required")
		return
	}

	account, err := s.accounts.Register(r.Context(), req.Email, req.Password, req.Roles)
	if err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		s.logger.Error(r.Context(), "Register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	pair, err := s.credentials.Login(r.Context(), req.Email, req.Password, deviceKeyFromRequest(r))
	if err != nil {
		if errors.Is(err, common.ErrAuthenticationFailed) {
			loginsTotal.WithLabelValues(outcomeDenied).Inc()
			writeError(w, http.StatusUnauthorized, "authentication failed")
			return
		}
		loginsTotal.WithLabelValues(outcomeError).Inc()
		s.logger.Error(r.Context(), "Login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	loginsTotal.WithLabelValues(outcomeSuccess).Inc()
	s.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, TokenType: "Bearer"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		refreshesTotal.WithLabelValues(outcomeDenied).Inc()
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	pair, err := s.credentials.Refresh(r.Context(), cookie.Value, deviceKeyFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidRefreshToken):
			refreshesTotal.WithLabelValues(outcomeDenied).Inc()
			s.unsetRefreshCookie(w)
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
		case errors.Is(err, common.ErrRefreshTokenExpired):
			refreshesTotal.WithLabelValues(outcomeDenied).Inc()
			s.unsetRefreshCookie(w)
			writeError(w, http.StatusUnauthorized, "refresh token expired")
		case errors.Is(err, common.ErrDeviceMismatch):
			refreshesTotal.WithLabelValues(outcomeDenied).Inc()
			s.unsetRefreshCookie(w)
			writeError(w, http.StatusUnauthorized, "refresh token not valid for this device")
		case errors.Is(err, common.ErrAccountNotFound):
			refreshesTotal.WithLabelValues(outcomeDenied).Inc()
			s.unsetRefreshCookie(w)
			writeError(w, http.StatusUnauthorized, "account no longer exists")
		default:
			refreshesTotal.WithLabelValues(outcomeError).Inc()
			s.logger.Error(r.Context(), "Refresh failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	refreshesTotal.WithLabelValues(outcomeSuccess).Inc()
	s.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, TokenType: "Bearer"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err == nil && cookie.Value != "" {
		if err := s.credentials.Logout(r.Context(), cookie.Value); err != nil {
			s.logger.Error(r.Context(), "Logout failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	logoutsTotal.Inc()
	s.unsetRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := s.accounts.List(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), "Listing accounts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	result := make([]accountResponse, 0, len(list))
	for _, a := range list {
		result = append(result, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	idOrEmail := chi.URLParam(r, "idOrEmail")

	account, err := s.accounts.Find(r.Context(), idOrEmail)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		s.logger.Error(r.Context(), "Account lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	err := s.accounts.Delete(r.Context(), id, claimsFromContext(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrForbidden):
			writeError(w, http.StatusForbidden, "not allowed to delete this account")
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			s.logger.Error(r.Context(), "Account deletion failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
