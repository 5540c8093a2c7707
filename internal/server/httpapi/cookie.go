package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

const refreshCookieName = "refreshtoken"

// setRefreshCookie attaches the refresh token to the response. The cookie
// is httpOnly so browser scripts never see the token value; Secure is
// enabled in production only so local development over plain HTTP works.
func (s *Server) setRefreshCookie(w http.ResponseWriter, token *models.RefreshToken) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token.Token,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) unsetRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
