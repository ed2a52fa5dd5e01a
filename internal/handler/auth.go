package handler

import (
	"net/http"
	"time"

	"github.com/monetra/backend/internal/domain"
	"github.com/monetra/backend/internal/service"
)

// CookieName holds the session JWT for browser clients.
const CookieName = "jwt"

// AuthHandler handles authentication HTTP endpoints.
type AuthHandler struct {
	auth         *service.AuthService
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie should be true
// whenever the API is served over HTTPS.
func NewAuthHandler(auth *service.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookie: secureCookie}
}

// Signup handles POST /user/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.auth.Signup(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}

	h.setCookie(w, resp.Token, h.auth.TokenTTL())
	Success(w, http.StatusCreated, resp)
}

// Signin handles POST /user/signin.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req domain.SigninRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.auth.Signin(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}

	h.setCookie(w, resp.Token, h.auth.TokenTTL())
	Success(w, http.StatusOK, resp)
}

// Me handles GET /user/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), id)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, user)
}

// Logout handles POST /user/logout by expiring the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setCookie(w, "", -time.Second)
	Success(w, http.StatusOK, nil)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
