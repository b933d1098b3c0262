package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	authMW "snapfeed/internal/auth/middleware"
	"snapfeed/internal/auth/service"
	platformMW "snapfeed/internal/platform/middleware"
	rlmodels "snapfeed/internal/ratelimit/models"
	"snapfeed/internal/transport/httputil"
	dErrors "snapfeed/pkg/domain-errors"
)

// Handler is the thin HTTP layer for registration, login, and logout.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister creates a new account.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	u, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, u)
}

// HandleLogin authenticates under brute-force protection and issues the
// session cookie. Lockouts surface as 429 with Retry-After; bad
// credentials as 401.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	ip := platformMW.GetClientIP(r.Context())
	result, err := h.svc.Login(r.Context(), req.Username, req.Password, ip, r.UserAgent())
	if err != nil {
		var exceeded *rlmodels.RateLimitError
		if errors.As(err, &exceeded) {
			retryAfter := exceeded.RetryAfterSeconds()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, &rlmodels.RateLimitExceededResponse{
				Error:      "too_many_login_attempts",
				Message:    "Too many failed login attempts. Please try again later.",
				RetryAfter: retryAfter,
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authMW.SessionCookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.Session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, result.Session)
}

// HandleLogout deletes the caller's session and clears the cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess := authMW.GetSession(r.Context())
	if sess != nil {
		if err := h.svc.Logout(r.Context(), sess.ID); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authMW.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
