package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/quizgen/internal/auth"
	"github.com/iliyamo/quizgen/internal/service"
)

// RefreshCookie is the name of the cookie carrying the refresh token.
const RefreshCookie = "refresh_token"

// AuthHandler serves sign-up, login, token refresh and logout.
type AuthHandler struct {
	Svc          *service.Service
	CookieSecure bool
	Log          *slog.Logger
}

func NewAuthHandler(svc *service.Service, cookieSecure bool, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &AuthHandler{Svc: svc, CookieSecure: cookieSecure, Log: log}
}

// SignUp: create user with a fresh quota and log them in.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	sess, err := h.Svc.SignUp(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	h.setRefresh(c, sess.Tokens.Refresh)
	return c.JSON(http.StatusCreated, toSession(sess))
}

// Token: verify credentials and return the session.
func (h *AuthHandler) Token(c echo.Context) error {
	var req tokenReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	sess, err := h.Svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	h.setRefresh(c, sess.Tokens.Refresh)
	return c.JSON(http.StatusOK, toSession(sess))
}

// Refresh: rotate the refresh cookie and return a new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	pair, err := h.Svc.Refresh(c.Request().Context(), h.refreshFrom(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	h.setRefresh(c, pair.Refresh)
	return c.JSON(http.StatusOK, accessResp{AccessToken: pair.Access.Value, AccessExpires: pair.Access.ExpiresAt})
}

// Logout: revoke the presented refresh token (if tracked) and clear the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Svc.Logout(c.Request().Context(), h.refreshFrom(c)); err != nil {
		return respondError(c, h.Log, err)
	}
	h.clearRefresh(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) refreshFrom(c echo.Context) string {
	ck, err := c.Cookie(RefreshCookie)
	if err != nil {
		return ""
	}
	return ck.Value
}

func (h *AuthHandler) cookie(value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if h.CookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     RefreshCookie,
		Value:    value,
		Path:     "/api",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: sameSite,
	}
}

func (h *AuthHandler) setRefresh(c echo.Context, tok auth.Token) {
	c.SetCookie(h.cookie(tok.Value, int(h.Svc.Issuer.RefreshTTL()/time.Second)))
}

func (h *AuthHandler) clearRefresh(c echo.Context) {
	c.SetCookie(h.cookie("", -1))
}
