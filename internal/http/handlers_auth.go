package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/filegate/filegate/internal/adapters/hostauth"
	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/pathsafe"
	"github.com/filegate/filegate/internal/service"
)

// AuthHandlers provides HTTP handlers for login, logout, and the
// simple-password challenge.
type AuthHandlers struct {
	Login        *service.LoginService // optional; nil disables /auth/login
	Sessions     *service.SessionService
	Gate         *service.GateService
	Resolver     *pathsafe.Resolver
	HostIdentity *hostauth.HeaderIdentity // optional
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// BeginLogin handles GET /auth/login?redirect_uri=<optional>.
func (h *AuthHandlers) BeginLogin(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	result, err := h.Login.BeginLogin(r.Context(), redirectURI)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_failed",
			Err:     err,
		})
		return
	}

	h.setOAuthCookies(w, r, oauthCookieParams{State: result.State, Nonce: result.Nonce, RedirectURI: redirectURI})
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback handles GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_code",
			Err:     errors.New("authorization code is required"),
		})
		return
	}
	if state == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_state",
			Err:     errors.New("state parameter is required"),
		})
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonceCookie, err := r.Cookie("oauth_nonce")
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     errors.New("missing nonce parameter"),
		})
		return
	}

	sess, err := h.Login.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_completion_failed",
			Err:     err,
		})
		return
	}

	h.setSessionCookie(w, r, sess)
	h.clearCookie(w, r, "oauth_state")
	h.clearCookie(w, r, "oauth_nonce")

	http.Redirect(w, r, h.getPostLoginRedirect(w, r), http.StatusFound)
}

// Logout handles POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if logoutErr := h.Sessions.Logout(r.Context(), cookie.Value); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
	}
	h.clearCookie(w, r, SessionCookieName)

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Status handles GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	if sess == nil {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":    sess.Identity.UserID,
			"roles": sess.Identity.Roles,
		},
		"expires_at": sess.ExpiresAt,
	})
}

// SubmitPassword handles POST /auth/password: the response to a
// simple-password challenge. Form fields: password, path.
func (h *AuthHandlers) SubmitPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
		return
	}
	rel := r.PostFormValue("path")
	password := r.PostFormValue("password")

	_, dirKey, ok := resolveGateTarget(h.Resolver, rel)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if password == "" {
		writeChallenge(w, r, challengeData{Path: rel})
		return
	}

	// Verification state must outlive this request, so an anonymous caller
	// gets a session before the gate runs.
	sess := SessionFromContext(r.Context())
	if sess == nil {
		created, err := h.Sessions.Create(r.Context(), identityFor(r, h.HostIdentity))
		if err != nil {
			WriteError(w, ErrorParams{
				Code:    http.StatusInternalServerError,
				ErrCode: "session_failed",
				Err:     err,
			})
			return
		}
		sess = &created
		h.setSessionCookie(w, r, created)
	}

	decision := h.Gate.Decide(r.Context(), service.DecideInput{
		Directory:         dirKey,
		Identity:          identityFor(r, h.HostIdentity),
		Session:           &sess.Gate,
		SubmittedPassword: password,
	})

	if err := h.Sessions.Save(r.Context(), *sess); err != nil {
		h.logger().WarnContext(r.Context(), "persist gate state failed", "error", err)
	}

	switch decision {
	case domainauth.DecisionAllow:
		http.Redirect(w, r, "/files/"+rel, http.StatusSeeOther)
	case domainauth.DecisionDenyWithError:
		writeChallenge(w, r, challengeData{Path: rel, Error: "Incorrect password."})
	case domainauth.DecisionChallenge:
		writeChallenge(w, r, challengeData{Path: rel})
	default:
		http.NotFound(w, r)
	}
}

// oauthCookieParams groups values needed to set OAuth cookies.
type oauthCookieParams struct {
	State       string
	Nonce       string
	RedirectURI string
}

func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	isSecure := requestIsSecure(r)
	const tenMinutes = 600

	for name, value := range map[string]string{
		"oauth_state":         p.State,
		"oauth_nonce":         p.Nonce,
		"post_login_redirect": p.RedirectURI,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   h.CookieDomain,
			HttpOnly: true,
			Secure:   isSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   tenMinutes,
		})
	}
}

// setSessionCookie writes the session cookie based on the session's expiry.
func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

// clearCookie clears a cookie by setting it to expire immediately. It
// mirrors the attributes used when setting cookies so deletion works
// across browsers.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// getPostLoginRedirect returns the post-login redirect URL and clears the
// cookie.
func (h *AuthHandlers) getPostLoginRedirect(w http.ResponseWriter, r *http.Request) string {
	redirectURI := "/"
	if cookie, err := r.Cookie("post_login_redirect"); err == nil {
		redirectURI = safeRedirectPath(cookie.Value)
		h.clearCookie(w, r, "post_login_redirect")
	}
	return redirectURI
}

func requestIsSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// safeRedirectPath allows only same-origin relative paths starting with
// "/". Anything else collapses to "/".
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
