package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Umer-Fazal/pharmacore/internal/auth"
	"github.com/Umer-Fazal/pharmacore/internal/domain"
	"github.com/Umer-Fazal/pharmacore/internal/http/response"
	"github.com/Umer-Fazal/pharmacore/internal/secrets"
	"github.com/Umer-Fazal/pharmacore/internal/session"
	"github.com/Umer-Fazal/pharmacore/pkg/logger"
)

type ctxKey string

const ctxSession ctxKey = "session"

// SessionManager attaches a live session to every request. An unknown or
// missing cookie gets a fresh anonymous session; an idle session past the
// inactivity window is destroyed and replaced before any other check runs,
// so stale identities and CSRF tokens are never consulted.
type SessionManager struct {
	store      *session.Store
	cookieName string
}

func NewSessionManager(store *session.Store, cookieName string) *SessionManager {
	return &SessionManager{store: store, cookieName: cookieName}
}

func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var id string
		if c, err := r.Cookie(m.cookieName); err == nil {
			id = c.Value
		}

		sess, err := m.store.Get(ctx, id)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to load session", "error", err)
			response.InternalError(w, "session unavailable")
			return
		}
		if sess == nil {
			sess, err = m.store.Create(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to create session", "error", err)
				response.InternalError(w, "session unavailable")
				return
			}
			m.SetCookie(w, r, sess.ID)
		} else {
			var replaced bool
			sess, replaced, err = m.store.Touch(ctx, sess)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to touch session", "error", err)
				response.InternalError(w, "session unavailable")
				return
			}
			if replaced {
				m.SetCookie(w, r, sess.ID)
			}
		}

		ctx = context.WithValue(ctx, ctxSession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetCookie (re)issues the session cookie. The browser only ever holds the
// opaque id.
func (m *SessionManager) SetCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
	})
}

// ClearCookie expires the session cookie after logout.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// Current returns the request's session. Only valid below the session
// middleware.
func Current(r *http.Request) *session.Session {
	v := r.Context().Value(ctxSession)
	if v == nil {
		return nil
	}
	return v.(*session.Session)
}

// RequireCSRF rejects mutating requests whose token does not match the one
// bound to the session. The token travels in the X-CSRF-Token header, or in
// the csrf_token form field for form posts. A session that never fetched a
// token fails every check.
func RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		sess := Current(r)
		if sess == nil {
			response.Forbidden(w, "missing session", response.CodeInvalidCSRF)
			return
		}

		token := r.Header.Get("X-CSRF-Token")
		if token == "" && strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			token = r.PostFormValue("csrf_token")
		}
		if token == "" || sess.CSRFToken == "" || !secrets.ConstantTimeEquals(token, sess.CSRFToken) {
			response.Forbidden(w, "invalid csrf token", response.CodeInvalidCSRF)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRoles gates a subtree on an authenticated session holding one of
// the given roles.
func RequireRoles(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := auth.RequireRole(Current(r), roles...)
			switch err {
			case nil:
				next.ServeHTTP(w, r)
			case auth.ErrUnauthenticated:
				response.Unauthorized(w, "sign in required", response.CodeUnauthenticated)
			default:
				response.Forbidden(w, "insufficient role", response.CodeForbidden)
			}
		})
	}
}
