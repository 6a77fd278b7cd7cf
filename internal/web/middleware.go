package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"grocery-planner/internal/auth"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "grocery_session"

type ctxKey int

const sessionKey ctxKey = iota

// AppHandler is a handler that reports failures by returning an error.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler turns an AppHandler into an http.HandlerFunc, writing a JSON error body on failure.
func (s *Server) MakeHandler(handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := handler(w, r)
		if err == nil {
			return
		}

		status, message := statusFor(err)
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		}
		if status >= http.StatusInternalServerError {
			s.log.Error("Request failed", err, fields...)
		} else {
			s.log.Warn("Client error response", append(fields, zap.Error(err))...)
		}

		if headerSent(w) {
			s.log.Warn("Handler returned error after writing response", fields...)
			return
		}
		_ = respondJSON(w, status, map[string]string{"error": message})
	}
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// withSession attaches the caller's session to the request, starting a new one when the
// cookie is missing, expired or forged.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *auth.Session
		if c, err := r.Cookie(SessionCookie); err == nil {
			sess, _ = s.sessions.Resolve(c.Value)
		}
		if sess == nil {
			created, token, err := s.sessions.Create()
			if err != nil {
				s.log.Error("Failed to create session", err)
				_ = respondJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternalServer})
				return
			}
			sess = created
			s.setSessionCookie(w, token, sess.ExpiresAt)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionFrom returns the session attached by withSession.
func sessionFrom(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(sessionKey).(*auth.Session)
	return sess
}

// RequireAuth rejects requests whose session is not authenticated.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return s.MakeHandler(func(w http.ResponseWriter, r *http.Request) error {
		sess := sessionFrom(r.Context())
		if sess == nil {
			return errNotLoggedIn
		}
		if _, ok := sess.Identity(); !ok {
			return errNotLoggedIn
		}
		next.ServeHTTP(w, r)
		return nil
	})
}

// currentEmail is only valid behind RequireAuth.
func currentEmail(r *http.Request) string {
	id, _ := sessionFrom(r.Context()).Identity()
	return id.Email
}
