package web

import (
	"net/http"

	"go.uber.org/zap"

	"grocery-planner/internal/metrics"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) error {
	authURL, err := s.gateway.BuildAuthorizationURL(sessionFrom(r.Context()))
	if err != nil {
		return err
	}
	http.Redirect(w, r, authURL, http.StatusFound)
	return nil
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) error {
	sess := sessionFrom(r.Context())
	q := r.URL.Query()

	if providerErr := q.Get("error"); providerErr != "" {
		return s.gateway.HandleProviderError(sess, providerErr, q.Get("error_description"))
	}

	res, err := s.gateway.CompleteLogin(r.Context(), sess, q.Get("code"), q.Get("state"))
	if err != nil {
		return err
	}
	// Logging in creates the user's record if this is their first visit.
	if err := s.svc.Register(r.Context(), res.Identity.Email); err != nil {
		return err
	}
	s.log.Info("User logged in", zap.String("email", res.Identity.Email))
	return respondJSON(w, http.StatusOK, res.Identity)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) error {
	sess := sessionFrom(r.Context())
	s.gateway.Logout(sess)
	s.sessions.Delete(sess.ID())
	s.clearSessionCookie(w)
	return noContent(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) error {
	id, _ := sessionFrom(r.Context()).Identity()
	return respondJSON(w, http.StatusOK, id)
}

type healthResponse struct {
	Status   string            `json:"status"`
	Sessions int               `json:"sessions"`
	System   metrics.SysHealth `json:"system"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) error {
	return respondJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Sessions: s.sessions.Len(),
		System:   metrics.GetSysHealth(s.dataDir),
	})
}
