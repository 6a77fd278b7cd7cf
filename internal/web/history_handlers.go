package web

import (
	"net/http"

	"go.uber.org/zap"

	"grocery-planner/internal/grocery"
)

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) error {
	entries, err := s.svc.ListHistory(r.Context(), currentEmail(r))
	if err != nil {
		return err
	}
	return respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) error {
	key, err := urlParam(r, "key")
	if err != nil {
		return err
	}
	rec, err := s.svc.GetHistory(r.Context(), currentEmail(r), key)
	if err != nil {
		return err
	}
	return respondJSON(w, http.StatusOK, grocery.HistoryEntry{
		Key:       key,
		Timestamp: rec.Timestamp,
		WeekOf:    rec.WeekOf,
		Products:  rec.Products,
	})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) error {
	key, err := urlParam(r, "key")
	if err != nil {
		return err
	}
	if err := s.svc.DeleteHistory(r.Context(), currentEmail(r), key); err != nil {
		return err
	}
	return noContent(w)
}

func (s *Server) handleReuseHistory(w http.ResponseWriter, r *http.Request) error {
	key, err := urlParam(r, "key")
	if err != nil {
		return err
	}
	if err := s.svc.Reuse(r.Context(), currentEmail(r), key); err != nil {
		return err
	}
	sel, err := s.svc.Selection(r.Context(), currentEmail(r))
	if err != nil {
		return err
	}
	return respondJSON(w, http.StatusOK, sel)
}

func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) error {
	key, err := urlParam(r, "key")
	if err != nil {
		return err
	}
	text, err := s.svc.ExportHistory(r.Context(), currentEmail(r), key)
	if err != nil {
		return err
	}
	return respondText(w, text)
}

func (s *Server) handleShareHistory(w http.ResponseWriter, r *http.Request) error {
	key, err := urlParam(r, "key")
	if err != nil {
		return err
	}
	text, err := s.svc.ExportHistory(r.Context(), currentEmail(r), key)
	if err != nil {
		return err
	}
	if err := s.sender.Send(r.Context(), text); err != nil {
		return err
	}
	s.log.Info("Shared history record", zap.String("key", key))
	return noContent(w)
}
