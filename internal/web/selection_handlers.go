package web

import (
	"net/http"
	"strconv"
	"time"

	"grocery-planner/internal/grocery"
)

type selectionResponse struct {
	UpdatedAt *time.Time             `json:"updated_at,omitempty"`
	Items     grocery.Selection      `json:"items"`
	Rows      []grocery.SelectionRow `json:"rows"`
}

// handleGetSelection returns the live selection plus one row per master list product, the
// shape /reconcile accepts back.
func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) error {
	rec, err := s.svc.Record(r.Context(), currentEmail(r))
	if err != nil {
		return err
	}

	resp := selectionResponse{Items: rec.Current, Rows: []grocery.SelectionRow{}}
	if !rec.CurrentUpdatedAt.IsZero() {
		resp.UpdatedAt = &rec.CurrentUpdatedAt
	}
	for _, name := range rec.FilterByCategory(r.URL.Query().Get("category")) {
		item, selected := rec.Current[name]
		resp.Rows = append(resp.Rows, grocery.SelectionRow{
			Product:      name,
			Selected:     selected,
			Quantity:     item.Quantity,
			QuantityText: item.QuantityText,
		})
	}
	return respondJSON(w, http.StatusOK, resp)
}

type selectRequest struct {
	Product  string           `json:"product"`
	Quantity grocery.Quantity `json:"quantity"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) error {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := s.svc.Select(r.Context(), currentEmail(r), req.Product, req.Quantity); err != nil {
		return err
	}
	return s.respondSelectionItem(w, r, req.Product)
}

type quantityRequest struct {
	Quantity grocery.Quantity `json:"quantity"`
}

func (s *Server) handleSetQuantity(w http.ResponseWriter, r *http.Request) error {
	name, err := urlParam(r, "name")
	if err != nil {
		return err
	}
	var req quantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := s.svc.SetQuantity(r.Context(), currentEmail(r), name, req.Quantity); err != nil {
		return err
	}
	return s.respondSelectionItem(w, r, name)
}

type selectionItemView struct {
	Product  string `json:"product"`
	Quantity any    `json:"quantity"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

func (s *Server) respondSelectionItem(w http.ResponseWriter, r *http.Request, name string) error {
	sel, err := s.svc.Selection(r.Context(), currentEmail(r))
	if err != nil {
		return err
	}
	item := sel[name]
	return respondJSON(w, http.StatusOK, selectionItemView{
		Product:  name,
		Quantity: item.QuantityValue(),
		Category: item.Category,
		Unit:     item.Unit,
	})
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) error {
	name, err := urlParam(r, "name")
	if err != nil {
		return err
	}
	removed, err := s.svc.Deselect(r.Context(), currentEmail(r), name)
	if err != nil {
		return err
	}
	return respondJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) error {
	if err := s.svc.ClearAll(r.Context(), currentEmail(r)); err != nil {
		return err
	}
	return noContent(w)
}

type reconcileRequest struct {
	Rows []grocery.SelectionRow `json:"rows"`
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) error {
	var req reconcileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := s.svc.Reconcile(r.Context(), currentEmail(r), req.Rows); err != nil {
		return err
	}
	sel, err := s.svc.Selection(r.Context(), currentEmail(r))
	if err != nil {
		return err
	}
	return respondJSON(w, http.StatusOK, sel)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) error {
	key, rec, err := s.svc.Commit(r.Context(), currentEmail(r))
	if err != nil {
		return err
	}
	return respondJSON(w, http.StatusCreated, grocery.HistoryEntry{
		Key:       key,
		Timestamp: rec.Timestamp,
		WeekOf:    rec.WeekOf,
		Products:  rec.Products,
	})
}

func (s *Server) handleExportSelection(w http.ResponseWriter, r *http.Request) error {
	text, err := s.svc.ExportCurrent(r.Context(), currentEmail(r))
	if err != nil {
		return err
	}
	return respondText(w, text)
}

// handleRecommendations accepts ?n= to override the configured count.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) error {
	n := s.recommendN
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return badRequest("n must be a non-negative integer", err)
		}
		n = parsed
	}
	recs, err := s.svc.Recommend(r.Context(), currentEmail(r), n)
	if err != nil {
		return err
	}
	return respondJSON(w, http.StatusOK, recs)
}
