package web

import (
	"net/http"

	"grocery-planner/internal/grocery"
)

type productView struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

type productRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

func (s *Server) handleUnits(w http.ResponseWriter, _ *http.Request) error {
	return respondJSON(w, http.StatusOK, grocery.Units())
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) error {
	categories, err := s.svc.ListCategories(r.Context(), currentEmail(r))
	if err != nil {
		return err
	}
	if categories == nil {
		categories = []string{}
	}
	return respondJSON(w, http.StatusOK, categories)
}

// handleListProducts lists the master list sorted by name; ?category= narrows it.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) error {
	rec, err := s.svc.Record(r.Context(), currentEmail(r))
	if err != nil {
		return err
	}
	names := rec.FilterByCategory(r.URL.Query().Get("category"))
	out := make([]productView, 0, len(names))
	for _, name := range names {
		p := rec.MasterList[name]
		out = append(out, productView{Name: name, Category: p.Category, Unit: p.Unit})
	}
	return respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddProduct(w http.ResponseWriter, r *http.Request) error {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	name, err := s.svc.AddProduct(r.Context(), currentEmail(r), req.Name, req.Category, req.Unit)
	if err != nil {
		return err
	}
	return s.respondProduct(w, r, http.StatusCreated, name)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) error {
	oldName, err := urlParam(r, "name")
	if err != nil {
		return err
	}
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	name, err := s.svc.RenameOrRecategorize(r.Context(), currentEmail(r), oldName, req.Name, req.Category, req.Unit)
	if err != nil {
		return err
	}
	return s.respondProduct(w, r, http.StatusOK, name)
}

func (s *Server) respondProduct(w http.ResponseWriter, r *http.Request, status int, name string) error {
	list, err := s.svc.MasterList(r.Context(), currentEmail(r))
	if err != nil {
		return err
	}
	p := list[name]
	return respondJSON(w, status, productView{Name: name, Category: p.Category, Unit: p.Unit})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) error {
	name, err := urlParam(r, "name")
	if err != nil {
		return err
	}
	if err := s.svc.DeleteProduct(r.Context(), currentEmail(r), name); err != nil {
		return err
	}
	return noContent(w)
}

type bulkDeleteRequest struct {
	Names []string `json:"names"`
}

func (s *Server) handleBulkDeleteProducts(w http.ResponseWriter, r *http.Request) error {
	var req bulkDeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if len(req.Names) == 0 {
		return badRequest("names must not be empty", nil)
	}
	removed, err := s.svc.DeleteProducts(r.Context(), currentEmail(r), req.Names)
	if err != nil {
		return err
	}
	if removed == nil {
		removed = []string{}
	}
	return respondJSON(w, http.StatusOK, map[string][]string{"deleted": removed})
}

func (s *Server) handleClearProducts(w http.ResponseWriter, r *http.Request) error {
	if err := s.svc.ClearMasterList(r.Context(), currentEmail(r)); err != nil {
		return err
	}
	return noContent(w)
}
