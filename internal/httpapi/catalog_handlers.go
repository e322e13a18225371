package httpapi

import (
	"net/http"

	"github.com/vladislavdragonenkov/textilestore/internal/service/catalog"
)

func (s *Server) listCatalogs(w http.ResponseWriter, r *http.Request) {
	catalogs, err := s.catalog.ListCatalogs(true)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]catalogView, 0, len(catalogs))
	for _, c := range catalogs {
		out = append(out, toCatalogView(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"catalogs": out})
}

func (s *Server) getStorefront(w http.ResponseWriter, r *http.Request) {
	front, err := s.catalog.Storefront(r.PathValue("slug"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"catalog":  toCatalogView(front.Catalog),
		"products": toProductViews(front.Products),
	})
}

func (s *Server) getFomo(w http.ResponseWriter, r *http.Request) {
	view, err := s.catalog.Fomo(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// Сигналы пересчитываются на каждый запрос: кешировать нельзя.
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.PublicProduct(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductView(p))
}

func (s *Server) adminListCatalogs(w http.ResponseWriter, r *http.Request) {
	catalogs, err := s.catalog.ListCatalogs(false)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]catalogView, 0, len(catalogs))
	for _, c := range catalogs {
		out = append(out, toCatalogView(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"catalogs": out})
}

func (s *Server) adminCreateCatalog(w http.ResponseWriter, r *http.Request) {
	var in catalog.CatalogInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.catalog.CreateCatalog(in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCatalogView(c))
}

func (s *Server) adminUpdateCatalog(w http.ResponseWriter, r *http.Request) {
	var in catalog.CatalogInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.catalog.UpdateCatalog(r.PathValue("id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCatalogView(c))
}

func (s *Server) adminDeleteCatalog(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteCatalog(r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminListProducts(w http.ResponseWriter, r *http.Request) {
	catalogID := r.URL.Query().Get("catalog_id")
	if catalogID == "" {
		writeError(w, http.StatusBadRequest, "catalog_id is required")
		return
	}
	if _, err := s.catalog.GetCatalog(catalogID); err != nil {
		s.fail(w, r, err)
		return
	}
	products, err := s.catalog.ListProducts(catalogID, false)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": toProductViews(products)})
}

func (s *Server) adminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.catalog.CreateProduct(in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductView(p))
}

func (s *Server) adminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.catalog.UpdateProduct(r.PathValue("id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductView(p))
}

func (s *Server) adminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteProduct(r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
