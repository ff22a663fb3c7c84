package server

import (
	"net/http"
)

// handleCreateDomain handles POST /v1/domains.
func (s *Server) handleCreateDomain(w http.ResponseWriter, r *http.Request) {
	var req createDomainRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	d, err := s.registry.CreateDomain(r.Context(), req.Slug)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDomainJSON(d))
}

// handleListDomains handles GET /v1/domains?limit=&offset=.
func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseListQuery(r.URL.Query())
	if err != nil {
		writeRequestError(w, err)
		return
	}
	page, err := s.registry.ListDomains(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(r.URL.Path, page, toDomainJSON))
}

// handleGetDomain handles GET /v1/domains/{slug}.
func (s *Server) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	d, err := s.registry.GetDomain(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDomainJSON(d))
}

// handleDeleteDomain handles DELETE /v1/domains/{slug}.
func (s *Server) handleDeleteDomain(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteDomain(r.Context(), r.PathValue("slug")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
