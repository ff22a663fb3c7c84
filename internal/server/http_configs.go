package server

import (
	"net/http"
)

// handleCreateConfig handles POST /v1/configs/{domain}.
func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req createConfigRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	c, err := s.registry.CreateConfig(r.Context(), r.PathValue("domain"), req.Key)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConfigJSON(c))
}

// handleListConfigs handles GET /v1/configs/{domain}?limit=&offset=.
func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseListQuery(r.URL.Query())
	if err != nil {
		writeRequestError(w, err)
		return
	}
	page, err := s.registry.ListConfigs(r.Context(), r.PathValue("domain"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(r.URL.Path, page, toConfigJSON))
}

// handleGetConfig handles GET /v1/configs/{domain}/{key}.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	c, err := s.registry.GetConfig(r.Context(), r.PathValue("domain"), r.PathValue("key"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigJSON(c))
}

// handleDeleteConfig handles DELETE /v1/configs/{domain}/{key}.
func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteConfig(r.Context(), r.PathValue("domain"), r.PathValue("key")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
