package server

import (
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/service"
)

// handleCreateVersion handles POST /v1/configs/{domain}/{key}/versions.
func (s *Server) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	var req createVersionRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	var value model.Value
	if err := value.UnmarshalJSON(req.Value); err != nil {
		writeServiceError(w, &service.Error{Kind: service.KindInvalidValue, Err: err})
		return
	}
	v, err := s.registry.CreateVersion(r.Context(), r.PathValue("domain"), r.PathValue("key"), value)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVersionJSON(v))
}

// handleListVersions handles GET /v1/configs/{domain}/{key}/versions?limit=&offset=.
func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseListQuery(r.URL.Query())
	if err != nil {
		writeRequestError(w, err)
		return
	}
	page, err := s.registry.ListVersions(r.Context(), r.PathValue("domain"), r.PathValue("key"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(r.URL.Path, page, toVersionJSON))
}

// handleGetCurrentVersion handles GET /v1/configs/{domain}/{key}/versions/current.
func (s *Server) handleGetCurrentVersion(w http.ResponseWriter, r *http.Request) {
	v, err := s.registry.GetCurrentVersion(r.Context(), r.PathValue("domain"), r.PathValue("key"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVersionJSON(v))
}

// handleGetVersion handles GET /v1/configs/{domain}/{key}/versions/{index}.
// An index that is not a number cannot name a version.
func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseInt(r.PathValue("index"), 10, 64)
	if err != nil {
		index = 0
	}
	v, err := s.registry.GetVersion(r.Context(), r.PathValue("domain"), r.PathValue("key"), index)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVersionJSON(v))
}
