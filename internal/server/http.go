package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/alfredjeanlab/configmonkey/internal/service"
)

// maxBodyBytes bounds request bodies; values are scalars.
const maxBodyBytes = 1 << 20

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health and
// GET /metrics) must include a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/domains", s.handleCreateDomain)
	mux.HandleFunc("GET /v1/domains", s.handleListDomains)
	mux.HandleFunc("GET /v1/domains/{slug}", s.handleGetDomain)
	mux.HandleFunc("DELETE /v1/domains/{slug}", s.handleDeleteDomain)
	mux.HandleFunc("POST /v1/configs/{domain}", s.handleCreateConfig)
	mux.HandleFunc("GET /v1/configs/{domain}", s.handleListConfigs)
	mux.HandleFunc("GET /v1/configs/{domain}/{key}", s.handleGetConfig)
	mux.HandleFunc("DELETE /v1/configs/{domain}/{key}", s.handleDeleteConfig)
	mux.HandleFunc("POST /v1/configs/{domain}/{key}/versions", s.handleCreateVersion)
	mux.HandleFunc("GET /v1/configs/{domain}/{key}/versions", s.handleListVersions)
	mux.HandleFunc("GET /v1/configs/{domain}/{key}/versions/current", s.handleGetCurrentVersion)
	mux.HandleFunc("GET /v1/configs/{domain}/{key}/versions/{index}", s.handleGetVersion)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	mux.HandleFunc("/", handleRouteNotFound)

	return RequestIDMiddleware(s.observe(AuthMiddleware(authToken, mux)))
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Ping(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleRouteNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, msgRouteNotFound)
}

// decodeBody reads a JSON body into dst and validates it.
func (s *Server) decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errBadRequest
	}
	return s.check(dst)
}

var errBadRequest = errors.New("malformed request body")

// writeRequestError answers a failed decodeBody or parseListQuery.
func writeRequestError(w http.ResponseWriter, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		writeServiceError(w, err)
		return
	}
	writeError(w, http.StatusBadRequest, codeBadRequest, msgBadRequest)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
