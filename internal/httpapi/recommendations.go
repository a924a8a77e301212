package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"stagehand/internal/recommend"
)

// handleRecommendations ranks the caller's catalog against the referenced
// song. An unknown song ID is a normal outcome and returns an empty list, not
// a 404.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid song id"})
		return
	}

	query := r.URL.Query()

	var excludeIDs []int64
	if raw := query.Get("exclude"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			excludeID, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid exclude parameter"})
				return
			}
			excludeIDs = append(excludeIDs, excludeID)
		}
	}

	// An explicit non-positive limit flows through and yields an empty list;
	// only an absent limit falls back to the default.
	maxResults := recommend.DefaultMaxResults
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit parameter"})
			return
		}
		maxResults = parsed
	}

	results, err := s.recommendations.NextSongs(r.Context(), token, id, excludeIDs, maxResults)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []recommend.Result{}
	}

	writeJSON(w, http.StatusOK, struct {
		Recommendations []recommend.Result `json:"recommendations"`
	}{Recommendations: results})
}
