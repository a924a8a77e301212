package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"stagehand/internal/store"
)

type templateSectionRequest struct {
	Name        string `json:"name"`
	TargetSongs int    `json:"targetSongs"`
}

type templateRequest struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Sections    []templateSectionRequest `json:"sections"`
}

func (req templateRequest) toTemplate() store.Template {
	sections := make([]store.TemplateSection, 0, len(req.Sections))
	for _, section := range req.Sections {
		sections = append(sections, store.TemplateSection{
			Name:        section.Name,
			TargetSongs: section.TargetSongs,
		})
	}
	return store.Template{
		Name:        req.Name,
		Description: req.Description,
		Sections:    sections,
	}
}

type instantiateTemplateRequest struct {
	Name      string     `json:"name"`
	EventDate *time.Time `json:"eventDate"`
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	created, err := s.templates.Create(r.Context(), token, req.toTemplate())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	templates, err := s.templates.List(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	if templates == nil {
		templates = []store.Template{}
	}

	writeJSON(w, http.StatusOK, struct {
		Templates []store.Template `json:"templates"`
	}{Templates: templates})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid template id"})
		return
	}

	template, err := s.templates.Get(r.Context(), token, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, template)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid template id"})
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	updated, err := s.templates.Update(r.Context(), token, id, req.toTemplate())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid template id"})
		return
	}

	if err := s.templates.Delete(r.Context(), token, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInstantiateTemplate(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid template id"})
		return
	}

	var req instantiateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	setlist, err := s.templates.Instantiate(r.Context(), token, id, req.Name, req.EventDate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, setlist)
}
