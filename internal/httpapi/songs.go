package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"stagehand/internal/store"
)

type songRequest struct {
	Title            string   `json:"title"`
	Artist           string   `json:"artist"`
	Genre            string   `json:"genre"`
	TempoBPM         *int     `json:"tempoBpm"`
	MusicalKey       string   `json:"musicalKey"`
	DifficultyRating *int     `json:"difficultyRating"`
	DurationSeconds  *int     `json:"durationSeconds"`
	Notes            string   `json:"notes"`
	Tags             []string `json:"tags"`
}

func (req songRequest) toSong() store.Song {
	return store.Song{
		Title:            req.Title,
		Artist:           req.Artist,
		Genre:            req.Genre,
		TempoBPM:         req.TempoBPM,
		MusicalKey:       req.MusicalKey,
		DifficultyRating: req.DifficultyRating,
		DurationSeconds:  req.DurationSeconds,
		Notes:            req.Notes,
		Tags:             req.Tags,
	}
}

func (s *Server) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	var req songRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	created, err := s.songs.Create(r.Context(), token, req.toSong())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	query := r.URL.Query()
	filter := store.SongFilter{
		Query: query.Get("q"),
		Genre: query.Get("genre"),
		Tag:   query.Get("tag"),
	}

	intParams := []struct {
		name string
		dest *int
	}{
		{"min_tempo", &filter.MinTempo},
		{"max_tempo", &filter.MaxTempo},
		{"min_difficulty", &filter.MinDifficulty},
		{"max_difficulty", &filter.MaxDifficulty},
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	}
	for _, p := range intParams {
		raw := query.Get(p.name)
		if raw == "" {
			continue
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + p.name + " parameter"})
			return
		}
		*p.dest = parsed
	}

	songs, err := s.songs.List(r.Context(), token, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if songs == nil {
		songs = []store.Song{}
	}

	writeJSON(w, http.StatusOK, struct {
		Songs []store.Song `json:"songs"`
	}{Songs: songs})
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
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

	song, err := s.songs.Get(r.Context(), token, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
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

	var req songRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	updated, err := s.songs.Update(r.Context(), token, id, req.toSong())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
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

	if err := s.songs.Delete(r.Context(), token, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
