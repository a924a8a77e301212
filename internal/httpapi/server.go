package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stagehand/internal/recommend"
	"stagehand/internal/store"
)

// UserService captures the account operations needed by the HTTP handlers.
type UserService interface {
	Signup(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, token string) (store.User, error)
	Activity(ctx context.Context, token string, limit int) ([]store.AuditEntry, error)
}

// SongService coordinates song catalog operations.
type SongService interface {
	Create(ctx context.Context, token string, song store.Song) (store.Song, error)
	List(ctx context.Context, token string, filter store.SongFilter) ([]store.Song, error)
	Get(ctx context.Context, token string, id int64) (store.Song, error)
	Update(ctx context.Context, token string, id int64, song store.Song) (store.Song, error)
	Delete(ctx context.Context, token string, id int64) error
}

// SetlistService coordinates setlist operations.
type SetlistService interface {
	Create(ctx context.Context, token string, setlist store.Setlist) (store.Setlist, error)
	List(ctx context.Context, token string) ([]store.Setlist, error)
	Get(ctx context.Context, token string, id int64) (store.Setlist, error)
	Update(ctx context.Context, token string, id int64, setlist store.Setlist) (store.Setlist, error)
	Delete(ctx context.Context, token string, id int64) error
	AddSong(ctx context.Context, token string, setlistID, songID int64, position int) error
	RemoveSong(ctx context.Context, token string, setlistID, songID int64) error
	ReorderSong(ctx context.Context, token string, setlistID, songID int64, newPosition int) error
}

// TemplateService coordinates setlist template operations.
type TemplateService interface {
	Create(ctx context.Context, token string, template store.Template) (store.Template, error)
	List(ctx context.Context, token string) ([]store.Template, error)
	Get(ctx context.Context, token string, id int64) (store.Template, error)
	Update(ctx context.Context, token string, id int64, template store.Template) (store.Template, error)
	Delete(ctx context.Context, token string, id int64) error
	Instantiate(ctx context.Context, token string, templateID int64, name string, eventDate *time.Time) (store.Setlist, error)
}

// RecommendationService ranks a user's catalog against a reference song.
type RecommendationService interface {
	NextSongs(ctx context.Context, token string, currentSongID int64, excludeIDs []int64, maxResults int) ([]recommend.Result, error)
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users           UserService
	songs           SongService
	setlists        SetlistService
	templates       TemplateService
	recommendations RecommendationService
}

// New configures a Server with the given service implementations.
func New(
	users UserService,
	songs SongService,
	setlists SetlistService,
	templates TemplateService,
	recommendations RecommendationService,
) *Server {
	return &Server{
		users:           users,
		songs:           songs,
		setlists:        setlists,
		templates:       templates,
		recommendations: recommendations,
	}
}

// Routes exposes the HTTP handlers for account, catalog, and planning
// operations.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /api/v1/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/v1/me", s.handleProfile)
	mux.HandleFunc("GET /api/v1/me/activity", s.handleActivity)

	mux.HandleFunc("POST /api/v1/songs", s.handleCreateSong)
	mux.HandleFunc("GET /api/v1/songs", s.handleListSongs)
	mux.HandleFunc("GET /api/v1/songs/{id}", s.handleGetSong)
	mux.HandleFunc("PUT /api/v1/songs/{id}", s.handleUpdateSong)
	mux.HandleFunc("DELETE /api/v1/songs/{id}", s.handleDeleteSong)
	mux.HandleFunc("GET /api/v1/songs/{id}/recommendations", s.handleRecommendations)

	mux.HandleFunc("POST /api/v1/setlists", s.handleCreateSetlist)
	mux.HandleFunc("GET /api/v1/setlists", s.handleListSetlists)
	mux.HandleFunc("GET /api/v1/setlists/{id}", s.handleGetSetlist)
	mux.HandleFunc("PUT /api/v1/setlists/{id}", s.handleUpdateSetlist)
	mux.HandleFunc("DELETE /api/v1/setlists/{id}", s.handleDeleteSetlist)
	mux.HandleFunc("POST /api/v1/setlists/{id}/songs", s.handleAddSetlistSong)
	mux.HandleFunc("PUT /api/v1/setlists/{id}/songs/{songId}", s.handleReorderSetlistSong)
	mux.HandleFunc("DELETE /api/v1/setlists/{id}/songs/{songId}", s.handleRemoveSetlistSong)

	mux.HandleFunc("POST /api/v1/templates", s.handleCreateTemplate)
	mux.HandleFunc("GET /api/v1/templates", s.handleListTemplates)
	mux.HandleFunc("GET /api/v1/templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("PUT /api/v1/templates/{id}", s.handleUpdateTemplate)
	mux.HandleFunc("DELETE /api/v1/templates/{id}", s.handleDeleteTemplate)
	mux.HandleFunc("POST /api/v1/templates/{id}/setlists", s.handleInstantiateTemplate)

	return mux
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	if err := s.users.Signup(r.Context(), req.Username, req.Password); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	token, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, store.ErrInvalidCredentials) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	if err := s.users.Logout(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	user, err := s.users.Profile(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit parameter"})
			return
		}
		limit = parsed
	}

	entries, err := s.users.Activity(r.Context(), token, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []store.AuditEntry{}
	}

	writeJSON(w, http.StatusOK, struct {
		Activity []store.AuditEntry `json:"activity"`
	}{Activity: entries})
}

// writeError maps sentinel errors to HTTP statuses. Validation messages pass
// through so callers see the offending field.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, store.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, store.ErrUserExists):
		status = http.StatusConflict
	case errors.Is(err, store.ErrSongNotFound),
		errors.Is(err, store.ErrSetlistNotFound),
		errors.Is(err, store.ErrTemplateNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidUser),
		errors.Is(err, store.ErrInvalidSong),
		errors.Is(err, store.ErrInvalidSetlist),
		errors.Is(err, store.ErrInvalidTemplate):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
