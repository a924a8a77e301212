package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stagehand/internal/recommend"
	"stagehand/internal/store"
)

type stubUserService struct {
	signupErr error
	token     string
	authErr   error
	logoutErr error
	profile   store.User
	activity  []store.AuditEntry
	err       error

	lastUsername string
	lastPassword string
	lastToken    string
	lastLimit    int
}

func (s *stubUserService) Signup(_ context.Context, username, password string) error {
	s.lastUsername, s.lastPassword = username, password
	return s.signupErr
}

func (s *stubUserService) Authenticate(_ context.Context, username, password string) (string, error) {
	s.lastUsername, s.lastPassword = username, password
	return s.token, s.authErr
}

func (s *stubUserService) Logout(_ context.Context, token string) error {
	s.lastToken = token
	return s.logoutErr
}

func (s *stubUserService) Profile(_ context.Context, token string) (store.User, error) {
	s.lastToken = token
	return s.profile, s.err
}

func (s *stubUserService) Activity(_ context.Context, token string, limit int) ([]store.AuditEntry, error) {
	s.lastToken = token
	s.lastLimit = limit
	return s.activity, s.err
}

type stubSongService struct {
	song  store.Song
	songs []store.Song
	err   error

	lastToken  string
	lastID     int64
	lastSong   store.Song
	lastFilter store.SongFilter
}

func (s *stubSongService) Create(_ context.Context, token string, song store.Song) (store.Song, error) {
	s.lastToken, s.lastSong = token, song
	return s.song, s.err
}

func (s *stubSongService) List(_ context.Context, token string, filter store.SongFilter) ([]store.Song, error) {
	s.lastToken, s.lastFilter = token, filter
	return s.songs, s.err
}

func (s *stubSongService) Get(_ context.Context, token string, id int64) (store.Song, error) {
	s.lastToken, s.lastID = token, id
	return s.song, s.err
}

func (s *stubSongService) Update(_ context.Context, token string, id int64, song store.Song) (store.Song, error) {
	s.lastToken, s.lastID, s.lastSong = token, id, song
	return s.song, s.err
}

func (s *stubSongService) Delete(_ context.Context, token string, id int64) error {
	s.lastToken, s.lastID = token, id
	return s.err
}

type stubSetlistService struct {
	setlist  store.Setlist
	setlists []store.Setlist
	err      error

	lastToken    string
	lastID       int64
	lastSongID   int64
	lastPosition int
}

func (s *stubSetlistService) Create(_ context.Context, token string, setlist store.Setlist) (store.Setlist, error) {
	s.lastToken = token
	return s.setlist, s.err
}

func (s *stubSetlistService) List(_ context.Context, token string) ([]store.Setlist, error) {
	s.lastToken = token
	return s.setlists, s.err
}

func (s *stubSetlistService) Get(_ context.Context, token string, id int64) (store.Setlist, error) {
	s.lastToken, s.lastID = token, id
	return s.setlist, s.err
}

func (s *stubSetlistService) Update(_ context.Context, token string, id int64, setlist store.Setlist) (store.Setlist, error) {
	s.lastToken, s.lastID = token, id
	return s.setlist, s.err
}

func (s *stubSetlistService) Delete(_ context.Context, token string, id int64) error {
	s.lastToken, s.lastID = token, id
	return s.err
}

func (s *stubSetlistService) AddSong(_ context.Context, token string, setlistID, songID int64, position int) error {
	s.lastToken, s.lastID, s.lastSongID, s.lastPosition = token, setlistID, songID, position
	return s.err
}

func (s *stubSetlistService) RemoveSong(_ context.Context, token string, setlistID, songID int64) error {
	s.lastToken, s.lastID, s.lastSongID = token, setlistID, songID
	return s.err
}

func (s *stubSetlistService) ReorderSong(_ context.Context, token string, setlistID, songID int64, newPosition int) error {
	s.lastToken, s.lastID, s.lastSongID, s.lastPosition = token, setlistID, songID, newPosition
	return s.err
}

type stubTemplateService struct {
	template  store.Template
	templates []store.Template
	setlist   store.Setlist
	err       error

	lastToken string
	lastID    int64
	lastName  string
	lastDate  *time.Time
}

func (s *stubTemplateService) Create(_ context.Context, token string, template store.Template) (store.Template, error) {
	s.lastToken = token
	return s.template, s.err
}

func (s *stubTemplateService) List(_ context.Context, token string) ([]store.Template, error) {
	s.lastToken = token
	return s.templates, s.err
}

func (s *stubTemplateService) Get(_ context.Context, token string, id int64) (store.Template, error) {
	s.lastToken, s.lastID = token, id
	return s.template, s.err
}

func (s *stubTemplateService) Update(_ context.Context, token string, id int64, template store.Template) (store.Template, error) {
	s.lastToken, s.lastID = token, id
	return s.template, s.err
}

func (s *stubTemplateService) Delete(_ context.Context, token string, id int64) error {
	s.lastToken, s.lastID = token, id
	return s.err
}

func (s *stubTemplateService) Instantiate(_ context.Context, token string, templateID int64, name string, eventDate *time.Time) (store.Setlist, error) {
	s.lastToken, s.lastID, s.lastName, s.lastDate = token, templateID, name, eventDate
	return s.setlist, s.err
}

type stubRecommendationService struct {
	results []recommend.Result
	err     error

	lastToken      string
	lastSongID     int64
	lastExcludeIDs []int64
	lastMaxResults int
}

func (s *stubRecommendationService) NextSongs(_ context.Context, token string, currentSongID int64, excludeIDs []int64, maxResults int) ([]recommend.Result, error) {
	s.lastToken = token
	s.lastSongID = currentSongID
	s.lastExcludeIDs = excludeIDs
	s.lastMaxResults = maxResults
	return s.results, s.err
}

type testServer struct {
	users           *stubUserService
	songs           *stubSongService
	setlists        *stubSetlistService
	templates       *stubTemplateService
	recommendations *stubRecommendationService
	handler         http.Handler
}

func newTestServer() *testServer {
	ts := &testServer{
		users:           &stubUserService{},
		songs:           &stubSongService{},
		setlists:        &stubSetlistService{},
		templates:       &stubTemplateService{},
		recommendations: &stubRecommendationService{},
	}
	ts.handler = New(ts.users, ts.songs, ts.setlists, ts.templates, ts.recommendations).Routes()
	return ts
}

func (ts *testServer) do(t *testing.T, method, target, body string, authorized bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if authorized {
		req.Header.Set("Authorization", "Bearer session-token")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(t, http.MethodGet, "/health", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSignup(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/signup", `{"username":"demo","password":"password123"}`, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if ts.users.lastUsername != "demo" || ts.users.lastPassword != "password123" {
		t.Fatalf("credentials not forwarded: %q / %q", ts.users.lastUsername, ts.users.lastPassword)
	}
}

func TestSignupConflict(t *testing.T) {
	ts := newTestServer()
	ts.users.signupErr = store.ErrUserExists

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/signup", `{"username":"taken","password":"password123"}`, false)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestSignupValidationError(t *testing.T) {
	ts := newTestServer()
	ts.users.signupErr = fmt.Errorf("%w: password must be at least 8 characters", store.ErrInvalidUser)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/signup", `{"username":"demo","password":"short"}`, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSignupStoreFailure(t *testing.T) {
	ts := newTestServer()
	ts.users.signupErr = errors.New("insert user: connection refused")

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/signup", `{"username":"demo","password":"password123"}`, false)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestSignupInvalidJSON(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/signup", `{not json`, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	ts := newTestServer()
	ts.users.token = "signed-token"

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":"demo","password":"password123"}`, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token != "signed-token" {
		t.Fatalf("unexpected token %q", resp.Token)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	ts := newTestServer()
	ts.users.authErr = store.ErrInvalidCredentials

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":"demo","password":"wrong"}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMissingBearerToken(t *testing.T) {
	ts := newTestServer()

	targets := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/me"},
		{http.MethodGet, "/api/v1/songs"},
		{http.MethodGet, "/api/v1/songs/1/recommendations"},
		{http.MethodPost, "/api/v1/setlists"},
		{http.MethodGet, "/api/v1/templates"},
	}

	for _, target := range targets {
		rec := ts.do(t, target.method, target.path, "", false)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", target.method, target.path, rec.Code)
		}
	}
}

func TestActivityForwardsLimit(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/me/activity?limit=7", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ts.users.lastLimit != 7 {
		t.Fatalf("expected limit 7, got %d", ts.users.lastLimit)
	}
	if !strings.Contains(rec.Body.String(), `"activity":[]`) {
		t.Fatalf("expected empty activity array, got %s", rec.Body.String())
	}
}

func TestCreateSong(t *testing.T) {
	ts := newTestServer()
	ts.songs.song = store.Song{ID: 7, Title: "Harbor Lights"}

	rec := ts.do(t, http.MethodPost, "/api/v1/songs",
		`{"title":"Harbor Lights","genre":"Pop","tempoBpm":117,"musicalKey":"F#m"}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if ts.songs.lastToken != "session-token" {
		t.Fatalf("token not forwarded, got %q", ts.songs.lastToken)
	}
	if ts.songs.lastSong.Title != "Harbor Lights" || ts.songs.lastSong.Genre != "Pop" {
		t.Fatalf("song not forwarded: %+v", ts.songs.lastSong)
	}
	if ts.songs.lastSong.TempoBPM == nil || *ts.songs.lastSong.TempoBPM != 117 {
		t.Fatalf("tempo not forwarded: %v", ts.songs.lastSong.TempoBPM)
	}
}

func TestCreateSongValidationError(t *testing.T) {
	ts := newTestServer()
	ts.songs.err = fmt.Errorf("%w: title is required", store.ErrInvalidSong)

	rec := ts.do(t, http.MethodPost, "/api/v1/songs", `{}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListSongsFilter(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/songs?q=harbor&genre=Pop&min_tempo=100&max_tempo=130&limit=10", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	filter := ts.songs.lastFilter
	if filter.Query != "harbor" || filter.Genre != "Pop" || filter.MinTempo != 100 || filter.MaxTempo != 130 || filter.Limit != 10 {
		t.Fatalf("filter not forwarded: %+v", filter)
	}
	if !strings.Contains(rec.Body.String(), `"songs":[]`) {
		t.Fatalf("expected empty songs array, got %s", rec.Body.String())
	}
}

func TestListSongsBadFilterValue(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/songs?min_tempo=fast", "", true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetSongNotFound(t *testing.T) {
	ts := newTestServer()
	ts.songs.err = store.ErrSongNotFound

	rec := ts.do(t, http.MethodGet, "/api/v1/songs/99", "", true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetSongInvalidID(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/songs/abc", "", true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteSong(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodDelete, "/api/v1/songs/7", "", true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if ts.songs.lastID != 7 {
		t.Fatalf("expected id 7, got %d", ts.songs.lastID)
	}
}

func TestRecommendationsDefaultLimit(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/songs/7/recommendations", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ts.recommendations.lastSongID != 7 {
		t.Fatalf("expected song 7, got %d", ts.recommendations.lastSongID)
	}
	if ts.recommendations.lastMaxResults != recommend.DefaultMaxResults {
		t.Fatalf("expected default max results, got %d", ts.recommendations.lastMaxResults)
	}
	if !strings.Contains(rec.Body.String(), `"recommendations":[]`) {
		t.Fatalf("expected empty recommendations array, got %s", rec.Body.String())
	}
}

func TestRecommendationsExplicitLimit(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/songs/7/recommendations?limit=2", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ts.recommendations.lastMaxResults != 2 {
		t.Fatalf("expected max results 2, got %d", ts.recommendations.lastMaxResults)
	}
}

func TestRecommendationsZeroLimitPassesThrough(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/songs/7/recommendations?limit=0", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ts.recommendations.lastMaxResults != 0 {
		t.Fatalf("expected max results 0, got %d", ts.recommendations.lastMaxResults)
	}
}

func TestRecommendationsExcludeList(t *testing.T) {
	ts := newTestServer()
	ts.recommendations.results = []recommend.Result{
		{SongID: 2, Score: 91.5, Details: []string{"Tempo: 117→125 BPM, difference of 8"}},
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/songs/7/recommendations?exclude=2,%203,4", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := []int64{2, 3, 4}
	got := ts.recommendations.lastExcludeIDs
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if !strings.Contains(rec.Body.String(), `"compatibilityScore":91.5`) {
		t.Fatalf("expected score in body, got %s", rec.Body.String())
	}
}

func TestRecommendationsMalformedExclude(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/songs/7/recommendations?exclude=2,x", "", true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRecommendationsServiceError(t *testing.T) {
	ts := newTestServer()
	ts.recommendations.err = errors.New("catalog unavailable")

	rec := ts.do(t, http.MethodGet, "/api/v1/songs/7/recommendations", "", true)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestAddSetlistSong(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/setlists/5/songs", `{"songId":11,"position":2}`, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if ts.setlists.lastID != 5 || ts.setlists.lastSongID != 11 || ts.setlists.lastPosition != 2 {
		t.Fatalf("arguments not forwarded: %+v", ts.setlists)
	}
}

func TestAddSetlistSongRejectsMissingSongID(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/setlists/5/songs", `{"position":2}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAddSetlistSongDuplicate(t *testing.T) {
	ts := newTestServer()
	ts.setlists.err = fmt.Errorf("%w: song is already on the setlist", store.ErrInvalidSetlist)

	rec := ts.do(t, http.MethodPost, "/api/v1/setlists/5/songs", `{"songId":11}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReorderSetlistSong(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPut, "/api/v1/setlists/5/songs/11", `{"position":1}`, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if ts.setlists.lastID != 5 || ts.setlists.lastSongID != 11 || ts.setlists.lastPosition != 1 {
		t.Fatalf("arguments not forwarded: %+v", ts.setlists)
	}
}

func TestRemoveSetlistSongNotFound(t *testing.T) {
	ts := newTestServer()
	ts.setlists.err = store.ErrSongNotFound

	rec := ts.do(t, http.MethodDelete, "/api/v1/setlists/5/songs/99", "", true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestInstantiateTemplate(t *testing.T) {
	ts := newTestServer()
	ts.templates.setlist = store.Setlist{ID: 8, Name: "Saturday Club Night"}

	rec := ts.do(t, http.MethodPost, "/api/v1/templates/3/setlists", `{"name":"Saturday Club Night"}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if ts.templates.lastID != 3 || ts.templates.lastName != "Saturday Club Night" {
		t.Fatalf("arguments not forwarded: id=%d name=%q", ts.templates.lastID, ts.templates.lastName)
	}
	if ts.templates.lastDate != nil {
		t.Fatalf("expected nil event date, got %v", ts.templates.lastDate)
	}
}

func TestDeleteTemplateNotFoundStatus(t *testing.T) {
	ts := newTestServer()
	ts.templates.err = store.ErrTemplateNotFound

	rec := ts.do(t, http.MethodDelete, "/api/v1/templates/99", "", true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
