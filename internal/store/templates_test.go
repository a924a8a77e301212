package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestValidateTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template Template
		wantErr  bool
	}{
		{"minimal", Template{Name: "Club Night", Sections: []TemplateSection{{Name: "Main set", TargetSongs: 6}}}, false},
		{"missing name", Template{Sections: []TemplateSection{{Name: "Main set"}}}, true},
		{"no sections", Template{Name: "Club Night"}, true},
		{"blank section name", Template{Name: "Club Night", Sections: []TemplateSection{{Name: "  "}}}, true},
		{"section name too long", Template{Name: "Club Night", Sections: []TemplateSection{{Name: strings.Repeat("x", 101)}}}, true},
		{"target songs too high", Template{Name: "Club Night", Sections: []TemplateSection{{Name: "Main set", TargetSongs: 51}}}, true},
		{"negative target songs", Template{Name: "Club Night", Sections: []TemplateSection{{Name: "Main set", TargetSongs: -1}}}, true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := validateTemplate(tc.template)
			if tc.wantErr && !errors.Is(err, ErrInvalidTemplate) {
				t.Fatalf("expected ErrInvalidTemplate, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateTemplate(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	token := testToken(t, "2c3a6c1e-0000-0000-0000-000000000030")
	now := time.Now()

	expectSession(mock, "2c3a6c1e-0000-0000-0000-000000000030", 42)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
			INSERT INTO setlist_templates (user_id, name, description)
			VALUES ($1, $2, $3)
			RETURNING id, name, description, created_at, updated_at
		`)).
		WithArgs(int64(42), "Club Night", "Standard three-part club set").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at", "updated_at"}).
			AddRow(int64(3), "Club Night", "Standard three-part club set", now, now))
	sections := []TemplateSection{
		{Name: "Warm-up", TargetSongs: 3},
		{Name: "Main set", TargetSongs: 6},
	}
	for idx, section := range sections {
		mock.ExpectQuery(regexp.QuoteMeta(`
				INSERT INTO template_sections (template_id, name, position, target_songs)
				VALUES ($1, $2, $3, $4)
				RETURNING id, name, position, target_songs
			`)).
			WithArgs(int64(3), section.Name, idx+1, section.TargetSongs).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "position", "target_songs"}).
				AddRow(int64(idx+10), section.Name, idx+1, section.TargetSongs))
	}
	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO audit_log (user_id, entity_type, entity_id, action)
		VALUES ($1, $2, $3, $4)
	`)).
		WithArgs(int64(42), "template", int64(3), "create").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := s.CreateTemplate(context.Background(), token, Template{
		Name:        "Club Night",
		Description: "Standard three-part club set",
		Sections:    sections,
	})
	if err != nil {
		t.Fatalf("CreateTemplate error: %v", err)
	}
	if created.ID != 3 {
		t.Fatalf("expected ID 3, got %d", created.ID)
	}
	if len(created.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(created.Sections))
	}
	if created.Sections[1].Position != 2 || created.Sections[1].Name != "Main set" {
		t.Fatalf("unexpected second section: %+v", created.Sections[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateTemplateInvalidSkipsDatabase(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	_, err := s.CreateTemplate(context.Background(), "irrelevant", Template{Name: "Club Night"})
	if !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("expected ErrInvalidTemplate, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteTemplateNotFound(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	token := testToken(t, "2c3a6c1e-0000-0000-0000-000000000031")

	expectSession(mock, "2c3a6c1e-0000-0000-0000-000000000031", 42)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`
			DELETE FROM setlist_templates
			WHERE id = $1 AND user_id = $2
		`)).
		WithArgs(int64(99), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := s.DeleteTemplate(context.Background(), token, 99); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateSetlistFromTemplate(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	const tokenID = "2c3a6c1e-0000-0000-0000-000000000032"
	token := testToken(t, tokenID)
	now := time.Now()

	expectSession(mock, tokenID, 42)
	// TemplateByToken resolves the session again before loading the template.
	expectSession(mock, tokenID, 42)
	mock.ExpectQuery(regexp.QuoteMeta(`
			SELECT id, name, description, created_at, updated_at
			FROM setlist_templates
			WHERE id = $1 AND user_id = $2
		`)).
		WithArgs(int64(3), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at", "updated_at"}).
			AddRow(int64(3), "Club Night", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`
			SELECT id, name, position, target_songs
			FROM template_sections
			WHERE template_id = $1
			ORDER BY position ASC
		`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "position", "target_songs"}).
			AddRow(int64(10), "Warm-up", 1, 3).
			AddRow(int64(11), "Main set", 2, 6))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
			INSERT INTO setlists (user_id, name, venue, event_date, notes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+setlistColumns)).
		WithArgs(int64(42), "Saturday Club Night", nil, nil, "Warm-up: 3 songs\nMain set: 6 songs").
		WillReturnRows(sqlmock.NewRows(setlistTestColumns).
			AddRow(int64(8), "Saturday Club Night", nil, nil, "Warm-up: 3 songs\nMain set: 6 songs", now, now))
	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO audit_log (user_id, entity_type, entity_id, action)
		VALUES ($1, $2, $3, $4)
	`)).
		WithArgs(int64(42), "setlist", int64(8), "create").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := s.CreateSetlistFromTemplate(context.Background(), token, 3, "Saturday Club Night", nil)
	if err != nil {
		t.Fatalf("CreateSetlistFromTemplate error: %v", err)
	}
	if created.ID != 8 {
		t.Fatalf("expected ID 8, got %d", created.ID)
	}
	if created.Notes != "Warm-up: 3 songs\nMain set: 6 songs" {
		t.Fatalf("unexpected notes: %q", created.Notes)
	}
	if created.Entries == nil || len(created.Entries) != 0 {
		t.Fatalf("expected empty entries, got %v", created.Entries)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateSetlistFromTemplateRequiresName(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	_, err := s.CreateSetlistFromTemplate(context.Background(), "irrelevant", 3, "  ", nil)
	if !errors.Is(err, ErrInvalidSetlist) {
		t.Fatalf("expected ErrInvalidSetlist, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
