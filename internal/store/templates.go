package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidTemplate indicates validation failure for template data.
	ErrInvalidTemplate = errors.New("invalid template")
	// ErrTemplateNotFound signals a missing template record.
	ErrTemplateNotFound = errors.New("template not found")
)

// Template is a reusable setlist skeleton: ordered named sections with a
// target song count each.
type Template struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Sections    []TemplateSection `json:"sections"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// TemplateSection is one named slot in a template's plan.
type TemplateSection struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
	TargetSongs int    `json:"targetSongs"`
}

// CreateTemplate inserts a new template with its sections.
func (s *Store) CreateTemplate(ctx context.Context, token string, template Template) (Template, error) {
	if err := validateTemplate(template); err != nil {
		return Template{}, err
	}
	normalizeTemplate(&template)

	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return Template{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Template{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var created Template
	var description sql.NullString
	if err = tx.QueryRowContext(ctx, `
		INSERT INTO setlist_templates (user_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, created_at, updated_at
	`, userID, template.Name, nullIfEmpty(template.Description)).Scan(
		&created.ID, &created.Name, &description, &created.CreatedAt, &created.UpdatedAt,
	); err != nil {
		return Template{}, fmt.Errorf("insert template: %w", err)
	}
	created.Description = description.String

	sections, err := s.replaceTemplateSectionsTx(ctx, tx, created.ID, template.Sections)
	if err != nil {
		return Template{}, err
	}
	created.Sections = sections

	if err = recordAudit(ctx, tx, userID, "template", created.ID, "create"); err != nil {
		return Template{}, err
	}

	if err = tx.Commit(); err != nil {
		return Template{}, fmt.Errorf("commit template create: %w", err)
	}

	return created, nil
}

// TemplatesByToken lists the authenticated user's templates with sections.
func (s *Store) TemplatesByToken(ctx context.Context, token string) ([]Template, error) {
	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM setlist_templates
		WHERE user_id = $1
		ORDER BY name ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var (
			template    Template
			description sql.NullString
		)
		if err := rows.Scan(&template.ID, &template.Name, &description,
			&template.CreatedAt, &template.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		template.Description = description.String
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}

	for i := range templates {
		sections, err := s.listTemplateSections(ctx, templates[i].ID)
		if err != nil {
			return nil, err
		}
		templates[i].Sections = sections
	}

	return templates, nil
}

// TemplateByToken returns one of the user's templates with its sections.
func (s *Store) TemplateByToken(ctx context.Context, token string, id int64) (Template, error) {
	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return Template{}, err
	}

	var (
		template    Template
		description sql.NullString
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM setlist_templates
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&template.ID, &template.Name, &description,
		&template.CreatedAt, &template.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, fmt.Errorf("select template: %w", err)
	}
	template.Description = description.String

	sections, err := s.listTemplateSections(ctx, id)
	if err != nil {
		return Template{}, err
	}
	template.Sections = sections

	return template, nil
}

// UpdateTemplate replaces a template's metadata and its full section list.
func (s *Store) UpdateTemplate(ctx context.Context, token string, id int64, template Template) (Template, error) {
	if err := validateTemplate(template); err != nil {
		return Template{}, err
	}
	normalizeTemplate(&template)

	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return Template{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Template{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var updated Template
	var description sql.NullString
	err = tx.QueryRowContext(ctx, `
		UPDATE setlist_templates
		SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3 AND user_id = $4
		RETURNING id, name, description, created_at, updated_at
	`, template.Name, nullIfEmpty(template.Description), id, userID).Scan(
		&updated.ID, &updated.Name, &description, &updated.CreatedAt, &updated.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, fmt.Errorf("update template: %w", err)
	}
	updated.Description = description.String

	if _, err = tx.ExecContext(ctx, `
		DELETE FROM template_sections
		WHERE template_id = $1
	`, id); err != nil {
		return Template{}, fmt.Errorf("clear template sections: %w", err)
	}

	sections, err := s.replaceTemplateSectionsTx(ctx, tx, id, template.Sections)
	if err != nil {
		return Template{}, err
	}
	updated.Sections = sections

	if err = recordAudit(ctx, tx, userID, "template", id, "update"); err != nil {
		return Template{}, err
	}

	if err = tx.Commit(); err != nil {
		return Template{}, fmt.Errorf("commit template update: %w", err)
	}

	return updated, nil
}

// DeleteTemplate removes one of the user's templates and its sections.
func (s *Store) DeleteTemplate(ctx context.Context, token string, id int64) error {
	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM setlist_templates
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = ErrTemplateNotFound
		return err
	}

	if err = recordAudit(ctx, tx, userID, "template", id, "delete"); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit template delete: %w", err)
	}

	return nil
}

// CreateSetlistFromTemplate instantiates a new empty setlist whose notes
// carry the template's section plan.
func (s *Store) CreateSetlistFromTemplate(ctx context.Context, token string, templateID int64, name string, eventDate *time.Time) (Setlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Setlist{}, fmt.Errorf("%w: name is required", ErrInvalidSetlist)
	}
	if len(name) > 200 {
		return Setlist{}, fmt.Errorf("%w: name must be at most 200 characters", ErrInvalidSetlist)
	}

	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return Setlist{}, err
	}

	template, err := s.TemplateByToken(ctx, token, templateID)
	if err != nil {
		return Setlist{}, err
	}

	var plan strings.Builder
	for i, section := range template.Sections {
		if i > 0 {
			plan.WriteByte('\n')
		}
		fmt.Fprintf(&plan, "%s: %d songs", section.Name, section.TargetSongs)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Setlist{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO setlists (user_id, name, venue, event_date, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+setlistColumns+`
	`, userID, name, nil, eventDate, nullIfEmpty(plan.String()))

	created, err := scanSetlistRow(row)
	if err != nil {
		return Setlist{}, fmt.Errorf("insert setlist from template: %w", err)
	}

	if err = recordAudit(ctx, tx, userID, "setlist", created.ID, "create"); err != nil {
		return Setlist{}, err
	}

	if err = tx.Commit(); err != nil {
		return Setlist{}, fmt.Errorf("commit setlist from template: %w", err)
	}

	created.Entries = []SetlistEntry{}
	return created, nil
}

// replaceTemplateSectionsTx inserts sections with dense 1..n positions and
// returns them as stored.
func (s *Store) replaceTemplateSectionsTx(ctx context.Context, tx *sql.Tx, templateID int64, sections []TemplateSection) ([]TemplateSection, error) {
	stored := make([]TemplateSection, 0, len(sections))
	for idx, section := range sections {
		var inserted TemplateSection
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO template_sections (template_id, name, position, target_songs)
			VALUES ($1, $2, $3, $4)
			RETURNING id, name, position, target_songs
		`, templateID, section.Name, idx+1, section.TargetSongs).Scan(
			&inserted.ID, &inserted.Name, &inserted.Position, &inserted.TargetSongs,
		); err != nil {
			return nil, fmt.Errorf("insert template section: %w", err)
		}
		stored = append(stored, inserted)
	}
	return stored, nil
}

func (s *Store) listTemplateSections(ctx context.Context, templateID int64) ([]TemplateSection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, position, target_songs
		FROM template_sections
		WHERE template_id = $1
		ORDER BY position ASC
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("select template sections: %w", err)
	}
	defer rows.Close()

	sections := make([]TemplateSection, 0)
	for rows.Next() {
		var section TemplateSection
		if err := rows.Scan(&section.ID, &section.Name, &section.Position, &section.TargetSongs); err != nil {
			return nil, fmt.Errorf("scan template section: %w", err)
		}
		sections = append(sections, section)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate template sections: %w", err)
	}
	return sections, nil
}

func validateTemplate(template Template) error {
	name := strings.TrimSpace(template.Name)

	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidTemplate)
	case len(name) > 200:
		return fmt.Errorf("%w: name must be at most 200 characters", ErrInvalidTemplate)
	case len(template.Description) > 1000:
		return fmt.Errorf("%w: description must be at most 1000 characters", ErrInvalidTemplate)
	case len(template.Sections) == 0:
		return fmt.Errorf("%w: at least one section is required", ErrInvalidTemplate)
	}

	for _, section := range template.Sections {
		sectionName := strings.TrimSpace(section.Name)
		if sectionName == "" {
			return fmt.Errorf("%w: section name is required", ErrInvalidTemplate)
		}
		if len(sectionName) > 100 {
			return fmt.Errorf("%w: section name must be at most 100 characters", ErrInvalidTemplate)
		}
		if section.TargetSongs < 0 || section.TargetSongs > 50 {
			return fmt.Errorf("%w: section target songs must be between 0 and 50", ErrInvalidTemplate)
		}
	}

	return nil
}

func normalizeTemplate(template *Template) {
	template.Name = strings.TrimSpace(template.Name)
	template.Description = strings.TrimSpace(template.Description)
	for i := range template.Sections {
		template.Sections[i].Name = strings.TrimSpace(template.Sections[i].Name)
	}
}
