package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

var (
	// ErrInvalidSong indicates validation failure for song data.
	ErrInvalidSong = errors.New("invalid song")
	// ErrSongNotFound signals a missing song record.
	ErrSongNotFound = errors.New("song not found")
)

// Song models a track in a user's catalog. Genre, tempo, key, difficulty,
// duration, and notes are optional; empty or nil means the attribute was
// never entered.
type Song struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Artist           string    `json:"artist,omitempty"`
	Genre            string    `json:"genre,omitempty"`
	TempoBPM         *int      `json:"tempoBpm,omitempty"`
	MusicalKey       string    `json:"musicalKey,omitempty"`
	DifficultyRating *int      `json:"difficultyRating,omitempty"`
	DurationSeconds  *int      `json:"durationSeconds,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	Tags             []string  `json:"tags"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// SongFilter constrains the results returned by SongsByToken.
type SongFilter struct {
	Query         string
	Genre         string
	Tag           string
	MinTempo      int
	MaxTempo      int
	MinDifficulty int
	MaxDifficulty int
	Limit         int
	Offset        int
}

const (
	defaultSongLimit = 50
	maxSongLimit     = 200
)

const songColumns = `id, title, artist, genre, tempo_bpm, musical_key, difficulty_rating, duration_seconds, notes, tags, created_at, updated_at`

// CreateSong inserts a new song for the user represented by the session token.
func (s *Store) CreateSong(ctx context.Context, token string, song Song) (Song, error) {
	if err := validateSong(song); err != nil {
		return Song{}, err
	}
	normalizeSong(&song)

	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return Song{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Song{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO songs (user_id, title, artist, genre, tempo_bpm, musical_key, difficulty_rating, duration_seconds, notes, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+songColumns+`
	`, userID, song.Title, nullIfEmpty(song.Artist), nullIfEmpty(song.Genre), song.TempoBPM,
		nullIfEmpty(song.MusicalKey), song.DifficultyRating, song.DurationSeconds,
		nullIfEmpty(song.Notes), pq.Array(song.Tags))

	created, err := scanSongRow(row)
	if err != nil {
		return Song{}, fmt.Errorf("insert song: %w", err)
	}

	if err = recordAudit(ctx, tx, userID, "song", created.ID, "create"); err != nil {
		return Song{}, err
	}

	if err = tx.Commit(); err != nil {
		return Song{}, fmt.Errorf("commit song create: %w", err)
	}

	return created, nil
}

// SongsByToken lists the authenticated user's songs matching the filter.
func (s *Store) SongsByToken(ctx context.Context, token string, filter SongFilter) ([]Song, error) {
	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + songColumns + `
		FROM songs
	`

	args := []any{userID}
	clauses := []string{"user_id = $1"}

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR artist ILIKE $%d)", len(args), len(args)))
	}
	if genre := strings.TrimSpace(filter.Genre); genre != "" {
		args = append(args, genre)
		clauses = append(clauses, fmt.Sprintf("LOWER(genre) = LOWER($%d)", len(args)))
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		args = append(args, tag)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if filter.MinTempo > 0 {
		args = append(args, filter.MinTempo)
		clauses = append(clauses, fmt.Sprintf("tempo_bpm >= $%d", len(args)))
	}
	if filter.MaxTempo > 0 {
		args = append(args, filter.MaxTempo)
		clauses = append(clauses, fmt.Sprintf("tempo_bpm <= $%d", len(args)))
	}
	if filter.MinDifficulty > 0 {
		args = append(args, filter.MinDifficulty)
		clauses = append(clauses, fmt.Sprintf("difficulty_rating >= $%d", len(args)))
	}
	if filter.MaxDifficulty > 0 {
		args = append(args, filter.MaxDifficulty)
		clauses = append(clauses, fmt.Sprintf("difficulty_rating <= $%d", len(args)))
	}

	query += " WHERE " + strings.Join(clauses, " AND ")
	query += " ORDER BY title ASC, id ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSongLimit
	}
	if limit > maxSongLimit {
		limit = maxSongLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select songs: %w", err)
	}
	defer rows.Close()

	songs, err := scanSongRows(rows)
	if err != nil {
		return nil, err
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}

	return songs, nil
}

// SongByToken returns one of the authenticated user's songs by ID.
func (s *Store) SongByToken(ctx context.Context, token string, id int64) (Song, error) {
	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return Song{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+songColumns+`
		FROM songs
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	song, err := scanSongRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Song{}, ErrSongNotFound
		}
		return Song{}, fmt.Errorf("select song: %w", err)
	}

	return song, nil
}

// UpdateSong replaces the mutable fields of one of the user's songs.
func (s *Store) UpdateSong(ctx context.Context, token string, id int64, song Song) (Song, error) {
	if err := validateSong(song); err != nil {
		return Song{}, err
	}
	normalizeSong(&song)

	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return Song{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Song{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `
		UPDATE songs
		SET title = $1, artist = $2, genre = $3, tempo_bpm = $4, musical_key = $5,
			difficulty_rating = $6, duration_seconds = $7, notes = $8, tags = $9, updated_at = NOW()
		WHERE id = $10 AND user_id = $11
		RETURNING `+songColumns+`
	`, song.Title, nullIfEmpty(song.Artist), nullIfEmpty(song.Genre), song.TempoBPM,
		nullIfEmpty(song.MusicalKey), song.DifficultyRating, song.DurationSeconds,
		nullIfEmpty(song.Notes), pq.Array(song.Tags), id, userID)

	updated, err := scanSongRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Song{}, ErrSongNotFound
		}
		return Song{}, fmt.Errorf("update song: %w", err)
	}

	if err = recordAudit(ctx, tx, userID, "song", id, "update"); err != nil {
		return Song{}, err
	}

	if err = tx.Commit(); err != nil {
		return Song{}, fmt.Errorf("commit song update: %w", err)
	}

	return updated, nil
}

// DeleteSong removes one of the user's songs.
func (s *Store) DeleteSong(ctx context.Context, token string, id int64) error {
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
		DELETE FROM songs
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete song: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = ErrSongNotFound
		return err
	}

	if err = recordAudit(ctx, tx, userID, "song", id, "delete"); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit song delete: %w", err)
	}

	return nil
}

// SongsForUser returns a user's full catalog without a session token. It backs
// the recommendation engine, which receives an already resolved user identity.
func (s *Store) SongsForUser(ctx context.Context, userID int64) ([]Song, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+songColumns+`
		FROM songs
		WHERE user_id = $1
		ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select songs: %w", err)
	}
	defer rows.Close()

	songs, err := scanSongRows(rows)
	if err != nil {
		return nil, err
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}

	return songs, nil
}

func validateSong(song Song) error {
	title := strings.TrimSpace(song.Title)

	switch {
	case title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidSong)
	case len(title) > 200:
		return fmt.Errorf("%w: title must be at most 200 characters", ErrInvalidSong)
	case len(strings.TrimSpace(song.Artist)) > 200:
		return fmt.Errorf("%w: artist must be at most 200 characters", ErrInvalidSong)
	case len(strings.TrimSpace(song.Genre)) > 100:
		return fmt.Errorf("%w: genre must be at most 100 characters", ErrInvalidSong)
	case len(strings.TrimSpace(song.MusicalKey)) > 12:
		return fmt.Errorf("%w: musical key must be at most 12 characters", ErrInvalidSong)
	case song.TempoBPM != nil && (*song.TempoBPM < 1 || *song.TempoBPM > 400):
		return fmt.Errorf("%w: tempo must be between 1 and 400 BPM", ErrInvalidSong)
	case song.DifficultyRating != nil && (*song.DifficultyRating < 1 || *song.DifficultyRating > 5):
		return fmt.Errorf("%w: difficulty rating must be between 1 and 5", ErrInvalidSong)
	case song.DurationSeconds != nil && *song.DurationSeconds <= 0:
		return fmt.Errorf("%w: duration must be positive", ErrInvalidSong)
	case len(song.Notes) > 2000:
		return fmt.Errorf("%w: notes must be at most 2000 characters", ErrInvalidSong)
	case len(song.Tags) > 20:
		return fmt.Errorf("%w: at most 20 tags are allowed", ErrInvalidSong)
	}

	for _, tag := range song.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("%w: tags must not be empty", ErrInvalidSong)
		}
		if len(tag) > 50 {
			return fmt.Errorf("%w: tags must be at most 50 characters", ErrInvalidSong)
		}
	}

	return nil
}

func normalizeSong(song *Song) {
	song.Title = strings.TrimSpace(song.Title)
	song.Artist = strings.TrimSpace(song.Artist)
	song.Genre = strings.TrimSpace(song.Genre)
	song.MusicalKey = strings.TrimSpace(song.MusicalKey)
	song.Notes = strings.TrimSpace(song.Notes)
	if song.Tags == nil {
		song.Tags = []string{}
	}
	for i, tag := range song.Tags {
		song.Tags[i] = strings.TrimSpace(tag)
	}
}

type songScanner interface {
	Scan(dest ...any) error
}

func scanSongRow(scanner songScanner) (Song, error) {
	var (
		song       Song
		artist     sql.NullString
		genre      sql.NullString
		tempo      sql.NullInt64
		musicalKey sql.NullString
		difficulty sql.NullInt64
		duration   sql.NullInt64
		notes      sql.NullString
	)

	if err := scanner.Scan(
		&song.ID,
		&song.Title,
		&artist,
		&genre,
		&tempo,
		&musicalKey,
		&difficulty,
		&duration,
		&notes,
		pq.Array(&song.Tags),
		&song.CreatedAt,
		&song.UpdatedAt,
	); err != nil {
		return Song{}, err
	}

	song.Artist = artist.String
	song.Genre = genre.String
	song.MusicalKey = musicalKey.String
	song.Notes = notes.String
	if tempo.Valid {
		v := int(tempo.Int64)
		song.TempoBPM = &v
	}
	if difficulty.Valid {
		v := int(difficulty.Int64)
		song.DifficultyRating = &v
	}
	if duration.Valid {
		v := int(duration.Int64)
		song.DurationSeconds = &v
	}
	if song.Tags == nil {
		song.Tags = []string{}
	}

	return song, nil
}

func scanSongRows(rows *sql.Rows) ([]Song, error) {
	var songs []Song

	for rows.Next() {
		song, err := scanSongRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, song)
	}

	return songs, nil
}
