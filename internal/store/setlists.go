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
	// ErrInvalidSetlist indicates validation failure for setlist data.
	ErrInvalidSetlist = errors.New("invalid setlist")
	// ErrSetlistNotFound signals a missing setlist record.
	ErrSetlistNotFound = errors.New("setlist not found")
)

// Setlist is an ordered, user-owned selection of the user's songs.
type Setlist struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Venue     string         `json:"venue,omitempty"`
	EventDate *time.Time     `json:"eventDate,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	SongCount int            `json:"songCount"`
	Entries   []SetlistEntry `json:"entries,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SetlistEntry is one positioned song within a setlist, denormalized with the
// song's title and artist for display.
type SetlistEntry struct {
	SongID   int64  `json:"songId"`
	Position int    `json:"position"`
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
}

const setlistColumns = `id, name, venue, event_date, notes, created_at, updated_at`

// CreateSetlist inserts a new empty setlist for the authenticated user.
func (s *Store) CreateSetlist(ctx context.Context, token string, setlist Setlist) (Setlist, error) {
	if err := validateSetlist(setlist); err != nil {
		return Setlist{}, err
	}
	normalizeSetlist(&setlist)

	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return Setlist{}, err
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
	`, userID, setlist.Name, nullIfEmpty(setlist.Venue), setlist.EventDate, nullIfEmpty(setlist.Notes))

	created, err := scanSetlistRow(row)
	if err != nil {
		return Setlist{}, fmt.Errorf("insert setlist: %w", err)
	}

	if err = recordAudit(ctx, tx, userID, "setlist", created.ID, "create"); err != nil {
		return Setlist{}, err
	}

	if err = tx.Commit(); err != nil {
		return Setlist{}, fmt.Errorf("commit setlist create: %w", err)
	}

	created.Entries = []SetlistEntry{}
	return created, nil
}

// SetlistsByToken lists the authenticated user's setlists with song counts.
func (s *Store) SetlistsByToken(ctx context.Context, token string) ([]Setlist, error) {
	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.name, l.venue, l.event_date, l.notes, l.created_at, l.updated_at,
			COUNT(e.song_id)
		FROM setlists l
		LEFT JOIN setlist_songs e ON e.setlist_id = l.id
		WHERE l.user_id = $1
		GROUP BY l.id
		ORDER BY l.event_date DESC NULLS LAST, l.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select setlists: %w", err)
	}
	defer rows.Close()

	var setlists []Setlist
	for rows.Next() {
		var (
			setlist   Setlist
			venue     sql.NullString
			eventDate sql.NullTime
			notes     sql.NullString
		)
		if err := rows.Scan(&setlist.ID, &setlist.Name, &venue, &eventDate, &notes,
			&setlist.CreatedAt, &setlist.UpdatedAt, &setlist.SongCount); err != nil {
			return nil, fmt.Errorf("scan setlist: %w", err)
		}
		setlist.Venue = venue.String
		setlist.Notes = notes.String
		if eventDate.Valid {
			d := eventDate.Time
			setlist.EventDate = &d
		}
		setlists = append(setlists, setlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate setlists: %w", err)
	}

	return setlists, nil
}

// SetlistByToken returns one of the user's setlists with its ordered entries.
func (s *Store) SetlistByToken(ctx context.Context, token string, id int64) (Setlist, error) {
	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return Setlist{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+setlistColumns+`
		FROM setlists
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	setlist, err := scanSetlistRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Setlist{}, ErrSetlistNotFound
		}
		return Setlist{}, fmt.Errorf("select setlist: %w", err)
	}

	entries, err := s.listSetlistEntries(ctx, id)
	if err != nil {
		return Setlist{}, err
	}
	setlist.Entries = entries
	setlist.SongCount = len(entries)

	return setlist, nil
}

// UpdateSetlist replaces the metadata of one of the user's setlists. Entries
// are managed through the dedicated song operations.
func (s *Store) UpdateSetlist(ctx context.Context, token string, id int64, setlist Setlist) (Setlist, error) {
	if err := validateSetlist(setlist); err != nil {
		return Setlist{}, err
	}
	normalizeSetlist(&setlist)

	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return Setlist{}, err
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
		UPDATE setlists
		SET name = $1, venue = $2, event_date = $3, notes = $4, updated_at = NOW()
		WHERE id = $5 AND user_id = $6
		RETURNING `+setlistColumns+`
	`, setlist.Name, nullIfEmpty(setlist.Venue), setlist.EventDate, nullIfEmpty(setlist.Notes), id, userID)

	updated, err := scanSetlistRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Setlist{}, ErrSetlistNotFound
		}
		return Setlist{}, fmt.Errorf("update setlist: %w", err)
	}

	if err = recordAudit(ctx, tx, userID, "setlist", id, "update"); err != nil {
		return Setlist{}, err
	}

	if err = tx.Commit(); err != nil {
		return Setlist{}, fmt.Errorf("commit setlist update: %w", err)
	}

	entries, err := s.listSetlistEntries(ctx, id)
	if err != nil {
		return Setlist{}, err
	}
	updated.Entries = entries
	updated.SongCount = len(entries)

	return updated, nil
}

// DeleteSetlist removes one of the user's setlists and its entries.
func (s *Store) DeleteSetlist(ctx context.Context, token string, id int64) error {
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
		DELETE FROM setlists
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete setlist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = ErrSetlistNotFound
		return err
	}

	if err = recordAudit(ctx, tx, userID, "setlist", id, "delete"); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit setlist delete: %w", err)
	}

	return nil
}

// AddSongToSetlist inserts one of the user's songs at the given 1-based
// position. A non-positive or out-of-range position appends. Both the setlist
// and the song must belong to the caller; a song already on the setlist is
// rejected.
func (s *Store) AddSongToSetlist(ctx context.Context, token string, setlistID, songID int64, position int) error {
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

	if err = s.checkSetlistOwnedTx(ctx, tx, setlistID, userID); err != nil {
		return err
	}

	var owned int64
	err = tx.QueryRowContext(ctx, `
		SELECT id
		FROM songs
		WHERE id = $1 AND user_id = $2
	`, songID, userID).Scan(&owned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrSongNotFound
			return err
		}
		return fmt.Errorf("lookup song: %w", err)
	}

	songIDs, err := s.listSetlistSongIDsTx(ctx, tx, setlistID)
	if err != nil {
		return err
	}
	for _, existing := range songIDs {
		if existing == songID {
			err = fmt.Errorf("%w: song is already on the setlist", ErrInvalidSetlist)
			return err
		}
	}

	index := len(songIDs)
	if position > 0 && position <= len(songIDs) {
		index = position - 1
	}
	songIDs = append(songIDs, 0)
	copy(songIDs[index+1:], songIDs[index:])
	songIDs[index] = songID

	if err = s.replaceSetlistEntriesTx(ctx, tx, setlistID, songIDs); err != nil {
		return err
	}

	if err = recordAudit(ctx, tx, userID, "setlist", setlistID, "add_song"); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit setlist song add: %w", err)
	}

	return nil
}

// RemoveSongFromSetlist drops an entry and closes the position gap.
func (s *Store) RemoveSongFromSetlist(ctx context.Context, token string, setlistID, songID int64) error {
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

	if err = s.checkSetlistOwnedTx(ctx, tx, setlistID, userID); err != nil {
		return err
	}

	songIDs, err := s.listSetlistSongIDsTx(ctx, tx, setlistID)
	if err != nil {
		return err
	}

	remaining := songIDs[:0]
	found := false
	for _, existing := range songIDs {
		if existing == songID {
			found = true
			continue
		}
		remaining = append(remaining, existing)
	}
	if !found {
		err = ErrSongNotFound
		return err
	}

	if err = s.replaceSetlistEntriesTx(ctx, tx, setlistID, remaining); err != nil {
		return err
	}

	if err = recordAudit(ctx, tx, userID, "setlist", setlistID, "remove_song"); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit setlist song remove: %w", err)
	}

	return nil
}

// ReorderSetlistSong moves an entry to a new 1-based position, clamped to the
// list bounds, and renumbers the rest.
func (s *Store) ReorderSetlistSong(ctx context.Context, token string, setlistID, songID int64, newPosition int) error {
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

	if err = s.checkSetlistOwnedTx(ctx, tx, setlistID, userID); err != nil {
		return err
	}

	songIDs, err := s.listSetlistSongIDsTx(ctx, tx, setlistID)
	if err != nil {
		return err
	}

	remaining := make([]int64, 0, len(songIDs))
	found := false
	for _, existing := range songIDs {
		if existing == songID {
			found = true
			continue
		}
		remaining = append(remaining, existing)
	}
	if !found {
		err = ErrSongNotFound
		return err
	}

	index := newPosition - 1
	if index < 0 {
		index = 0
	}
	if index > len(remaining) {
		index = len(remaining)
	}
	remaining = append(remaining, 0)
	copy(remaining[index+1:], remaining[index:])
	remaining[index] = songID

	if err = s.replaceSetlistEntriesTx(ctx, tx, setlistID, remaining); err != nil {
		return err
	}

	if err = recordAudit(ctx, tx, userID, "setlist", setlistID, "reorder_song"); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit setlist song reorder: %w", err)
	}

	return nil
}

func (s *Store) checkSetlistOwnedTx(ctx context.Context, tx *sql.Tx, setlistID, userID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id
		FROM setlists
		WHERE id = $1 AND user_id = $2
	`, setlistID, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSetlistNotFound
		}
		return fmt.Errorf("lookup setlist: %w", err)
	}
	return nil
}

func (s *Store) listSetlistSongIDsTx(ctx context.Context, tx *sql.Tx, setlistID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT song_id
		FROM setlist_songs
		WHERE setlist_id = $1
		ORDER BY position ASC
	`, setlistID)
	if err != nil {
		return nil, fmt.Errorf("select setlist songs: %w", err)
	}
	defer rows.Close()

	var songIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan setlist song: %w", err)
		}
		songIDs = append(songIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate setlist songs: %w", err)
	}
	return songIDs, nil
}

// replaceSetlistEntriesTx rewrites a setlist's entries with dense 1..n
// positions in the given order.
func (s *Store) replaceSetlistEntriesTx(ctx context.Context, tx *sql.Tx, setlistID int64, songIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM setlist_songs
		WHERE setlist_id = $1
	`, setlistID); err != nil {
		return fmt.Errorf("clear setlist songs: %w", err)
	}

	for idx, songID := range songIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO setlist_songs (setlist_id, song_id, position)
			VALUES ($1, $2, $3)
		`, setlistID, songID, idx+1); err != nil {
			return fmt.Errorf("insert setlist song: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE setlists
		SET updated_at = NOW()
		WHERE id = $1
	`, setlistID); err != nil {
		return fmt.Errorf("touch setlist: %w", err)
	}

	return nil
}

func (s *Store) listSetlistEntries(ctx context.Context, setlistID int64) ([]SetlistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.song_id, e.position, s.title, COALESCE(s.artist, '')
		FROM setlist_songs e
		JOIN songs s ON s.id = e.song_id
		WHERE e.setlist_id = $1
		ORDER BY e.position ASC
	`, setlistID)
	if err != nil {
		return nil, fmt.Errorf("select setlist entries: %w", err)
	}
	defer rows.Close()

	entries := make([]SetlistEntry, 0)
	for rows.Next() {
		var entry SetlistEntry
		if err := rows.Scan(&entry.SongID, &entry.Position, &entry.Title, &entry.Artist); err != nil {
			return nil, fmt.Errorf("scan setlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate setlist entries: %w", err)
	}
	return entries, nil
}

func validateSetlist(setlist Setlist) error {
	name := strings.TrimSpace(setlist.Name)

	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidSetlist)
	case len(name) > 200:
		return fmt.Errorf("%w: name must be at most 200 characters", ErrInvalidSetlist)
	case len(strings.TrimSpace(setlist.Venue)) > 200:
		return fmt.Errorf("%w: venue must be at most 200 characters", ErrInvalidSetlist)
	case len(setlist.Notes) > 2000:
		return fmt.Errorf("%w: notes must be at most 2000 characters", ErrInvalidSetlist)
	}

	return nil
}

func normalizeSetlist(setlist *Setlist) {
	setlist.Name = strings.TrimSpace(setlist.Name)
	setlist.Venue = strings.TrimSpace(setlist.Venue)
	setlist.Notes = strings.TrimSpace(setlist.Notes)
}

type setlistScanner interface {
	Scan(dest ...any) error
}

func scanSetlistRow(scanner setlistScanner) (Setlist, error) {
	var (
		setlist   Setlist
		venue     sql.NullString
		eventDate sql.NullTime
		notes     sql.NullString
	)

	if err := scanner.Scan(
		&setlist.ID,
		&setlist.Name,
		&venue,
		&eventDate,
		&notes,
		&setlist.CreatedAt,
		&setlist.UpdatedAt,
	); err != nil {
		return Setlist{}, err
	}

	setlist.Venue = venue.String
	setlist.Notes = notes.String
	if eventDate.Valid {
		d := eventDate.Time
		setlist.EventDate = &d
	}

	return setlist, nil
}
