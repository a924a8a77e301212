package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"stagehand/internal/store"
)

// bootstrapDemoData seeds an idempotent demo account with a small catalog,
// one setlist, and one template so a fresh instance has something to show.
func bootstrapDemoData(ctx context.Context, db *sql.DB, dataStore *store.Store) error {
	const (
		username = "demo"
		password = "demo-password"
	)

	if err := dataStore.CreateUser(ctx, username, password); err != nil && !errors.Is(err, store.ErrUserExists) {
		return fmt.Errorf("bootstrap demo user: %w", err)
	}

	var userID int64
	if err := db.QueryRowContext(ctx, `
		SELECT id
		FROM users
		WHERE username = $1
	`, username).Scan(&userID); err != nil {
		return fmt.Errorf("lookup demo user: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM songs
		WHERE user_id = $1
	`, userID).Scan(&count); err != nil {
		return fmt.Errorf("count demo songs: %w", err)
	}
	if count > 0 {
		return nil
	}

	type seedSong struct {
		Title      string
		Artist     string
		Genre      string
		TempoBPM   int
		Key        string
		Difficulty int
		Duration   int
		Tags       []string
	}

	songs := []seedSong{
		{"Uptown Rumble", "The Night Owls", "Funk", 108, "Em", 3, 252, []string{"opener", "crowd-pleaser"}},
		{"Harbor Lights", "Mara Quinn", "Pop", 117, "F#m", 3, 221, []string{"radio"}},
		{"Glass Alley", "Mara Quinn", "Pop", 125, "G", 4, 198, []string{"radio", "upbeat"}},
		{"Midnight Freight", "Cole & The Wires", "Blues", 92, "A", 2, 310, []string{"slow-burn"}},
		{"Paper Kites", "The Night Owls", "Indie Rock", 140, "C", 3, 243, nil},
		{"Blue Corner", "Sal Imani Trio", "Jazz", 176, "Bb", 5, 365, []string{"instrumental"}},
		{"Last Orchard", "Mara Quinn", "Folk", 84, "D", 2, 274, []string{"acoustic", "closer"}},
		{"Static Bloom", "Cole & The Wires", "Indie Rock", 132, "Am", 4, 227, []string{"upbeat"}},
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	songIDs := make([]int64, 0, len(songs))
	for _, song := range songs {
		tags := song.Tags
		if tags == nil {
			tags = []string{}
		}
		var songID int64
		if err = tx.QueryRowContext(ctx, `
			INSERT INTO songs (user_id, title, artist, genre, tempo_bpm, musical_key, difficulty_rating, duration_seconds, tags)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, userID, song.Title, song.Artist, song.Genre, song.TempoBPM, song.Key,
			song.Difficulty, song.Duration, pq.Array(tags)).Scan(&songID); err != nil {
			return fmt.Errorf("insert demo song %q: %w", song.Title, err)
		}
		songIDs = append(songIDs, songID)
	}

	var setlistID int64
	if err = tx.QueryRowContext(ctx, `
		INSERT INTO setlists (user_id, name, venue, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, userID, "Friday at the Blue Door", "The Blue Door", "Demo set seeded at startup").Scan(&setlistID); err != nil {
		return fmt.Errorf("insert demo setlist: %w", err)
	}

	for idx, songIdx := range []int{0, 1, 4} {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO setlist_songs (setlist_id, song_id, position)
			VALUES ($1, $2, $3)
		`, setlistID, songIDs[songIdx], idx+1); err != nil {
			return fmt.Errorf("insert demo setlist song: %w", err)
		}
	}

	var templateID int64
	if err = tx.QueryRowContext(ctx, `
		INSERT INTO setlist_templates (user_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id
	`, userID, "Club Night", "Standard three-part club set").Scan(&templateID); err != nil {
		return fmt.Errorf("insert demo template: %w", err)
	}

	sections := []struct {
		Name        string
		TargetSongs int
	}{
		{"Warm-up", 3},
		{"Main set", 6},
		{"Encore", 2},
	}
	for idx, section := range sections {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO template_sections (template_id, name, position, target_songs)
			VALUES ($1, $2, $3, $4)
		`, templateID, section.Name, idx+1, section.TargetSongs); err != nil {
			return fmt.Errorf("insert demo template section: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	log.Info().Str("username", username).Int("songs", len(songs)).Msg("seeded demo data")
	return nil
}
