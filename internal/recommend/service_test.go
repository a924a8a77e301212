package recommend

import (
	"context"
	"errors"
	"testing"
)

type stubCatalog struct {
	songs []Song
	err   error

	lastUserID int64
}

func (c *stubCatalog) SongsForUser(ctx context.Context, userID int64) ([]Song, error) {
	c.lastUserID = userID
	if c.err != nil {
		return nil, c.err
	}
	return c.songs, nil
}

func TestNextSongsRanksCatalog(t *testing.T) {
	catalog := &stubCatalog{songs: []Song{
		song(1, "Pop", 117, "F#m", 3),
		song(2, "Pop", 125, "G", 4),
		song(3, "Jazz", 176, "Bb", 4),
	}}
	svc := NewService(catalog)

	results, err := svc.NextSongs(context.Background(), 42, 1, nil, DefaultMaxResults)
	if err != nil {
		t.Fatalf("NextSongs error: %v", err)
	}
	if catalog.lastUserID != 42 {
		t.Fatalf("expected catalog fetched for user 42, got %d", catalog.lastUserID)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].SongID != 2 || results[1].SongID != 3 {
		t.Fatalf("unexpected order: %v, %v", results[0].SongID, results[1].SongID)
	}
	for _, res := range results {
		if res.SongID == 1 {
			t.Fatalf("reference song appeared in its own recommendations")
		}
		if res.Score < 0 || res.Score > 100 {
			t.Fatalf("score out of bounds: %v", res.Score)
		}
		if len(res.Details) < 3 {
			t.Fatalf("expected at least 3 details, got %v", res.Details)
		}
	}
}

func TestNextSongsUnknownReferenceReturnsEmpty(t *testing.T) {
	catalog := &stubCatalog{songs: []Song{
		song(1, "Pop", 117, "F#m", 3),
		song(2, "Pop", 125, "G", 4),
	}}
	svc := NewService(catalog)

	results, err := svc.NextSongs(context.Background(), 42, 999, nil, DefaultMaxResults)
	if err != nil {
		t.Fatalf("NextSongs error: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil results, got %v", results)
	}
}

func TestNextSongsHonorsExclusions(t *testing.T) {
	var songs []Song
	for id := int64(1); id <= 7; id++ {
		songs = append(songs, song(id, "Pop", 120, "C", 3))
	}
	svc := NewService(&stubCatalog{songs: songs})

	results, err := svc.NextSongs(context.Background(), 42, 1, []int64{2, 3, 4}, 10)
	if err != nil {
		t.Fatalf("NextSongs error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, res := range results {
		if res.SongID <= 4 {
			t.Fatalf("excluded song %d appeared in results", res.SongID)
		}
	}
}

func TestNextSongsPropagatesCatalogError(t *testing.T) {
	wantErr := errors.New("catalog unavailable")
	svc := NewService(&stubCatalog{err: wantErr})

	_, err := svc.NextSongs(context.Background(), 42, 1, nil, DefaultMaxResults)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected catalog error propagated unmodified, got %v", err)
	}
}

func TestNextSongsNonPositiveMaxResults(t *testing.T) {
	svc := NewService(&stubCatalog{songs: []Song{
		song(1, "Pop", 120, "C", 3),
		song(2, "Pop", 120, "C", 3),
	}})

	results, err := svc.NextSongs(context.Background(), 42, 1, nil, 0)
	if err != nil {
		t.Fatalf("NextSongs error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results for maxResults 0, got %v", results)
	}
}
