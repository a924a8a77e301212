package recommendations

import (
	"context"

	"stagehand/internal/recommend"
	"stagehand/internal/store"
)

// Store captures the persistence needs for recommendation workflows: token
// resolution plus the read-only catalog the engine scores over.
type Store interface {
	UserIDByToken(ctx context.Context, token string) (int64, error)
	SongsForUser(ctx context.Context, userID int64) ([]store.Song, error)
}

// Service resolves the caller's identity and delegates to the engine.
type Service interface {
	NextSongs(ctx context.Context, token string, currentSongID int64, excludeIDs []int64, maxResults int) ([]recommend.Result, error)
}

type service struct {
	store  Store
	engine *recommend.Service
}

// New wires a Service and its engine to the provided Store.
func New(st Store) Service {
	return &service{
		store:  st,
		engine: recommend.NewService(catalog{store: st}),
	}
}

func (s *service) NextSongs(ctx context.Context, token string, currentSongID int64, excludeIDs []int64, maxResults int) ([]recommend.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	userID, err := s.store.UserIDByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return s.engine.NextSongs(ctx, userID, currentSongID, excludeIDs, maxResults)
}

// catalog adapts the store's song rows to the engine's attribute view.
type catalog struct {
	store Store
}

func (c catalog) SongsForUser(ctx context.Context, userID int64) ([]recommend.Song, error) {
	songs, err := c.store.SongsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]recommend.Song, 0, len(songs))
	for _, song := range songs {
		views = append(views, recommend.Song{
			ID:         song.ID,
			Genre:      song.Genre,
			TempoBPM:   song.TempoBPM,
			Key:        song.MusicalKey,
			Difficulty: song.DifficultyRating,
		})
	}
	return views, nil
}
