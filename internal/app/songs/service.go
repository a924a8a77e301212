package songs

import (
	"context"

	"stagehand/internal/store"
)

// Store captures the persistence needs for song workflows.
type Store interface {
	CreateSong(ctx context.Context, token string, song store.Song) (store.Song, error)
	SongsByToken(ctx context.Context, token string, filter store.SongFilter) ([]store.Song, error)
	SongByToken(ctx context.Context, token string, id int64) (store.Song, error)
	UpdateSong(ctx context.Context, token string, id int64, song store.Song) (store.Song, error)
	DeleteSong(ctx context.Context, token string, id int64) error
}

// Service coordinates song catalog operations.
type Service interface {
	Create(ctx context.Context, token string, song store.Song) (store.Song, error)
	List(ctx context.Context, token string, filter store.SongFilter) ([]store.Song, error)
	Get(ctx context.Context, token string, id int64) (store.Song, error)
	Update(ctx context.Context, token string, id int64, song store.Song) (store.Song, error)
	Delete(ctx context.Context, token string, id int64) error
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Create(ctx context.Context, token string, song store.Song) (store.Song, error) {
	if err := ctx.Err(); err != nil {
		return store.Song{}, err
	}
	return s.store.CreateSong(ctx, token, song)
}

func (s *service) List(ctx context.Context, token string, filter store.SongFilter) ([]store.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.SongsByToken(ctx, token, filter)
}

func (s *service) Get(ctx context.Context, token string, id int64) (store.Song, error) {
	if err := ctx.Err(); err != nil {
		return store.Song{}, err
	}
	return s.store.SongByToken(ctx, token, id)
}

func (s *service) Update(ctx context.Context, token string, id int64, song store.Song) (store.Song, error) {
	if err := ctx.Err(); err != nil {
		return store.Song{}, err
	}
	return s.store.UpdateSong(ctx, token, id, song)
}

func (s *service) Delete(ctx context.Context, token string, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.DeleteSong(ctx, token, id)
}
