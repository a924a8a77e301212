package setlists

import (
	"context"

	"stagehand/internal/store"
)

// Store captures the persistence needs for setlist workflows.
type Store interface {
	CreateSetlist(ctx context.Context, token string, setlist store.Setlist) (store.Setlist, error)
	SetlistsByToken(ctx context.Context, token string) ([]store.Setlist, error)
	SetlistByToken(ctx context.Context, token string, id int64) (store.Setlist, error)
	UpdateSetlist(ctx context.Context, token string, id int64, setlist store.Setlist) (store.Setlist, error)
	DeleteSetlist(ctx context.Context, token string, id int64) error
	AddSongToSetlist(ctx context.Context, token string, setlistID, songID int64, position int) error
	RemoveSongFromSetlist(ctx context.Context, token string, setlistID, songID int64) error
	ReorderSetlistSong(ctx context.Context, token string, setlistID, songID int64, newPosition int) error
}

// Service coordinates setlist operations.
type Service interface {
	Create(ctx context.Context, token string, setlist store.Setlist) (store.Setlist, error)
	List(ctx context.Context, token string) ([]store.Setlist, error)
	Get(ctx context.Context, token string, id int64) (store.Setlist, error)
	Update(ctx context.Context, token string, id int64, setlist store.Setlist) (store.Setlist, error)
	Delete(ctx context.Context, token string, id int64) error
	AddSong(ctx context.Context, token string, setlistID, songID int64, position int) error
	RemoveSong(ctx context.Context, token string, setlistID, songID int64) error
	ReorderSong(ctx context.Context, token string, setlistID, songID int64, newPosition int) error
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Create(ctx context.Context, token string, setlist store.Setlist) (store.Setlist, error) {
	if err := ctx.Err(); err != nil {
		return store.Setlist{}, err
	}
	return s.store.CreateSetlist(ctx, token, setlist)
}

func (s *service) List(ctx context.Context, token string) ([]store.Setlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.SetlistsByToken(ctx, token)
}

func (s *service) Get(ctx context.Context, token string, id int64) (store.Setlist, error) {
	if err := ctx.Err(); err != nil {
		return store.Setlist{}, err
	}
	return s.store.SetlistByToken(ctx, token, id)
}

func (s *service) Update(ctx context.Context, token string, id int64, setlist store.Setlist) (store.Setlist, error) {
	if err := ctx.Err(); err != nil {
		return store.Setlist{}, err
	}
	return s.store.UpdateSetlist(ctx, token, id, setlist)
}

func (s *service) Delete(ctx context.Context, token string, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.DeleteSetlist(ctx, token, id)
}

func (s *service) AddSong(ctx context.Context, token string, setlistID, songID int64, position int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.AddSongToSetlist(ctx, token, setlistID, songID, position)
}

func (s *service) RemoveSong(ctx context.Context, token string, setlistID, songID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.RemoveSongFromSetlist(ctx, token, setlistID, songID)
}

func (s *service) ReorderSong(ctx context.Context, token string, setlistID, songID int64, newPosition int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.ReorderSetlistSong(ctx, token, setlistID, songID, newPosition)
}
