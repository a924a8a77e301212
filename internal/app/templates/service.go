package templates

import (
	"context"
	"time"

	"stagehand/internal/store"
)

// Store captures the persistence needs for template workflows.
type Store interface {
	CreateTemplate(ctx context.Context, token string, template store.Template) (store.Template, error)
	TemplatesByToken(ctx context.Context, token string) ([]store.Template, error)
	TemplateByToken(ctx context.Context, token string, id int64) (store.Template, error)
	UpdateTemplate(ctx context.Context, token string, id int64, template store.Template) (store.Template, error)
	DeleteTemplate(ctx context.Context, token string, id int64) error
	CreateSetlistFromTemplate(ctx context.Context, token string, templateID int64, name string, eventDate *time.Time) (store.Setlist, error)
}

// Service coordinates setlist template operations.
type Service interface {
	Create(ctx context.Context, token string, template store.Template) (store.Template, error)
	List(ctx context.Context, token string) ([]store.Template, error)
	Get(ctx context.Context, token string, id int64) (store.Template, error)
	Update(ctx context.Context, token string, id int64, template store.Template) (store.Template, error)
	Delete(ctx context.Context, token string, id int64) error
	Instantiate(ctx context.Context, token string, templateID int64, name string, eventDate *time.Time) (store.Setlist, error)
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Create(ctx context.Context, token string, template store.Template) (store.Template, error) {
	if err := ctx.Err(); err != nil {
		return store.Template{}, err
	}
	return s.store.CreateTemplate(ctx, token, template)
}

func (s *service) List(ctx context.Context, token string) ([]store.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.TemplatesByToken(ctx, token)
}

func (s *service) Get(ctx context.Context, token string, id int64) (store.Template, error) {
	if err := ctx.Err(); err != nil {
		return store.Template{}, err
	}
	return s.store.TemplateByToken(ctx, token, id)
}

func (s *service) Update(ctx context.Context, token string, id int64, template store.Template) (store.Template, error) {
	if err := ctx.Err(); err != nil {
		return store.Template{}, err
	}
	return s.store.UpdateTemplate(ctx, token, id, template)
}

func (s *service) Delete(ctx context.Context, token string, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.DeleteTemplate(ctx, token, id)
}

func (s *service) Instantiate(ctx context.Context, token string, templateID int64, name string, eventDate *time.Time) (store.Setlist, error) {
	if err := ctx.Err(); err != nil {
		return store.Setlist{}, err
	}
	return s.store.CreateSetlistFromTemplate(ctx, token, templateID, name, eventDate)
}
