package store

import (
	"context"
	"errors"

	"github.com/ykvlv/assetwatch/internal/domain"
)

var ErrNotFound = errors.New("not found")

// ResourceStore is the resource persistence boundary used by the sweep and the
// HTTP API.
type ResourceStore interface {
	ListResources(ctx context.Context) ([]domain.Resource, error)
	GetResource(ctx context.Context, id string) (*domain.Resource, error)
	CreateResource(ctx context.Context, r *domain.Resource) error
	UpdateResource(ctx context.Context, r *domain.Resource) error
	UpsertResource(ctx context.Context, r *domain.Resource) error
	DeleteResource(ctx context.Context, id string) error
	UpdateResourceNotificationState(ctx context.Context, id string, lastNotified string) error
}

// SettingsStore holds the global settings singleton.
type SettingsStore interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, s domain.Settings) error
}

// Repo combines both stores.
type Repo interface {
	ResourceStore
	SettingsStore
	Close() error
}
