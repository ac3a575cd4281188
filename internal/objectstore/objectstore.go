// Package objectstore holds the remote asset store backends used by the
// gallery reconciler.
package objectstore

import (
	"context"
	"fmt"
	"strings"

	"catalog/internal/assets"
	"catalog/internal/config"
)

// Store is a remote asset store that can also report its own health.
type Store interface {
	assets.RemoteStore
	Ping(ctx context.Context) error
	Name() string
}

// New builds the backend selected by cfg.Assets.Backend.
func New(cfg *config.Config) (Store, error) {
	switch strings.ToLower(cfg.Assets.Backend) {
	case config.BackendCloudinary:
		return NewCloudinary(cfg.Cloudinary.URL)
	case config.BackendMinio:
		return NewMinio(cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown asset backend %q", cfg.Assets.Backend)
	}
}
