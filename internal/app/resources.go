package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charlesng35/estatehub/internal/database"
	"github.com/charlesng35/estatehub/internal/storage"
)

// DatabaseSettings converts the configured database section for database.Open.
func (c DatabaseConfig) DatabaseSettings() database.Config {
	return database.Config{
		Driver:          c.Driver,
		Path:            c.Path,
		DSN:             c.DSN,
		Host:            c.Host,
		Port:            c.Port,
		Name:            c.Name,
		User:            c.User,
		Password:        c.Password,
		Options:         c.Options,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		LogQueries:      c.LogQueries,
	}
}

// OpenStore builds the object store for property images. The "none" driver keeps
// image rows but never touches blobs.
func (c StorageConfig) OpenStore(ctx context.Context) (storage.Store, error) {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "", "none":
		return storage.NoopStore{}, nil
	case "s3":
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          c.S3.Bucket,
			Region:          c.S3.Region,
			Endpoint:        c.S3.Endpoint,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			UsePathStyle:    c.S3.UsePathStyle,
			PublicBaseURL:   c.S3.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", c.Driver)
	}
}
