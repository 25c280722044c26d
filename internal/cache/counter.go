// Package cache holds shared, database-backed counters used by the HTTP layer
// when more than one API instance serves traffic.
package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/estatehub/internal/models"
)

// Counter counts hits per key inside fixed windows stored in the primary database.
type Counter struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCounter builds a Counter over db.
func NewCounter(db *gorm.DB) (*Counter, error) {
	if db == nil {
		return nil, errors.New("cache: database handle must be provided")
	}
	return &Counter{db: db, now: time.Now}, nil
}

// Increment adds one hit to key and reports the hits in the current window and
// the time until it resets. An expired window restarts at one.
func (c *Counter) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if window <= 0 {
		window = time.Minute
	}

	now := c.now().UTC()
	var entry models.RateCounter

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&entry, "key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			entry = models.RateCounter{Key: key, Hits: 1, ExpiresAt: now.Add(window)}
			return tx.Create(&entry).Error
		}
		if err != nil {
			return err
		}

		if !now.Before(entry.ExpiresAt) {
			entry.Hits = 1
			entry.ExpiresAt = now.Add(window)
		} else {
			entry.Hits++
		}
		return tx.Model(&entry).Updates(map[string]any{
			"hits":       entry.Hits,
			"expires_at": entry.ExpiresAt,
		}).Error
	})
	if err != nil {
		return 0, 0, err
	}

	return int(entry.Hits), entry.ExpiresAt.Sub(now), nil
}

// PurgeExpired deletes windows that have already closed.
func (c *Counter) PurgeExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	res := c.db.WithContext(ctx).Where("expires_at <= ?", c.now().UTC()).Delete(&models.RateCounter{})
	return res.RowsAffected, res.Error
}
