package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/charlesng35/estatehub/internal/database/testutil"
	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/monitoring"
	"github.com/charlesng35/estatehub/internal/services"
)

type purgeFunc func(ctx context.Context) (int64, error)

func (f purgeFunc) PurgeExpired(ctx context.Context) (int64, error) { return f(ctx) }

type pruneFunc func(ctx context.Context, retention time.Duration) (int64, error)

func (f pruneFunc) CleanupOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	return f(ctx, retention)
}

func TestRunOnceCollectsFailures(t *testing.T) {
	tracker := monitoring.NewJobTracker()
	var gotRetention time.Duration

	c := NewCleaner(
		purgeFunc(func(context.Context) (int64, error) { return 0, errors.New("db locked") }),
		pruneFunc(func(_ context.Context, retention time.Duration) (int64, error) {
			gotRetention = retention
			return 0, errors.New("disk full")
		}),
		WithTracker(tracker),
		WithAuditRetention(48*time.Hour),
	)

	err := c.RunOnce(context.Background())
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2)
	require.Contains(t, err.Error(), JobInvitationPurge)
	require.Equal(t, 48*time.Hour, gotRetention)

	for _, status := range tracker.Snapshot() {
		require.Equal(t, uint64(1), status.ConsecutiveFailures)
	}
}

func TestZeroRetentionDisablesAuditJob(t *testing.T) {
	called := false
	c := NewCleaner(nil, pruneFunc(func(context.Context, time.Duration) (int64, error) {
		called = true
		return 0, nil
	}), WithAuditRetention(0))

	require.NoError(t, c.RunOnce(context.Background()))
	require.False(t, called)
	require.NoError(t, c.Start())
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	c := NewCleaner(purgeFunc(func(context.Context) (int64, error) { return 0, nil }), nil,
		WithInvitationSchedule("not a cron spec"))
	require.Error(t, c.Start())
}

func TestStartRegistersJobs(t *testing.T) {
	tracker := monitoring.NewJobTracker()
	c := NewCleaner(purgeFunc(func(context.Context) (int64, error) { return 0, nil }), nil, WithTracker(tracker))
	require.NoError(t, c.Start())
	<-c.Stop().Done()

	snapshot := tracker.Snapshot()
	require.Len(t, snapshot, 1)
	require.Equal(t, JobInvitationPurge, snapshot[0].Job)
}

func TestRunOnceAgainstAuditService(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	for _, action := range []string{"property.create", "property.delete"} {
		require.NoError(t, audit.Log(context.Background(), services.AuditEntry{
			Action: action, Result: "success", Username: "tester",
		}))
	}
	require.NoError(t, db.Model(&models.AuditLog{}).Where("action = ?", "property.create").
		Update("created_at", time.Now().AddDate(0, 0, -10)).Error)

	tracker := monitoring.NewJobTracker()
	c := NewCleaner(nil, audit, WithAuditRetention(7*24*time.Hour), WithTracker(tracker))
	require.NoError(t, c.RunOnce(context.Background()))

	var remaining []models.AuditLog
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, "property.delete", remaining[0].Action)
	require.Equal(t, uint64(1), tracker.Snapshot()[0].TotalRuns)
}

func TestRateCounterPurgeJob(t *testing.T) {
	tracker := monitoring.NewJobTracker()
	purged := 0
	c := NewCleaner(nil, nil,
		WithTracker(tracker),
		WithRateCounters(purgeFunc(func(context.Context) (int64, error) {
			purged++
			return 3, nil
		}), "@every 5m"),
	)

	require.Equal(t, "@every 5m", c.rateCounterSchedule)
	require.NoError(t, c.RunOnce(context.Background()))
	require.Equal(t, 1, purged)

	snapshot := tracker.Snapshot()
	require.Len(t, snapshot, 1)
	require.Equal(t, JobRateCounterPurge, snapshot[0].Job)
	require.Equal(t, uint64(1), snapshot[0].TotalRuns)
}
