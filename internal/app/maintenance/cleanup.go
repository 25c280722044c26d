package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/estatehub/internal/monitoring"
	"github.com/charlesng35/estatehub/pkg/logger"
)

const (
	JobInvitationPurge  = "invitation_purge"
	JobAuditRetention   = "audit_retention"
	JobRateCounterPurge = "rate_counter_purge"

	defaultAuditRetention      = 90 * 24 * time.Hour
	defaultInvitationSchedule  = "@hourly"
	defaultAuditSchedule       = "@daily"
	defaultRateCounterSchedule = "@every 10m"
)

// InvitationPurger removes invitations that can no longer be accepted.
type InvitationPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// AuditPruner enforces the audit log retention window.
type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// ExpiredPurger removes rows whose lifetime has passed.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner schedules the background maintenance jobs.
type Cleaner struct {
	invitations  InvitationPurger
	audit        AuditPruner
	rateCounters ExpiredPurger
	tracker      *monitoring.JobTracker
	cron         *cron.Cron
	log          *zap.Logger
	retention    time.Duration

	invitationSchedule  string
	auditSchedule       string
	rateCounterSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured scheduler.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithTracker records job outcomes for the maintenance health probe.
func WithTracker(t *monitoring.JobTracker) Option {
	return func(cleaner *Cleaner) {
		cleaner.tracker = t
	}
}

// WithAuditRetention sets how long audit logs are kept. Zero disables the job.
func WithAuditRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d >= 0 {
			cleaner.retention = d
		}
	}
}

func WithInvitationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.invitationSchedule = spec
		}
	}
}

func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithRateCounters enables purging of closed rate-limit windows.
func WithRateCounters(p ExpiredPurger, spec string) Option {
	return func(cleaner *Cleaner) {
		cleaner.rateCounters = p
		if spec != "" {
			cleaner.rateCounterSchedule = spec
		}
	}
}

// NewCleaner builds a Cleaner. A nil dependency disables its job.
func NewCleaner(invitations InvitationPurger, audit AuditPruner, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		invitations:         invitations,
		audit:               audit,
		retention:           defaultAuditRetention,
		invitationSchedule:  defaultInvitationSchedule,
		auditSchedule:       defaultAuditSchedule,
		rateCounterSchedule: defaultRateCounterSchedule,
		log:                 logger.WithModule("maintenance"),
	}
	for _, opt := range opts {
		opt(cleaner)
	}
	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) (int64, error)
}

func (c *Cleaner) jobs() []job {
	var jobs []job
	if c.invitations != nil {
		jobs = append(jobs, job{name: JobInvitationPurge, schedule: c.invitationSchedule, run: c.invitations.PurgeExpired})
	}
	if c.audit != nil && c.retention > 0 {
		jobs = append(jobs, job{name: JobAuditRetention, schedule: c.auditSchedule, run: func(ctx context.Context) (int64, error) {
			return c.audit.CleanupOlderThan(ctx, c.retention)
		}})
	}
	if c.rateCounters != nil {
		jobs = append(jobs, job{name: JobRateCounterPurge, schedule: c.rateCounterSchedule, run: c.rateCounters.PurgeExpired})
	}
	return jobs
}

// Start registers the enabled jobs and launches the scheduler.
func (c *Cleaner) Start() error {
	jobs := c.jobs()
	if len(jobs) == 0 {
		return nil
	}
	for _, j := range jobs {
		j := j
		if c.tracker != nil {
			c.tracker.Register(j.name)
		}
		if _, err := c.cron.AddFunc(j.schedule, func() {
			if err := c.execute(context.Background(), j); err != nil {
				c.log.Warn("maintenance job failed", zap.String("job", j.name), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", j.name, err)
		}
	}
	c.cron.Start()
	return nil
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	return c.cron.Stop()
}

// RunOnce executes every enabled job and returns the combined failures.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var errs error
	for _, j := range c.jobs() {
		errs = multierr.Append(errs, c.execute(ctx, j))
	}
	return errs
}

func (c *Cleaner) execute(ctx context.Context, j job) error {
	start := time.Now()
	removed, err := j.run(ctx)
	if c.tracker != nil {
		c.tracker.Record(j.name, err, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	if removed > 0 {
		c.log.Info("maintenance job completed", zap.String("job", j.name), zap.Int64("removed", removed))
	}
	return nil
}
