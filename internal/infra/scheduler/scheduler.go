package scheduler

import (
	"context"
	"time"

	"homework_intake_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// JobScheduler runs the periodic tasks: the evening reminder, the nightly
// summary, the absence sweep, the broadcast and the media-group flush. Specs
// use the 6-field form with a seconds column; SkipIfStillRunning guarantees a
// slow run of a job is never overlapped by the next tick of the same job.
type JobScheduler struct {
	cronEngine  *cron.Cron
	maintenance *app.MaintenanceService
	intake      *app.IntakeService
	logger      *logrus.Entry

	cronSpecReminder   string
	cronSpecSummary    string
	cronSpecMissSweep  string
	cronSpecBroadcast  string
	cronSpecGroupFlush string
}

func NewJobScheduler(
	maintenance *app.MaintenanceService,
	intake *app.IntakeService,
	logger *logrus.Entry,
	cronSpecReminder string, // e.g. "0 0 18 * * *" (18:00 daily)
	cronSpecSummary string, // e.g. "0 55 23 * * *"
	cronSpecMissSweep string, // e.g. "0 57 23 * * *"
	cronSpecBroadcast string, // e.g. "0 0 */2 * * *"
	cronSpecGroupFlush string, // e.g. "*/2 * * * * *" (every 2 seconds)
) *JobScheduler {
	return &JobScheduler{
		cronEngine: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.Local),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		maintenance:        maintenance,
		intake:             intake,
		logger:             logger,
		cronSpecReminder:   cronSpecReminder,
		cronSpecSummary:    cronSpecSummary,
		cronSpecMissSweep:  cronSpecMissSweep,
		cronSpecBroadcast:  cronSpecBroadcast,
		cronSpecGroupFlush: cronSpecGroupFlush,
	}
}

func (s *JobScheduler) Start() {
	s.logger.Info("Starting job scheduler")

	s.mustAdd("evening_reminder", s.cronSpecReminder, 5*time.Minute, s.maintenance.SendEveningReminders)
	s.mustAdd("nightly_summary", s.cronSpecSummary, 1*time.Minute, s.maintenance.SendNightlySummary)
	s.mustAdd("absence_sweep", s.cronSpecMissSweep, 5*time.Minute, s.maintenance.SweepMissingSubmissions)
	s.mustAdd("broadcast", s.cronSpecBroadcast, 10*time.Minute, s.maintenance.Broadcast)
	s.mustAdd("media_group_flush", s.cronSpecGroupFlush, 30*time.Second, s.intake.FlushMediaGroups)

	s.cronEngine.Start()
	s.logger.Info("Job scheduler started with jobs")
}

func (s *JobScheduler) mustAdd(name, spec string, timeout time.Duration, job func(ctx context.Context) error) {
	_, err := s.cronEngine.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := job(ctx); err != nil {
			s.logger.WithError(err).WithField("job", name).Error("Scheduled job failed")
		}
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"job": name, "spec": spec}).Fatal("Could not register cron job")
	}
}

// Stop halts scheduling and waits for in-flight jobs to finish.
func (s *JobScheduler) Stop() {
	s.logger.Info("Stopping job scheduler")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Job scheduler gracefully stopped")
}
