package scheduler

import (
	"time"

	"github.com/demandradar/demand-radar/internal/models"
	"github.com/demandradar/demand-radar/internal/notifications"
	"github.com/demandradar/demand-radar/internal/status"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const recentLimit = 200

// Service schedules the periodic digest of finished analysis runs.
type Service struct {
	schedule string
	tracker  status.Tracker
	notifier notifications.Notifier
	cron     *cron.Cron
}

// NewService creates a digest scheduler. Schedule is "daily" or "weekly".
func NewService(schedule string, tracker status.Tracker, notifier notifications.Notifier) *Service {
	return &Service{
		schedule: schedule,
		tracker:  tracker,
		notifier: notifier,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start registers the digest job and begins the cron loop.
func (s *Service) Start() error {
	var cronExpression string
	var window time.Duration

	switch s.schedule {
	case "daily":
		// Daily at 9 AM UTC
		cronExpression = "0 0 9 * * *"
		window = 24 * time.Hour
	default:
		// Weekly on Monday at 9 AM UTC
		cronExpression = "0 0 9 * * MON"
		window = 7 * 24 * time.Hour
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		s.runDigest(window)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Digest scheduler started with %s schedule", s.schedule)
	return nil
}

func (s *Service) runDigest(window time.Duration) {
	logrus.Info("Starting scheduled digest run")

	recent, err := s.tracker.ListRecent(recentLimit)
	if err != nil {
		logrus.Errorf("Digest run failed to list recent analyses: %v", err)
		return
	}

	records := filterWindow(recent, time.Now().Add(-window))
	if len(records) == 0 {
		logrus.Info("No finished analyses in the digest window, skipping send")
		return
	}

	if err := s.notifier.SendDigest(s.schedule, records); err != nil {
		logrus.Errorf("Digest delivery failed: %v", err)
	}
}

// filterWindow keeps terminal records that finished after the cutoff.
func filterWindow(records []*models.RequestStatus, cutoff time.Time) []*models.RequestStatus {
	var kept []*models.RequestStatus
	for _, record := range records {
		if record.Status != models.StatusCompleted && record.Status != models.StatusFailed {
			continue
		}
		if record.UpdatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, record)
	}
	return kept
}

// Stop halts the cron loop.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Digest scheduler stopped")
	}
}
