package jobs

import (
	"context"
	"time"

	"wavewellness/internal/logger"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
)

// Notifier is the slice of the notification service the scheduled jobs use.
type Notifier interface {
	SendClassReminder(ctx context.Context, email, name string, startsAt time.Time) error
	SendCreditsExpiring(ctx context.Context, email, name string, credits int, expiresAt time.Time) error
}

type reminderRow struct {
	Email    string    `db:"email"`
	Name     string    `db:"name"`
	StartsAt time.Time `db:"starts_at"`
}

type expiringRow struct {
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Credits   int       `db:"credits"`
	ExpiresAt time.Time `db:"expires_at"`
}

// Scheduler runs the daily maintenance jobs: class reminders for tomorrow's
// bookings and warnings for credits that expire within the next week.
type Scheduler struct {
	db       *sqlx.DB
	notifier Notifier
	cron     *cron.Cron
}

func New(db *sqlx.DB, notifier Notifier) *Scheduler {
	return &Scheduler{
		db:       db,
		notifier: notifier,
		cron:     cron.New(),
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 18 * * *", s.sendClassReminders); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 9 * * *", s.sendExpiryWarnings); err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("Job scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Job scheduler stopped")
}

// sendClassReminders emails every student with a booked class tomorrow.
func (s *Scheduler) sendClassReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	query := `
		SELECT p.email, p.name, cs.starts_at
		FROM class_bookings cb
		JOIN coach_slots cs ON cs.id = cb.slot_id
		JOIN profiles p ON p.id = cb.student_id
		WHERE cb.status = 'booked'
		  AND cs.starts_at >= CURRENT_DATE + INTERVAL '1 day'
		  AND cs.starts_at < CURRENT_DATE + INTERVAL '2 days'
		ORDER BY cs.starts_at ASC
	`

	var rows []reminderRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		logger.Errorf("Reminder query failed: %v", err)
		return
	}

	for _, r := range rows {
		if err := s.notifier.SendClassReminder(ctx, r.Email, r.Name, r.StartsAt); err != nil {
			logger.Errorf("Failed to queue reminder for %s: %v", r.Email, err)
		}
	}

	logger.Infof("Queued %d class reminders", len(rows))
}

// sendExpiryWarnings emails students whose positive credit entries expire
// within the next 7 days. Grouped per student and earliest expiry, so one
// email covers everything about to lapse.
func (s *Scheduler) sendExpiryWarnings() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	query := `
		SELECT p.email, p.name, SUM(cl.delta) AS credits, MIN(cl.expires_at) AS expires_at
		FROM credit_ledger cl
		JOIN profiles p ON p.id = cl.student_id
		WHERE cl.delta > 0
		  AND cl.expires_at > NOW()
		  AND cl.expires_at <= NOW() + INTERVAL '7 days'
		GROUP BY p.id, p.email, p.name
		HAVING SUM(cl.delta) > 0
	`

	var rows []expiringRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		logger.Errorf("Expiry warning query failed: %v", err)
		return
	}

	for _, r := range rows {
		if err := s.notifier.SendCreditsExpiring(ctx, r.Email, r.Name, r.Credits, r.ExpiresAt); err != nil {
			logger.Errorf("Failed to queue expiry warning for %s: %v", r.Email, err)
		}
	}

	logger.Infof("Queued %d credit expiry warnings", len(rows))
}
