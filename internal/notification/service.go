package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"wavewellness/internal/logger"
	"wavewellness/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

type EmailJob struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Service queues outgoing emails on Redis and drains the queue from a
// background worker. Callers never block on SMTP.
type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

// NewWithClient is for tests that inject a mock Redis client.
func NewWithClient(client *redis.Client, fromEmail, fromName, smtpHost, smtpPort string) *Service {
	return &Service{
		redis:    client,
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
	}
}

func (s *Service) Send(ctx context.Context, to, name, subject, body string) error {
	job := EmailJob{
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Tries:   0,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue email to %s: %v", to, err)
		return err
	}

	logger.Infof("Email queued: %s to %s", subject, to)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification service started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification service stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return
	}

	job.Tries++
	logger.Infof("Sending email to %s (attempt %d)", job.To, job.Tries)
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send email to %s: %v", job.To, err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying email to %s (attempt %d)", job.To, job.Tries+1)
		} else {
			logger.Errorf("Email to %s failed after %d attempts", job.To, maxTries)
			metrics.RecordEmail("smtp", "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail("smtp", "sent")
	logger.Infof("Email sent successfully to %s", job.To)
}

func (s *Service) sendNow(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Email moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func (s *Service) SendBookingConfirmation(ctx context.Context, email, name string, startsAt time.Time) error {
	subject := "Class Booked - " + startsAt.Format("Jan 2")
	body := fmt.Sprintf(`Hi %s,

Your class is booked!

Time: %s

Remember: cancel at least 24 hours before the start to keep your credit.

See you at the studio!

- Wave Wellness`, name, startsAt.Format("Jan 2, 2006 at 3:04 PM"))

	return s.Send(ctx, email, name, subject, body)
}

func (s *Service) SendCancellation(ctx context.Context, email, name string, startsAt time.Time, refunded bool) error {
	subject := "Booking Cancelled"

	creditLine := "The class started in less than 24 hours, so the credit was not returned."
	if refunded {
		creditLine = "Your credit has been returned to your balance."
	}

	body := fmt.Sprintf(`Hi %s,

Your booking for %s has been cancelled.

%s

- Wave Wellness`, name, startsAt.Format("Jan 2, 2006 at 3:04 PM"), creditLine)

	return s.Send(ctx, email, name, subject, body)
}

func (s *Service) SendPaymentApproved(ctx context.Context, email, name string, credits int, expiresAt time.Time) error {
	subject := "Payment Approved"
	body := fmt.Sprintf(`Hi %s,

Your payment has been approved and %d credits were added to your account.

They are valid until %s.

Happy training!

- Wave Wellness`, name, credits, expiresAt.Format("Jan 2, 2006"))

	return s.Send(ctx, email, name, subject, body)
}

func (s *Service) SendPaymentRejected(ctx context.Context, email, name, packageName string) error {
	subject := "Payment Rejected"
	body := fmt.Sprintf(`Hi %s,

Unfortunately your payment for the package "%s" could not be verified and was rejected.

Please contact the studio if you believe this is a mistake.

- Wave Wellness`, name, packageName)

	return s.Send(ctx, email, name, subject, body)
}

func (s *Service) SendClassReminder(ctx context.Context, email, name string, startsAt time.Time) error {
	subject := "Reminder: Class Tomorrow"
	body := fmt.Sprintf(`Hi %s,

This is a reminder about your class tomorrow:

Time: %s

See you soon!

- Wave Wellness`, name, startsAt.Format("Jan 2, 2006 at 3:04 PM"))

	return s.Send(ctx, email, name, subject, body)
}

func (s *Service) SendCreditsExpiring(ctx context.Context, email, name string, credits int, expiresAt time.Time) error {
	subject := "Your Credits Expire Soon"
	body := fmt.Sprintf(`Hi %s,

You have %d credits expiring on %s.

Book a class before then so they don't go to waste!

- Wave Wellness`, name, credits, expiresAt.Format("Jan 2, 2006"))

	return s.Send(ctx, email, name, subject, body)
}
