package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavewellness_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wavewellness_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wavewellness_bookings_total",
			Help: "Total number of slot bookings created",
		},
	)

	BookingCancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavewellness_booking_cancellations_total",
			Help: "Total number of booking cancellations",
		},
		[]string{"refund"},
	)

	AttendanceMarksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavewellness_attendance_marks_total",
			Help: "Total number of attendance marks",
		},
		[]string{"status"},
	)

	PaymentsSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavewellness_payments_settled_total",
			Help: "Total number of payment settlements",
		},
		[]string{"status"},
	)

	CreditsGrantedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wavewellness_credits_granted_total",
			Help: "Total credits granted through payment approvals",
		},
	)

	LedgerAnomaliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wavewellness_ledger_anomalies_total",
			Help: "Ledger writes that failed after a primary status update succeeded",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavewellness_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wavewellness_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	SlotsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wavewellness_slots_created_total",
			Help: "Total number of coach slots created",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking() {
	BookingsTotal.Inc()
}

func RecordCancellation(refunded bool) {
	label := "forfeited"
	if refunded {
		label = "refunded"
	}
	BookingCancellationsTotal.WithLabelValues(label).Inc()
}

func RecordAttendance(status string) {
	AttendanceMarksTotal.WithLabelValues(status).Inc()
}

func RecordPaymentSettled(status string) {
	PaymentsSettledTotal.WithLabelValues(status).Inc()
}

func RecordCreditsGranted(credits int) {
	CreditsGrantedTotal.Add(float64(credits))
}

func RecordLedgerAnomaly() {
	LedgerAnomaliesTotal.Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordSlotCreated() {
	SlotsCreatedTotal.Inc()
}
