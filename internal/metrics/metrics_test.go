package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	method := "GET"
	path := "/slots"
	status := "200"
	duration := 0.5

	RecordHTTPRequest(method, path, status, duration)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(method, path, status))
	assert.Equal(t, float64(1), count)

	// For the histogram we only check that observing does not panic
	metric := HTTPRequestDuration.WithLabelValues(method, path).(prometheus.Histogram)
	metric.Observe(duration)
}

func TestRecordHTTPRequestMultiple(t *testing.T) {
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("POST", "/auth/login", "200", 0.1)
	RecordHTTPRequest("POST", "/auth/login", "200", 0.2)
	RecordHTTPRequest("POST", "/auth/login", "401", 0.05)

	successCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/auth/login", "200"))
	failCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/auth/login", "401"))

	assert.Equal(t, float64(2), successCount)
	assert.Equal(t, float64(1), failCount)
}

func TestRecordBooking(t *testing.T) {
	testCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wavewellness_bookings_total_test",
			Help: "Total number of slot bookings created",
		},
	)

	oldCounter := BookingsTotal
	BookingsTotal = testCounter
	defer func() { BookingsTotal = oldCounter }()

	RecordBooking()
	RecordBooking()

	count := testutil.ToFloat64(testCounter)
	assert.Equal(t, float64(2), count)
}

func TestRecordCancellation(t *testing.T) {
	BookingCancellationsTotal.Reset()

	RecordCancellation(true)
	RecordCancellation(true)
	RecordCancellation(false)

	refunded := testutil.ToFloat64(BookingCancellationsTotal.WithLabelValues("refunded"))
	forfeited := testutil.ToFloat64(BookingCancellationsTotal.WithLabelValues("forfeited"))

	assert.Equal(t, float64(2), refunded)
	assert.Equal(t, float64(1), forfeited)
}

func TestRecordAttendance(t *testing.T) {
	AttendanceMarksTotal.Reset()

	RecordAttendance("attended")
	RecordAttendance("attended")
	RecordAttendance("no_show")

	attended := testutil.ToFloat64(AttendanceMarksTotal.WithLabelValues("attended"))
	noShow := testutil.ToFloat64(AttendanceMarksTotal.WithLabelValues("no_show"))

	assert.Equal(t, float64(2), attended)
	assert.Equal(t, float64(1), noShow)
}

func TestRecordPaymentSettled(t *testing.T) {
	PaymentsSettledTotal.Reset()

	RecordPaymentSettled("approved")
	RecordPaymentSettled("rejected")
	RecordPaymentSettled("approved")

	approved := testutil.ToFloat64(PaymentsSettledTotal.WithLabelValues("approved"))
	rejected := testutil.ToFloat64(PaymentsSettledTotal.WithLabelValues("rejected"))

	assert.Equal(t, float64(2), approved)
	assert.Equal(t, float64(1), rejected)
}

func TestRecordCreditsGranted(t *testing.T) {
	testCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wavewellness_credits_granted_total_test",
			Help: "Total credits granted through payment approvals",
		},
	)

	oldCounter := CreditsGrantedTotal
	CreditsGrantedTotal = testCounter
	defer func() { CreditsGrantedTotal = oldCounter }()

	RecordCreditsGranted(10)
	RecordCreditsGranted(5)

	count := testutil.ToFloat64(testCounter)
	assert.Equal(t, float64(15), count)
}

func TestRecordLedgerAnomaly(t *testing.T) {
	testCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wavewellness_ledger_anomalies_total_test",
			Help: "Ledger writes that failed after a primary status update succeeded",
		},
	)

	oldCounter := LedgerAnomaliesTotal
	LedgerAnomaliesTotal = testCounter
	defer func() { LedgerAnomaliesTotal = oldCounter }()

	RecordLedgerAnomaly()

	count := testutil.ToFloat64(testCounter)
	assert.Equal(t, float64(1), count)
}

func TestRecordEmail(t *testing.T) {
	EmailsSentTotal.Reset()

	RecordEmail("smtp", "sent")
	RecordEmail("smtp", "sent")
	RecordEmail("smtp", "failed")

	sent := testutil.ToFloat64(EmailsSentTotal.WithLabelValues("smtp", "sent"))
	failed := testutil.ToFloat64(EmailsSentTotal.WithLabelValues("smtp", "failed"))

	assert.Equal(t, float64(2), sent)
	assert.Equal(t, float64(1), failed)
}

func TestRecordSlotCreated(t *testing.T) {
	testCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wavewellness_slots_created_total_test",
			Help: "Total number of coach slots created",
		},
	)

	oldCounter := SlotsCreatedTotal
	SlotsCreatedTotal = testCounter
	defer func() { SlotsCreatedTotal = oldCounter }()

	RecordSlotCreated()
	RecordSlotCreated()
	RecordSlotCreated()

	count := testutil.ToFloat64(testCounter)
	assert.Equal(t, float64(3), count)
}

func TestEmailQueueLength(t *testing.T) {
	EmailQueueLength.Set(10)
	value := testutil.ToFloat64(EmailQueueLength)
	assert.Equal(t, float64(10), value)

	EmailQueueLength.Set(0)
	value = testutil.ToFloat64(EmailQueueLength)
	assert.Equal(t, float64(0), value)
}

func TestMetricsIntegration(t *testing.T) {
	HTTPRequestsTotal.Reset()
	BookingCancellationsTotal.Reset()
	PaymentsSettledTotal.Reset()
	EmailsSentTotal.Reset()

	// A booking gets cancelled in time, a payment gets approved
	RecordHTTPRequest("POST", "/bookings/:bookingID/cancel", "200", 0.25)
	RecordCancellation(true)
	RecordPaymentSettled("approved")
	RecordEmail("smtp", "sent")

	httpCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/bookings/:bookingID/cancel", "200"))
	cancelCount := testutil.ToFloat64(BookingCancellationsTotal.WithLabelValues("refunded"))
	paymentCount := testutil.ToFloat64(PaymentsSettledTotal.WithLabelValues("approved"))
	emailCount := testutil.ToFloat64(EmailsSentTotal.WithLabelValues("smtp", "sent"))

	assert.Equal(t, float64(1), httpCount)
	assert.Equal(t, float64(1), cancelCount)
	assert.Equal(t, float64(1), paymentCount)
	assert.Equal(t, float64(1), emailCount)
}
