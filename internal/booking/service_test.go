package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"wavewellness/internal/auth"
	"wavewellness/internal/ledger"
	"wavewellness/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Mock repositories
type MockBookingRepo struct{ mock.Mock }
type MockLedgerRepo struct{ mock.Mock }
type MockUserRepo struct{ mock.Mock }
type MockNotifier struct{ mock.Mock }

func (m *MockBookingRepo) BookSlot(ctx context.Context, studentID, slotID int) (*Booking, error) {
	args := m.Called(ctx, studentID, slotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id int) (*Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockBookingRepo) GetByIDWithSlot(ctx context.Context, id int) (*BookingWithSlot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BookingWithSlot), args.Error(1)
}

func (m *MockBookingRepo) CancelWithRefund(ctx context.Context, bookingID, studentID int, refund bool) error {
	return m.Called(ctx, bookingID, studentID, refund).Error(0)
}

func (m *MockBookingRepo) Finalize(ctx context.Context, bookingID int, status string) error {
	return m.Called(ctx, bookingID, status).Error(0)
}

func (m *MockBookingRepo) ListByStudent(ctx context.Context, studentID int) ([]BookingWithDetails, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BookingWithDetails), args.Error(1)
}

func (m *MockBookingRepo) ListBySlot(ctx context.Context, slotID int) ([]BookingWithDetails, error) {
	args := m.Called(ctx, slotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BookingWithDetails), args.Error(1)
}

func (m *MockBookingRepo) StatsByDay(ctx context.Context, from, to time.Time) ([]DayStats, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]DayStats), args.Error(1)
}

func (m *MockLedgerRepo) Insert(ctx context.Context, e ledger.Entry) (*ledger.Entry, error) {
	args := m.Called(ctx, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) Balance(ctx context.Context, studentID int) (int, error) {
	args := m.Called(ctx, studentID)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerRepo) ListByStudent(ctx context.Context, studentID int, limit, offset int) ([]ledger.Entry, error) {
	args := m.Called(ctx, studentID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) ExpiringSoon(ctx context.Context, studentID int, within time.Duration) (int, error) {
	args := m.Called(ctx, studentID, within)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerRepo) ExistsForPayment(ctx context.Context, paymentID int) (bool, error) {
	args := m.Called(ctx, paymentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepo) Create(ctx context.Context, name, email, passwordHash, role string) (*user.User, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepo) SetRole(ctx context.Context, id int, role string) error {
	return m.Called(ctx, id, role).Error(0)
}

func (m *MockUserRepo) ListByRole(ctx context.Context, role string) ([]user.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]user.User), args.Error(1)
}

func (m *MockNotifier) SendBookingConfirmation(ctx context.Context, email, name string, startsAt time.Time) error {
	return m.Called(ctx, email, name, startsAt).Error(0)
}

func (m *MockNotifier) SendCancellation(ctx context.Context, email, name string, startsAt time.Time, refunded bool) error {
	return m.Called(ctx, email, name, startsAt, refunded).Error(0)
}

func newTestService(br *MockBookingRepo, lr *MockLedgerRepo, ur *MockUserRepo, n Notifier, now time.Time) *service {
	s := NewService(br, lr, ur, n).(*service)
	s.now = func() time.Time { return now }
	return s
}

var (
	studentActor = auth.Principal{ID: 1, Email: "student@test.com", Role: auth.RoleStudent}
	coachActor   = auth.Principal{ID: 2, Email: "coach@test.com", Role: auth.RoleCoach}
	adminActor   = auth.Principal{ID: 9, Email: "admin@test.com", Role: auth.RoleAdmin}
)

func TestService_BookSlot(t *testing.T) {
	tests := []struct {
		name       string
		actor      auth.Principal
		slotID     int
		setupMocks func(*MockBookingRepo, *MockLedgerRepo, *MockUserRepo)
		wantErr    error
	}{
		{
			name:   "successful booking",
			actor:  studentActor,
			slotID: 1,
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo, ur *MockUserRepo) {
				lr.On("Balance", mock.Anything, 1).Return(3, nil)
				br.On("BookSlot", mock.Anything, 1, 1).Return(&Booking{
					ID:        10,
					StudentID: 1,
					SlotID:    1,
					Status:    StatusBooked,
				}, nil)
			},
		},
		{
			name:       "coach cannot book",
			actor:      coachActor,
			slotID:     1,
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo, ur *MockUserRepo) {},
			wantErr:    ErrNotStudent,
		},
		{
			name:   "zero balance",
			actor:  studentActor,
			slotID: 1,
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo, ur *MockUserRepo) {
				lr.On("Balance", mock.Anything, 1).Return(0, nil)
			},
			wantErr: ErrNoCredit,
		},
		{
			name:   "negative balance",
			actor:  studentActor,
			slotID: 1,
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo, ur *MockUserRepo) {
				lr.On("Balance", mock.Anything, 1).Return(-1, nil)
			},
			wantErr: ErrNoCredit,
		},
		{
			name:   "ledger read error gates like zero balance",
			actor:  studentActor,
			slotID: 1,
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo, ur *MockUserRepo) {
				lr.On("Balance", mock.Anything, 1).Return(0, errors.New("connection refused"))
			},
			wantErr: ErrNoCredit,
		},
		{
			name:   "slot full",
			actor:  studentActor,
			slotID: 1,
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo, ur *MockUserRepo) {
				lr.On("Balance", mock.Anything, 1).Return(2, nil)
				br.On("BookSlot", mock.Anything, 1, 1).Return(nil, ErrSlotFull)
			},
			wantErr: ErrSlotFull,
		},
		{
			name:   "duplicate booking",
			actor:  studentActor,
			slotID: 1,
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo, ur *MockUserRepo) {
				lr.On("Balance", mock.Anything, 1).Return(2, nil)
				br.On("BookSlot", mock.Anything, 1, 1).Return(nil, ErrDuplicateBooking)
			},
			wantErr: ErrDuplicateBooking,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := new(MockBookingRepo)
			lr := new(MockLedgerRepo)
			ur := new(MockUserRepo)

			tt.setupMocks(br, lr, ur)

			service := newTestService(br, lr, ur, nil, time.Now())

			booking, err := service.BookSlot(context.Background(), tt.actor, tt.slotID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, booking)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, booking)
				assert.Equal(t, StatusBooked, booking.Status)
			}
			br.AssertExpectations(t)
			lr.AssertExpectations(t)
		})
	}
}

func TestService_BookSlot_NeverDebitsLedger(t *testing.T) {
	br := new(MockBookingRepo)
	lr := new(MockLedgerRepo)
	ur := new(MockUserRepo)

	lr.On("Balance", mock.Anything, 1).Return(1, nil)
	br.On("BookSlot", mock.Anything, 1, 5).Return(&Booking{ID: 11, StudentID: 1, SlotID: 5, Status: StatusBooked}, nil)

	service := newTestService(br, lr, ur, nil, time.Now())

	_, err := service.BookSlot(context.Background(), studentActor, 5)

	assert.NoError(t, err)
	lr.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestService_Cancel_RefundWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		slotStartsAt time.Time
		wantRefund   bool
	}{
		{
			name:         "more than 24h notice refunds",
			slotStartsAt: now.Add(48 * time.Hour),
			wantRefund:   true,
		},
		{
			name:         "exactly 24h notice refunds",
			slotStartsAt: now.Add(24 * time.Hour),
			wantRefund:   true,
		},
		{
			name:         "one second short of 24h forfeits",
			slotStartsAt: now.Add(24*time.Hour - time.Second),
			wantRefund:   false,
		},
		{
			name:         "same day cancellation forfeits",
			slotStartsAt: now.Add(2 * time.Hour),
			wantRefund:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := new(MockBookingRepo)
			lr := new(MockLedgerRepo)
			ur := new(MockUserRepo)

			br.On("GetByIDWithSlot", mock.Anything, 7).Return(&BookingWithSlot{
				Booking:      Booking{ID: 7, StudentID: 1, SlotID: 3, Status: StatusBooked},
				SlotStartsAt: tt.slotStartsAt,
			}, nil)
			br.On("CancelWithRefund", mock.Anything, 7, 1, tt.wantRefund).Return(nil)

			service := newTestService(br, lr, ur, nil, now)

			refunded, err := service.Cancel(context.Background(), studentActor, 7)

			assert.NoError(t, err)
			assert.Equal(t, tt.wantRefund, refunded)
			br.AssertExpectations(t)
		})
	}
}

func TestService_Cancel_Guards(t *testing.T) {
	now := time.Now()

	t.Run("not the owner", func(t *testing.T) {
		br := new(MockBookingRepo)
		br.On("GetByIDWithSlot", mock.Anything, 7).Return(&BookingWithSlot{
			Booking: Booking{ID: 7, StudentID: 42, Status: StatusBooked},
		}, nil)

		service := newTestService(br, new(MockLedgerRepo), new(MockUserRepo), nil, now)

		_, err := service.Cancel(context.Background(), studentActor, 7)
		assert.ErrorIs(t, err, ErrNotOwner)
		br.AssertNotCalled(t, "CancelWithRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already cancelled", func(t *testing.T) {
		br := new(MockBookingRepo)
		br.On("GetByIDWithSlot", mock.Anything, 7).Return(&BookingWithSlot{
			Booking: Booking{ID: 7, StudentID: 1, Status: StatusCancelled},
		}, nil)

		service := newTestService(br, new(MockLedgerRepo), new(MockUserRepo), nil, now)

		_, err := service.Cancel(context.Background(), studentActor, 7)
		assert.ErrorIs(t, err, ErrAlreadyFinalized)
	})

	t.Run("already attended", func(t *testing.T) {
		br := new(MockBookingRepo)
		br.On("GetByIDWithSlot", mock.Anything, 7).Return(&BookingWithSlot{
			Booking: Booking{ID: 7, StudentID: 1, Status: StatusAttended},
		}, nil)

		service := newTestService(br, new(MockLedgerRepo), new(MockUserRepo), nil, now)

		_, err := service.Cancel(context.Background(), studentActor, 7)
		assert.ErrorIs(t, err, ErrAlreadyFinalized)
	})

	t.Run("coach cannot cancel", func(t *testing.T) {
		service := newTestService(new(MockBookingRepo), new(MockLedgerRepo), new(MockUserRepo), nil, now)

		_, err := service.Cancel(context.Background(), coachActor, 7)
		assert.ErrorIs(t, err, ErrNotStudent)
	})
}

func TestService_MarkAttendance(t *testing.T) {
	futureStart := time.Now().Add(time.Hour)

	booked := func(coachID int) *BookingWithSlot {
		return &BookingWithSlot{
			Booking:      Booking{ID: 7, StudentID: 1, SlotID: 3, Status: StatusBooked},
			SlotStartsAt: futureStart,
			CoachID:      coachID,
		}
	}

	tests := []struct {
		name       string
		actor      auth.Principal
		status     string
		setupMocks func(*MockBookingRepo, *MockLedgerRepo)
		wantErr    error
		wantReason ledger.Reason
	}{
		{
			name:   "coach marks attended",
			actor:  coachActor,
			status: StatusAttended,
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo) {
				br.On("GetByIDWithSlot", mock.Anything, 7).Return(booked(coachActor.ID), nil)
				br.On("Finalize", mock.Anything, 7, StatusAttended).Return(nil)
				lr.On("Insert", mock.Anything, mock.MatchedBy(func(e ledger.Entry) bool {
					return e.StudentID == 1 && e.Delta == -1 && e.Reason == ledger.ReasonClassAttended
				})).Return(&ledger.Entry{}, nil)
			},
		},
		{
			name:   "no show debits the same",
			actor:  coachActor,
			status: StatusNoShow,
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo) {
				br.On("GetByIDWithSlot", mock.Anything, 7).Return(booked(coachActor.ID), nil)
				br.On("Finalize", mock.Anything, 7, StatusNoShow).Return(nil)
				lr.On("Insert", mock.Anything, mock.MatchedBy(func(e ledger.Entry) bool {
					return e.StudentID == 1 && e.Delta == -1 && e.Reason == ledger.ReasonClassNoShow
				})).Return(&ledger.Entry{}, nil)
			},
		},
		{
			name:   "admin may mark any slot",
			actor:  adminActor,
			status: StatusAttended,
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo) {
				br.On("GetByIDWithSlot", mock.Anything, 7).Return(booked(coachActor.ID), nil)
				br.On("Finalize", mock.Anything, 7, StatusAttended).Return(nil)
				lr.On("Insert", mock.Anything, mock.Anything).Return(&ledger.Entry{}, nil)
			},
		},
		{
			name:   "other coach denied",
			actor:  auth.Principal{ID: 55, Role: auth.RoleCoach},
			status: StatusAttended,
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo) {
				br.On("GetByIDWithSlot", mock.Anything, 7).Return(booked(coachActor.ID), nil)
			},
			wantErr: ErrNotAllowed,
		},
		{
			name:       "student denied",
			actor:      studentActor,
			status:     StatusAttended,
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo) {},
			wantErr:    ErrNotAllowed,
		},
		{
			name:       "invalid status rejected",
			actor:      coachActor,
			status:     "maybe",
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo) {},
			wantErr:    ErrBadStatus,
		},
		{
			name:   "already finalized",
			actor:  coachActor,
			status: StatusAttended,
			setupMocks: func(br *MockBookingRepo, lr *MockLedgerRepo) {
				b := booked(coachActor.ID)
				b.Status = StatusAttended
				br.On("GetByIDWithSlot", mock.Anything, 7).Return(b, nil)
			},
			wantErr: ErrAlreadyFinalized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := new(MockBookingRepo)
			lr := new(MockLedgerRepo)

			tt.setupMocks(br, lr)

			service := newTestService(br, lr, new(MockUserRepo), nil, time.Now())

			err := service.MarkAttendance(context.Background(), tt.actor, 7, tt.status)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			br.AssertExpectations(t)
			lr.AssertExpectations(t)
		})
	}
}

// A failed ledger debit after the status flip is an anomaly, not a caller
// error: the attendance mark stands.
func TestService_MarkAttendance_LedgerFailureIsNotFatal(t *testing.T) {
	br := new(MockBookingRepo)
	lr := new(MockLedgerRepo)

	br.On("GetByIDWithSlot", mock.Anything, 7).Return(&BookingWithSlot{
		Booking: Booking{ID: 7, StudentID: 1, SlotID: 3, Status: StatusBooked},
		CoachID: coachActor.ID,
	}, nil)
	br.On("Finalize", mock.Anything, 7, StatusAttended).Return(nil)
	lr.On("Insert", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	service := newTestService(br, lr, new(MockUserRepo), nil, time.Now())

	err := service.MarkAttendance(context.Background(), coachActor, 7, StatusAttended)

	assert.NoError(t, err)
	br.AssertExpectations(t)
	lr.AssertExpectations(t)
}

func TestService_Cancel_SendsNotification(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	startsAt := now.Add(48 * time.Hour)

	br := new(MockBookingRepo)
	lr := new(MockLedgerRepo)
	ur := new(MockUserRepo)
	n := new(MockNotifier)

	br.On("GetByIDWithSlot", mock.Anything, 7).Return(&BookingWithSlot{
		Booking:      Booking{ID: 7, StudentID: 1, SlotID: 3, Status: StatusBooked},
		SlotStartsAt: startsAt,
	}, nil)
	br.On("CancelWithRefund", mock.Anything, 7, 1, true).Return(nil)
	ur.On("FindByID", mock.Anything, 1).Return(&user.User{ID: 1, Name: "Ana", Email: "ana@test.com"}, nil)
	n.On("SendCancellation", mock.Anything, "ana@test.com", "Ana", startsAt, true).Return(nil)

	service := newTestService(br, lr, ur, n, now)

	refunded, err := service.Cancel(context.Background(), studentActor, 7)

	assert.NoError(t, err)
	assert.True(t, refunded)
	n.AssertExpectations(t)
}

func TestService_ListBySlot(t *testing.T) {
	t.Run("owner coach sees roster", func(t *testing.T) {
		br := new(MockBookingRepo)
		br.On("ListBySlot", mock.Anything, 3).Return([]BookingWithDetails{}, nil)

		service := newTestService(br, new(MockLedgerRepo), new(MockUserRepo), nil, time.Now())

		_, err := service.ListBySlot(context.Background(), coachActor, 3, coachActor.ID)
		assert.NoError(t, err)
	})

	t.Run("other coach denied", func(t *testing.T) {
		service := newTestService(new(MockBookingRepo), new(MockLedgerRepo), new(MockUserRepo), nil, time.Now())

		_, err := service.ListBySlot(context.Background(), coachActor, 3, 99)
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("admin sees any roster", func(t *testing.T) {
		br := new(MockBookingRepo)
		br.On("ListBySlot", mock.Anything, 3).Return([]BookingWithDetails{}, nil)

		service := newTestService(br, new(MockLedgerRepo), new(MockUserRepo), nil, time.Now())

		_, err := service.ListBySlot(context.Background(), adminActor, 3, 99)
		assert.NoError(t, err)
	})
}
