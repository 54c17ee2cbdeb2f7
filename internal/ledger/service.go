package ledger

import (
	"context"
	"errors"
	"time"

	"wavewellness/internal/auth"
)

const expiryWarningWindow = 7 * 24 * time.Hour

var ErrZeroDelta = errors.New("adjustment delta cannot be zero")

type Service interface {
	Balance(ctx context.Context, studentID int) (int, error)
	Summary(ctx context.Context, studentID int) (*BalanceResponse, error)
	History(ctx context.Context, studentID int, limit, offset int) ([]Entry, error)
	ManualAdjust(ctx context.Context, actor auth.Principal, studentID, delta int) (*Entry, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Balance(ctx context.Context, studentID int) (int, error) {
	return s.repo.Balance(ctx, studentID)
}

func (s *service) Summary(ctx context.Context, studentID int) (*BalanceResponse, error) {
	balance, err := s.repo.Balance(ctx, studentID)
	if err != nil {
		return nil, err
	}

	expiring, err := s.repo.ExpiringSoon(ctx, studentID, expiryWarningWindow)
	if err != nil {
		return nil, err
	}

	return &BalanceResponse{Balance: balance, ExpiringSoon: expiring}, nil
}

func (s *service) History(ctx context.Context, studentID int, limit, offset int) ([]Entry, error) {
	return s.repo.ListByStudent(ctx, studentID, limit, offset)
}

func (s *service) ManualAdjust(ctx context.Context, actor auth.Principal, studentID, delta int) (*Entry, error) {
	if !actor.IsAdmin() {
		return nil, errors.New("only admins can adjust credits")
	}

	if delta == 0 {
		return nil, ErrZeroDelta
	}

	return s.repo.Insert(ctx, Entry{
		StudentID: studentID,
		Delta:     delta,
		Reason:    ReasonManualAdjustment,
		CreatedBy: actor.ID,
	})
}
