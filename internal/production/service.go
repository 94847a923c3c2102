package production

import (
	"context"
	"log/slog"
	"time"
)

// Service drives the department workflow.
type Service struct {
	logger *slog.Logger
	repo   Repository
	now    func() time.Time
}

// NewService constructs the production service.
func NewService(logger *slog.Logger, repo Repository) *Service {
	return &Service{
		logger: logger,
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Departments lists all configured production stages.
func (s *Service) Departments(ctx context.Context) ([]Department, error) {
	return s.repo.ListDepartments(ctx)
}

// OrderStatuses returns the order's workflow rows in sequence order.
func (s *Service) OrderStatuses(ctx context.Context, orderID int64) ([]DepartmentStatus, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

// Act applies one floor action to a department on an order.
func (s *Service) Act(ctx context.Context, orderID, departmentID int64, action, operator, notes string) (DepartmentStatus, error) {
	now := s.now()
	updated, err := s.repo.ApplyAction(ctx, orderID, departmentID,
		func(current DepartmentStatus, activeElsewhere bool) (DepartmentStatus, error) {
			return Transition(current, action, activeElsewhere, operator, notes, now)
		})
	if err != nil {
		return DepartmentStatus{}, err
	}
	s.logger.Info("department action applied",
		"order_id", orderID,
		"department", updated.DepartmentName,
		"action", action,
		"status", updated.Status)
	return updated, nil
}
