package service

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/evanto-api/internal/cache"
	"github.com/iliyamo/evanto-api/internal/model"
	"github.com/iliyamo/evanto-api/internal/realtime"
	"github.com/iliyamo/evanto-api/internal/repository"
)

type PaymentService struct {
	notifier
	payments *repository.PaymentRepo
}

func NewPaymentService(payments *repository.PaymentRepo, inv Invalidator, logger echo.Logger) *PaymentService {
	return &PaymentService{notifier: notifier{inv: inv, logger: logger}, payments: payments}
}

func (s *PaymentService) List(ctx context.Context, userID string) ([]model.PaymentMethod, error) {
	var out []model.PaymentMethod
	err := ReadRetry(ctx, func(ctx context.Context) (err error) {
		out, err = s.payments.ListByUser(ctx, userID)
		return err
	})
	return out, err
}

// Create stores p for its user.  A user's first method becomes the default.
func (s *PaymentService) Create(ctx context.Context, p *model.PaymentMethod) error {
	if !p.IsDefault {
		n, err := s.payments.Count(ctx, p.UserID)
		if err != nil {
			return err
		}
		p.IsDefault = n == 0
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return err
	}
	s.changed(ctx, "payment_methods", realtime.OpInsert, p.ID, cache.PaymentCards)
	return nil
}

func (s *PaymentService) Update(ctx context.Context, id, userID string, patch model.PaymentPatch) (model.PaymentMethod, error) {
	p, err := s.payments.Update(ctx, id, userID, patch)
	if err != nil {
		return model.PaymentMethod{}, err
	}
	s.changed(ctx, "payment_methods", realtime.OpUpdate, id, cache.PaymentCards)
	return p, nil
}

func (s *PaymentService) Delete(ctx context.Context, id, userID string) error {
	if err := s.payments.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.changed(ctx, "payment_methods", realtime.OpDelete, id, cache.PaymentCards)
	return nil
}

// SetDefault leaves id as the user's only default method.
func (s *PaymentService) SetDefault(ctx context.Context, id, userID string) error {
	if err := s.payments.SetDefault(ctx, id, userID); err != nil {
		return err
	}
	s.changed(ctx, "payment_methods", realtime.OpUpdate, id, cache.PaymentCards)
	return nil
}
