package product

import (
	"context"
	"fmt"
	"strings"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/id"
	"stockbi/internal/core/tx"
	"stockbi/internal/core/types"
	"stockbi/pkg/logger"
)

// maxCodeAttempts bounds internal code regeneration on collisions.
const maxCodeAttempts = 5

// Service exposes catalog operations and the valuation store.
type Service struct {
	repo      Repository
	txManager tx.Manager
	newCode   func() string
}

// NewService creates a new product service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		newCode:   GenerateInternalCode,
	}
}

// CreateInput carries the fields accepted on product creation.
type CreateInput struct {
	Name        string
	CategoryID  *id.ID
	Kind        Kind
	UnitPrice   types.Money
	IsVisible   bool
	Description *string
	ImageURL    *string
}

// UpdateInput carries editable catalog details. Nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	CategoryID  *id.ID
	UnitPrice   *types.Money
	IsVisible   *bool
	Description *string
	ImageURL    *string
}

// Create validates and inserts a product, regenerating its internal code
// on collision.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Product, error) {
	p := NewProduct(in.Name, in.Kind)
	p.CategoryID = in.CategoryID
	p.UnitPrice = in.UnitPrice
	p.IsVisible = in.IsVisible
	p.Description = in.Description
	p.ImageURL = in.ImageURL

	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if p.CategoryID != nil {
			if _, err := s.repo.GetCategory(ctx, *p.CategoryID); err != nil {
				return err
			}
		}

		// Each attempt gets its own savepoint: a unique violation aborts the
		// enclosing transaction on Postgres.
		for attempt := 1; ; attempt++ {
			p.InternalCode = s.newCode()
			err := s.txManager.Savepoint(ctx, func(ctx context.Context) error {
				return s.repo.Create(ctx, p)
			})
			if err == nil {
				return nil
			}
			if !apperror.IsDuplicate(err) || attempt >= maxCodeAttempts {
				return err
			}
			logger.Warn(ctx, "internal code collision, regenerating", "code", p.InternalCode, "attempt", attempt)
		}
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "product created", "product_id", p.ID, "internal_code", p.InternalCode)
	return p, nil
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// List returns products matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Product, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Limit < 0 {
		filter.Limit = 0
	}
	return s.repo.List(ctx, filter)
}

// UpdateDetails edits catalog fields. Quantity, cost and code are owned by
// the valuation operations and cannot be changed here.
func (s *Service) UpdateDetails(ctx context.Context, productID id.ID, in UpdateInput) (*Product, error) {
	var result *Product
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.CategoryID != nil {
			if _, err := s.repo.GetCategory(ctx, *in.CategoryID); err != nil {
				return err
			}
			p.CategoryID = in.CategoryID
		}
		if in.UnitPrice != nil {
			p.UnitPrice = *in.UnitPrice
		}
		if in.Description != nil {
			p.Description = in.Description
		}
		if in.ImageURL != nil {
			p.ImageURL = in.ImageURL
		}
		if in.IsVisible != nil {
			p.IsVisible = *in.IsVisible
		}

		if err := p.Validate(ctx); err != nil {
			return err
		}
		p.Touch()
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	return result, err
}

// LockProduct reads a product and holds its row lock for the rest of the
// transaction in ctx.
func (s *Service) LockProduct(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetForUpdate(ctx, productID)
}

// AdjustStock adds delta (possibly negative) to the quantity on hand.
// Fails with InsufficientStock when the result would be negative; the
// average cost resets to zero when the quantity reaches zero.
func (s *Service) AdjustStock(ctx context.Context, productID id.ID, delta int64) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		qty, avg, err := ApplyDelta(p.ID, p.StockQuantity, p.AveragePurchasePrice, delta)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateValuation(ctx, p.ID, qty, avg); err != nil {
			return fmt.Errorf("update valuation: %w", err)
		}

		logger.Debug(ctx, "stock adjusted",
			"product_id", p.ID,
			"delta", delta,
			"quantity", qty,
		)
		return nil
	})
}

// RecordPurchase adds quantity units bought at unitCost and recomputes the
// weighted-average cost.
func (s *Service) RecordPurchase(ctx context.Context, productID id.ID, unitCost types.Money, quantity int64) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		qty, avg, err := WeightedAverage(p.ID, p.StockQuantity, p.AveragePurchasePrice, unitCost, quantity)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateValuation(ctx, p.ID, qty, avg); err != nil {
			return fmt.Errorf("update valuation: %w", err)
		}

		logger.Debug(ctx, "purchase recorded",
			"product_id", p.ID,
			"quantity", quantity,
			"unit_cost", unitCost.String(),
			"average_cost", avg.String(),
		)
		return nil
	})
}

// GetCurrentValuation returns quantity on hand and average cost.
func (s *Service) GetCurrentValuation(ctx context.Context, productID id.ID) (Valuation, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return Valuation{}, err
	}
	return Valuation{
		ProductID:   p.ID,
		Quantity:    p.StockQuantity,
		AverageCost: p.AveragePurchasePrice,
	}, nil
}

// CreateCategory validates and inserts a category.
func (s *Service) CreateCategory(ctx context.Context, name string, parentID *id.ID) (*Category, error) {
	c := NewCategory(name, parentID)
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if parentID != nil {
			if _, err := s.repo.GetCategory(ctx, *parentID); err != nil {
				return err
			}
		}
		return s.repo.CreateCategory(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.repo.ListCategories(ctx)
}
