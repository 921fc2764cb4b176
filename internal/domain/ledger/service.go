package ledger

import (
	"context"
	"time"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/entity"
	"stockbi/internal/core/id"
	"stockbi/internal/core/tx"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/catalog/product"
	"stockbi/pkg/logger"
)

// Inventory is the slice of the valuation store the ledger drives.
type Inventory interface {
	LockProduct(ctx context.Context, productID id.ID) (*product.Product, error)
	AdjustStock(ctx context.Context, productID id.ID, delta int64) error
	RecordPurchase(ctx context.Context, productID id.ID, unitCost types.Money, quantity int64) error
}

// SaveInput carries a create (ID nil) or a full update of a transaction.
type SaveInput struct {
	ID *id.ID

	// ExpectedVersion, when positive, must match the stored version.
	ExpectedVersion int

	Kind                Kind
	ProductID           id.ID
	CounterpartyID      *id.ID
	SupplierProductCode *string

	SaleDate     *time.Time
	DeliveryDate *time.Time
	PaymentDate  *time.Time

	Quantity  int64
	UnitPrice types.Money

	// Cancel requests cancellation. Cancellation cannot be undone.
	Cancel bool
}

func (in SaveInput) dates() Dates {
	return Dates{
		SaleDate:     types.DatePtr(in.SaleDate),
		DeliveryDate: types.DatePtr(in.DeliveryDate),
		PaymentDate:  types.DatePtr(in.PaymentDate),
	}
}

// Validate rejects malformed input before anything is read or written.
func (in SaveInput) Validate() error {
	if !in.Kind.Valid() {
		return apperror.NewValidation("unknown transaction kind").WithDetail("kind", string(in.Kind))
	}
	if id.IsNil(in.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if in.Quantity <= 0 {
		return apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}
	if in.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").WithDetail("field", "unitPrice")
	}
	if in.Kind == KindSale && in.SupplierProductCode != nil {
		return apperror.NewValidation("supplier product code applies to orders only").
			WithDetail("field", "supplierProductCode")
	}
	return in.dates().Validate()
}

// Service creates and updates ledger transactions.
type Service struct {
	repo      Repository
	inventory Inventory
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new ledger service.
func NewService(repo Repository, inventory Inventory, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		inventory: inventory,
		txManager: txManager,
		now:       time.Now,
	}
}

// SetClock overrides the clock used to decide whether a sale date has arrived.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Save creates or updates a transaction, infers its status and applies the
// resulting stock effect. Everything happens in one transaction: on any
// error neither the record nor the product valuation changes.
func (s *Service) Save(ctx context.Context, in SaveInput) (*Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var result *Transaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var prev *Transaction
		if in.ID != nil {
			existing, err := s.repo.GetForUpdate(ctx, *in.ID)
			if err != nil {
				return err
			}
			if err := checkUpdate(existing, in); err != nil {
				return err
			}
			prev = existing
		}

		p, err := s.inventory.LockProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if in.Kind == KindSale && !p.Kind.Sellable() {
			return apperror.NewValidation("only goods can be sold").
				WithDetail("productId", p.ID).
				WithDetail("kind", string(p.Kind))
		}

		next := build(prev, in)
		if err := next.Validate(ctx); err != nil {
			return err
		}

		if err := s.applyStockEffect(ctx, prev, next); err != nil {
			return err
		}

		if prev == nil {
			err = s.repo.Create(ctx, next)
		} else {
			err = s.repo.Update(ctx, next)
		}
		if err != nil {
			return err
		}

		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transaction saved",
		"transaction_id", result.ID,
		"kind", result.Kind,
		"status", result.Status,
		"stock_applied", result.StockApplied,
	)
	return result, nil
}

func checkUpdate(prev *Transaction, in SaveInput) error {
	if prev.Kind != in.Kind {
		return apperror.NewNotFound(string(in.Kind), prev.ID)
	}
	if in.ExpectedVersion > 0 && in.ExpectedVersion != prev.Version {
		return apperror.NewConcurrentModification(string(prev.Kind), prev.ID)
	}
	if prev.StockApplied && (prev.ProductID != in.ProductID || prev.Quantity != in.Quantity) {
		return apperror.NewValidation("product and quantity are fixed once stock has moved; cancel and re-create instead").
			WithDetail("transactionId", prev.ID)
	}
	return nil
}

func build(prev *Transaction, in SaveInput) *Transaction {
	var next Transaction
	if prev != nil {
		next = *prev
		next.Touch()
	} else {
		next = Transaction{BaseEntity: entity.NewBaseEntity(), Kind: in.Kind}
	}

	d := in.dates()
	next.ProductID = in.ProductID
	next.CounterpartyID = in.CounterpartyID
	next.SupplierProductCode = in.SupplierProductCode
	next.SaleDate = d.SaleDate
	next.DeliveryDate = d.DeliveryDate
	next.PaymentDate = d.PaymentDate
	next.Quantity = in.Quantity
	next.UnitPrice = in.UnitPrice

	cancelled := in.Cancel || (prev != nil && prev.IsCancelled())
	next.Status = InferStatus(d, cancelled)
	return &next
}

// applyStockEffect compares the stored snapshot with the new state and moves
// stock at most once per direction, tracked by StockApplied.
func (s *Service) applyStockEffect(ctx context.Context, prev, next *Transaction) error {
	wasCancelled := prev != nil && prev.IsCancelled()

	switch next.Kind {
	case KindSale:
		if next.IsCancelled() {
			if !wasCancelled && next.StockApplied {
				if err := s.inventory.AdjustStock(ctx, next.ProductID, next.Quantity); err != nil {
					return err
				}
				next.StockApplied = false
			}
			return nil
		}
		// Stock leaves only once a sale date up to today is recorded; delivery
		// or payment dates alone never move it.
		if !next.StockApplied && next.SaleDate != nil && !s.isFuture(next.SaleDate) {
			if err := s.inventory.AdjustStock(ctx, next.ProductID, -next.Quantity); err != nil {
				return err
			}
			next.StockApplied = true
		}

	case KindOrder:
		if next.IsCancelled() {
			if !wasCancelled && next.StockApplied {
				// The average cost is left as is; only the units are withdrawn.
				if err := s.inventory.AdjustStock(ctx, next.ProductID, -next.Quantity); err != nil {
					return err
				}
				next.StockApplied = false
			}
			return nil
		}
		if !next.StockApplied && next.DeliveryDate != nil {
			if err := s.inventory.RecordPurchase(ctx, next.ProductID, next.UnitPrice, next.Quantity); err != nil {
				return err
			}
			next.StockApplied = true
		}
	}
	return nil
}

func (s *Service) isFuture(d *time.Time) bool {
	if d == nil {
		return false
	}
	return d.After(types.DateOf(s.now()))
}

// Get returns a transaction of the given kind.
func (s *Service) Get(ctx context.Context, kind Kind, txID id.ID) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if t.Kind != kind {
		return nil, apperror.NewNotFound(string(kind), txID)
	}
	return t, nil
}

// List returns transactions matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.NewValidation("unknown status").WithDetail("status", string(filter.Status))
	}
	return s.repo.List(ctx, filter)
}
