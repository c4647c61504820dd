package service

import (
	"sort"
	"time"

	"vendora/internal/domain"
	"vendora/internal/models"
	"vendora/internal/repository"

	"gorm.io/gorm"
)

// ReserveItem is one SKU line of a reservation request.
type ReserveItem struct {
	ProductID uint
	SKU       string
	Quantity  int
}

// StockLedger guards the per-SKU availability invariant:
// reserved + sold never exceeds the catalog quantity. All methods run inside
// the caller's transaction; Reserve is all-or-nothing because any shortfall
// rolls the whole transaction back.
type StockLedger struct {
	products *repository.ProductRepository
	stock    *repository.StockRepository
}

func NewStockLedger(products *repository.ProductRepository, stock *repository.StockRepository) *StockLedger {
	return &StockLedger{products: products, stock: stock}
}

// Reserve holds the requested quantities for the order. Each SKU's availability
// row is read under a row lock and recomputed from total - sold - reserved, so
// two simultaneous checkouts for the last unit cannot both succeed.
func (l *StockLedger) Reserve(tx *gorm.DB, orderID uint, items []ReserveItem) error {
	products := l.products.WithTx(tx)
	stock := l.stock.WithTx(tx)

	// Deterministic lock order prevents deadlocks between concurrent checkouts.
	sorted := make([]ReserveItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SKU < sorted[j].SKU })

	now := time.Now()
	for _, item := range sorted {
		p, err := products.GetForUpdate(item.ProductID)
		if err != nil {
			return err
		}
		reserved, err := stock.ReservedQuantity(p.ID)
		if err != nil {
			return err
		}
		available := p.TotalQuantity - p.SoldQuantity - reserved
		if item.Quantity > available {
			return &domain.InsufficientStockError{
				SKU:       p.SKU,
				Available: available,
				Requested: item.Quantity,
			}
		}
		if err := stock.Create(&models.ReservedStock{
			OrderID:    orderID,
			ProductID:  p.ID,
			SKU:        p.SKU,
			Quantity:   item.Quantity,
			ReservedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Release returns every reserved unit of the order to availability.
// Idempotent: releasing an order with no reservations is a no-op.
func (l *StockLedger) Release(tx *gorm.DB, orderID uint) error {
	return l.stock.WithTx(tx).DeleteByOrder(orderID)
}

// Finalize converts the order's reservations into permanent sale deductions.
// A second call finds no reservations and fails with ErrAlreadyFinalized; the
// state machine makes that unreachable except through a programming error.
func (l *StockLedger) Finalize(tx *gorm.DB, orderID uint) error {
	stock := l.stock.WithTx(tx)
	products := l.products.WithTx(tx)

	reservations, err := stock.ListByOrder(orderID)
	if err != nil {
		return err
	}
	if len(reservations) == 0 {
		return domain.ErrAlreadyFinalized
	}
	for _, rs := range reservations {
		if err := products.AddSold(rs.ProductID, rs.Quantity); err != nil {
			return err
		}
	}
	return stock.DeleteByOrder(orderID)
}
