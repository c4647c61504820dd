package service

import (
	"sync"
	"testing"

	"vendora/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestReserveRejectsInsufficientStock(t *testing.T) {
	e := newEnv(t)
	p := e.createProduct(t, "BOOK-1", domain.ProductPhysical, 1500, 3)

	err := e.db.Transaction(func(tx *gorm.DB) error {
		return e.stock.Reserve(tx, 1, []ReserveItem{{ProductID: p.ID, SKU: p.SKU, Quantity: 5}})
	})
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "BOOK-1", stockErr.SKU)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 5, stockErr.Requested)

	// Rollback must leave nothing reserved.
	reserved, err := e.stockRepo.ReservedQuantity(p.ID)
	require.NoError(t, err)
	assert.Zero(t, reserved)
}

func TestReserveIsAllOrNothing(t *testing.T) {
	e := newEnv(t)
	inStock := e.createProduct(t, "SKU-A", domain.ProductDigital, 1000, 10)
	soldOut := e.createProduct(t, "SKU-B", domain.ProductDigital, 1000, 0)

	err := e.db.Transaction(func(tx *gorm.DB) error {
		return e.stock.Reserve(tx, 1, []ReserveItem{
			{ProductID: inStock.ID, SKU: inStock.SKU, Quantity: 2},
			{ProductID: soldOut.ID, SKU: soldOut.SKU, Quantity: 1},
		})
	})
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	// The line that would have fit must be rolled back with the failing one.
	reserved, err := e.stockRepo.ReservedQuantity(inStock.ID)
	require.NoError(t, err)
	assert.Zero(t, reserved)
}

func TestReleaseReturnsUnitsAndIsIdempotent(t *testing.T) {
	e := newEnv(t)
	p := e.createProduct(t, "SKU-C", domain.ProductDigital, 500, 4)

	require.NoError(t, e.db.Transaction(func(tx *gorm.DB) error {
		return e.stock.Reserve(tx, 7, []ReserveItem{{ProductID: p.ID, SKU: p.SKU, Quantity: 4}})
	}))
	reserved, err := e.stockRepo.ReservedQuantity(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, reserved)

	for i := 0; i < 2; i++ {
		require.NoError(t, e.db.Transaction(func(tx *gorm.DB) error {
			return e.stock.Release(tx, 7)
		}))
	}
	reserved, err = e.stockRepo.ReservedQuantity(p.ID)
	require.NoError(t, err)
	assert.Zero(t, reserved)
}

func TestFinalizeConvertsReservationOnce(t *testing.T) {
	e := newEnv(t)
	p := e.createProduct(t, "SKU-D", domain.ProductDigital, 500, 10)

	require.NoError(t, e.db.Transaction(func(tx *gorm.DB) error {
		return e.stock.Reserve(tx, 9, []ReserveItem{{ProductID: p.ID, SKU: p.SKU, Quantity: 3}})
	}))
	require.NoError(t, e.db.Transaction(func(tx *gorm.DB) error {
		return e.stock.Finalize(tx, 9)
	}))

	got, err := e.products.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.SoldQuantity)
	reserved, err := e.stockRepo.ReservedQuantity(p.ID)
	require.NoError(t, err)
	assert.Zero(t, reserved)

	err = e.db.Transaction(func(tx *gorm.DB) error {
		return e.stock.Finalize(tx, 9)
	})
	require.ErrorIs(t, err, domain.ErrAlreadyFinalized)
}

// Fifty simultaneous single-unit reservations against ten available units must
// produce exactly ten holds.
func TestConcurrentReservationsNeverOversell(t *testing.T) {
	e := newEnv(t)
	p := e.createProduct(t, "SKU-HOT", domain.ProductDigital, 2000, 10)

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(orderID uint) {
			defer wg.Done()
			results <- e.db.Transaction(func(tx *gorm.DB) error {
				return e.stock.Reserve(tx, orderID, []ReserveItem{{ProductID: p.ID, SKU: p.SKU, Quantity: 1}})
			})
		}(uint(i + 1))
	}
	wg.Wait()
	close(results)

	var ok, failed int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		var stockErr *domain.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		failed++
	}
	assert.Equal(t, 10, ok)
	assert.Equal(t, 40, failed)

	reserved, err := e.stockRepo.ReservedQuantity(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reserved)
}
