package service

import (
	"testing"
	"time"

	"vendora/internal/domain"
	"vendora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinGraceBoundary(t *testing.T) {
	e := newEnv(t)
	created := time.Now()
	order := &models.Order{CreatedAt: created, WalletCreditCents: 4000}

	assert.True(t, e.penalties.WithinGrace(order, created.Add(4*time.Minute)))
	assert.True(t, e.penalties.WithinGrace(order, created.Add(5*time.Minute)))
	assert.False(t, e.penalties.WithinGrace(order, created.Add(5*time.Minute+time.Second)))
}

func TestCancellationPenaltyAmounts(t *testing.T) {
	e := newEnv(t)
	created := time.Now()
	order := &models.Order{CreatedAt: created, WalletCreditCents: 4000}

	assert.Zero(t, e.penalties.CancellationPenalty(order, created.Add(time.Minute)))
	assert.Equal(t, int64(200), e.penalties.CancellationPenalty(order, created.Add(time.Hour)))

	// Penalty applies only to the wallet portion; a crypto-only order cancels free.
	cryptoOnly := &models.Order{CreatedAt: created, WalletCreditCents: 0}
	assert.Zero(t, e.penalties.CancellationPenalty(cryptoOnly, created.Add(time.Hour)))

	// Sub-cent penalties round down, never up.
	tiny := &models.Order{CreatedAt: created, WalletCreditCents: 19}
	assert.Zero(t, e.penalties.CancellationPenalty(tiny, created.Add(time.Hour)))
}

func TestBanDerivedFromStrikeCount(t *testing.T) {
	e := newEnv(t)
	u := e.createUser(t, "strikes@example.com")

	for i := 0; i < 2; i++ {
		require.NoError(t, e.strikes.Create(&models.UserStrike{UserID: u.ID, Type: domain.StrikeTimeout}))
	}
	banned, err := e.penalties.IsBanned(u.ID)
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, e.strikes.Create(&models.UserStrike{UserID: u.ID, Type: domain.StrikeLateCancellation}))
	banned, err = e.penalties.IsBanned(u.ID)
	require.NoError(t, err)
	assert.True(t, banned)

	// Exemption suppresses enforcement without erasing history.
	require.NoError(t, e.users.SetStrikeExempt(u.ID, true))
	banned, err = e.penalties.IsBanned(u.ID)
	require.NoError(t, err)
	assert.False(t, banned)
	n, err := e.penalties.StrikeCount(u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
