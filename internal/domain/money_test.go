package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("60.00", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(6000), got)

	got, err = ParseAmount("0.00012345", "BTC")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), got)

	got, err = ParseAmount("1.5", "USDT")
	require.NoError(t, err)
	assert.Equal(t, int64(1500000), got)

	_, err = ParseAmount("-5.00", "USD")
	require.Error(t, err)

	// More precision than the currency carries is a malformed amount, not a rounding case.
	_, err = ParseAmount("1.005", "USD")
	require.Error(t, err)
	_, err = ParseAmount("0.000000001", "BTC")
	require.Error(t, err)

	_, err = ParseAmount("abc", "USD")
	require.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "60", FormatAmount(6000, "USD"))
	assert.Equal(t, "59.7", FormatAmount(5970, "USD"))
	assert.Equal(t, "0.00012345", FormatAmount(12345, "BTC"))
}

func TestCoversRequiredToleranceBand(t *testing.T) {
	// 2% of 6000 is 120; the floor is 5880.
	assert.True(t, CoversRequired(6000, 6000, 2.0))
	assert.True(t, CoversRequired(7000, 6000, 2.0))
	assert.True(t, CoversRequired(5970, 6000, 2.0))
	assert.True(t, CoversRequired(5880, 6000, 2.0))
	assert.False(t, CoversRequired(5879, 6000, 2.0))
	assert.False(t, CoversRequired(3000, 6000, 2.0))

	// Zero tolerance means exact or above.
	assert.False(t, CoversRequired(5999, 6000, 0))
	assert.True(t, CoversRequired(6000, 6000, 0))
}

func TestPercentOfRoundsDown(t *testing.T) {
	assert.Equal(t, int64(200), PercentOf(4000, 5.0))
	assert.Equal(t, int64(0), PercentOf(19, 5.0))
	assert.Equal(t, int64(4), PercentOf(99, 5.0))
	assert.Equal(t, int64(0), PercentOf(0, 5.0))
}
