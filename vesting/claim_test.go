package vesting_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kidkender/token-vesting-contract/vesting"
)

func TestCalculateVestedAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		allocated uint64
		months    uint64
		window    uint64
		expected  uint64
	}{
		{name: "nothing passed", allocated: 5_000_000_000, months: 0, window: 48, expected: 0},
		{name: "five of fortyeight", allocated: 5_000_000_000, months: 5, window: 48, expected: 520_833_333},
		{name: "six of fortyeight", allocated: 5_000_000_000, months: 6, window: 48, expected: 625_000_000},
		{name: "one of twentyfour", allocated: 166_667_000, months: 1, window: 24, expected: 6_944_458},
		{name: "window complete", allocated: 5_000_000_000, months: 48, window: 48, expected: 5_000_000_000},
		{name: "beyond window", allocated: 5_000_000_000, months: 90, window: 48, expected: 5_000_000_000},
		{
			// allocated * months would wrap uint64 without the wide
			// intermediate: 18e18 * 47 ≈ 8.5e20.
			name:      "near max allocation",
			allocated: 18_000_000_000_000_000_000,
			months:    47,
			window:    48,
			expected:  17_625_000_000_000_000_000,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, vesting.CalculateVestedAmount(tt.allocated, tt.months, tt.window))
		})
	}
}

func TestVestedAmountMonotonic(t *testing.T) {
	t.Parallel()

	var previous uint64
	for months := uint64(0); months <= 60; months++ {
		vested := vesting.CalculateVestedAmount(5_000_000_000, months, 48)
		require.GreaterOrEqual(t, vested, previous, "vested amount decreased at month %d", months)
		require.LessOrEqual(t, vested, uint64(5_000_000_000))
		previous = vested
	}
	require.Equal(t, uint64(5_000_000_000), previous)
}

func TestCalculateClaimable(t *testing.T) {
	t.Parallel()

	entry := func(claimed uint64) *vesting.Beneficiary {
		return &vesting.Beneficiary{
			Identity:        beneficiary1,
			AllocatedTokens: 166_667_000,
			ClaimedTokens:   claimed,
			StartTime:       startTime,
			CliffMonths:     24,
			TotalMonths:     48,
		}
	}

	t.Run("before start", func(t *testing.T) {
		t.Parallel()
		_, err := vesting.CalculateClaimable(entry(0), startTime-1)
		require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)
	})

	t.Run("before cliff", func(t *testing.T) {
		t.Parallel()
		_, err := vesting.CalculateClaimable(entry(0), startTime+24*secondsPerMonth-1)
		require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)
	})

	t.Run("at cliff nothing vested yet", func(t *testing.T) {
		t.Parallel()
		_, err := vesting.CalculateClaimable(entry(0), startTime+24*secondsPerMonth)
		require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)
	})

	t.Run("one month past cliff", func(t *testing.T) {
		t.Parallel()
		claimable, err := vesting.CalculateClaimable(entry(0), startTime+25*secondsPerMonth)
		require.NoError(t, err)
		require.Equal(t, uint64(6_944_458), claimable)
	})

	t.Run("already claimed this month", func(t *testing.T) {
		t.Parallel()
		_, err := vesting.CalculateClaimable(entry(6_944_458), startTime+25*secondsPerMonth)
		require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)
	})

	t.Run("partial previous claim", func(t *testing.T) {
		t.Parallel()
		claimable, err := vesting.CalculateClaimable(entry(6_944_458), startTime+26*secondsPerMonth)
		require.NoError(t, err)
		// floor(166667000 * 2 / 24) - 6944458
		require.Equal(t, uint64(6_944_458), claimable)
	})

	t.Run("fully claimed", func(t *testing.T) {
		t.Parallel()
		_, err := vesting.CalculateClaimable(entry(166_667_000), startTime+100*secondsPerMonth)
		require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)
	})

	t.Run("window elapsed pays remainder exactly", func(t *testing.T) {
		t.Parallel()
		claimable, err := vesting.CalculateClaimable(entry(6_944_458), startTime+100*secondsPerMonth)
		require.NoError(t, err)
		require.Equal(t, uint64(166_667_000-6_944_458), claimable)
	})
}

// The largest schedule the validator admits: a century-long window starting at
// the latest representable start time. The month-to-seconds conversion must
// not wrap, so nothing may be claimable before the cliff.
func TestCalculateClaimableAtScheduleBounds(t *testing.T) {
	t.Parallel()

	b := &vesting.Beneficiary{
		Identity:        beneficiary1,
		AllocatedTokens: 1000,
		StartTime:       253_402_300_799, // 9999-12-31T23:59:59Z
		CliffMonths:     1199,
		TotalMonths:     1200,
	}

	t.Run("at start time", func(t *testing.T) {
		t.Parallel()
		_, err := vesting.CalculateClaimable(b, b.StartTime)
		require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)
	})

	t.Run("one second before cliff", func(t *testing.T) {
		t.Parallel()
		_, err := vesting.CalculateClaimable(b, b.StartTime+1199*secondsPerMonth-1)
		require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)
	})

	t.Run("full window pays the allocation", func(t *testing.T) {
		t.Parallel()
		claimable, err := vesting.CalculateClaimable(b, b.StartTime+1200*secondsPerMonth)
		require.NoError(t, err)
		require.Equal(t, uint64(1000), claimable)
	})
}
