package vesting_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kidkender/token-vesting-contract/vesting"
)

func TestIsExpired(t *testing.T) {
	t.Parallel()

	b := &vesting.Beneficiary{
		Identity:        beneficiary1,
		AllocatedTokens: 1000,
		StartTime:       startTime,
		CliffMonths:     0,
		TotalMonths:     12,
	}
	expiry := startTime + (12+graceMonths)*secondsPerMonth

	require.False(t, vesting.IsExpired(b, startTime))
	require.False(t, vesting.IsExpired(b, expiry-1))
	require.True(t, vesting.IsExpired(b, expiry))
	require.True(t, vesting.IsExpired(b, expiry+secondsPerMonth))
}

// A century-long schedule at the latest representable start time must not
// wrap to an expiry in the past, which would open the sweep before the grace
// period.
func TestIsExpiredAtScheduleBounds(t *testing.T) {
	t.Parallel()

	b := &vesting.Beneficiary{
		Identity:        beneficiary1,
		AllocatedTokens: 1000,
		StartTime:       253_402_300_799, // 9999-12-31T23:59:59Z
		CliffMonths:     1199,
		TotalMonths:     1200,
	}
	expiry := b.StartTime + (1200+graceMonths)*secondsPerMonth

	require.False(t, vesting.IsExpired(b, b.StartTime))
	require.False(t, vesting.IsExpired(b, expiry-1))
	require.True(t, vesting.IsExpired(b, expiry))
}

func TestCalculateReclaimable(t *testing.T) {
	t.Parallel()

	schedule := &vesting.Schedule{
		Admin: admin,
		Beneficiaries: []vesting.Beneficiary{
			{Identity: beneficiary1, AllocatedTokens: 1200, StartTime: startTime, TotalMonths: 12},
			{Identity: beneficiary2, AllocatedTokens: 4800, ClaimedTokens: 1000, StartTime: startTime, TotalMonths: 24},
			{Identity: outsider, AllocatedTokens: 500, ClaimedTokens: 500, StartTime: startTime, TotalMonths: 12},
		},
	}

	t.Run("nothing expired", func(t *testing.T) {
		t.Parallel()
		total, expired := vesting.CalculateReclaimable(schedule, startTime+secondsPerMonth)
		require.Zero(t, total)
		require.Empty(t, expired)
	})

	t.Run("one entry expired", func(t *testing.T) {
		t.Parallel()
		total, expired := vesting.CalculateReclaimable(schedule, startTime+(12+graceMonths)*secondsPerMonth)
		require.Equal(t, uint64(1200), total)
		require.Equal(t, []string{beneficiary1}, expired)
	})

	t.Run("expired but fully claimed contributes nothing", func(t *testing.T) {
		t.Parallel()
		// outsider's entry expires at the same moment as beneficiary1's
		// but has no remainder left.
		total, expired := vesting.CalculateReclaimable(schedule, startTime+(12+graceMonths)*secondsPerMonth)
		require.Equal(t, uint64(1200), total)
		require.NotContains(t, expired, outsider)
	})

	t.Run("all expired sums remainders", func(t *testing.T) {
		t.Parallel()
		total, expired := vesting.CalculateReclaimable(schedule, startTime+(24+graceMonths)*secondsPerMonth)
		require.Equal(t, uint64(1200+3800), total)
		require.Equal(t, []string{beneficiary1, beneficiary2}, expired)
	})
}

func TestScheduleLedgerOps(t *testing.T) {
	t.Parallel()

	schedule := &vesting.Schedule{
		Beneficiaries: []vesting.Beneficiary{
			{Identity: beneficiary1, AllocatedTokens: 1000, ClaimedTokens: 400},
		},
	}

	_, err := schedule.FindBeneficiary(outsider)
	require.ErrorIs(t, err, vesting.ErrBeneficiaryNotFound)

	require.NoError(t, schedule.RecordClaim(beneficiary1, 600))
	require.Equal(t, uint64(1000), schedule.Beneficiaries[0].ClaimedTokens)

	err = schedule.RecordClaim(beneficiary1, 1)
	require.ErrorIs(t, err, vesting.ErrClaimExceedsAllocation)
	require.Equal(t, uint64(1000), schedule.Beneficiaries[0].ClaimedTokens)

	schedule.Beneficiaries[0].ClaimedTokens = 400
	require.NoError(t, schedule.FinalizeExpired(beneficiary1))
	require.Equal(t, uint64(1000), schedule.Beneficiaries[0].ClaimedTokens)
}
