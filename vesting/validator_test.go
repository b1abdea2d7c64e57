package vesting_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kidkender/token-vesting-contract/vesting"
)

func TestValidateBeneficiaries(t *testing.T) {
	t.Parallel()

	entry := vesting.BeneficiaryInput{
		Identity:        beneficiary1,
		AllocatedTokens: 1000,
		StartTime:       startTime,
		CliffMonths:     3,
		TotalMonths:     12,
	}

	t.Run("accepts a single entry", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, vesting.ValidateBeneficiaries([]vesting.BeneficiaryInput{entry}, 1000, 9))
	})

	t.Run("accepts fifty entries", func(t *testing.T) {
		t.Parallel()
		var list []vesting.BeneficiaryInput
		for i := 0; i < 50; i++ {
			e := entry
			e.Identity = fmt.Sprintf("%040x", i+1)
			e.AllocatedTokens = 20
			list = append(list, e)
		}
		require.NoError(t, vesting.ValidateBeneficiaries(list, 1000, 9))
	})

	t.Run("accepts zero cliff", func(t *testing.T) {
		t.Parallel()
		e := entry
		e.CliffMonths = 0
		require.NoError(t, vesting.ValidateBeneficiaries([]vesting.BeneficiaryInput{e}, 1000, 9))
	})

	t.Run("rejects empty list", func(t *testing.T) {
		t.Parallel()
		err := vesting.ValidateBeneficiaries(nil, 1000, 9)
		require.ErrorIs(t, err, vesting.ErrInvalidAllocation)
	})

	t.Run("rejects zero total", func(t *testing.T) {
		t.Parallel()
		err := vesting.ValidateBeneficiaries([]vesting.BeneficiaryInput{entry}, 0, 9)
		require.ErrorIs(t, err, vesting.ErrInvalidAllocation)
	})

	t.Run("rejects cliff equal to duration", func(t *testing.T) {
		t.Parallel()
		e := entry
		e.CliffMonths = e.TotalMonths
		err := vesting.ValidateBeneficiaries([]vesting.BeneficiaryInput{e}, 1000, 9)
		require.ErrorIs(t, err, vesting.ErrInvalidAllocation)
	})

	t.Run("rejects cliff above duration", func(t *testing.T) {
		t.Parallel()
		e := entry
		e.CliffMonths = e.TotalMonths + 1
		err := vesting.ValidateBeneficiaries([]vesting.BeneficiaryInput{e}, 1000, 9)
		require.ErrorIs(t, err, vesting.ErrInvalidAllocation)
	})

	t.Run("accepts duration at the cap", func(t *testing.T) {
		t.Parallel()
		e := entry
		e.CliffMonths = 0
		e.TotalMonths = 1200
		require.NoError(t, vesting.ValidateBeneficiaries([]vesting.BeneficiaryInput{e}, 1000, 9))
	})

	t.Run("rejects duration beyond the cap", func(t *testing.T) {
		t.Parallel()
		e := entry
		e.TotalMonths = 1201
		err := vesting.ValidateBeneficiaries([]vesting.BeneficiaryInput{e}, 1000, 9)
		require.ErrorIs(t, err, vesting.ErrInvalidAllocation)
	})

	t.Run("rejects duration that would wrap month arithmetic", func(t *testing.T) {
		t.Parallel()
		// Converted to seconds, a cliff this large exceeds int64; admitting
		// it would let the elapsed-time computation wrap positive and pay
		// out before the cliff.
		e := entry
		e.CliffMonths = 3_600_000_000_000
		e.TotalMonths = 3_600_000_000_001
		err := vesting.ValidateBeneficiaries([]vesting.BeneficiaryInput{e}, 1000, 9)
		require.ErrorIs(t, err, vesting.ErrInvalidAllocation)
	})

	t.Run("rejects negative start time", func(t *testing.T) {
		t.Parallel()
		e := entry
		e.StartTime = -1
		err := vesting.ValidateBeneficiaries([]vesting.BeneficiaryInput{e}, 1000, 9)
		require.ErrorIs(t, err, vesting.ErrInvalidAllocation)
	})

	t.Run("rejects far-future start time", func(t *testing.T) {
		t.Parallel()
		e := entry
		e.StartTime = math.MaxInt64
		err := vesting.ValidateBeneficiaries([]vesting.BeneficiaryInput{e}, 1000, 9)
		require.ErrorIs(t, err, vesting.ErrInvalidAllocation)
	})

	t.Run("rejects malformed identity", func(t *testing.T) {
		t.Parallel()
		for _, identity := range []string{
			"",
			"not-an-address",
			"0b87970433b22494faff1cc7a819e71bddc7880",    // 39 hex chars
			"0b87970433b22494faff1cc7a819e71bddc7880cc",  // 41 hex chars
			"zz87970433b22494faff1cc7a819e71bddc7880c",   // non-hex
			"0x87970433b22494faff1cc7a819e71bddc7880c00", // 0x-prefixed
		} {
			e := entry
			e.Identity = identity
			err := vesting.ValidateBeneficiaries([]vesting.BeneficiaryInput{e}, 1000, 9)
			require.ErrorIs(t, err, vesting.ErrInvalidAllocation, "identity %q", identity)
		}
	})

	t.Run("rejects wrapping allocation sum", func(t *testing.T) {
		t.Parallel()
		// Two near-max allocations wrap around uint64 to a small sum; the
		// wide-arithmetic check still rejects them.
		a := entry
		a.AllocatedTokens = math.MaxUint64
		b := entry
		b.Identity = beneficiary2
		b.AllocatedTokens = 3
		err := vesting.ValidateBeneficiaries([]vesting.BeneficiaryInput{a, b}, 2, 9)
		require.ErrorIs(t, err, vesting.ErrInvalidAllocation)
	})
}
