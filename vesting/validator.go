package vesting

import (
	"fmt"
	"math/big"
)

// ValidateBeneficiaries is the pure admission predicate for Initialize. Every
// rejection is ErrInvalidAllocation; the wrapped text only says which check
// failed. No state is touched.
func ValidateBeneficiaries(beneficiaries []BeneficiaryInput, totalVestingAmount uint64, decimals uint8) error {
	if len(beneficiaries) == 0 {
		return fmt.Errorf("%w: no beneficiaries provided", ErrInvalidAllocation)
	}
	if len(beneficiaries) > maxBeneficiaries {
		return fmt.Errorf("%w: too many beneficiaries: %d > %d", ErrInvalidAllocation, len(beneficiaries), maxBeneficiaries)
	}
	if totalVestingAmount == 0 {
		return fmt.Errorf("%w: total vesting amount must be positive", ErrInvalidAllocation)
	}
	if decimals > maxDecimals {
		return fmt.Errorf("%w: decimals %d exceeds %d", ErrInvalidAllocation, decimals, maxDecimals)
	}

	seen := make(map[string]struct{}, len(beneficiaries))
	totalAllocated := big.NewInt(0)

	for _, b := range beneficiaries {
		if !IsUserAddressValid(b.Identity) {
			return fmt.Errorf("%w: invalid beneficiary identity %s", ErrInvalidAllocation, b.Identity)
		}
		if _, ok := seen[b.Identity]; ok {
			return fmt.Errorf("%w: duplicate beneficiary %s", ErrInvalidAllocation, b.Identity)
		}
		seen[b.Identity] = struct{}{}

		if b.AllocatedTokens == 0 {
			return fmt.Errorf("%w: zero allocation for beneficiary %s", ErrInvalidAllocation, b.Identity)
		}
		if b.TotalMonths == 0 {
			return fmt.Errorf("%w: zero vesting duration for beneficiary %s", ErrInvalidAllocation, b.Identity)
		}
		if b.TotalMonths > maxVestingMonths {
			return fmt.Errorf("%w: duration %d months exceeds %d for beneficiary %s",
				ErrInvalidAllocation, b.TotalMonths, uint64(maxVestingMonths), b.Identity)
		}
		if b.StartTime < 0 || b.StartTime > maxStartTime {
			return fmt.Errorf("%w: start time %d out of range for beneficiary %s",
				ErrInvalidAllocation, b.StartTime, b.Identity)
		}
		// Strict inequality: cliffMonths == totalMonths would leave a
		// zero-width vesting window and an undefined vesting fraction.
		if b.CliffMonths >= b.TotalMonths {
			return fmt.Errorf("%w: cliff %d months must be below duration %d months for beneficiary %s",
				ErrInvalidAllocation, b.CliffMonths, b.TotalMonths, b.Identity)
		}

		totalAllocated.Add(totalAllocated, new(big.Int).SetUint64(b.AllocatedTokens))
	}

	// Exact match, checked in wide arithmetic so the sum itself cannot
	// wrap around on adversarial allocations.
	if totalAllocated.Cmp(new(big.Int).SetUint64(totalVestingAmount)) != 0 {
		return fmt.Errorf("%w: allocations sum to %s, expected %d", ErrInvalidAllocation, totalAllocated.String(), totalVestingAmount)
	}

	return nil
}
