package vesting

import (
	"fmt"
	"math/big"
)

// CalculateVestedAmount returns how much of the allocation has unlocked after
// claimableMonths of the post-cliff window have passed. The multiply runs in
// big.Int so allocation * months cannot wrap before the divide, and a fully
// elapsed window returns the allocation exactly, leaving no floor-division
// residue.
func CalculateVestedAmount(allocatedTokens, claimableMonths, window uint64) uint64 {
	if claimableMonths >= window {
		return allocatedTokens
	}

	vested := new(big.Int).Mul(
		new(big.Int).SetUint64(allocatedTokens),
		new(big.Int).SetUint64(claimableMonths),
	)
	vested.Div(vested, new(big.Int).SetUint64(window))

	return vested.Uint64()
}

// CalculateClaimable computes what the beneficiary may withdraw at now:
// vested-so-far minus already-claimed. Before the cliff, and when nothing new
// has vested since the last claim, it fails with ErrClaimNotAllowed.
func CalculateClaimable(b *Beneficiary, now int64) (uint64, error) {
	elapsed := now - b.StartTime - int64(b.CliffMonths)*secondsPerMonth
	if elapsed < 0 {
		return 0, fmt.Errorf("%w: cliff not reached for beneficiary %s", ErrClaimNotAllowed, b.Identity)
	}

	passedMonths := uint64(elapsed / secondsPerMonth)
	window := b.TotalMonths - b.CliffMonths

	claimableMonths := passedMonths
	if claimableMonths > window {
		claimableMonths = window
	}

	vested := CalculateVestedAmount(b.AllocatedTokens, claimableMonths, window)
	if vested <= b.ClaimedTokens {
		return 0, fmt.Errorf("%w: nothing newly vested for beneficiary %s", ErrClaimNotAllowed, b.Identity)
	}

	return vested - b.ClaimedTokens, nil
}
