package vesting

// IsExpired reports whether the entry's vesting window plus the grace period
// has fully elapsed, i.e. the admin may sweep whatever is left unclaimed.
func IsExpired(b *Beneficiary, now int64) bool {
	expiry := b.StartTime + int64(b.TotalMonths+graceMonths)*secondsPerMonth
	return now >= expiry
}

// CalculateReclaimable sums the unclaimed remainder of every expired entry and
// returns the identities that contributed. Entries already fully claimed (or
// already swept) contribute nothing, which is what makes Withdraw idempotent.
func CalculateReclaimable(s *Schedule, now int64) (uint64, []string) {
	var total uint64
	var expired []string

	for i := range s.Beneficiaries {
		b := &s.Beneficiaries[i]
		if !IsExpired(b, now) {
			continue
		}
		unclaimed := b.AllocatedTokens - b.ClaimedTokens
		if unclaimed == 0 {
			continue
		}
		total += unclaimed
		expired = append(expired, b.Identity)
	}

	return total, expired
}
