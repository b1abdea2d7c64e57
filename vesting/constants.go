package vesting

const (
	// secondsPerMonth is the mean calendar month length in seconds
	// (365.2425 days / 12). All month arithmetic in the contract is
	// floor division over this constant.
	secondsPerMonth = 2_629_776

	// graceMonths is the window after full vesting during which only the
	// beneficiary may still claim the remainder. Once it elapses the admin
	// may sweep the entry through Withdraw.
	graceMonths = 3

	maxBeneficiaries = 50
	maxDecimals      = 9

	// maxVestingMonths bounds totalMonths (100 years) so that
	// (totalMonths+graceMonths)*secondsPerMonth stays far inside int64 for
	// every schedule the validator admits.
	maxVestingMonths = 1200

	// maxStartTime is 9999-12-31T23:59:59Z. Together with maxVestingMonths
	// it keeps startTime + (totalMonths+graceMonths)*secondsPerMonth
	// representable.
	maxStartTime = 253_402_300_799

	scheduleKey     = "vesting_schedule"
	tokenAddressKey = "token_address"

	hexAddressRegex   = `^[0-9a-fA-F]{40}$`
	tokenAddressRegex = `^[a-zA-Z][a-zA-Z0-9_-]*$`

	vestingInitializedEvent = "VestingInitialized"
	tokensClaimedEvent      = "TokensClaimed"
	unclaimedWithdrawnEvent = "UnclaimedWithdrawn"
	tokenAddressSetEvent    = "TokenAddressSet"
)
