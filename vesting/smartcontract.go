package vesting

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// SmartContract vests a fixed pool of tokens to up to 50 beneficiaries on a
// monthly-linear-after-cliff schedule. The caller that initializes the
// schedule becomes its admin; tokens sit in an escrow account on the token
// chaincode until claimed or, once expired, withdrawn by the admin.
type SmartContract struct {
	contractapi.Contract
}

// SetTokenAddress registers the token chaincode the schedule will vest. It
// can be set exactly once and must happen before Initialize, because
// Initialize already moves funds through it.
func (s *SmartContract) SetTokenAddress(ctx contractapi.TransactionContextInterface, tokenAddress string) error {
	_, err := GetUserID(ctx)
	if err != nil {
		return NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}

	if !IsTokenAddressValid(tokenAddress) {
		return ErrInvalidTokenAddress(tokenAddress)
	}

	existingAddress, err := GetTokenAddress(ctx)
	if err != nil {
		return err
	}
	if existingAddress != "" {
		return fmt.Errorf("%w: token address is already set", ErrTokenAlreadySet)
	}

	err = ctx.GetStub().PutState(tokenAddressKey, []byte(tokenAddress))
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set token address", err)
	}

	return EmitTokenAddressSet(ctx, tokenAddress)
}

// Initialize validates and commits the beneficiary table, then pulls the
// whole vesting amount from the caller's token account into escrow. The
// caller becomes the schedule admin. All checks run before any state change.
func (s *SmartContract) Initialize(ctx contractapi.TransactionContextInterface, beneficiaries []BeneficiaryInput, totalVestingAmount uint64, decimals uint8) error {
	signer, err := GetUserID(ctx)
	if err != nil {
		return NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}

	existing, err := GetSchedule(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: schedule already exists", ErrAlreadyInitialized)
	}

	if err := ValidateBeneficiaries(beneficiaries, totalVestingAmount, decimals); err != nil {
		return err
	}

	tokenAddress, err := GetTokenAddress(ctx)
	if err != nil {
		return err
	}
	if tokenAddress == "" {
		return fmt.Errorf("%w: token address must be set before Initialize", ErrTokenNotSet)
	}

	gateway := NewTokenGateway(tokenAddress)

	balance, err := gateway.BalanceOf(ctx, signer)
	if err != nil {
		return err
	}
	if balance < totalVestingAmount {
		return fmt.Errorf("%w: funding account holds %d, needs %d", ErrInvalidAllocation, balance, totalVestingAmount)
	}

	schedule := &Schedule{
		Admin:              signer,
		Mint:               tokenAddress,
		Decimals:           decimals,
		TotalVestingAmount: totalVestingAmount,
		Beneficiaries:      make([]Beneficiary, len(beneficiaries)),
	}
	for i, b := range beneficiaries {
		schedule.Beneficiaries[i] = Beneficiary{
			Identity:        b.Identity,
			AllocatedTokens: b.AllocatedTokens,
			ClaimedTokens:   0,
			StartTime:       b.StartTime,
			CliffMonths:     b.CliffMonths,
			TotalMonths:     b.TotalMonths,
		}
	}

	if err := CreateSchedule(ctx, schedule); err != nil {
		return err
	}

	if err := gateway.Transfer(ctx, signer, EscrowAddress(schedule.Mint), totalVestingAmount); err != nil {
		return err
	}

	return EmitVestingInitialized(ctx, schedule)
}

// Claim pays the caller everything that has vested since their last claim.
// The amount is computed, never supplied. Lookup failure wins over any
// time-based failure: an unknown identity is rejected before the transaction
// timestamp is even read.
func (s *SmartContract) Claim(ctx contractapi.TransactionContextInterface) error {
	signer, err := GetUserID(ctx)
	if err != nil {
		return NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}

	schedule, err := GetSchedule(ctx)
	if err != nil {
		return err
	}
	if schedule == nil {
		return fmt.Errorf("%w: schedule is not initialized", ErrBeneficiaryNotFound)
	}

	beneficiary, err := schedule.FindBeneficiary(signer)
	if err != nil {
		return err
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	claimable, err := CalculateClaimable(beneficiary, now)
	if err != nil {
		return err
	}

	gateway := NewTokenGateway(schedule.Mint)
	escrow := EscrowAddress(schedule.Mint)

	escrowBalance, err := gateway.BalanceOf(ctx, escrow)
	if err != nil {
		return err
	}
	if escrowBalance < claimable {
		return fmt.Errorf("%w: escrow holds %d, claim needs %d", ErrInsufficientEscrowBalance, escrowBalance, claimable)
	}

	if err := gateway.Transfer(ctx, escrow, signer, claimable); err != nil {
		return err
	}

	if err := schedule.RecordClaim(signer, claimable); err != nil {
		return err
	}

	if err := SetSchedule(ctx, schedule); err != nil {
		return err
	}

	return EmitTokensClaimed(ctx, signer, claimable, now)
}

// Withdraw lets the admin reclaim every allocation whose vesting window plus
// grace period has fully elapsed unclaimed. Contributing entries are
// finalized so a repeat call with no newly expired entries fails with
// NoUnclaimedTokens instead of paying twice.
func (s *SmartContract) Withdraw(ctx contractapi.TransactionContextInterface) error {
	signer, err := GetUserID(ctx)
	if err != nil {
		return NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}

	schedule, err := GetSchedule(ctx)
	if err != nil {
		return err
	}
	if schedule == nil {
		return NewCustomError(http.StatusNotFound, "schedule is not initialized", nil)
	}

	if signer != schedule.Admin {
		return fmt.Errorf("%w: only admin can withdraw unclaimed tokens", ErrUnauthorizedAdmin)
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	total, expired := CalculateReclaimable(schedule, now)
	if total == 0 {
		return fmt.Errorf("%w: no expired unclaimed allocations", ErrNoUnclaimedTokens)
	}

	gateway := NewTokenGateway(schedule.Mint)
	escrow := EscrowAddress(schedule.Mint)

	escrowBalance, err := gateway.BalanceOf(ctx, escrow)
	if err != nil {
		return err
	}
	if escrowBalance < total {
		return fmt.Errorf("%w: escrow holds %d, withdraw needs %d", ErrInsufficientEscrowBalance, escrowBalance, total)
	}

	if err := gateway.Transfer(ctx, escrow, schedule.Admin, total); err != nil {
		return err
	}

	for _, identity := range expired {
		if err := schedule.FinalizeExpired(identity); err != nil {
			return err
		}
	}

	if err := SetSchedule(ctx, schedule); err != nil {
		return err
	}

	return EmitUnclaimedWithdrawn(ctx, schedule.Admin, total, len(expired), now)
}

// GetVestingData returns the full schedule.
func (s *SmartContract) GetVestingData(ctx contractapi.TransactionContextInterface) (*Schedule, error) {
	schedule, err := GetSchedule(ctx)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, NewCustomError(http.StatusNotFound, "schedule is not initialized", nil)
	}

	return schedule, nil
}

// CalculateClaimAmount reports what the given beneficiary could claim right
// now, without moving anything. Nothing claimable is 0, not an error.
func (s *SmartContract) CalculateClaimAmount(ctx contractapi.TransactionContextInterface, beneficiaryAddress string) (uint64, error) {
	schedule, err := GetSchedule(ctx)
	if err != nil {
		return 0, err
	}
	if schedule == nil {
		return 0, fmt.Errorf("%w: schedule is not initialized", ErrBeneficiaryNotFound)
	}

	beneficiary, err := schedule.FindBeneficiary(beneficiaryAddress)
	if err != nil {
		return 0, err
	}

	now, err := txTime(ctx)
	if err != nil {
		return 0, err
	}

	claimable, err := CalculateClaimable(beneficiary, now)
	if errors.Is(err, ErrClaimNotAllowed) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return claimable, nil
}

// GetWithdrawableAmount reports what a Withdraw by the admin would reclaim
// right now.
func (s *SmartContract) GetWithdrawableAmount(ctx contractapi.TransactionContextInterface) (uint64, error) {
	schedule, err := GetSchedule(ctx)
	if err != nil {
		return 0, err
	}
	if schedule == nil {
		return 0, NewCustomError(http.StatusNotFound, "schedule is not initialized", nil)
	}

	now, err := txTime(ctx)
	if err != nil {
		return 0, err
	}

	total, _ := CalculateReclaimable(schedule, now)

	return total, nil
}
