package vesting

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Beneficiary is one entry of the vesting table. Only ClaimedTokens mutates
// after Initialize, and it never decreases.
type Beneficiary struct {
	Identity        string `json:"identity"`
	AllocatedTokens uint64 `json:"allocatedTokens"`
	ClaimedTokens   uint64 `json:"claimedTokens"`
	StartTime       int64  `json:"startTime"`
	CliffMonths     uint64 `json:"cliffMonths"`
	TotalMonths     uint64 `json:"totalMonths"`
}

// BeneficiaryInput is the caller-supplied shape accepted by Initialize.
// ClaimedTokens always starts at zero and is therefore not an input.
type BeneficiaryInput struct {
	Identity        string `json:"identity"`
	AllocatedTokens uint64 `json:"allocatedTokens"`
	StartTime       int64  `json:"startTime"`
	CliffMonths     uint64 `json:"cliffMonths"`
	TotalMonths     uint64 `json:"totalMonths"`
}

// Schedule is the single persistent record owned by the contract: the admin
// identity, the token it vests and the full beneficiary table.
type Schedule struct {
	Admin              string        `json:"admin"`
	Mint               string        `json:"mint"`
	Decimals           uint8         `json:"decimals"`
	TotalVestingAmount uint64        `json:"totalVestingAmount"`
	Beneficiaries      []Beneficiary `json:"beneficiaries"`
}

// FindBeneficiary scans the table for the given identity. At most 50 entries
// a linear scan keeps the record self-contained, no auxiliary index to keep
// consistent.
func (s *Schedule) FindBeneficiary(identity string) (*Beneficiary, error) {
	for i := range s.Beneficiaries {
		if s.Beneficiaries[i].Identity == identity {
			return &s.Beneficiaries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBeneficiaryNotFound, identity)
}

// RecordClaim adds amount to the entry's claimed total. Exceeding the
// allocation is an internal invariant violation: claim amounts are computed
// from the same entry under the same transaction.
func (s *Schedule) RecordClaim(identity string, amount uint64) error {
	b, err := s.FindBeneficiary(identity)
	if err != nil {
		return err
	}
	if amount > b.AllocatedTokens-b.ClaimedTokens {
		return fmt.Errorf("%w: beneficiary %s, amount %d, remaining %d",
			ErrClaimExceedsAllocation, identity, amount, b.AllocatedTokens-b.ClaimedTokens)
	}
	b.ClaimedTokens += amount
	return nil
}

// FinalizeExpired snaps the entry's claimed total to its allocation so a
// swept entry can never be claimed or swept again.
func (s *Schedule) FinalizeExpired(identity string) error {
	b, err := s.FindBeneficiary(identity)
	if err != nil {
		return err
	}
	b.ClaimedTokens = b.AllocatedTokens
	return nil
}

func GetSchedule(ctx contractapi.TransactionContextInterface) (*Schedule, error) {
	scheduleAsBytes, err := ctx.GetStub().GetState(scheduleKey)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get schedule with key %s", scheduleKey), err)
	}
	if scheduleAsBytes == nil {
		return nil, nil
	}

	var schedule Schedule
	err = json.Unmarshal(scheduleAsBytes, &schedule)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to unmarshal schedule", err)
	}

	return &schedule, nil
}

func SetSchedule(ctx contractapi.TransactionContextInterface, schedule *Schedule) error {
	scheduleAsBytes, err := json.Marshal(schedule)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to marshal schedule", err)
	}

	err = ctx.GetStub().PutState(scheduleKey, scheduleAsBytes)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set schedule", err)
	}

	return nil
}

// CreateSchedule persists a brand new schedule. The contract owns exactly one
// schedule for its lifetime; a second call is rejected before any mutation.
func CreateSchedule(ctx contractapi.TransactionContextInterface, schedule *Schedule) error {
	existing, err := ctx.GetStub().GetState(scheduleKey)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get schedule with key %s", scheduleKey), err)
	}
	if existing != nil {
		return fmt.Errorf("%w: schedule already exists", ErrAlreadyInitialized)
	}

	return SetSchedule(ctx, schedule)
}

func GetTokenAddress(ctx contractapi.TransactionContextInterface) (string, error) {
	tokenAddressBytes, err := ctx.GetStub().GetState(tokenAddressKey)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get token address with key %s", tokenAddressKey), err)
	}

	return string(tokenAddressBytes), nil
}
