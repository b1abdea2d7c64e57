package vesting

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

type VestingInitializedEvent struct {
	Admin              string `json:"admin"`
	Mint               string `json:"mint"`
	TotalVestingAmount uint64 `json:"totalVestingAmount"`
	BeneficiariesCount int    `json:"beneficiariesCount"`
}

type TokensClaimedEvent struct {
	Beneficiary string `json:"beneficiary"`
	Amount      uint64 `json:"amount"`
	Timestamp   int64  `json:"timestamp"`
}

type UnclaimedWithdrawnEvent struct {
	Admin                  string `json:"admin"`
	TotalAmount            uint64 `json:"totalAmount"`
	BeneficiariesProcessed int    `json:"beneficiariesProcessed"`
	Timestamp              int64  `json:"timestamp"`
}

type TokenAddressSetEvent struct {
	TokenAddress string `json:"tokenAddress"`
}

func EmitVestingInitialized(ctx contractapi.TransactionContextInterface, schedule *Schedule) error {
	event := VestingInitializedEvent{
		Admin:              schedule.Admin,
		Mint:               schedule.Mint,
		TotalVestingAmount: schedule.TotalVestingAmount,
		BeneficiariesCount: len(schedule.Beneficiaries),
	}

	return setEvent(ctx, vestingInitializedEvent, event)
}

func EmitTokensClaimed(ctx contractapi.TransactionContextInterface, beneficiary string, amount uint64, now int64) error {
	event := TokensClaimedEvent{
		Beneficiary: beneficiary,
		Amount:      amount,
		Timestamp:   now,
	}

	return setEvent(ctx, tokensClaimedEvent, event)
}

func EmitUnclaimedWithdrawn(ctx contractapi.TransactionContextInterface, admin string, total uint64, processed int, now int64) error {
	event := UnclaimedWithdrawnEvent{
		Admin:                  admin,
		TotalAmount:            total,
		BeneficiariesProcessed: processed,
		Timestamp:              now,
	}

	return setEvent(ctx, unclaimedWithdrawnEvent, event)
}

func EmitTokenAddressSet(ctx contractapi.TransactionContextInterface, tokenAddress string) error {
	return setEvent(ctx, tokenAddressSetEvent, TokenAddressSetEvent{TokenAddress: tokenAddress})
}

func setEvent(ctx contractapi.TransactionContextInterface, name string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to obtain JSON encoding: %v", err)
	}

	err = ctx.GetStub().SetEvent(name, payloadJSON)
	if err != nil {
		return fmt.Errorf("failed to set event %s: %v", name, err)
	}

	return nil
}
