package vesting

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// EscrowGateway is the contract's only view of token custody. The token
// chaincode owns the balances; this contract only instructs it to move value
// and relies on the surrounding transaction to commit both sides atomically.
type EscrowGateway interface {
	BalanceOf(ctx contractapi.TransactionContextInterface, account string) (uint64, error)
	Transfer(ctx contractapi.TransactionContextInterface, from, to string, amount uint64) error
}

// tokenGateway talks to the token chaincode registered through
// SetTokenAddress, on the contract's own channel.
type tokenGateway struct {
	tokenAddress string
}

func NewTokenGateway(tokenAddress string) EscrowGateway {
	return &tokenGateway{tokenAddress: tokenAddress}
}

func (g *tokenGateway) BalanceOf(ctx contractapi.TransactionContextInterface, account string) (uint64, error) {
	args := [][]byte{[]byte("BalanceOf"), []byte(account)}

	response := ctx.GetStub().InvokeChaincode(g.tokenAddress, args, ctx.GetStub().GetChannelID())
	if response.Status != shim.OK {
		return 0, fmt.Errorf("failed to query balance of %s on token %s: %s", account, g.tokenAddress, response.Message)
	}

	balance, err := strconv.ParseUint(string(response.Payload), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid balance payload from token %s: %v", g.tokenAddress, err)
	}

	return balance, nil
}

func (g *tokenGateway) Transfer(ctx contractapi.TransactionContextInterface, from, to string, amount uint64) error {
	args := [][]byte{
		[]byte("Transfer"),
		[]byte(from),
		[]byte(to),
		[]byte(strconv.FormatUint(amount, 10)),
	}

	response := ctx.GetStub().InvokeChaincode(g.tokenAddress, args, ctx.GetStub().GetChannelID())
	if response.Status != shim.OK {
		return fmt.Errorf("failed to transfer %d from %s to %s on token %s: %s", amount, from, to, g.tokenAddress, response.Message)
	}

	return nil
}

// EscrowAddress derives the custody account for a mint. The derivation only
// needs to be stable and collision-free per mint; the token chaincode treats
// it as an ordinary account controlled by this contract.
func EscrowAddress(mint string) string {
	sum := sha256.Sum256([]byte("escrow_" + mint))
	return hex.EncodeToString(sum[:20])
}
