package vesting

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// GetUserID extracts the caller's account address from the enrollment
// certificate's CN field.
func GetUserID(ctx contractapi.TransactionContextInterface) (string, error) {
	b64ID, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to read clientID: %v", err)
	}

	decodeID, err := base64.StdEncoding.DecodeString(b64ID)
	if err != nil {
		return "", fmt.Errorf("failed to base64 decode clientID: %v", err)
	}

	completeID := string(decodeID)
	cnIndex := strings.Index(completeID, "x509::CN=")
	commaIndex := strings.Index(completeID, ",")
	if cnIndex < 0 || commaIndex < 0 {
		return "", fmt.Errorf("%w: unexpected identity format %s", ErrInvalidUserAddress, completeID)
	}

	userID := completeID[cnIndex+9 : commaIndex]
	if !IsUserAddressValid(userID) {
		return "", fmt.Errorf("%w: %s", ErrInvalidUserAddress, userID)
	}

	return userID, nil
}

func IsUserAddressValid(address string) bool {
	if address == "" {
		return false
	}

	isValid, _ := regexp.MatchString(hexAddressRegex, address)
	return isValid
}

func IsTokenAddressValid(address string) bool {
	if address == "" {
		return false
	}

	isValid, _ := regexp.MatchString(tokenAddressRegex, address)
	return isValid
}

// txTime returns the transaction's committed timestamp in unix seconds. The
// contract never reads a wall clock; this value is fixed by the transaction
// proposal, so every endorser computes over the same "now".
func txTime(ctx contractapi.TransactionContextInterface) (int64, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction timestamp: %v", err)
	}

	return ts.GetSeconds(), nil
}
