/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"log"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/Kidkender/token-vesting-contract/vesting"
)

func main() {
	vestingChaincode, err := contractapi.NewChaincode(&vesting.SmartContract{})
	if err != nil {
		log.Panicf("Error creating vesting chaincode: %v", err)
	}

	if err := vestingChaincode.Start(); err != nil {
		log.Panicf("Error starting vesting chaincode: %v", err)
	}
}
