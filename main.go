package main

import (
	"domaintrust/contract"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

func main() {
	cc, err := contractapi.NewChaincode(contract.NewTrustRegistrySmartContract())
	if err != nil {
		panic("Error creating TrustRegistrySmartContract: " + err.Error())
	}
	if err := cc.Start(); err != nil {
		panic("Error starting chaincode: " + err.Error())
	}
}
