package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"domaintrust/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Core Helper Methods (used across multiple operations) ---

// getCurrentTxTimestamp retrieves the current transaction timestamp from the stub.
func (s *TrustRegistrySmartContract) getCurrentTxTimestamp(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

// getCurrentActorInfo resolves the transaction invoker's identity details.
func (s *TrustRegistrySmartContract) getCurrentActorInfo(ctx contractapi.TransactionContextInterface) (*actorInfo, error) {
	im := NewIdentityManager(ctx)
	fullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return nil, fmt.Errorf("failed to get current actor's FullID: %w", err)
	}
	mspID, err := ctx.GetClientIdentity().GetMSPID()
	if err != nil {
		return nil, fmt.Errorf("failed to get current actor's MSPID: %w", err)
	}
	return &actorInfo{fullID: fullID, mspID: mspID}, nil
}

// --- Composite Key Helpers ---

// createDomainCompositeKey creates a composite key for a domain record.
func (s *TrustRegistrySmartContract) createDomainCompositeKey(ctx contractapi.TransactionContextInterface, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("domain name cannot be empty")
	}
	return ctx.GetStub().CreateCompositeKey(domainObjectType, []string{name})
}

// createReviewCompositeKey creates a composite key for a (name, reviewer) review.
func (s *TrustRegistrySmartContract) createReviewCompositeKey(ctx contractapi.TransactionContextInterface, name, reviewer string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(reviewObjectType, []string{strings.TrimSpace(name), reviewer})
}

// createReportCompositeKey creates a composite key for a (name, reporter) report.
func (s *TrustRegistrySmartContract) createReportCompositeKey(ctx contractapi.TransactionContextInterface, name, reporter string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(reportObjectType, []string{strings.TrimSpace(name), reporter})
}

// --- Validation Helper Functions ---

func (s *TrustRegistrySmartContract) validateRequiredString(input, field string, max int) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%s cannot be empty: %w", field, model.ErrInvalidData)
	}
	if len(input) > max {
		return fmt.Errorf("%s exceeds max length %d: %w", field, max, model.ErrInvalidData)
	}
	return nil
}

func (s *TrustRegistrySmartContract) validateOptionalString(input, field string, max int) error {
	if input != "" && len(input) > max {
		return fmt.Errorf("%s exceeds max length %d: %w", field, max, model.ErrInvalidData)
	}
	return nil
}

// requireOwner fails with Unauthorized unless actor owns the record.
func requireOwner(record *model.DomainRecord, actor *actorInfo, operation string) error {
	if record.Owner != actor.fullID {
		return fmt.Errorf("%s: caller '%s' is not the owner of domain '%s': %w", operation, actor.fullID, record.Name, model.ErrUnauthorized)
	}
	return nil
}

// putDomainRecord marshals and saves a domain record under its composite key.
func (s *TrustRegistrySmartContract) putDomainRecord(ctx contractapi.TransactionContextInterface, record *model.DomainRecord) error {
	domainKey, err := s.createDomainCompositeKey(ctx, record.Name)
	if err != nil {
		return fmt.Errorf("failed to create composite key for domain '%s': %w", record.Name, err)
	}
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal domain record '%s': %w", record.Name, err)
	}
	if err := ctx.GetStub().PutState(domainKey, recordBytes); err != nil {
		return fmt.Errorf("failed to save domain record '%s' to ledger: %w", record.Name, err)
	}
	return nil
}

// emitRegistryEvent sends a chaincode event. Emission failure is logged and
// never fails the transaction.
func (s *TrustRegistrySmartContract) emitRegistryEvent(ctx contractapi.TransactionContextInterface, eventName string, payload map[string]interface{}) {
	for k, v := range payload {
		if t, ok := v.(time.Time); ok {
			payload[k] = formatEventTime(t)
		}
	}
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		logger.Warningf("emitRegistryEvent: failed to marshal payload for event '%s': %v", eventName, err)
		return
	}
	if errSet := ctx.GetStub().SetEvent(eventName, eventBytes); errSet != nil {
		logger.Warningf("emitRegistryEvent: failed to set event '%s': %v", eventName, errSet)
	}
}
