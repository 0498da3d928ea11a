package contract

import (
	"fmt"
	"strings"

	"domaintrust/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Lifecycle: Domain Record Operations ---

// RegisterDomain binds a name to the caller. The proof token must match the
// ownership challenge for (name, caller); the new record starts unverified
// with a zero reputation score.
func (s *TrustRegistrySmartContract) RegisterDomain(ctx contractapi.TransactionContextInterface,
	name, identityMetadata, proofToken string) error {

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("RegisterDomain: failed to get actor info: %w", err)
	}

	// The trimmed name is the canonical form: it is what the record stores,
	// what composite keys are built from, and what the proof challenge
	// covers.
	name = strings.TrimSpace(name)
	logger.Infof("Caller '%s' registering domain '%s'", actor.fullID, name)

	if err := s.validateRequiredString(name, "name", maxDomainNameLength); err != nil {
		return err
	}
	if err := s.validateRequiredString(identityMetadata, "identityMetadata", maxMetadataLength); err != nil {
		return err
	}
	if err := s.validateRequiredString(proofToken, "proofToken", maxMetadataLength); err != nil {
		return err
	}

	domainKey, err := s.createDomainCompositeKey(ctx, name)
	if err != nil {
		return fmt.Errorf("RegisterDomain: failed to create composite key for domain '%s': %w", name, err)
	}
	existing, err := ctx.GetStub().GetState(domainKey)
	if err != nil {
		return fmt.Errorf("RegisterDomain: failed to check for existing domain '%s': %w", name, err)
	}
	if existing != nil {
		return fmt.Errorf("domain '%s': %w", name, model.ErrAlreadyRegistered)
	}

	if !s.ownershipVerifier().Verify(name, proofToken, actor.fullID) {
		return fmt.Errorf("proof token for domain '%s' does not match the challenge for caller '%s': %w", name, actor.fullID, model.ErrVerificationFailed)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("RegisterDomain: failed to get transaction timestamp: %w", err)
	}

	record := model.DomainRecord{
		ObjectType:       domainObjectType,
		Name:             name,
		Owner:            actor.fullID,
		IdentityMetadata: identityMetadata,
		IdentityVerified: false,
		ReputationScore:  0,
		RegisteredAt:     now,
		LastUpdatedAt:    now,
	}
	if err := s.putDomainRecord(ctx, &record); err != nil {
		return fmt.Errorf("RegisterDomain: %w", err)
	}

	s.emitRegistryEvent(ctx, "DomainRegistered", map[string]interface{}{
		"name":         record.Name,
		"owner":        record.Owner,
		"actorMsp":     actor.mspID,
		"registeredAt": record.RegisteredAt,
	})
	logger.Infof("Domain '%s' registered successfully by '%s'", name, actor.fullID)
	return nil
}

// UpdateDomainInfo replaces the identity metadata of a domain owned by the
// caller. Any prior identity verification is invalidated by the change.
func (s *TrustRegistrySmartContract) UpdateDomainInfo(ctx contractapi.TransactionContextInterface,
	name, newMetadata string) error {

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("UpdateDomainInfo: failed to get actor info: %w", err)
	}

	if err := s.validateRequiredString(newMetadata, "newMetadata", maxMetadataLength); err != nil {
		return err
	}

	record, err := s.getDomainByName(ctx, name)
	if err != nil {
		return err
	}
	if err := requireOwner(record, actor, "UpdateDomainInfo"); err != nil {
		return err
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("UpdateDomainInfo: failed to get transaction timestamp: %w", err)
	}

	record.IdentityMetadata = newMetadata
	record.IdentityVerified = false // metadata changes invalidate prior identity proofs
	record.LastUpdatedAt = now
	if err := s.putDomainRecord(ctx, record); err != nil {
		return fmt.Errorf("UpdateDomainInfo: %w", err)
	}

	s.emitRegistryEvent(ctx, "DomainUpdated", map[string]interface{}{
		"name":      record.Name,
		"owner":     record.Owner,
		"updatedAt": record.LastUpdatedAt,
	})
	logger.Infof("Domain '%s' metadata updated by owner '%s'", name, actor.fullID)
	return nil
}

// TransferOwnership moves a domain from the caller to newOwner. Identity
// verification is owner-specific and does not survive the transfer;
// metadata, reputation and registration time are preserved.
func (s *TrustRegistrySmartContract) TransferOwnership(ctx contractapi.TransactionContextInterface,
	name, newOwner string) error {

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("TransferOwnership: failed to get actor info: %w", err)
	}

	if err := s.validateRequiredString(newOwner, "newOwner", maxIdentityLength); err != nil {
		return err
	}
	if !isValidIdentity(newOwner) {
		return fmt.Errorf("newOwner '%s' is not a valid identity: %w", newOwner, model.ErrInvalidData)
	}

	record, err := s.getDomainByName(ctx, name)
	if err != nil {
		return err
	}
	if err := requireOwner(record, actor, "TransferOwnership"); err != nil {
		return err
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("TransferOwnership: failed to get transaction timestamp: %w", err)
	}

	previousOwner := record.Owner
	record.Owner = newOwner
	record.IdentityVerified = false // verification does not survive a transfer
	record.LastUpdatedAt = now
	if err := s.putDomainRecord(ctx, record); err != nil {
		return fmt.Errorf("TransferOwnership: %w", err)
	}

	s.emitRegistryEvent(ctx, "DomainTransferred", map[string]interface{}{
		"name":          record.Name,
		"previousOwner": previousOwner,
		"newOwner":      newOwner,
		"transferredAt": record.LastUpdatedAt,
	})
	logger.Infof("Domain '%s' transferred from '%s' to '%s'", name, previousOwner, newOwner)
	return nil
}

// VerifyIdentity marks a domain's identity metadata as verified. Restricted
// to moderators and admins; nothing else on the record changes.
func (s *TrustRegistrySmartContract) VerifyIdentity(ctx contractapi.TransactionContextInterface, name string) error {
	im := NewIdentityManager(ctx)
	if err := im.RequireRole(model.RoleModerator); err != nil {
		return err
	}

	record, err := s.getDomainByName(ctx, name)
	if err != nil {
		return err
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("VerifyIdentity: failed to get transaction timestamp: %w", err)
	}

	record.IdentityVerified = true
	record.LastUpdatedAt = now
	if err := s.putDomainRecord(ctx, record); err != nil {
		return fmt.Errorf("VerifyIdentity: %w", err)
	}

	verifier := MustGetCallerFullID(ctx)
	s.emitRegistryEvent(ctx, "IdentityVerified", map[string]interface{}{
		"name":       record.Name,
		"owner":      record.Owner,
		"verifiedBy": verifier,
		"verifiedAt": record.LastUpdatedAt,
	})
	logger.Infof("Domain '%s' identity verified by '%s'", name, verifier)
	return nil
}
