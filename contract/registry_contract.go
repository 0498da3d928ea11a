package contract

import (
	"fmt"
	"strings"
	"time"

	"domaintrust/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("domaintrust.registry")

// domainObjectType is used for composite keys and as a 'docType' for CouchDB queries.
const domainObjectType = "DomainRecord"

// Constants for input validation and limits
const (
	maxDomainNameLength = 253 // DNS name length cap
	maxMetadataLength   = 512
	maxCommentLength    = 256
	maxDetailsLength    = 256
	minRating           = -5
	maxRating           = 5
	maxReasonCode       = 9999
)

// TrustRegistrySmartContract provides functions for managing the domain
// trust registry: domain records, reviews, reports and role assignments.
// @contract:TrustRegistrySmartContract
type TrustRegistrySmartContract struct {
	contractapi.Contract

	// verifier decides ownership proofs. Left nil it falls back to the
	// hash-challenge verifier; a deployment backed by a real attestation
	// oracle swaps it out here without touching the registry logic.
	verifier OwnershipVerifier
}

// NewTrustRegistrySmartContract returns a contract wired with the default
// hash-challenge ownership verifier.
func NewTrustRegistrySmartContract() *TrustRegistrySmartContract {
	return &TrustRegistrySmartContract{verifier: ChallengeVerifier{}}
}

func (s *TrustRegistrySmartContract) ownershipVerifier() OwnershipVerifier {
	if s.verifier != nil {
		return s.verifier
	}
	return ChallengeVerifier{}
}

// actorInfo holds commonly needed details about the transaction invoker.
type actorInfo struct {
	fullID string
	mspID  string
}

// Instantiate is called during chaincode instantiation.
func (s *TrustRegistrySmartContract) Instantiate(ctx contractapi.TransactionContextInterface) {
	logger.Info("TrustRegistrySmartContract Instantiated/Upgraded")
}

// --- Identity & Role Management Wrappers (Delegating to IdentityManager) ---

// BootstrapRegistry makes the caller the first admin. It is rejected once
// any admin exists; normal role administration goes through AssignRole.
func (s *TrustRegistrySmartContract) BootstrapRegistry(ctx contractapi.TransactionContextInterface) error {
	logger.Info("Chaincode Call: BootstrapRegistry")
	assignment, err := NewIdentityManager(ctx).BootstrapRegistry()
	if err != nil {
		return err
	}
	s.emitRegistryEvent(ctx, "RegistryBootstrapped", map[string]interface{}{
		"identity":   assignment.Identity,
		"role":       assignment.Role,
		"assignedAt": assignment.AssignedAt,
	})
	return nil
}

// AssignRole grants (or, with role "none", clears) the target identity's
// role. Admin only; the target must be a valid identity other than the caller.
func (s *TrustRegistrySmartContract) AssignRole(ctx contractapi.TransactionContextInterface, targetIdentity, role string) error {
	logger.Infof("Chaincode Call: AssignRole '%s' to '%s'", role, targetIdentity)
	im := NewIdentityManager(ctx)
	assignedBy, err := im.AssignRole(targetIdentity, role)
	if err != nil {
		return err
	}
	s.emitRegistryEvent(ctx, "RoleAssigned", map[string]interface{}{
		"identity":   targetIdentity,
		"role":       role,
		"assignedBy": assignedBy,
	})
	return nil
}

// GetUserRole returns the role assigned to an identity, or "none" when no
// assignment exists. Identities that cannot hold an assignment (blank or
// oversized) also map to "none"; the lookup never fails on input alone.
func (s *TrustRegistrySmartContract) GetUserRole(ctx contractapi.TransactionContextInterface, identity string) (string, error) {
	logger.Debugf("Chaincode Call: GetUserRole for '%s'", identity)
	identity = strings.TrimSpace(identity)
	if identity == "" || len(identity) > maxIdentityLength {
		return model.RoleNone.String(), nil
	}
	role, err := NewIdentityManager(ctx).GetRole(identity)
	if err != nil {
		return "", fmt.Errorf("GetUserRole: failed to look up role for '%s': %w", identity, err)
	}
	return role.String(), nil
}

// GetAllRoleAssignments lists every stored role assignment. Admin only.
func (s *TrustRegistrySmartContract) GetAllRoleAssignments(ctx contractapi.TransactionContextInterface) ([]model.RoleAssignment, error) {
	logger.Debug("Chaincode Call: GetAllRoleAssignments")
	return NewIdentityManager(ctx).GetAllRoleAssignments()
}

// formatEventTime keeps event payload timestamps uniform.
func formatEventTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
