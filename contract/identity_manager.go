package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"domaintrust/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var idLogger = flogging.MustGetLogger("domaintrust.identitymanager")

// roleObjectType is the composite key object type for role assignments,
// also usable as 'docType' or 'objectType' in CouchDB.
const roleObjectType = "RoleAssignment"

const maxIdentityLength = 512

// IdentityManager handles role assignments and admin bootstrap. At most one
// role is stored per identity; absence of a record means RoleNone.
type IdentityManager struct {
	Ctx contractapi.TransactionContextInterface
}

// NewIdentityManager creates a new instance of IdentityManager.
func NewIdentityManager(ctx contractapi.TransactionContextInterface) *IdentityManager {
	return &IdentityManager{Ctx: ctx}
}

// --- Internal Helper Functions ---

func (im *IdentityManager) getCurrentTxTimestamp() (time.Time, error) {
	ts, err := im.Ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

func isValidIdentity(id string) bool {
	// Basic check, can be enhanced if specific X.509 formats are enforced.
	return strings.HasPrefix(id, "x509::") || strings.HasPrefix(id, "eDUwOTo6") // "eDUwOTo6" is "x509::" base64 encoded
}

func (im *IdentityManager) createRoleCompositeKey(identity string) (string, error) {
	return im.Ctx.GetStub().CreateCompositeKey(roleObjectType, []string{identity})
}

// --- Public Role Management Functions ---

// GetRole returns the role assigned to an identity. A missing assignment is
// RoleNone, never an error.
func (im *IdentityManager) GetRole(identity string) (model.Role, error) {
	assignment, err := im.getRoleAssignment(identity)
	if err != nil {
		return model.RoleNone, err
	}
	if assignment == nil {
		return model.RoleNone, nil
	}
	role, err := model.ParseRole(assignment.Role)
	if err != nil {
		return model.RoleNone, fmt.Errorf("stored role for '%s' is unreadable: %w", identity, err)
	}
	return role, nil
}

func (im *IdentityManager) getRoleAssignment(identity string) (*model.RoleAssignment, error) {
	trimmed := strings.TrimSpace(identity)
	if trimmed == "" {
		return nil, fmt.Errorf("identity cannot be empty: %w", model.ErrInvalidData)
	}
	roleKey, err := im.createRoleCompositeKey(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to create role composite key for '%s': %w", trimmed, err)
	}
	assignmentBytes, err := im.Ctx.GetStub().GetState(roleKey)
	if err != nil {
		return nil, fmt.Errorf("ledger error retrieving role assignment for '%s': %w", trimmed, err)
	}
	if assignmentBytes == nil {
		return nil, nil
	}
	var assignment model.RoleAssignment
	if err := json.Unmarshal(assignmentBytes, &assignment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal RoleAssignment for '%s': %w", trimmed, err)
	}
	return &assignment, nil
}

// AssignRole stores the target's role, overwriting any prior assignment.
// Assigning "none" clears the assignment. Returns the caller's identity for
// event payloads.
func (im *IdentityManager) AssignRole(targetIdentity, roleName string) (string, error) {
	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return "", fmt.Errorf("failed to get caller's FullID for AssignRole: %w", err)
	}
	callerRole, err := im.GetRole(callerFullID)
	if err != nil {
		return "", fmt.Errorf("failed to verify caller role for AssignRole: %w", err)
	}
	if !callerRole.HasAtLeast(model.RoleAdmin) {
		return "", fmt.Errorf("caller '%s' is not authorized to assign roles: %w", callerFullID, model.ErrNoPermission)
	}

	role, err := model.ParseRole(roleName)
	if err != nil {
		return "", err
	}

	target := strings.TrimSpace(targetIdentity)
	if target == "" || len(target) > maxIdentityLength || !isValidIdentity(target) {
		return "", fmt.Errorf("target identity '%s' is not a valid identity: %w", targetIdentity, model.ErrInvalidUser)
	}
	if target == callerFullID {
		return "", fmt.Errorf("target identity must differ from the caller: %w", model.ErrInvalidUser)
	}

	roleKey, err := im.createRoleCompositeKey(target)
	if err != nil {
		return "", fmt.Errorf("failed to create role composite key for '%s': %w", target, err)
	}

	if role == model.RoleNone {
		if err := im.Ctx.GetStub().DelState(roleKey); err != nil {
			return "", fmt.Errorf("failed to clear role assignment for '%s': %w", target, err)
		}
		idLogger.Infof("Role cleared for identity '%s' by admin '%s'.", target, callerFullID)
		return callerFullID, nil
	}

	now, err := im.getCurrentTxTimestamp()
	if err != nil {
		return "", err
	}
	assignment := model.RoleAssignment{
		ObjectType: roleObjectType,
		Identity:   target,
		Role:       role.String(),
		AssignedBy: callerFullID,
		AssignedAt: now,
	}
	assignmentBytes, err := json.Marshal(assignment)
	if err != nil {
		return "", fmt.Errorf("failed to marshal RoleAssignment for '%s': %w", target, err)
	}
	if err := im.Ctx.GetStub().PutState(roleKey, assignmentBytes); err != nil {
		return "", fmt.Errorf("failed to save RoleAssignment for '%s': %w", target, err)
	}
	idLogger.Infof("Role '%s' assigned to identity '%s' by admin '%s'.", role, target, callerFullID)
	return callerFullID, nil
}

// RequireRole fails unless the caller holds at least the required role.
func (im *IdentityManager) RequireRole(required model.Role) error {
	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return fmt.Errorf("failed to get current user's FullID for RequireRole: %w", err)
	}
	callerRole, err := im.GetRole(callerFullID)
	if err != nil {
		return fmt.Errorf("error checking role for current user '%s': %w", callerFullID, err)
	}
	if !callerRole.HasAtLeast(required) {
		return fmt.Errorf("identity '%s' does not have required role '%s': %w", callerFullID, required, model.ErrNoPermission)
	}
	idLogger.Debugf("Role check passed for role '%s' for user '%s'.", required, callerFullID)
	return nil
}

// IsCurrentUserAdmin reports whether the caller holds the admin role.
func (im *IdentityManager) IsCurrentUserAdmin() (bool, error) {
	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return false, fmt.Errorf("failed to get current user's FullID for admin check: %w", err)
	}
	role, err := im.GetRole(callerFullID)
	if err != nil {
		return false, err
	}
	return role.HasAtLeast(model.RoleAdmin), nil
}

// AnyAdminExists checks whether any stored assignment carries the admin role.
func (im *IdentityManager) AnyAdminExists() (bool, error) {
	iterator, err := im.Ctx.GetStub().GetStateByPartialCompositeKey(roleObjectType, []string{})
	if err != nil {
		return false, fmt.Errorf("failed to query role assignments for AnyAdminExists: %w", err)
	}
	defer iterator.Close()

	for iterator.HasNext() {
		queryResponse, iterErr := iterator.Next()
		if iterErr != nil {
			idLogger.Warningf("AnyAdminExists: failed to get next assignment from iterator: %v. Skipping.", iterErr)
			continue
		}
		var assignment model.RoleAssignment
		if err := json.Unmarshal(queryResponse.Value, &assignment); err != nil {
			idLogger.Warningf("AnyAdminExists: failed to unmarshal assignment for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		if assignment.Role == model.RoleAdmin.String() {
			return true, nil
		}
	}
	return false, nil
}

// BootstrapRegistry grants the caller the admin role when no admin exists
// yet. This is the only path that sidesteps the target-must-differ rule of
// AssignRole; re-running it once an admin exists is rejected.
func (im *IdentityManager) BootstrapRegistry() (*model.RoleAssignment, error) {
	anyAdminExists, err := im.AnyAdminExists()
	if err != nil {
		return nil, fmt.Errorf("failed to check if any admin exists for BootstrapRegistry: %w", err)
	}
	if anyAdminExists {
		return nil, errors.New("registry already has an admin; BootstrapRegistry must not be re-run")
	}

	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return nil, fmt.Errorf("failed to get caller identity for BootstrapRegistry: %w", err)
	}
	now, err := im.getCurrentTxTimestamp()
	if err != nil {
		return nil, err
	}

	assignment := model.RoleAssignment{
		ObjectType: roleObjectType,
		Identity:   callerFullID,
		Role:       model.RoleAdmin.String(),
		AssignedBy: callerFullID, // Self-granted during bootstrap
		AssignedAt: now,
	}
	assignmentBytes, err := json.Marshal(assignment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bootstrap RoleAssignment: %w", err)
	}
	roleKey, err := im.createRoleCompositeKey(callerFullID)
	if err != nil {
		return nil, fmt.Errorf("failed to create role composite key for bootstrap admin '%s': %w", callerFullID, err)
	}
	if err := im.Ctx.GetStub().PutState(roleKey, assignmentBytes); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap RoleAssignment for '%s': %w", callerFullID, err)
	}
	idLogger.Infof("Bootstrap: identity '%s' is now the first admin.", callerFullID)
	return &assignment, nil
}

// GetAllRoleAssignments lists every stored assignment. Admin only.
func (im *IdentityManager) GetAllRoleAssignments() ([]model.RoleAssignment, error) {
	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return nil, fmt.Errorf("failed to get caller's FullID for GetAllRoleAssignments: %w", err)
	}
	isCallerAdmin, err := im.IsCurrentUserAdmin()
	if err != nil {
		return nil, fmt.Errorf("failed to verify caller '%s' admin status for GetAllRoleAssignments: %w", callerFullID, err)
	}
	if !isCallerAdmin {
		return nil, fmt.Errorf("caller '%s' is not authorized to list role assignments: %w", callerFullID, model.ErrNoPermission)
	}

	resultsIterator, err := im.Ctx.GetStub().GetStateByPartialCompositeKey(roleObjectType, []string{})
	if err != nil {
		return nil, fmt.Errorf("failed to get role assignments iterator: %w", err)
	}
	defer resultsIterator.Close()

	assignments := []model.RoleAssignment{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			idLogger.Warningf("GetAllRoleAssignments: failed to get next assignment from iterator: %v. Skipping.", iterErr)
			continue
		}
		var assignment model.RoleAssignment
		if err := json.Unmarshal(queryResponse.Value, &assignment); err != nil {
			idLogger.Warningf("GetAllRoleAssignments: failed to unmarshal assignment for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		assignments = append(assignments, assignment)
	}
	idLogger.Infof("Admin '%s' retrieved %d role assignments.", callerFullID, len(assignments))
	return assignments, nil
}

// GetCurrentIdentityFullID retrieves the full X.509 ID of the current transactor.
func (im *IdentityManager) GetCurrentIdentityFullID() (string, error) {
	clientIdentity := im.Ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" { // GetID can sometimes return empty string without error if not properly set up
		return "", errors.New("client identity ID from context is empty")
	}
	if !isValidIdentity(id) {
		idLogger.Warningf("Current client ID '%s' does not appear to be a standard X.509 format.", id)
	}
	return id, nil
}

// MustGetCallerFullID is a utility to get the caller's ID, returning a placeholder on error.
// Useful for logging when a full error return isn't desired.
func MustGetCallerFullID(ctx contractapi.TransactionContextInterface) string {
	clientIdentity := ctx.GetClientIdentity()
	if clientIdentity == nil {
		idLogger.Error("MustGetCallerFullID: Client identity is nil from context. Returning placeholder.")
		return "ERROR_NIL_CLIENT_IDENTITY"
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		idLogger.Errorf("MustGetCallerFullID: Failed to get client identity ID: %v. Returning placeholder.", err)
		return "ERROR_GETTING_CALLER_ID"
	}
	if id == "" {
		idLogger.Error("MustGetCallerFullID: Client identity ID from context is empty. Returning placeholder.")
		return "ERROR_EMPTY_CALLER_ID"
	}
	return id
}
