package contract

import (
	"encoding/json"
	"fmt"

	"domaintrust/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const reportObjectType = "Report"

// --- Lifecycle: Report & Dispute Operations ---

// ReportDomain files one abuse report per (domain, caller) pair.
func (s *TrustRegistrySmartContract) ReportDomain(ctx contractapi.TransactionContextInterface,
	name string, reasonCode int, details string) error {

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("ReportDomain: failed to get actor info: %w", err)
	}

	if err := s.validateRequiredString(details, "details", maxDetailsLength); err != nil {
		return err
	}
	if reasonCode < 0 || reasonCode > maxReasonCode {
		return fmt.Errorf("reasonCode %d is outside [0, %d]: %w", reasonCode, maxReasonCode, model.ErrInvalidData)
	}

	record, err := s.getDomainByName(ctx, name)
	if err != nil {
		return err
	}

	reportKey, err := s.createReportCompositeKey(ctx, name, actor.fullID)
	if err != nil {
		return fmt.Errorf("ReportDomain: failed to create report composite key for '%s': %w", name, err)
	}
	existing, err := ctx.GetStub().GetState(reportKey)
	if err != nil {
		return fmt.Errorf("ReportDomain: failed to check for existing report on '%s': %w", name, err)
	}
	if existing != nil {
		return fmt.Errorf("report of '%s' by '%s': %w", name, actor.fullID, model.ErrAlreadyReported)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("ReportDomain: failed to get transaction timestamp: %w", err)
	}

	report := model.Report{
		ObjectType: reportObjectType,
		DomainName: record.Name,
		Reporter:   actor.fullID,
		ReasonCode: uint32(reasonCode),
		Details:    details,
		Resolved:   false,
		ReportedAt: now,
	}
	reportBytes, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("ReportDomain: failed to marshal report for '%s': %w", name, err)
	}
	if err := ctx.GetStub().PutState(reportKey, reportBytes); err != nil {
		return fmt.Errorf("ReportDomain: failed to save report for '%s': %w", name, err)
	}

	s.emitRegistryEvent(ctx, "DomainReported", map[string]interface{}{
		"name":       record.Name,
		"reporter":   actor.fullID,
		"reasonCode": reasonCode,
		"reportedAt": now,
	})
	logger.Infof("Report of '%s' by '%s' stored (reason %d)", name, actor.fullID, reasonCode)
	return nil
}

// GetReportStatus returns the resolved flag of the (name, reporter) report.
func (s *TrustRegistrySmartContract) GetReportStatus(ctx contractapi.TransactionContextInterface,
	name, reporter string) (bool, error) {

	if err := s.validateRequiredString(name, "name", maxDomainNameLength); err != nil {
		return false, err
	}
	if err := s.validateRequiredString(reporter, "reporter", maxIdentityLength); err != nil {
		return false, err
	}

	report, err := s.getReport(ctx, name, reporter)
	if err != nil {
		return false, err
	}
	if report == nil {
		return false, fmt.Errorf("report of '%s' by '%s': %w", name, reporter, model.ErrNotFound)
	}
	return report.Resolved, nil
}

// ResolveDispute closes the (name, reporter) report. Restricted to
// moderators and admins; resolution is one-way. The status argument records
// the adjudication outcome in the report and the emitted event, but drives
// no further automated consequence.
func (s *TrustRegistrySmartContract) ResolveDispute(ctx contractapi.TransactionContextInterface,
	name, reporter string, status bool) error {

	im := NewIdentityManager(ctx)
	if err := im.RequireRole(model.RoleModerator); err != nil {
		return err
	}

	if err := s.validateRequiredString(name, "name", maxDomainNameLength); err != nil {
		return err
	}
	if err := s.validateRequiredString(reporter, "reporter", maxIdentityLength); err != nil {
		return err
	}

	report, err := s.getReport(ctx, name, reporter)
	if err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("report of '%s' by '%s': %w", name, reporter, model.ErrNotInDispute)
	}
	if report.Resolved {
		return fmt.Errorf("report of '%s' by '%s': %w", name, reporter, model.ErrAlreadyResolved)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("ResolveDispute: failed to get transaction timestamp: %w", err)
	}
	resolver := MustGetCallerFullID(ctx)

	report.Resolved = true
	report.Outcome = status
	report.ResolvedBy = resolver
	report.ResolvedAt = now

	reportKey, err := s.createReportCompositeKey(ctx, name, reporter)
	if err != nil {
		return fmt.Errorf("ResolveDispute: failed to create report composite key for '%s': %w", name, err)
	}
	reportBytes, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("ResolveDispute: failed to marshal report for '%s': %w", name, err)
	}
	if err := ctx.GetStub().PutState(reportKey, reportBytes); err != nil {
		return fmt.Errorf("ResolveDispute: failed to save report for '%s': %w", name, err)
	}

	s.emitRegistryEvent(ctx, "DisputeResolved", map[string]interface{}{
		"name":       report.DomainName,
		"reporter":   report.Reporter,
		"outcome":    status,
		"resolvedBy": resolver,
		"resolvedAt": now,
	})
	logger.Infof("Report of '%s' by '%s' resolved (outcome %t) by '%s'", name, reporter, status, resolver)
	return nil
}

// getReport loads the (name, reporter) report, returning nil when absent.
func (s *TrustRegistrySmartContract) getReport(ctx contractapi.TransactionContextInterface, name, reporter string) (*model.Report, error) {
	reportKey, err := s.createReportCompositeKey(ctx, name, reporter)
	if err != nil {
		return nil, fmt.Errorf("failed to create report composite key for '%s': %w", name, err)
	}
	reportBytes, err := ctx.GetStub().GetState(reportKey)
	if err != nil {
		return nil, fmt.Errorf("ledger error retrieving report of '%s' by '%s': %w", name, reporter, err)
	}
	if reportBytes == nil {
		return nil, nil
	}
	var report model.Report
	if err := json.Unmarshal(reportBytes, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report of '%s' by '%s': %w", name, reporter, err)
	}
	return &report, nil
}
