package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"domaintrust/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Query Functions ---

// getDomainByName is an internal helper to retrieve and unmarshal a domain record.
func (s *TrustRegistrySmartContract) getDomainByName(ctx contractapi.TransactionContextInterface, name string) (*model.DomainRecord, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("domain name cannot be empty: %w", model.ErrInvalidData)
	}
	domainKey, err := s.createDomainCompositeKey(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create key for domain '%s': %w", name, err)
	}

	recordBytes, err := ctx.GetStub().GetState(domainKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read domain '%s' from ledger: %w", name, err)
	}
	if recordBytes == nil {
		return nil, fmt.Errorf("domain '%s': %w", name, model.ErrNotFound)
	}

	var record model.DomainRecord
	if err = json.Unmarshal(recordBytes, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal domain '%s' data: %w", name, err)
	}
	return &record, nil
}

// GetDomainInfo returns the full record for a registered domain.
func (s *TrustRegistrySmartContract) GetDomainInfo(ctx contractapi.TransactionContextInterface, name string) (*model.DomainRecord, error) {
	logger.Debugf("GetDomainInfo: querying domain '%s'", name)
	if err := s.validateRequiredString(name, "name", maxDomainNameLength); err != nil {
		return nil, err
	}
	return s.getDomainByName(ctx, name)
}

// GetAllDomains lists every registered domain record. Public access.
func (s *TrustRegistrySmartContract) GetAllDomains(ctx contractapi.TransactionContextInterface) ([]model.DomainRecord, error) {
	logger.Debug("GetAllDomains (public access)")

	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(domainObjectType, []string{})
	if err != nil {
		return nil, fmt.Errorf("GetAllDomains: failed to get domains iterator: %w", err)
	}
	defer resultsIterator.Close()

	domains := []model.DomainRecord{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			logger.Warningf("GetAllDomains: failed to get next domain from iterator: %v. Skipping.", iterErr)
			continue
		}
		var record model.DomainRecord
		if err := json.Unmarshal(queryResponse.Value, &record); err != nil {
			logger.Warningf("GetAllDomains: failed to unmarshal domain for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		domains = append(domains, record)
	}
	logger.Infof("GetAllDomains: returning %d domains", len(domains))
	return domains, nil
}

// GetDomainsByOwner lists domains currently owned by an identity. Public access.
func (s *TrustRegistrySmartContract) GetDomainsByOwner(ctx contractapi.TransactionContextInterface, owner string) ([]model.DomainRecord, error) {
	logger.Debugf("GetDomainsByOwner for '%s' (public access)", owner)
	if err := s.validateRequiredString(owner, "owner", maxIdentityLength); err != nil {
		return nil, err
	}

	all, err := s.GetAllDomains(ctx)
	if err != nil {
		return nil, err
	}
	domains := []model.DomainRecord{}
	for _, record := range all {
		if record.Owner == owner {
			domains = append(domains, record)
		}
	}
	return domains, nil
}

// GetReviewsForDomain lists all stored reviews for a domain. Public access.
// The domain must exist.
func (s *TrustRegistrySmartContract) GetReviewsForDomain(ctx contractapi.TransactionContextInterface, name string) ([]model.Review, error) {
	logger.Debugf("GetReviewsForDomain for '%s' (public access)", name)
	if err := s.validateRequiredString(name, "name", maxDomainNameLength); err != nil {
		return nil, err
	}
	record, err := s.getDomainByName(ctx, name)
	if err != nil {
		return nil, err
	}

	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(reviewObjectType, []string{record.Name})
	if err != nil {
		return nil, fmt.Errorf("GetReviewsForDomain: failed to get reviews iterator for '%s': %w", name, err)
	}
	defer resultsIterator.Close()

	reviews := []model.Review{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			logger.Warningf("GetReviewsForDomain: failed to get next review from iterator: %v. Skipping.", iterErr)
			continue
		}
		var review model.Review
		if err := json.Unmarshal(queryResponse.Value, &review); err != nil {
			logger.Warningf("GetReviewsForDomain: failed to unmarshal review for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

// GetReportsForDomain lists all reports filed against a domain. Restricted
// to moderators and admins; report contents are not public.
func (s *TrustRegistrySmartContract) GetReportsForDomain(ctx contractapi.TransactionContextInterface, name string) ([]model.Report, error) {
	im := NewIdentityManager(ctx)
	if err := im.RequireRole(model.RoleModerator); err != nil {
		return nil, err
	}
	if err := s.validateRequiredString(name, "name", maxDomainNameLength); err != nil {
		return nil, err
	}
	record, err := s.getDomainByName(ctx, name)
	if err != nil {
		return nil, err
	}

	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(reportObjectType, []string{record.Name})
	if err != nil {
		return nil, fmt.Errorf("GetReportsForDomain: failed to get reports iterator for '%s': %w", name, err)
	}
	defer resultsIterator.Close()

	reports := []model.Report{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			logger.Warningf("GetReportsForDomain: failed to get next report from iterator: %v. Skipping.", iterErr)
			continue
		}
		var report model.Report
		if err := json.Unmarshal(queryResponse.Value, &report); err != nil {
			logger.Warningf("GetReportsForDomain: failed to unmarshal report for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}
