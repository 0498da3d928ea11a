package contract

import (
	"encoding/json"
	"fmt"

	"domaintrust/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const reviewObjectType = "Review"

// --- Lifecycle: Review & Reputation Operations ---

// SubmitReview stores one review per (domain, caller) pair and recomputes
// the domain's reputation in the same transaction.
//
// The reputation formula is the weighted variant: each review carries a
// snapshot of the reviewer's weight taken at submission time, and the
// domain score is the full fold sum(rating * weight) over all stored
// reviews. A reviewer's weight is its own reputation (sum of scores over
// domains it currently owns) floored to 1, so a zero- or negative-standing
// reviewer cannot nullify or invert a rating's sign contribution.
func (s *TrustRegistrySmartContract) SubmitReview(ctx contractapi.TransactionContextInterface,
	name string, rating int, comment string) error {

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("SubmitReview: failed to get actor info: %w", err)
	}

	// Rating bounds are checked before anything else; an out-of-range
	// rating is rejected whether or not the domain exists.
	if rating < minRating || rating > maxRating {
		return fmt.Errorf("rating %d is outside [%d, %d]: %w", rating, minRating, maxRating, model.ErrRatingOutOfBounds)
	}
	if err := s.validateOptionalString(comment, "comment", maxCommentLength); err != nil {
		return err
	}

	record, err := s.getDomainByName(ctx, name)
	if err != nil {
		return err
	}

	reviewKey, err := s.createReviewCompositeKey(ctx, name, actor.fullID)
	if err != nil {
		return fmt.Errorf("SubmitReview: failed to create review composite key for '%s': %w", name, err)
	}
	existing, err := ctx.GetStub().GetState(reviewKey)
	if err != nil {
		return fmt.Errorf("SubmitReview: failed to check for existing review on '%s': %w", name, err)
	}
	if existing != nil {
		return fmt.Errorf("review of '%s' by '%s': %w", name, actor.fullID, model.ErrAlreadyReviewed)
	}

	weight, err := s.reviewerWeight(ctx, actor.fullID)
	if err != nil {
		return fmt.Errorf("SubmitReview: failed to compute reviewer weight for '%s': %w", actor.fullID, err)
	}

	// Range reads never include the running transaction's own write set, so
	// a fold after the PutState below would miss the review being submitted.
	// Fold the committed reviews first and add this review's contribution;
	// the duplicate check above guarantees it is not already in the fold.
	base, err := s.computeReputation(ctx, record.Name)
	if err != nil {
		return fmt.Errorf("SubmitReview: failed to fold committed reviews for '%s': %w", name, err)
	}
	newScore := base + int64(rating)*weight

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("SubmitReview: failed to get transaction timestamp: %w", err)
	}

	review := model.Review{
		ObjectType:     reviewObjectType,
		DomainName:     record.Name,
		Reviewer:       actor.fullID,
		Rating:         int32(rating),
		Comment:        comment,
		ReviewerWeight: weight,
		ReviewedAt:     now,
	}
	reviewBytes, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("SubmitReview: failed to marshal review for '%s': %w", name, err)
	}
	if err := ctx.GetStub().PutState(reviewKey, reviewBytes); err != nil {
		return fmt.Errorf("SubmitReview: failed to save review for '%s': %w", name, err)
	}

	record.ReputationScore = newScore
	record.LastUpdatedAt = now
	if err := s.putDomainRecord(ctx, record); err != nil {
		return fmt.Errorf("SubmitReview: %w", err)
	}

	s.emitRegistryEvent(ctx, "ReviewSubmitted", map[string]interface{}{
		"name":            record.Name,
		"reviewer":        actor.fullID,
		"rating":          rating,
		"reviewerWeight":  weight,
		"reputationScore": newScore,
		"reviewedAt":      now,
	})
	logger.Infof("Review of '%s' by '%s' stored (rating %d, weight %d); reputation now %d", name, actor.fullID, rating, weight, newScore)
	return nil
}

// RebuildReputation re-runs the reputation fold for a domain from its stored
// reviews. Admin only. The fold is the single source of truth for the
// score, so on consistent state this writes back the same value.
func (s *TrustRegistrySmartContract) RebuildReputation(ctx contractapi.TransactionContextInterface, name string) error {
	im := NewIdentityManager(ctx)
	if err := im.RequireRole(model.RoleAdmin); err != nil {
		return err
	}

	record, err := s.getDomainByName(ctx, name)
	if err != nil {
		return err
	}

	score, err := s.computeReputation(ctx, record.Name)
	if err != nil {
		return fmt.Errorf("RebuildReputation: failed to recompute reputation for '%s': %w", name, err)
	}
	if score == record.ReputationScore {
		logger.Debugf("RebuildReputation: score for '%s' already consistent at %d", name, score)
		return nil
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("RebuildReputation: failed to get transaction timestamp: %w", err)
	}
	previous := record.ReputationScore
	record.ReputationScore = score
	record.LastUpdatedAt = now
	if err := s.putDomainRecord(ctx, record); err != nil {
		return fmt.Errorf("RebuildReputation: %w", err)
	}

	s.emitRegistryEvent(ctx, "ReputationRebuilt", map[string]interface{}{
		"name":          record.Name,
		"previousScore": previous,
		"newScore":      score,
		"rebuiltAt":     now,
	})
	logger.Infof("Reputation for '%s' rebuilt: %d -> %d", name, previous, score)
	return nil
}

// computeReputation performs the deterministic fold sum(rating * weight)
// over every committed review for a domain. Range reads exclude the running
// transaction's own writes, so a review stored in the same transaction must
// have its contribution added on top of this fold by the caller.
func (s *TrustRegistrySmartContract) computeReputation(ctx contractapi.TransactionContextInterface, name string) (int64, error) {
	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(reviewObjectType, []string{name})
	if err != nil {
		return 0, fmt.Errorf("failed to get reviews iterator for '%s': %w", name, err)
	}
	defer resultsIterator.Close()

	var score int64
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			return 0, fmt.Errorf("failed to get next review for '%s': %w", name, iterErr)
		}
		var review model.Review
		if err := json.Unmarshal(queryResponse.Value, &review); err != nil {
			return 0, fmt.Errorf("failed to unmarshal review for key '%s': %w", queryResponse.Key, err)
		}
		weight := review.ReviewerWeight
		if weight < 1 {
			weight = 1
		}
		score += int64(review.Rating) * weight
	}
	return score, nil
}

// reviewerWeight computes a reviewer's weight snapshot: the sum of
// reputation scores over domains the reviewer currently owns, floored to 1.
func (s *TrustRegistrySmartContract) reviewerWeight(ctx contractapi.TransactionContextInterface, reviewer string) (int64, error) {
	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(domainObjectType, []string{})
	if err != nil {
		return 0, fmt.Errorf("failed to get domains iterator: %w", err)
	}
	defer resultsIterator.Close()

	var reputation int64
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			logger.Warningf("reviewerWeight: failed to get next domain from iterator: %v. Skipping.", iterErr)
			continue
		}
		var record model.DomainRecord
		if err := json.Unmarshal(queryResponse.Value, &record); err != nil {
			logger.Warningf("reviewerWeight: failed to unmarshal domain for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		if record.Owner == reviewer {
			reputation += record.ReputationScore
		}
	}
	if reputation < 1 {
		return 1, nil
	}
	return reputation, nil
}
