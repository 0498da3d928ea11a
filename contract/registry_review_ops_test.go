package contract

import (
	"encoding/json"
	"testing"

	"domaintrust/model"

	"github.com/stretchr/testify/require"
)

func TestSubmitReviewRatingBounds(t *testing.T) {
	s, stub := setupRegistry(t)
	mustRegister(t, s, stub, idAlice, "example.btc", "m")

	for _, rating := range []int{6, -6, 100} {
		err := s.SubmitReview(ctxWithCaller(stub, idBob), "example.btc", rating, "")
		require.ErrorIs(t, err, model.ErrRatingOutOfBounds, "existing domain, rating %d", rating)

		err = s.SubmitReview(ctxWithCaller(stub, idBob), "missing.btc", rating, "")
		require.ErrorIs(t, err, model.ErrRatingOutOfBounds, "missing domain, rating %d", rating)
	}

	reviews, err := s.GetReviewsForDomain(ctxWithCaller(stub, idBob), "example.btc")
	require.NoError(t, err)
	require.Empty(t, reviews, "no review may be stored on a bounds failure")
}

func TestSubmitReviewDomainNotFound(t *testing.T) {
	s, stub := setupRegistry(t)

	err := s.SubmitReview(ctxWithCaller(stub, idBob), "missing.btc", 3, "")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestSubmitReviewRejectsResubmission(t *testing.T) {
	s, stub := setupRegistry(t)
	mustRegister(t, s, stub, idAlice, "example.btc", "m")

	require.NoError(t, s.SubmitReview(ctxWithCaller(stub, idBob), "example.btc", 3, "good"))

	// A different rating and comment make no difference.
	err := s.SubmitReview(ctxWithCaller(stub, idBob), "example.btc", -3, "changed my mind")
	require.ErrorIs(t, err, model.ErrAlreadyReviewed)

	record, err := s.GetDomainInfo(ctxWithCaller(stub, idBob), "example.btc")
	require.NoError(t, err)
	require.EqualValues(t, 3, record.ReputationScore, "rejected resubmission must not touch the score")
}

func TestReputationIsSumOfWeightedRatings(t *testing.T) {
	s, stub := setupRegistry(t)
	mustRegister(t, s, stub, idAlice, "example.btc", "m")

	require.NoError(t, s.SubmitReview(ctxWithCaller(stub, idBob), "example.btc", 3, ""))
	require.NoError(t, s.SubmitReview(ctxWithCaller(stub, idCarol), "example.btc", -5, ""))

	record, err := s.GetDomainInfo(ctxWithCaller(stub, idBob), "example.btc")
	require.NoError(t, err)
	require.EqualValues(t, -2, record.ReputationScore, "fresh reviewers carry weight 1")

	event := stub.lastEvent()
	require.NotNil(t, event)
	require.Equal(t, "ReviewSubmitted", event.name)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(event.payload, &payload))
	require.EqualValues(t, -2, payload["reputationScore"])
}

func TestReviewerWeightSnapshot(t *testing.T) {
	s, stub := setupRegistry(t)

	// Build up Alice's standing: her own domain collects +4.
	mustRegister(t, s, stub, idAlice, "alice.btc", "m")
	require.NoError(t, s.SubmitReview(ctxWithCaller(stub, idBob), "alice.btc", 2, ""))
	require.NoError(t, s.SubmitReview(ctxWithCaller(stub, idCarol), "alice.btc", 2, ""))

	// Alice now reviews a stranger's domain with weight max(1, 4) = 4.
	mustRegister(t, s, stub, idStran, "target.btc", "m")
	require.NoError(t, s.SubmitReview(ctxWithCaller(stub, idAlice), "target.btc", 2, ""))

	record, err := s.GetDomainInfo(ctxWithCaller(stub, idAlice), "target.btc")
	require.NoError(t, err)
	require.EqualValues(t, 8, record.ReputationScore)

	reviews, err := s.GetReviewsForDomain(ctxWithCaller(stub, idAlice), "target.btc")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.EqualValues(t, 4, reviews[0].ReviewerWeight)
}

// TestSubmitReviewScoreVisibleAfterCommit drives the contract through a
// stub that exposes only committed state to reads, one commit per
// invocation. The score stored by each SubmitReview must already include
// the review written in that same transaction.
func TestSubmitReviewScoreVisibleAfterCommit(t *testing.T) {
	s := NewTrustRegistrySmartContract()
	stub := newTxStub()

	require.NoError(t, s.BootstrapRegistry(ctxWithCaller(stub, idAdmin)))
	stub.commit()

	token := ExpectedProofToken("example.btc", idAlice)
	require.NoError(t, s.RegisterDomain(ctxWithCaller(stub, idAlice), "example.btc", "m", token))
	stub.commit()

	require.NoError(t, s.SubmitReview(ctxWithCaller(stub, idBob), "example.btc", 3, ""))
	stub.commit()
	record, err := s.GetDomainInfo(ctxWithCaller(stub, idBob), "example.btc")
	require.NoError(t, err)
	require.EqualValues(t, 3, record.ReputationScore)

	require.NoError(t, s.SubmitReview(ctxWithCaller(stub, idCarol), "example.btc", -5, ""))
	stub.commit()
	record, err = s.GetDomainInfo(ctxWithCaller(stub, idCarol), "example.btc")
	require.NoError(t, err)
	require.EqualValues(t, -2, record.ReputationScore)
}

func TestRebuildReputationIsIdempotent(t *testing.T) {
	s, stub := setupRegistry(t)
	mustRegister(t, s, stub, idAlice, "example.btc", "m")
	require.NoError(t, s.SubmitReview(ctxWithCaller(stub, idBob), "example.btc", 4, ""))
	require.NoError(t, s.SubmitReview(ctxWithCaller(stub, idCarol), "example.btc", -1, ""))

	require.NoError(t, s.RebuildReputation(ctxWithCaller(stub, idAdmin), "example.btc"))

	record, err := s.GetDomainInfo(ctxWithCaller(stub, idAdmin), "example.btc")
	require.NoError(t, err)
	require.EqualValues(t, 3, record.ReputationScore)
}

func TestRebuildReputationRepairsTamperedScore(t *testing.T) {
	s, stub := setupRegistry(t)
	mustRegister(t, s, stub, idAlice, "example.btc", "m")
	require.NoError(t, s.SubmitReview(ctxWithCaller(stub, idBob), "example.btc", 4, ""))

	// Corrupt the stored score behind the registry's back.
	key, err := stub.CreateCompositeKey(domainObjectType, []string{"example.btc"})
	require.NoError(t, err)
	raw, err := stub.GetState(key)
	require.NoError(t, err)
	var record model.DomainRecord
	require.NoError(t, json.Unmarshal(raw, &record))
	record.ReputationScore = 999
	tampered, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, stub.PutState(key, tampered))

	require.NoError(t, s.RebuildReputation(ctxWithCaller(stub, idAdmin), "example.btc"))
	repaired, err := s.GetDomainInfo(ctxWithCaller(stub, idAdmin), "example.btc")
	require.NoError(t, err)
	require.EqualValues(t, 4, repaired.ReputationScore)
}

func TestRebuildReputationErrors(t *testing.T) {
	s, stub := setupRegistry(t)
	mustRegister(t, s, stub, idAlice, "example.btc", "m")

	err := s.RebuildReputation(ctxWithCaller(stub, idMod), "example.btc")
	require.ErrorIs(t, err, model.ErrNoPermission, "moderator is not enough")

	err = s.RebuildReputation(ctxWithCaller(stub, idAdmin), "missing.btc")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestSubmitReviewCommentTooLong(t *testing.T) {
	s, stub := setupRegistry(t)
	mustRegister(t, s, stub, idAlice, "example.btc", "m")

	long := make([]byte, maxCommentLength+1)
	for i := range long {
		long[i] = 'a'
	}
	err := s.SubmitReview(ctxWithCaller(stub, idBob), "example.btc", 1, string(long))
	require.ErrorIs(t, err, model.ErrInvalidData)
}
