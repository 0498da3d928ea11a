package contract

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// OwnershipVerifier decides whether a submitted proof token demonstrates the
// claimed owner's control of a name. Implementations must be pure and
// deterministic over (name, proofToken, claimedOwner): no side effects, no
// access to mutable state. A production deployment replaces the default
// hash challenge with an oracle-backed signed attestation.
type OwnershipVerifier interface {
	Verify(name, proofToken, claimedOwner string) bool
}

// ChallengeVerifier is the placeholder hash-challenge implementation. The
// expected proof is derived from the name concatenated with a digest of the
// claimed owner's canonical identity, and the comparison hashes both sides
// so raw tokens are never compared directly.
type ChallengeVerifier struct{}

// ExpectedProofToken computes the proof token that Verify accepts for the
// given name and owner. Exposed so off-chain tooling can mint challenges.
func ExpectedProofToken(name, claimedOwner string) string {
	ownerDigest := sha256.Sum256([]byte(claimedOwner))
	challenge := sha256.Sum256([]byte(name + hex.EncodeToString(ownerDigest[:])))
	return hex.EncodeToString(challenge[:])
}

// Verify reports whether proofToken matches the deterministic challenge for
// (name, claimedOwner).
func (ChallengeVerifier) Verify(name, proofToken, claimedOwner string) bool {
	if name == "" || proofToken == "" || claimedOwner == "" {
		return false
	}
	expected := sha256.Sum256([]byte(ExpectedProofToken(name, claimedOwner)))
	supplied := sha256.Sum256([]byte(proofToken))
	return subtle.ConstantTimeCompare(expected[:], supplied[:]) == 1
}
