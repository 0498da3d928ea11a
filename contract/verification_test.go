package contract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpectedProofTokenDeterministic(t *testing.T) {
	first := ExpectedProofToken("example.btc", idAlice)
	second := ExpectedProofToken("example.btc", idAlice)
	require.Equal(t, first, second)
	require.Len(t, first, 64) // hex-encoded SHA-256
}

func TestChallengeVerifierAcceptsMatchingToken(t *testing.T) {
	v := ChallengeVerifier{}
	token := ExpectedProofToken("example.btc", idAlice)
	require.True(t, v.Verify("example.btc", token, idAlice))
}

func TestChallengeVerifierRejectsMismatches(t *testing.T) {
	v := ChallengeVerifier{}
	token := ExpectedProofToken("example.btc", idAlice)

	require.False(t, v.Verify("example.btc", "bogus-token", idAlice), "wrong token")
	require.False(t, v.Verify("other.btc", token, idAlice), "token for another name")
	require.False(t, v.Verify("example.btc", token, idBob), "token for another owner")
}

func TestChallengeVerifierRejectsEmptyInputs(t *testing.T) {
	v := ChallengeVerifier{}
	token := ExpectedProofToken("example.btc", idAlice)

	require.False(t, v.Verify("", token, idAlice))
	require.False(t, v.Verify("example.btc", "", idAlice))
	require.False(t, v.Verify("example.btc", token, ""))
}
