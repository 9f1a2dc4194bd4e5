package attestation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	signer := NewSigner("secret", 5*time.Minute)
	token, issued, err := signer.Issue("bin-1", "worker-1", 12.9716, 77.5946)
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 2)
	require.NotEmpty(t, issued.Nonce)

	payload, err := signer.Verify(token, "bin-1", "worker-1")
	require.NoError(t, err)
	assert.Equal(t, issued, payload)
	assert.InDelta(t, 12.9716, payload.Lat, 1e-9)
	assert.InDelta(t, 77.5946, payload.Lon, 1e-9)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	signer := NewSigner("secret", time.Minute)
	issuedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issuedAt }
	token, _, err := signer.Issue("bin-1", "worker-1", 0, 0)
	require.NoError(t, err)

	signer.now = func() time.Time { return issuedAt.Add(59 * time.Second) }
	_, err = signer.Verify(token, "bin-1", "worker-1")
	require.NoError(t, err)

	signer.now = func() time.Time { return issuedAt.Add(time.Minute) }
	_, err = signer.Verify(token, "bin-1", "worker-1")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsOtherAssetOrSubject(t *testing.T) {
	signer := NewSigner("secret", time.Minute)
	token, _, err := signer.Issue("bin-1", "worker-1", 0, 0)
	require.NoError(t, err)

	_, err = signer.Verify(token, "bin-2", "worker-1")
	assert.ErrorIs(t, err, ErrMismatch)
	_, err = signer.Verify(token, "bin-1", "worker-2")
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestVerifyDetectsAnyAlteredByte(t *testing.T) {
	signer := NewSigner("secret", time.Minute)
	token, _, err := signer.Issue("bin-1", "worker-1", 18.5204, 73.8567)
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]
		_, err := signer.Verify(tampered, "bin-1", "worker-1")
		require.ErrorIs(t, err, ErrInvalid, "byte %d", i)
	}
}

func TestVerifyRejectsForeignSecretAndGarbage(t *testing.T) {
	token, _, err := NewSigner("other", time.Minute).Issue("bin-1", "worker-1", 0, 0)
	require.NoError(t, err)

	signer := NewSigner("secret", time.Minute)
	for _, candidate := range []string{token, "", "abc", "a.b.c", "!!!.???"} {
		_, err := signer.Verify(candidate, "bin-1", "worker-1")
		assert.ErrorIs(t, err, ErrInvalid, candidate)
	}
}

func TestIssueRequiresSecretAndIdentifiers(t *testing.T) {
	_, _, err := NewSigner("", time.Minute).Issue("bin-1", "worker-1", 0, 0)
	assert.Error(t, err)
	_, _, err = NewSigner("secret", time.Minute).Issue("", "worker-1", 0, 0)
	assert.Error(t, err)
}
