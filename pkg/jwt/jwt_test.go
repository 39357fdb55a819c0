package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse_RoundTrip(t *testing.T) {
	tok, err := Generate("secreto", "user-1", "TPV-01", "cajero", "fiscal-core", 10)
	require.NoError(t, err)

	claims, err := Parse("secreto", tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "TPV-01", claims.DeviceID)
	assert.Equal(t, "cajero", claims.Role)
	assert.Equal(t, "fiscal-core", claims.Issuer)
}

func TestParse_WrongSecret(t *testing.T) {
	tok, err := Generate("secreto", "user-1", "TPV-01", "cajero", "fiscal-core", 10)
	require.NoError(t, err)

	_, err = Parse("otro", tok)
	assert.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	tok, err := Generate("secreto", "user-1", "TPV-01", "cajero", "fiscal-core", -5)
	require.NoError(t, err)

	_, err = Parse("secreto", tok)
	assert.Error(t, err, "token expirado debe rechazarse")
}

func TestGenerate_EmptySecret(t *testing.T) {
	_, err := Generate("", "u", "d", "r", "i", 1)
	assert.Error(t, err)
}
