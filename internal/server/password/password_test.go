package password

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", hash)

	require.True(t, Verify("s3cret", hash))
	require.False(t, Verify("S3cret", hash))
	require.False(t, Verify("", hash))
}

func TestHash_Salted(t *testing.T) {
	h1, err := Hash("s3cret")
	require.NoError(t, err)
	h2, err := Hash("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2, "two hashes of the same password must differ")
}
