package authctl

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func stubPasswords(t *testing.T, values ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	i := 0
	readPassword = func(fd int) ([]byte, error) {
		require.Less(t, i, len(values), "more password prompts than stubbed values")
		v := values[i]
		i++
		return []byte(v), nil
	}
}

func TestPromptCredentials_Success(t *testing.T) {
	stubPasswords(t, "s3cret", "s3cret")

	email, password, err := promptCredentials(bufio.NewReader(strings.NewReader("a@b.com\n")), io.Discard)
	require.NoError(t, err)
	require.Equal(t, "a@b.com", email)
	require.Equal(t, "s3cret", password)
}

func TestPromptCredentials_EmailWithoutTrailingNewline(t *testing.T) {
	stubPasswords(t, "s3cret", "s3cret")

	email, _, err := promptCredentials(bufio.NewReader(strings.NewReader("a@b.com")), io.Discard)
	require.NoError(t, err)
	require.Equal(t, "a@b.com", email)
}

func TestPromptCredentials_EmptyEmail(t *testing.T) {
	_, _, err := promptCredentials(bufio.NewReader(strings.NewReader("\n")), io.Discard)
	require.ErrorContains(t, err, "email is required")
}

func TestPromptCredentials_PasswordMismatch(t *testing.T) {
	stubPasswords(t, "s3cret", "other")

	_, _, err := promptCredentials(bufio.NewReader(strings.NewReader("a@b.com\n")), io.Discard)
	require.ErrorContains(t, err, "passwords do not match")
}
