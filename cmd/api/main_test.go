package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/space-todo/internal/policy"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := runCommand(t, "token", "user-42", "--ttl", "1h")
	require.NoError(t, err)

	principal, err := policy.ParseToken("cli-secret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-42", principal.UserID)
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := runCommand(t, "token", "user-42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestTokenCommandRequiresUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	_, err := runCommand(t, "token")
	assert.Error(t, err)
}
