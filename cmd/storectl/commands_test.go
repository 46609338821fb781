package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/example/storefront/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "storectl-test-secret-at-least-32-chars"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", "")
	t.Setenv("JWT_SECRET", testSecret)

	out, err := run(t, "token", "--id", "admin-1", "--name", "Alice", "--admin")

	require.NoError(t, err)
	claims, err := auth.NewJWTService(testSecret, time.Hour).ValidateAccessToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, "Alice", claims.Name)
	assert.True(t, claims.IsAdmin)
	assert.False(t, claims.IsSeller)
}

func TestTokenCmd_Errors(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", "")

	t.Setenv("JWT_SECRET", "")
	_, err := run(t, "token", "--id", "u")
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", testSecret)
	_, err = run(t, "token")
	assert.EqualError(t, err, "--id is required")
}

func TestReplayCmd_MemoryStore(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", "")
	t.Setenv("EVENT_STORE", "memory")

	_, err := run(t, "replay")

	assert.Error(t, err)
}
