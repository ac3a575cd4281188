package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(t.Context())
}

func TestCommandTree(t *testing.T) {
	root := newRootCommand()
	for _, path := range [][]string{{"export"}, {"indexes"}, {"admin", "create"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestExportRejectsBadFlags(t *testing.T) {
	err := run(t, "export")
	assert.ErrorContains(t, err, "brand")

	err = run(t, "export", "--brand", "acme")
	assert.Error(t, err)

	err = run(t, "export", "--brand", "hydralite", "--format", "csv")
	assert.Error(t, err)
}

func TestAdminCreateNeedsPassword(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "")
	err := run(t, "admin", "create", "--username", "root")
	assert.ErrorContains(t, err, "ADMIN_PASSWORD")

	t.Setenv("ADMIN_PASSWORD", "secret")
	err = run(t, "admin", "create", "--username", "root", "--role", "owner")
	assert.ErrorContains(t, err, "unknown role")
}
