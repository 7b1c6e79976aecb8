package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAdminWorkflow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")

	out, err := run(t, "--db", db, "init-db")
	require.NoError(t, err)
	assert.Contains(t, out, "Database initialized")

	out, err = run(t, "--db", db, "create-admin", "--username", "root", "--password", "pw", "--api-key", "fixed-key")
	require.NoError(t, err)
	assert.Contains(t, out, `Admin user "root" is ready.`)
	assert.Contains(t, out, "API key: fixed-key")

	out, err = run(t, "--db", db, "rotate-key", "--username", "root")
	require.NoError(t, err)
	assert.Contains(t, out, `New API key for "root"`)
	assert.NotContains(t, out, "fixed-key")

	out, err = run(t, "--db", db, "check-db")
	require.NoError(t, err)
	assert.Contains(t, out, "enrollments")
	assert.Contains(t, out, "Users (1):")
	assert.Contains(t, out, "root  admin=true  api_key=set")
}

func TestCreateAdminRequiresFlags(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	_, err := run(t, "--db", db, "create-admin", "--username", "root")
	assert.Error(t, err)
}

func TestRotateKeyUnknownUser(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	_, err := run(t, "--db", db, "rotate-key", "--username", "nobody")
	assert.Error(t, err)
}
