package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finflow/internal/core"
	"finflow/internal/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateUpAndVersion(t *testing.T) {
	db := filepath.Join(t.TempDir(), "finflow.db")

	out, err := run(t, "--db-path", db, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 0 (clean)")

	out, err = run(t, "--db-path", db, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1 (clean)")

	out, err = run(t, "--db-path", db, "migrate", "down", "--steps", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 0 (clean)")

	_, err = run(t, "--db-path", db, "migrate", "down", "--steps", "0")
	require.Error(t, err)
}

func TestReportWritesExport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "finflow.db")

	repo, err := storage.NewSQLiteRepository(db)
	require.NoError(t, err)
	ctx := context.Background()
	u, err := repo.CreateUser(ctx, core.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	date, err := core.ParseDate("2024-03-05")
	require.NoError(t, err)
	_, err = repo.CreateTransaction(ctx, core.Transaction{
		UserID:      u.ID,
		Date:        date,
		Description: "Consulting",
		Type:        core.Income,
		Amount:      core.Money{Cents: 150000},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	target := filepath.Join(dir, "alice.csv")
	out, err := run(t, "--db-path", db, "report", "--user", "alice", "--format", "csv", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "Consulting"), "export should list the transaction")
}

func TestReportRejectsBadInput(t *testing.T) {
	db := filepath.Join(t.TempDir(), "finflow.db")

	_, err := run(t, "--db-path", db, "report", "--format", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user")

	_, err = run(t, "--db-path", db, "report", "--user", "alice", "--format", "docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--format")

	_, err = run(t, "--db-path", db, "report", "--user", "nobody")
	require.Error(t, err)
}

func TestServeRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "short")
	_, err := run(t, "--db-path", filepath.Join(t.TempDir(), "finflow.db"), "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}
