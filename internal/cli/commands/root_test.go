package commands

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiflow/logiflow/internal/cli/config"
)

func TestNewRootCommand_HasSubcommands(t *testing.T) {
	root := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "routes", "init", "version"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Logiflow version")
}

func TestMigratePrint_EmitsDDLWithoutDatabase(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"migrate", "--print"})

	require.NoError(t, root.Execute())
	ddl := out.String()
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "ports"`)
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "mrns"`)
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "factures"`)
}

func TestRoutesCommand_PrintsGeneratedTable(t *testing.T) {
	chdir(t, t.TempDir())

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"routes", "--no-color"})

	require.NoError(t, root.Execute())
	listing := out.String()
	assert.Contains(t, listing, "mrns.list")
	assert.Contains(t, listing, "/api/mrns/")
	assert.Contains(t, listing, "graphql")
	assert.Contains(t, listing, "healthz")
}

func TestBuildIntrospectionTable_RouteCount(t *testing.T) {
	cfg, err := config.LoadFrom(t.TempDir())
	require.NoError(t, err)

	table, err := buildIntrospectionTable(cfg)
	require.NoError(t, err)

	// 8 REST routes per entity, plus the graph endpoint and healthz.
	entityRoutes := table.Count() - 2
	require.Greater(t, entityRoutes, 0)
	assert.Zero(t, entityRoutes%8, "every entity contributes exactly 8 routes")
}

func TestInitCommand_WritesConfigAndRefusesOverwrite(t *testing.T) {
	chdir(t, t.TempDir())

	args := []string{
		"init",
		"--database-url", "postgres://localhost/logiflow",
		"--redis-addr", "",
		"--jwt-secret", "s",
	}

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())

	content, err := os.ReadFile("logiflow.yml")
	require.NoError(t, err)
	assert.Contains(t, string(content), "postgres://localhost/logiflow")
	assert.Contains(t, string(content), "default_role: viewer")

	// A second init without --force must refuse.
	root = NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err = root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}
