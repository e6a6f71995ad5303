package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/taskswarm/internal/config"
)

// clearEnv blanks every TASKSWARM_* variable for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvHost, config.EnvUsers, config.EnvSpawnRate, config.EnvRunTime,
		config.EnvHeadless, config.EnvRequestTimeout, config.EnvInsecure,
		config.EnvProfiles, config.EnvMetricsAddr, config.EnvOutput, config.EnvLogLevel,
	} {
		t.Setenv(key, "")
	}
}

// executeCommand runs a fresh command tree with args.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range RootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "config", "profiles", "version"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "taskswarm "+version+"\n", out)
}

func TestConfigCommand_Defaults(t *testing.T) {
	clearEnv(t)

	out, _, err := executeCommand(t, "config")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "http://localhost:3000", got["host"])
	assert.Equal(t, 10.0, got["users"])
	assert.Equal(t, 2.0, got["spawnRate"])
	assert.Equal(t, "5m", got["runTime"])
	assert.Equal(t, false, got["headless"])
	assert.Equal(t, "10s", got["requestTimeout"])
	assert.Equal(t, true, got["insecureSkipVerify"])
	assert.Equal(t, "info", got["logLevel"])
	assert.NotContains(t, got, "profileFile")
}

func TestConfigCommand_FlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvHost, "https://tasks.example.com")
	t.Setenv(config.EnvUsers, "40")
	t.Setenv(config.EnvHeadless, "TRUE")

	out, _, err := executeCommand(t, "config", "--users", "7", "--run-time", "300", "--timeout", "3s")
	require.NoError(t, err)

	var got config.RunConfig
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "https://tasks.example.com", got.Host)
	assert.Equal(t, 7, got.Users)
	assert.Equal(t, "300", got.RunTime)
	assert.True(t, got.Headless)
	assert.Equal(t, "3s", got.RequestTimeout.String())
}

func TestConfigCommand_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvUsers, "many")

	_, _, err := executeCommand(t, "config")
	require.Error(t, err)

	var verrs *config.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{config.EnvUsers}, verrs.Fields())
}

func TestConfigCommand_ValidationCollectsEveryField(t *testing.T) {
	clearEnv(t)

	_, _, err := executeCommand(t, "config", "--host", "ftp://nope", "--users", "0", "--log-level", "chatty")
	require.Error(t, err)

	var verrs *config.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{"host", "users", "logLevel"}, verrs.Fields())
}

func TestConfigCommand_InvalidRunTimeFlag(t *testing.T) {
	clearEnv(t)

	_, _, err := executeCommand(t, "config", "--run-time", "soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run-time")
}

func TestProfilesCommand(t *testing.T) {
	out, _, err := executeCommand(t, "profiles")
	require.NoError(t, err)

	for _, want := range []string{
		"standard (weight 1, 17% of users)",
		"read-only (weight 3, 50% of users)",
		"database-stress",
		"admin",
		"list_tasks",
		"batch_create_operations",
		"wait: 2s - 5s",
	} {
		assert.Contains(t, out, want)
	}
}

func TestProfilesCommand_FromFile(t *testing.T) {
	path := writeFile(t, "mix.yaml", `
profiles:
  - name: admin
    weight: 4
  - name: read-only
`)

	out, _, err := executeCommand(t, "profiles", "--profiles", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "admin (weight 4, 57% of users)"), out)
	assert.NotContains(t, out, "standard")
}

func TestProfilesCommand_UnknownProfile(t *testing.T) {
	path := writeFile(t, "mix.yaml", "profiles:\n  - name: root\n")

	_, _, err := executeCommand(t, "profiles", "--profiles", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown profile "root"`)
}
