package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/fileshare/pkg/config"
)

// run executes the config command tree under a root carrying --config.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	initForce, showOutput, schemaOutput = false, "yaml", ""

	root := &cobra.Command{Use: "fileshare", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().String("config", "", "")
	root.AddCommand(Cmd)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"config"}, args...))

	err := root.Execute()
	root.RemoveCommand(Cmd)
	return out.String(), err
}

func TestInit_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fs", "config.yaml")

	out, err := run(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.GetDefaultConfig(), cfg)
}

func TestInit_RefusesOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0644))

	_, err := run(t, "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = run(t, "init", "--config", path, "--force")
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestShow_YAMLAndJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0644))

	out, err := run(t, "show", "--config", path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	server, ok := doc["server"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 9000, server["port"])

	out, err = run(t, "show", "--config", path, "-o", "json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}

func TestShow_InvalidFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))

	_, err := run(t, "show", "--config", path, "-o", "xml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.SaveConfig(config.GetDefaultConfig(), path))

	out, err := run(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Validation: OK")
	assert.Contains(t, out, "default password")
	assert.Contains(t, out, "disabled")
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := run(t, "validate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fileshare config init")
}

func TestValidate_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 70000\n"), 0644))

	_, err := run(t, "validate", "--config", path)
	require.Error(t, err)
}

func TestConfigWarnings(t *testing.T) {
	cfg := config.GetDefaultConfig()
	assert.Len(t, configWarnings(cfg), 1)

	cfg.Auth.Password = ""
	cfg.Auth.PasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
	assert.Empty(t, configWarnings(cfg))

	cfg.Server.EndUploadOnShortRead = true
	assert.Len(t, configWarnings(cfg), 1)
}

func TestSchema(t *testing.T) {
	data, err := generateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"logging", "server", "storage", "auth", "metrics", "api", "client"} {
		assert.Contains(t, props, key)
	}

	server := props["server"].(map[string]any)["properties"].(map[string]any)
	chunk := server["chunk_size"].(map[string]any)
	assert.Contains(t, chunk, "oneOf")
	timeouts := server["timeouts"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "string", timeouts["upload_idle"].(map[string]any)["type"])
}

func TestSchema_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")

	out, err := run(t, "schema", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}
