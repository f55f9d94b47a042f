package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, "server:\n  listen: \":9090\"\n")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, ":9090", config.Server.Listen)
	assert.Equal(t, 25, config.Decoder.DefaultIterations)
	assert.Equal(t, 100, config.Decoder.MaxIterations)
	assert.Equal(t, "log", config.Decoder.DefaultDomain)
	assert.Equal(t, "ft8ldpc", config.MQTT.TopicPrefix)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [not a map\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	config.Decoder.DefaultDomain = "turbo"
	assert.Error(t, config.Validate())
	config.Decoder.DefaultDomain = "probability"
	require.NoError(t, config.Validate())

	config.Decoder.MaxIterations = 5
	assert.Error(t, config.Validate())
	config.Decoder.MaxIterations = 200
	require.NoError(t, config.Validate())

	config.MQTT.Enabled = true
	assert.Error(t, config.Validate())
	config.MQTT.Broker = "tcp://localhost:1883"
	require.NoError(t, config.Validate())
}
