package htsconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	config := Default()
	assert.Equal(t, DefaultPort, config.Port)
	assert.Equal(t, DefaultBlockSize, config.BlockSize)
	assert.Equal(t, "info", config.LogLevel)
	assert.NotEmpty(t, config.RootDirectory)
}

func TestLoadFlags(t *testing.T) {
	dir := t.TempDir()
	config, err := Load([]string{
		"-d", dir,
		"-p", "8888",
		"--block-size", "1024",
		"--host", "https://data.example.org",
		"--log-level", "debug",
	})
	require.NoError(t, err)
	assert.Equal(t, dir, config.RootDirectory)
	assert.Equal(t, 8888, config.Port)
	assert.Equal(t, int64(1024), config.BlockSize)
	assert.Equal(t, "https://data.example.org", config.Host)
	assert.Equal(t, "debug", config.LogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath,
		[]byte(`{"port": 9999, "rootDirectory": "`+dir+`", "blockSize": 2048}`), 0o644))

	config, err := Load([]string{"--config", configPath})
	require.NoError(t, err)
	assert.Equal(t, 9999, config.Port)
	assert.Equal(t, dir, config.RootDirectory)
	assert.Equal(t, int64(2048), config.BlockSize)
	// Untouched fields keep their defaults.
	assert.Equal(t, "info", config.LogLevel)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath,
		[]byte(`{"port": 9999, "rootDirectory": "`+dir+`"}`), 0o644))

	config, err := Load([]string{"--config", configPath, "-p", "7777"})
	require.NoError(t, err)
	assert.Equal(t, 7777, config.Port)
	assert.Equal(t, dir, config.RootDirectory)
}

func TestLoadValidation(t *testing.T) {
	dir := t.TempDir()

	_, err := Load([]string{"-d", dir, "-p", "0"})
	assert.ErrorContains(t, err, "port out of range")

	_, err = Load([]string{"-d", dir, "--block-size", "0"})
	assert.ErrorContains(t, err, "block size")

	_, err = Load([]string{"-d", filepath.Join(dir, "nosuch")})
	assert.ErrorContains(t, err, "does not exist")

	notADir := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0o644))
	_, err = Load([]string{"-d", notADir})
	assert.ErrorContains(t, err, "not a directory")
}

func TestS3BucketSkipsDirectoryCheck(t *testing.T) {
	config, err := Load([]string{"--s3-bucket", "genomes", "-d", "/no/such/dir"})
	require.NoError(t, err)
	assert.Equal(t, "genomes", config.S3Bucket)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load([]string{"--config", "/no/such/config.json"})
	assert.ErrorContains(t, err, "reading configuration file")
}

func TestTicketBaseURL(t *testing.T) {
	config := &Config{Port: 8080}
	assert.Equal(t, "http://localhost:8080", config.TicketBaseURL())

	config.Host = "https://data.example.org"
	assert.Equal(t, "https://data.example.org", config.TicketBaseURL())
}
