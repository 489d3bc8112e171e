// Package htsconfig loads server configuration from command-line flags
// and an optional JSON configuration file. File values are merged over
// a deep copy of the defaults; explicitly set flags win over both.
package htsconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/getlantern/deepcopy"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
)

const (
	// DefaultBlockSize is the maximum size of a single ticketed byte
	// range: 1 GiB.
	DefaultBlockSize = int64(1) << 30

	DefaultPort = 80
)

// Config holds every tunable of the server.
type Config struct {
	Port             int    `json:"port"`
	Host             string `json:"host"`
	RootDirectory    string `json:"rootDirectory"`
	BlockSize        int64  `json:"blockSize"`
	S3Bucket         string `json:"s3Bucket"`
	AuthKey          string `json:"authKey"`
	LogLevel         string `json:"logLevel"`
	ErrorOnInterrupt bool   `json:"errorOnInterrupt"`
}

// Default returns the built-in configuration: serve the working
// directory on port 80 with 1 GiB blocks.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Config{
		Port:          DefaultPort,
		RootDirectory: cwd,
		BlockSize:     DefaultBlockSize,
		LogLevel:      "info",
	}
}

// TicketBaseURL is the externally visible base of block-delivery URLs.
func (c *Config) TicketBaseURL() string {
	if c.Host != "" {
		return c.Host
	}
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

// Load parses args (not including the program name) into a Config.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("htsget-server", pflag.ContinueOnError)

	defaults := Default()
	rootDirectory := flags.StringP("root-directory", "d", defaults.RootDirectory,
		"directory from which to serve files")
	port := flags.IntP("port", "p", defaults.Port,
		"port on which the server will listen")
	blockSize := flags.Int64("block-size", defaults.BlockSize,
		"maximum size of file chunks to be served")
	host := flags.String("host", "",
		"externally visible base URL for ticket data URLs")
	s3Bucket := flags.String("s3-bucket", "",
		"serve records from this S3 bucket instead of the local directory")
	authKey := flags.String("auth-key", "",
		"HMAC key for bearer-token verification; empty disables auth")
	logLevel := flags.String("log-level", defaults.LogLevel,
		"minimum log level (debug, info, warn, error)")
	errorOnInterrupt := flags.Bool("error-on-interrupt", false,
		"exit with a non-zero code when interrupted")
	configFile := flags.String("config", "", "path to a JSON configuration file")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	config := new(Config)
	if err := deepcopy.Copy(config, defaults); err != nil {
		return nil, fmt.Errorf("copying default configuration: %w", err)
	}

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("reading configuration file: %w", err)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing configuration file %s: %w", *configFile, err)
		}
	}

	// Flags the user actually set override the file and the defaults.
	if flags.Changed("root-directory") {
		config.RootDirectory = *rootDirectory
	}
	if flags.Changed("port") {
		config.Port = *port
	}
	if flags.Changed("block-size") {
		config.BlockSize = *blockSize
	}
	if flags.Changed("host") {
		config.Host = *host
	}
	if flags.Changed("s3-bucket") {
		config.S3Bucket = *s3Bucket
	}
	if flags.Changed("auth-key") {
		config.AuthKey = *authKey
	}
	if flags.Changed("log-level") {
		config.LogLevel = *logLevel
	}
	if flags.Changed("error-on-interrupt") {
		config.ErrorOnInterrupt = *errorOnInterrupt
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.BlockSize < 1 {
		return fmt.Errorf("block size must be positive: %d", c.BlockSize)
	}
	if c.S3Bucket == "" {
		return checkDirectory(c.RootDirectory)
	}
	return nil
}

// checkDirectory verifies that path is an existing directory this
// process can read and traverse.
func checkDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("directory does not exist: %s", path)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return fmt.Errorf("insufficient permissions to read from directory %s", path)
	}
	return nil
}
