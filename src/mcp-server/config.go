// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/helper/posix"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/policy"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/workspace"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/logger"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/mcp-server/templates"
)

// Environment variables read by loadConfig.
const (
	envConfigFile    = "MCP_SANDBOX_CONFIG_FILE"
	envDockerHost    = "DOCKER_HOST"
	envDevDocsURL    = "DEVDOCS_URL"
	envSeleniumURL   = "SELENIUM_URL"
	envWorkspace     = "MCP_SANDBOX_WORKSPACE"
	envSecurityLevel = "MCP_SANDBOX_SECURITY_LEVEL"
)

const configSchemaFile = "config.schema.json"

// configFormat represents supported configuration file formats.
type configFormat int

const (
	// configFormatJSON represents JSON configuration format (.json)
	configFormatJSON configFormat = iota
	// configFormatYAML represents YAML configuration format (.yaml, .yml)
	configFormatYAML
)

// Config represents the MCP server configuration structure.
//
// The configuration can be loaded from a JSON or YAML file named by the
// --config flag or the MCP_SANDBOX_CONFIG_FILE environment variable, with
// defaults applied for any missing values. It is read-only once loaded.
// Supported file extensions: .json, .yaml, .yml
type Config struct {
	// Defaults: Timeouts and limits applied when a tool call omits them
	Defaults struct {
		// Timeout: Default execute_command timeout in seconds
		Timeout int `json:"timeoutSeconds" yaml:"timeoutSeconds"`
		// ContainerTimeout: Upper bound in seconds for creating a container, image pull included
		ContainerTimeout int `json:"containerTimeoutSeconds" yaml:"containerTimeoutSeconds"`
		// StopTimeout: Grace period in seconds before a stopping container is killed
		StopTimeout int `json:"stopTimeoutSeconds" yaml:"stopTimeoutSeconds"`
		// LogTail: Default number of log lines returned
		LogTail int `json:"logTail" yaml:"logTail"`
	} `json:"defaults" yaml:"defaults"`

	// Policy: Allow-list and security level
	Policy struct {
		SecurityLevel   string   `json:"securityLevel" yaml:"securityLevel"`
		AllowedImages   []string `json:"allowedImages,omitempty" yaml:"allowedImages,omitempty"`
		AllowedBrowsers []string `json:"allowedBrowsers,omitempty" yaml:"allowedBrowsers,omitempty"`
		// EnableGPU: Append the GPU images to the allow-list
		EnableGPU bool `json:"enableGPU" yaml:"enableGPU"`
	} `json:"policy" yaml:"policy"`

	// Docker: Container engine connection
	Docker struct {
		// Host: Engine address; empty uses DOCKER_HOST or the platform default
		Host string `json:"host,omitempty" yaml:"host,omitempty"`
		// WorkspaceMount: Container path the host workspace is mounted on
		WorkspaceMount string `json:"workspaceMount" yaml:"workspaceMount"`
		// Network: Network new containers join
		Network string `json:"network,omitempty" yaml:"network,omitempty"`
	} `json:"docker" yaml:"docker"`

	// Browser: Browser automation backends
	Browser struct {
		Headless bool `json:"headless" yaml:"headless"`
		// Bin: Chromium binary; empty lets rod find or download one
		Bin         string `json:"bin,omitempty" yaml:"bin,omitempty"`
		SeleniumURL string `json:"seleniumURL" yaml:"seleniumURL"`
		Viewport    struct {
			Width  int `json:"width" yaml:"width"`
			Height int `json:"height" yaml:"height"`
		} `json:"viewport" yaml:"viewport"`
	} `json:"browser" yaml:"browser"`

	// DevDocs: Documentation service
	DevDocs struct {
		URL            string `json:"url" yaml:"url"`
		TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
		CacheSize      int    `json:"cacheSize" yaml:"cacheSize"`
		CacheTTL       int    `json:"cacheTTLSeconds" yaml:"cacheTTLSeconds"`
	} `json:"devdocs" yaml:"devdocs"`

	// Workspace: Host directory shared with containers
	Workspace struct {
		Dir          string `json:"dir" yaml:"dir"`
		MaxFileBytes int64  `json:"maxFileBytes" yaml:"maxFileBytes"`
	} `json:"workspace" yaml:"workspace"`

	// Features: Tool groups; a disabled group is not registered
	Features struct {
		Docker      bool `json:"docker" yaml:"docker"`
		Browser     bool `json:"browser" yaml:"browser"`
		Files       bool `json:"files" yaml:"files"`
		Docs        bool `json:"docs" yaml:"docs"`
		AutoCleanup bool `json:"autoCleanup" yaml:"autoCleanup"`
	} `json:"features" yaml:"features"`

	// Janitor: Idle resource reaping, active when Features.AutoCleanup is set
	Janitor struct {
		Schedule string `json:"schedule" yaml:"schedule"`
		// MaxIdle: Seconds a container or browser may stay unused; 0 only purges caches
		MaxIdle int `json:"maxIdleSeconds" yaml:"maxIdleSeconds"`
	} `json:"janitor" yaml:"janitor"`

	// Logging: Structured diagnostics on stderr
	Logging struct {
		Level  string `json:"level" yaml:"level"`
		Format string `json:"format" yaml:"format"`
	} `json:"logging" yaml:"logging"`
}

// defaultConfig returns the configuration used when no file is given.
func defaultConfig() *Config {
	config := &Config{}

	config.Defaults.Timeout = 30
	config.Defaults.ContainerTimeout = 300
	config.Defaults.StopTimeout = 10
	config.Defaults.LogTail = 100

	config.Policy.SecurityLevel = policy.LevelMedium.String()
	config.Policy.AllowedImages = slices.Clone(policy.DefaultImages)
	config.Policy.AllowedBrowsers = slices.Clone(policy.DefaultBrowsers)

	config.Docker.WorkspaceMount = "/workspace"

	config.Browser.Headless = true
	config.Browser.SeleniumURL = "http://localhost:4444/wd/hub"
	config.Browser.Viewport.Width = 1920
	config.Browser.Viewport.Height = 1080

	config.DevDocs.URL = "http://localhost:9292"
	config.DevDocs.TimeoutSeconds = 15
	config.DevDocs.CacheSize = 32
	config.DevDocs.CacheTTL = 600

	config.Workspace.Dir = posix.ScratchDir()
	config.Workspace.MaxFileBytes = workspace.DefaultMaxFileBytes

	config.Features.Docker = true
	config.Features.Browser = true
	config.Features.Files = true
	config.Features.Docs = true
	config.Features.AutoCleanup = true

	config.Janitor.Schedule = "@every 5m"

	config.Logging.Level = "info"
	config.Logging.Format = "text"

	return config
}

// detectConfigFormat determines the configuration file format based on file extension.
// It supports .json, .yaml, and .yml extensions for flexible configuration management.
//
// The function uses case-insensitive extension matching for cross-platform compatibility.
func detectConfigFormat(configPath string) configFormat {
	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case ".yaml", ".yml":
		return configFormatYAML
	default:
		return configFormatJSON
	}
}

// decodeDocument decodes data into a generic document for schema validation.
func decodeDocument(data []byte, format configFormat) (any, error) {
	var doc any
	switch format {
	case configFormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config file: %w", err)
		}
	}
	return doc, nil
}

// validateConfigDocument checks a decoded document against the embedded JSON schema.
// All schema violations are reported together.
func validateConfigDocument(doc any) error {
	schema, err := templates.MagicEmbed.ReadFile(configSchemaFile)
	if err != nil {
		return fmt.Errorf("failed to load config schema: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

// unmarshalConfig unmarshals configuration data based on the specified format.
// It supports both JSON and YAML formats for configuration flexibility.
//
// Fields absent from data keep the values already present in config.
func unmarshalConfig(data []byte, config *Config, format configFormat) error {
	switch format {
	case configFormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %w", err)
		}
	}
	return nil
}

// applyEnv overrides file values with the documented environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv(envDockerHost); v != "" {
		c.Docker.Host = v
	}
	if v := os.Getenv(envDevDocsURL); v != "" {
		c.DevDocs.URL = v
	}
	if v := os.Getenv(envSeleniumURL); v != "" {
		c.Browser.SeleniumURL = v
	}
	if v := os.Getenv(envWorkspace); v != "" {
		c.Workspace.Dir = v
	}
	if v := os.Getenv(envSecurityLevel); v != "" {
		c.Policy.SecurityLevel = v
	}
}

// sanitize replaces non-positive values with defaults.
func (c *Config) sanitize() {
	d := defaultConfig()
	if c.Defaults.Timeout <= 0 {
		c.Defaults.Timeout = d.Defaults.Timeout
	}
	if c.Defaults.ContainerTimeout <= 0 {
		c.Defaults.ContainerTimeout = d.Defaults.ContainerTimeout
	}
	if c.Defaults.StopTimeout <= 0 {
		c.Defaults.StopTimeout = d.Defaults.StopTimeout
	}
	if c.Defaults.LogTail <= 0 {
		c.Defaults.LogTail = d.Defaults.LogTail
	}
	if c.Browser.Viewport.Width <= 0 || c.Browser.Viewport.Height <= 0 {
		c.Browser.Viewport = d.Browser.Viewport
	}
	if c.DevDocs.TimeoutSeconds <= 0 {
		c.DevDocs.TimeoutSeconds = d.DevDocs.TimeoutSeconds
	}
	if c.DevDocs.CacheTTL <= 0 {
		c.DevDocs.CacheTTL = d.DevDocs.CacheTTL
	}
	if c.Workspace.MaxFileBytes <= 0 {
		c.Workspace.MaxFileBytes = d.Workspace.MaxFileBytes
	}
	if c.Docker.WorkspaceMount == "" {
		c.Docker.WorkspaceMount = d.Docker.WorkspaceMount
	}
	if c.Workspace.Dir == "" {
		c.Workspace.Dir = d.Workspace.Dir
	}
	if c.Janitor.Schedule == "" {
		c.Janitor.Schedule = d.Janitor.Schedule
	}
}

// validate checks values that the schema cannot, after environment overrides.
func (c *Config) validate() error {
	if _, err := policy.ParseLevel(c.Policy.SecurityLevel); err != nil {
		return fmt.Errorf("policy.securityLevel: %w", err)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// BuildPolicy returns the Policy Gate described by the policy section.
func (c *Config) BuildPolicy() (*policy.Policy, error) {
	level, err := policy.ParseLevel(c.Policy.SecurityLevel)
	if err != nil {
		return nil, err
	}
	images := c.Policy.AllowedImages
	if len(images) == 0 {
		images = policy.DefaultImages
	}
	if c.Policy.EnableGPU {
		images = append(slices.Clone(images), policy.GPUImages...)
	}
	browsers := c.Policy.AllowedBrowsers
	if len(browsers) == 0 {
		browsers = policy.DefaultBrowsers
	}
	return policy.New(level, images, browsers), nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// loadConfig loads MCP server configuration from a JSON or YAML file or applies defaults.
//
// Configuration Priority:
//  1. Default values are set
//  2. MCP_SANDBOX_CONFIG_FILE environment variable is checked if configPath is empty
//  3. Config file values override defaults after passing schema validation
//  4. Environment variables override config file values (DOCKER_HOST, DEVDOCS_URL,
//     SELENIUM_URL, MCP_SANDBOX_WORKSPACE, MCP_SANDBOX_SECURITY_LEVEL)
func loadConfig(configPath string) (*Config, error) {
	config := defaultConfig()

	// Check environment variable for config file path if not provided
	if configPath == "" {
		configPath = os.Getenv(envConfigFile)
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// An empty file means "all defaults"
		if len(bytes.TrimSpace(data)) > 0 {
			format := detectConfigFormat(configPath)
			doc, err := decodeDocument(data, format)
			if err != nil {
				return nil, err
			}
			if err := validateConfigDocument(doc); err != nil {
				return nil, err
			}
			if err := unmarshalConfig(data, config, format); err != nil {
				return nil, err
			}
		}
		config.sanitize()
	}

	config.applyEnv()

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}
