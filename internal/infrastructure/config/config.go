// Package config provides configuration loading for the reposmith application.
// It resolves named model profiles (credential, model name, endpoint URL) from
// environment variables, a local JSON file, or HashiCorp Vault.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/vault"
	"github.com/go-playground/validator/v10"

	"github.com/reposmith-ai/reposmith/internal/domain"
)

// Environment variable names.
const (
	// EnvConfigPath is the path to the profiles JSON file (defaults to ./config.json).
	EnvConfigPath = "REPOSMITH_CONFIG"

	// EnvAPIKey is a fallback API key applied when the resolved profile has none.
	EnvAPIKey = "OPENAI_API_KEY"

	// EnvLogLevel is the log level (debug, info, error).
	EnvLogLevel = "LOG_LEVEL"

	// EnvLogAppName is the application name for log context.
	EnvLogAppName = "LOG_APP_NAME"

	// EnvVaultProfilesPath is the path in Vault KV where the profiles are stored.
	EnvVaultProfilesPath = "VAULT_PROFILES_PATH"

	// EnvVaultProfilesMount is the Vault KV mount point (defaults to "secret").
	EnvVaultProfilesMount = "VAULT_PROFILES_MOUNT"
)

// Default values.
const (
	DefaultConfigFile        = "config.json"
	DefaultLogLevel          = "info"
	DefaultLogAppName        = "reposmith"
	DefaultProfileName       = "openai"
	DefaultVaultProfileMount = "secret"
)

// Configuration errors.
var (
	// ErrProfilesRequired indicates no profile source is available.
	ErrProfilesRequired = errors.New(
		"model profiles required: set VAULT_PROFILES_PATH (with VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID) " +
			"or provide a config.json (override path with REPOSMITH_CONFIG)",
	)

	// ErrConfigNotFound indicates the profiles file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrConfigInvalid indicates the profiles source is not valid JSON or
	// fails schema validation.
	ErrConfigInvalid = errors.New("configuration is not valid")

	// ErrVaultClientFailed indicates failure to create or authenticate with Vault.
	ErrVaultClientFailed = errors.New("failed to create Vault client")

	// ErrVaultSecretNotFound indicates the profiles secret was not found in Vault.
	ErrVaultSecretNotFound = errors.New("model profiles not found in Vault")
)

// validate checks loaded profile sets against their schema tags.
var validate = validator.New()

// Profile is a named bundle of credential, model identifier, and endpoint URL.
type Profile struct {
	// APIKey is the bearer credential. May be empty in the file when the key
	// is supplied via environment or an explicit flag.
	APIKey string `json:"api_key"`

	// ModelName is the model identifier sent with each request.
	ModelName string `json:"model_name" validate:"required"`

	// APIURL is the chat-completion endpoint URL.
	APIURL string `json:"api_url" validate:"required,url"`
}

// ProfileSet is the on-disk shape of the profiles configuration.
type ProfileSet struct {
	// DefaultModel names the profile used when none is requested.
	DefaultModel string `json:"default_model"`

	// Models maps profile name to profile.
	Models map[string]Profile `json:"models" validate:"required,min=1,dive"`
}

// VaultClient defines the interface for Vault operations.
// This interface allows for dependency injection and testing.
type VaultClient interface {
	// GetKVSecret retrieves a secret from Vault's KV v2 secrets engine.
	GetKVSecret(ctx context.Context, path, mount string) (map[string]interface{}, error)
}

// VaultClientFactory creates a VaultClient using AppRole authentication.
type VaultClientFactory func(ctx context.Context) (VaultClient, error)

// DefaultVaultClientFactory creates a VaultClient using goLibMyCarrier/vault
// with AppRole auth from VAULT_ADDRESS, VAULT_ROLE_ID, and VAULT_SECRET_ID.
func DefaultVaultClientFactory(ctx context.Context) (VaultClient, error) {
	vaultConfig, err := vault.VaultLoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	client, err := vault.CreateVaultClient(ctx, vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	return client, nil
}

// Config holds all application configuration.
type Config struct {
	// Profiles holds the named model profiles.
	Profiles *ProfileSet

	// LogLevel is the logging level (debug, info, error).
	LogLevel string

	// LogAppName is the application name for log context.
	LogAppName string
}

// Load loads the application configuration.
// Profiles are loaded from Vault (preferred) or a local JSON file (fallback).
//
// For Vault loading, requires:
//   - VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID: AppRole credentials
//   - VAULT_PROFILES_PATH: path to the secret in Vault
//   - VAULT_PROFILES_MOUNT: KV mount point (optional, defaults to "secret")
//
// For file loading (fallback):
//   - REPOSMITH_CONFIG: path to the JSON file (defaults to ./config.json)
func Load() (*Config, error) {
	return LoadWithVaultClient(context.Background(), nil)
}

// LoadWithVaultClient loads configuration using the provided VaultClient factory.
// If vaultClientFactory is nil, DefaultVaultClientFactory is used.
// This function enables dependency injection for testing.
func LoadWithVaultClient(ctx context.Context, vaultClientFactory VaultClientFactory) (*Config, error) {
	profiles, err := loadProfiles(ctx, vaultClientFactory)
	if err != nil {
		return nil, err
	}

	if err := validate.Struct(profiles); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	logLevel := os.Getenv(EnvLogLevel)
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	logAppName := os.Getenv(EnvLogAppName)
	if logAppName == "" {
		logAppName = DefaultLogAppName
	}

	return &Config{
		Profiles:   profiles,
		LogLevel:   logLevel,
		LogAppName: logAppName,
	}, nil
}

// ResolveProfile resolves a named profile to its credential/model/endpoint
// triple. An empty name resolves the default profile. An explicit key
// overrides only the credential; the profile's model and endpoint always
// stay together, so a key/model/endpoint mismatch cannot arise.
func (c *Config) ResolveProfile(name, explicitKey string) (*Profile, error) {
	if name == "" {
		name = c.DefaultModel()
	}

	profile, ok := c.Profiles.Models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProfile, name)
	}

	if explicitKey != "" {
		profile.APIKey = explicitKey
	}
	if profile.APIKey == "" {
		profile.APIKey = os.Getenv(EnvAPIKey)
	}
	if profile.APIKey == "" {
		return nil, fmt.Errorf("%w: profile %q", domain.ErrMissingAPIKey, name)
	}

	return &profile, nil
}

// DefaultModel returns the configured default profile name.
func (c *Config) DefaultModel() string {
	if c.Profiles != nil && c.Profiles.DefaultModel != "" {
		return c.Profiles.DefaultModel
	}
	return DefaultProfileName
}

// ListModels returns the configured profile names in sorted order.
func (c *Config) ListModels() []string {
	if c.Profiles == nil {
		return nil
	}
	names := make([]string, 0, len(c.Profiles.Models))
	for name := range c.Profiles.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasKey reports whether the named profile has a credential configured,
// either in the profile itself or via the environment fallback.
func (c *Config) HasKey(name string) bool {
	profile, ok := c.Profiles.Models[name]
	if !ok {
		return false
	}
	return profile.APIKey != "" || os.Getenv(EnvAPIKey) != ""
}

// loadProfiles attempts to load profiles from Vault first, falling back to a
// local file when Vault is not configured.
func loadProfiles(ctx context.Context, vaultClientFactory VaultClientFactory) (*ProfileSet, error) {
	vaultPath := os.Getenv(EnvVaultProfilesPath)
	if vaultPath != "" {
		return loadProfilesFromVault(ctx, vaultClientFactory, vaultPath)
	}

	configPath := os.Getenv(EnvConfigPath)
	if configPath == "" {
		configPath = DefaultConfigFile
	}

	return loadProfilesFromFile(configPath)
}

// loadProfilesFromVault loads the profile set from Vault KV v2.
func loadProfilesFromVault(
	ctx context.Context,
	vaultClientFactory VaultClientFactory,
	path string,
) (*ProfileSet, error) {
	if vaultClientFactory == nil {
		vaultClientFactory = DefaultVaultClientFactory
	}

	client, err := vaultClientFactory(ctx)
	if err != nil {
		return nil, err
	}

	mount := os.Getenv(EnvVaultProfilesMount)
	if mount == "" {
		mount = DefaultVaultProfileMount
	}

	secretData, err := client.GetKVSecret(ctx, path, mount)
	if err != nil {
		return nil, fmt.Errorf("%w at path %s: %w", ErrVaultSecretNotFound, path, err)
	}

	return parseProfilesFromVault(secretData)
}

// parseProfilesFromVault parses the profile set from Vault secret data.
// Supports two formats:
// 1. A "config" key containing the profiles as a JSON string
// 2. Direct mapping of the profile set fields in the secret
func parseProfilesFromVault(secretData map[string]interface{}) (*ProfileSet, error) {
	if configStr, ok := secretData["config"].(string); ok {
		var profiles ProfileSet
		if err := json.Unmarshal([]byte(configStr), &profiles); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
		}
		return &profiles, nil
	}

	jsonData, err := json.Marshal(secretData)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal secret data: %w", ErrConfigInvalid, err)
	}

	var profiles ProfileSet
	if err := json.Unmarshal(jsonData, &profiles); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	return &profiles, nil
}

// loadProfilesFromFile loads the profile set from the specified file path.
func loadProfilesFromFile(path string) (*ProfileSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (%w)", ErrConfigNotFound, path, ErrProfilesRequired)
		}
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	var profiles ProfileSet
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	return &profiles, nil
}
