// pkg/config/config.go - configuration settings for Remedian.

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/windows/registry"
	"gopkg.in/yaml.v3"
)

const ConfigPath = `C:\ProgramData\ManagedRemediations\Config.yaml`

// CSP OMA-URI registry path for enterprise policy configuration
const CSPRegistryPath = `SOFTWARE\Remedian\Config`

// ManagedKeyPath is the registry key where Remedian records versions it
// has installed, keyed by item name. The managed-key probe reads it and
// the remediation pipeline writes it back after a successful install.
const ManagedKeyPath = `SOFTWARE\ManagedRemediations`

// Configuration holds the configurable options for Remedian in YAML format.
// One tracked item per invocation; the item's identity, its target baseline,
// and the probe/acquisition inputs all live here.
type Configuration struct {
	ItemName    string `yaml:"ItemName"`
	DisplayName string `yaml:"DisplayName"`

	// Baseline
	TargetVersion  string `yaml:"TargetVersion"`
	ExpectedSHA256 string `yaml:"ExpectedSHA256"`

	// Probe inputs
	BinaryPath     string   `yaml:"BinaryPath"`
	VersionArgs    []string `yaml:"VersionArgs"`
	PackagePattern string   `yaml:"PackagePattern"`
	ProductCode    string   `yaml:"ProductCode"`
	ServiceName    string   `yaml:"ServiceName"`

	// Policy check (restriction detection and repair)
	PolicyKeyPath      string `yaml:"PolicyKeyPath"`
	PolicyValueName    string `yaml:"PolicyValueName"`
	PolicyDesiredValue uint32 `yaml:"PolicyDesiredValue"`

	// Acquisition
	ShareURL       string `yaml:"ShareURL"`
	ReleasePattern string `yaml:"ReleasePattern"` // fmt pattern, %s = target version
	ArtifactName   string `yaml:"ArtifactName"`   // optional local file name override

	// Processes that must not be running while an installer executes
	BlockingProcesses []string `yaml:"BlockingProcesses"`

	// Ambient
	CachePath string `yaml:"CachePath"`
	LogPath   string `yaml:"LogPath"`
	LogLevel  string `yaml:"LogLevel"`
	Debug     bool   `yaml:"Debug"`
	Verbose   bool   `yaml:"Verbose"`
	CheckOnly bool   `yaml:"CheckOnly"`

	FetchTimeoutSeconds int `yaml:"FetchTimeoutSeconds"`
}

// LoadConfig loads the configuration from the YAML file at ConfigPath.
// If the YAML file doesn't exist, it falls back to CSP OMA-URI registry
// settings.
func LoadConfig() (*Configuration, error) {
	return loadConfigFrom(ConfigPath)
}

// LoadConfigFile loads configuration from an explicit YAML path.
func LoadConfigFile(path string) (*Configuration, error) {
	return loadConfigFrom(path)
}

func loadConfigFrom(path string) (*Configuration, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("Configuration file does not exist: %s", path)
		log.Printf("Attempting to load configuration from CSP OMA-URI registry settings...")

		config, cspErr := LoadConfigFromCSP()
		if cspErr == nil {
			return config, nil
		}

		log.Printf("Failed to load from CSP registry: %v", cspErr)
		return nil, fmt.Errorf("configuration file does not exist and CSP fallback failed: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Configuration
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	applyDefaults(&config)

	if config.ItemName == "" {
		return nil, fmt.Errorf("configuration is missing ItemName")
	}

	return &config, nil
}

// SaveConfig saves the current configuration to the YAML file.
func SaveConfig(config *Configuration) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(ConfigPath), 0755); err != nil {
		return err
	}

	return os.WriteFile(ConfigPath, data, 0644)
}

// GetDefaultConfig provides default configuration values.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		LogLevel:            "INFO",
		CachePath:           `C:\ProgramData\ManagedRemediations\Cache`,
		LogPath:             `C:\ProgramData\ManagedRemediations\Logs`,
		FetchTimeoutSeconds: 60,
		VersionArgs:         []string{"--version"},
	}
}

func applyDefaults(config *Configuration) {
	if config.CachePath == "" {
		config.CachePath = `C:\ProgramData\ManagedRemediations\Cache`
	}
	if config.LogPath == "" {
		config.LogPath = `C:\ProgramData\ManagedRemediations\Logs`
	}
	if config.LogLevel == "" {
		config.LogLevel = "INFO"
	}
	if config.FetchTimeoutSeconds <= 0 {
		config.FetchTimeoutSeconds = 60
	}
	if len(config.VersionArgs) == 0 {
		config.VersionArgs = []string{"--version"}
	}
	if config.DisplayName == "" {
		config.DisplayName = config.ItemName
	}
}

// LoadConfigFromCSP loads configuration from Windows CSP OMA-URI registry
// settings. This serves as a fallback when the Config.yaml file doesn't exist.
func LoadConfigFromCSP() (*Configuration, error) {
	config := GetDefaultConfig()

	if err := loadCSPFromRegistryPath(CSPRegistryPath, config); err != nil {
		return nil, fmt.Errorf("failed to load from CSP registry path: %v", err)
	}

	if config.ItemName == "" {
		return nil, fmt.Errorf("essential CSP configuration missing: ItemName not set")
	}

	applyDefaults(config)
	return config, nil
}

// loadCSPFromRegistryPath loads configuration values from a specific registry path.
func loadCSPFromRegistryPath(registryPath string, config *Configuration) error {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, registryPath, registry.READ)
	if err != nil {
		return fmt.Errorf("failed to open CSP registry key %s: %v", registryPath, err)
	}
	defer key.Close()

	loadStringFromRegistry(key, "ItemName", &config.ItemName)
	loadStringFromRegistry(key, "DisplayName", &config.DisplayName)
	loadStringFromRegistry(key, "TargetVersion", &config.TargetVersion)
	loadStringFromRegistry(key, "ExpectedSHA256", &config.ExpectedSHA256)
	loadStringFromRegistry(key, "BinaryPath", &config.BinaryPath)
	loadStringFromRegistry(key, "PackagePattern", &config.PackagePattern)
	loadStringFromRegistry(key, "ProductCode", &config.ProductCode)
	loadStringFromRegistry(key, "ServiceName", &config.ServiceName)
	loadStringFromRegistry(key, "PolicyKeyPath", &config.PolicyKeyPath)
	loadStringFromRegistry(key, "PolicyValueName", &config.PolicyValueName)
	loadStringFromRegistry(key, "ShareURL", &config.ShareURL)
	loadStringFromRegistry(key, "ReleasePattern", &config.ReleasePattern)
	loadStringFromRegistry(key, "ArtifactName", &config.ArtifactName)
	loadStringFromRegistry(key, "CachePath", &config.CachePath)
	loadStringFromRegistry(key, "LogPath", &config.LogPath)
	loadStringFromRegistry(key, "LogLevel", &config.LogLevel)

	loadUint32FromRegistry(key, "PolicyDesiredValue", &config.PolicyDesiredValue)
	loadIntFromRegistry(key, "FetchTimeoutSeconds", &config.FetchTimeoutSeconds)

	loadBoolFromRegistry(key, "Debug", &config.Debug)
	loadBoolFromRegistry(key, "Verbose", &config.Verbose)
	loadBoolFromRegistry(key, "CheckOnly", &config.CheckOnly)

	loadStringArrayFromRegistry(key, "BlockingProcesses", &config.BlockingProcesses)
	loadStringArrayFromRegistry(key, "VersionArgs", &config.VersionArgs)

	return nil
}

// loadStringFromRegistry loads a string value from registry if it exists.
func loadStringFromRegistry(key registry.Key, valueName string, target *string) {
	if val, _, err := key.GetStringValue(valueName); err == nil && val != "" {
		*target = val
	}
}

// loadBoolFromRegistry loads a boolean value from registry if it exists.
// Accepts various formats: "true"/"false", "1"/"0", DWORD 1/0.
func loadBoolFromRegistry(key registry.Key, valueName string, target *bool) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.ParseBool(val); parseErr == nil {
			*target = parsed
			return
		}
	}
	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = val != 0
	}
}

// loadIntFromRegistry loads an integer value from registry if it exists.
func loadIntFromRegistry(key registry.Key, valueName string, target *int) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.Atoi(val); parseErr == nil {
			*target = parsed
			return
		}
	}
	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = int(val)
	}
}

// loadUint32FromRegistry loads a DWORD value from registry if it exists.
func loadUint32FromRegistry(key registry.Key, valueName string, target *uint32) {
	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = uint32(val)
	}
}

// loadStringArrayFromRegistry loads a string array stored as REG_MULTI_SZ,
// falling back to a comma-separated single string.
func loadStringArrayFromRegistry(key registry.Key, valueName string, target *[]string) {
	if vals, _, err := key.GetStringsValue(valueName); err == nil && len(vals) > 0 {
		filtered := make([]string, 0, len(vals))
		for _, val := range vals {
			if v := strings.TrimSpace(val); v != "" {
				filtered = append(filtered, v)
			}
		}
		if len(filtered) > 0 {
			*target = filtered
			return
		}
	}
	if val, _, err := key.GetStringValue(valueName); err == nil && val != "" {
		var filtered []string
		for _, part := range strings.Split(val, ",") {
			if v := strings.TrimSpace(part); v != "" {
				filtered = append(filtered, v)
			}
		}
		if len(filtered) > 0 {
			*target = filtered
		}
	}
}
