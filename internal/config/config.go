package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the alarm binaries.
type Config struct {
	// ServerAddress is the gRPC address of the alarm service.
	ServerAddress string `yaml:"server_addr"`
	// MetricsAddress is the HTTP address serving /metrics and /healthz.
	// Empty disables the endpoint.
	MetricsAddress string `yaml:"metrics_addr,omitempty"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level of log messages (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty"`
	// Storage selects where sensors and statuses are persisted.
	Storage Storage `yaml:"storage"`
	// Classifier selects the cat detector used for camera frames.
	Classifier Classifier `yaml:"classifier"`
	// Policy holds the decisions for cases the alarm rules leave open.
	Policy Policy `yaml:"policy"`
}

// Storage configures the repository backend.
type Storage struct {
	// Driver is one of memory, file or badger.
	Driver string `yaml:"driver"`
	// Path is the JSON file (file driver) or directory (badger driver).
	Path string `yaml:"path,omitempty"`
}

// Classifier configures the image classifier.
type Classifier struct {
	// Driver is one of random or static.
	Driver string `yaml:"driver"`
	// ConfidenceThreshold is the minimum confidence, in percent, to report a cat.
	ConfidenceThreshold float32 `yaml:"confidence_threshold"`
	// Verdict is the fixed answer of the static driver.
	Verdict bool `yaml:"verdict,omitempty"`
}

// Policy configures the open alarm decisions.
type Policy struct {
	// DisarmedActivation is escalate or ignore.
	DisarmedActivation string `yaml:"disarmed_activation"`
	// AwayCat is ignore or alarm.
	AwayCat string `yaml:"away_cat"`
	// RepeatedActivation is ignore or escalate.
	RepeatedActivation string `yaml:"repeated_activation"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-settings.yaml"

	// DefaultStateFilename is the default filename for the file storage driver.
	DefaultStateFilename = "alarm-state.json"

	// DefaultBadgerDir is the default directory for the badger storage driver.
	DefaultBadgerDir = "alarm-state.db"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultConfidenceThreshold is the classifier threshold used when none is set.
	DefaultConfidenceThreshold float32 = 50

	// DefaultFilePermissions is the default file permission for config and state files.
	DefaultFilePermissions = 0o600
)

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageBadger = "badger"
)

// Classifier drivers.
const (
	ClassifierRandom = "random"
	ClassifierStatic = "static"
)

// Policy values.
const (
	PolicyEscalate = "escalate"
	PolicyIgnore   = "ignore"
	PolicyAlarm    = "alarm"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errUnknownStorageDriver is returned for an unsupported storage driver.
	errUnknownStorageDriver = errors.New("unknown storage driver")
	// errUnknownClassifierDriver is returned for an unsupported classifier driver.
	errUnknownClassifierDriver = errors.New("unknown classifier driver")
	// errInvalidThreshold is returned when the confidence threshold is out of range.
	errInvalidThreshold = errors.New("confidence threshold must be within [0, 100]")
	// errUnknownPolicy is returned for an unsupported policy value.
	errUnknownPolicy = errors.New("unknown policy")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills defaults for optional fields.
//
//nolint:cyclop // A flat list of field checks reads better than helpers.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.MetricsAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics socket: %w", err)
		}
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if err := validateStorage(&settings.Storage); err != nil {
		return err
	}

	if err := validateClassifier(&settings.Classifier); err != nil {
		return err
	}

	return validatePolicy(&settings.Policy)
}

// validateStorage checks the storage driver and sets a default path per driver.
func validateStorage(storage *Storage) error {
	switch storage.Driver {
	case "":
		storage.Driver = StorageFile

		return validateStorage(storage)
	case StorageMemory:
		return nil
	case StorageFile:
		if storage.Path == "" {
			storage.Path = DefaultStateFilename
		}
	case StorageBadger:
		if storage.Path == "" {
			storage.Path = DefaultBadgerDir
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownStorageDriver, storage.Driver)
	}

	return nil
}

// validateClassifier checks the classifier driver and threshold.
func validateClassifier(classifier *Classifier) error {
	switch classifier.Driver {
	case "":
		classifier.Driver = ClassifierRandom
	case ClassifierRandom, ClassifierStatic:
	default:
		return fmt.Errorf("%w: %q", errUnknownClassifierDriver, classifier.Driver)
	}

	if classifier.ConfidenceThreshold == 0 {
		classifier.ConfidenceThreshold = DefaultConfidenceThreshold
	}

	if classifier.ConfidenceThreshold < 0 || classifier.ConfidenceThreshold > 100 {
		return fmt.Errorf("%w: %v", errInvalidThreshold, classifier.ConfidenceThreshold)
	}

	return nil
}

// validatePolicy checks every policy value and applies defaults.
func validatePolicy(policy *Policy) error {
	switch policy.DisarmedActivation {
	case "":
		policy.DisarmedActivation = PolicyEscalate
	case PolicyEscalate, PolicyIgnore:
	default:
		return fmt.Errorf("%w: disarmed_activation=%q", errUnknownPolicy, policy.DisarmedActivation)
	}

	switch policy.AwayCat {
	case "":
		policy.AwayCat = PolicyIgnore
	case PolicyIgnore, PolicyAlarm:
	default:
		return fmt.Errorf("%w: away_cat=%q", errUnknownPolicy, policy.AwayCat)
	}

	switch policy.RepeatedActivation {
	case "":
		policy.RepeatedActivation = PolicyEscalate
	case PolicyIgnore, PolicyEscalate:
	default:
		return fmt.Errorf("%w: repeated_activation=%q", errUnknownPolicy, policy.RepeatedActivation)
	}

	return nil
}
