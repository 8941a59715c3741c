package application

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	lease "lease-escrow/internal/lease/domain"
)

const (
	// DefaultRentInterval is the minimum spacing between monthly payments.
	DefaultRentInterval = 30 * 24 * time.Hour
	// DefaultFreshnessWindow is the maximum age of a condition report that may gate a release.
	DefaultFreshnessWindow = 7 * 24 * time.Hour
)

// Config defines the lease policy.
type Config struct {
	Operator        string        `yaml:"operator"`
	FeePercent      int           `yaml:"fee_percent"`
	DisputeDeposit  int64         `yaml:"dispute_deposit"`
	RentInterval    time.Duration `yaml:"rent_interval"`
	FreshnessWindow time.Duration `yaml:"freshness_window"`
}

// LoadConfig loads the policy from the yaml file named by LEASE_POLICY_CONFIG,
// falling back to environment variables and defaults.
func LoadConfig() (Config, error) {
	cfg := Config{
		Operator:        os.Getenv("LEASE_OPERATOR"),
		FeePercent:      getenvIntDefault("LEASE_FEE_PERCENT", 3),
		DisputeDeposit:  int64(getenvIntDefault("LEASE_DISPUTE_DEPOSIT", 100)),
		RentInterval:    getenvDurationDefault("LEASE_RENT_INTERVAL", DefaultRentInterval),
		FreshnessWindow: getenvDurationDefault("LEASE_FRESHNESS_WINDOW", DefaultFreshnessWindow),
	}

	if path := os.Getenv("LEASE_POLICY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("lease config: %w", err)
		}
	}
	return cfg, cfg.Validate()
}

// Validate checks the policy.
func (c Config) Validate() error {
	if c.Operator == "" {
		return errors.New("lease config: operator required")
	}
	if err := lease.ValidateFeePercent(c.FeePercent); err != nil {
		return fmt.Errorf("lease config: %w", err)
	}
	if c.DisputeDeposit <= 0 {
		return errors.New("lease config: dispute deposit must be positive")
	}
	if c.RentInterval <= 0 || c.FreshnessWindow <= 0 {
		return errors.New("lease config: intervals must be positive")
	}
	return nil
}

// Platform returns the initial platform state for a fresh store.
func (c Config) Platform() lease.Platform {
	return lease.Platform{
		Operator:       lease.Identity(c.Operator),
		FeePercent:     uint8(c.FeePercent),
		DisputeDeposit: c.DisputeDeposit,
	}
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDurationDefault(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
