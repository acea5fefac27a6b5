package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// FeeConfig holds the storage-fee policy applied to newly created fees.
// Existing fees keep the rate and grace period they were created with.
type FeeConfig struct {
	DailyRate            string `mapstructure:"daily_rate"`
	GracePeriodDays      int    `mapstructure:"grace_period_days"`
	FollowUpIntervalDays int    `mapstructure:"follow_up_interval_days"`
}

func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		DailyRate:            "2.00",
		GracePeriodDays:      1,
		FollowUpIntervalDays: 3,
	}
}

// Rate returns the parsed daily rate. Validation guarantees it parses.
func (c FeeConfig) Rate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.DailyRate))
	if err != nil {
		return decimal.RequireFromString(DefaultFeeConfig().DailyRate)
	}
	return rate
}

type FeeConfigHolder struct {
	current atomic.Value // holds FeeConfig
}

// NewStaticFeeConfigHolder returns a holder that never reloads.
func NewStaticFeeConfigHolder(cfg FeeConfig) *FeeConfigHolder {
	holder := &FeeConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewFeeConfigHolder() (*FeeConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("fees")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/mailroom/config")
	v.AddConfigPath("/etc/mailroom")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MAILROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultFeeConfig()
	v.SetDefault("fees.daily_rate", defaults.DailyRate)
	v.SetDefault("fees.grace_period_days", defaults.GracePeriodDays)
	v.SetDefault("fees.follow_up_interval_days", defaults.FollowUpIntervalDays)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg FeeConfig
	if err := v.UnmarshalKey("fees", &cfg); err != nil {
		return nil, err
	}
	if err := validateFeeConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticFeeConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FeeConfig
		if err := v.UnmarshalKey("fees", &updated); err != nil {
			log.Printf("[fee-config] reload failed: %v", err)
			return
		}
		if err := validateFeeConfig(updated); err != nil {
			log.Printf("[fee-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[fee-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *FeeConfigHolder) Get() FeeConfig {
	if h == nil {
		return DefaultFeeConfig()
	}
	cfg, ok := h.current.Load().(FeeConfig)
	if !ok {
		return DefaultFeeConfig()
	}
	return cfg
}

func validateFeeConfig(cfg FeeConfig) error {
	rate, err := decimal.NewFromString(strings.TrimSpace(cfg.DailyRate))
	if err != nil {
		return errors.New("fees.daily_rate must be a decimal")
	}
	if rate.IsNegative() {
		return errors.New("fees.daily_rate cannot be negative")
	}
	if cfg.GracePeriodDays < 0 {
		return errors.New("fees.grace_period_days cannot be negative")
	}
	if cfg.FollowUpIntervalDays < 1 {
		return errors.New("fees.follow_up_interval_days must be at least 1")
	}
	return nil
}
