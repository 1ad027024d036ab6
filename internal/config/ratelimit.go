package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RateLimitBudget describes one named token bucket: how many calls an
// identity may make within the window before the guard starts rejecting.
type RateLimitBudget struct {
	Key    string        `mapstructure:"key"`
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// DefaultBudgetKey is consulted when an operation names a budget that has
// no entry of its own.
const DefaultBudgetKey = "default"

type RateLimitConfig struct {
	Budgets []RateLimitBudget `mapstructure:"budgets"`
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Budgets: []RateLimitBudget{
			{Key: "todos.create", Limit: 30, Window: time.Minute},
			{Key: "todos.mutate", Limit: 60, Window: time.Minute},
			{Key: "organizations.create", Limit: 5, Window: time.Hour},
			{Key: "invitations.send", Limit: 20, Window: time.Hour},
			// Catch-all for operations that declare a budget key without a
			// dedicated entry.
			{Key: DefaultBudgetKey, Limit: 120, Window: time.Minute},
		},
	}
}

// RateLimitConfigHolder serves the current budget table and swaps it in
// place when the config file changes on disk.
type RateLimitConfigHolder struct {
	current atomic.Value // holds RateLimitConfig
}

func NewRateLimitConfigHolder() (*RateLimitConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("ratelimit")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/taskhive/config") // Volume-mounted config
	v.AddConfigPath("/etc/taskhive")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("TASKHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		defaults := DefaultRateLimitConfig()
		v.SetDefault("ratelimit.budgets", defaults.Budgets)
	}

	var cfg RateLimitConfig
	if err := v.UnmarshalKey("ratelimit", &cfg); err != nil {
		return nil, err
	}
	if err := validateRateLimitConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RateLimitConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RateLimitConfig
		if err := v.UnmarshalKey("ratelimit", &updated); err != nil {
			log.Printf("[ratelimit-config] reload failed: %v", err)
			return
		}
		if err := validateRateLimitConfig(updated); err != nil {
			log.Printf("[ratelimit-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[ratelimit-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *RateLimitConfigHolder) Get() RateLimitConfig {
	return h.current.Load().(RateLimitConfig)
}

// Budget returns the bucket registered under key, falling back to the
// default entry, then to nil when neither is configured.
func (h *RateLimitConfigHolder) Budget(key string) *RateLimitBudget {
	cfg := h.Get()
	var fallback *RateLimitBudget
	for i := range cfg.Budgets {
		if cfg.Budgets[i].Key == key {
			return &cfg.Budgets[i]
		}
		if cfg.Budgets[i].Key == DefaultBudgetKey {
			fallback = &cfg.Budgets[i]
		}
	}
	return fallback
}

func validateRateLimitConfig(cfg RateLimitConfig) error {
	for _, b := range cfg.Budgets {
		if b.Key == "" {
			return errors.New("ratelimit.budgets entries require a key")
		}
		if b.Limit <= 0 {
			return errors.New("ratelimit.budgets limit must be positive")
		}
		if b.Window <= 0 {
			return errors.New("ratelimit.budgets window must be positive")
		}
	}
	return nil
}
