package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/internal/modules/execution"
	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/aristath/fundcore/internal/modules/portfolio"
	"github.com/aristath/fundcore/internal/modules/risk"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides of fund settings, e.g.
// FUND_LIMITS_MAX_DRAWDOWN or FUND_SUPERVISOR_TICK_SCHEDULE.
const EnvPrefix = "FUND"

// FundConfig is the per-fund configuration file.
type FundConfig struct {
	Supervisor fund.Config      `mapstructure:"supervisor"`
	Risk       risk.Config      `mapstructure:"risk"`
	Limits     risk.Limits      `mapstructure:"limits"`
	Portfolio  portfolio.Config `mapstructure:"portfolio"`
	Execution  execution.Config `mapstructure:"execution"`
}

// DefaultFundConfig returns the documented defaults of every component.
func DefaultFundConfig(fundID string) FundConfig {
	return FundConfig{
		Supervisor: fund.DefaultConfig(fundID),
		Risk:       risk.DefaultConfig(),
		Limits:     risk.DefaultLimits(),
		Portfolio:  portfolio.DefaultConfig(),
		Execution:  execution.DefaultConfig(),
	}
}

// Validate checks every section.
func (c FundConfig) Validate() error {
	if err := c.Supervisor.Validate(); err != nil {
		return err
	}
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if err := c.Portfolio.Validate(); err != nil {
		return err
	}
	return c.Execution.Validate()
}

// LoadFund reads a YAML, JSON or TOML fund file over the defaults and applies
// FUND_* environment overrides. An empty path uses defaults and environment
// only. Viper folds keys to lower case, so asset symbols in the target
// allocation and beta maps are upper-cased.
func LoadFund(path, fundID string) (FundConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v, DefaultFundConfig(fundID)); err != nil {
		return FundConfig{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return FundConfig{}, fmt.Errorf("failed to read fund config %s: %w", path, err)
		}
	}

	var cfg FundConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return FundConfig{}, fmt.Errorf("failed to decode fund config: %w", err)
	}
	cfg.Portfolio.TargetAllocation = assetKeys(cfg.Portfolio.TargetAllocation)
	cfg.Risk.AssetBetas = assetKeys(cfg.Risk.AssetBetas)

	if err := cfg.Validate(); err != nil {
		return FundConfig{}, err
	}
	return cfg, nil
}

// setDefaults registers every default as a viper key so that environment
// overrides apply even without a file. The json and mapstructure tags of the
// component configs match.
func setDefaults(v *viper.Viper, defaults FundConfig) error {
	sections := map[string]interface{}{
		"supervisor": defaults.Supervisor,
		"risk":       defaults.Risk,
		"limits":     defaults.Limits,
		"portfolio":  defaults.Portfolio,
		"execution":  defaults.Execution,
	}
	for name, section := range sections {
		raw, err := json.Marshal(section)
		if err != nil {
			return fmt.Errorf("failed to encode %s defaults: %w", name, err)
		}
		var values map[string]interface{}
		if err := json.Unmarshal(raw, &values); err != nil {
			return fmt.Errorf("failed to decode %s defaults: %w", name, err)
		}
		for key, value := range values {
			v.SetDefault(name+"."+key, value)
		}
	}
	return nil
}

// assetKeys restores canonical asset names; viper lower-cases every key.
func assetKeys(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[domain.NormalizeAsset(k)] = v
	}
	return out
}
