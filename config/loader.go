package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/leofalp/scriptgraph/graphs"
)

// EnvPrefix prefixes every environment variable read by [Load].
const EnvPrefix = "SCRIPTGRAPH"

// DefaultEnvFile is loaded when present and no other env file is given.
const DefaultEnvFile = ".env"

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"model":           "llm.model",
	"base-url":        "llm.base_url",
	"library":         "library",
	"chunk-size":      "chunk_size",
	"max-concurrency": "max_concurrency",
	"failure-policy":  "failure_policy",
	"timeout":         "timeout",
	"verbose":         "verbose",
}

// LoaderOption customizes [Load].
type LoaderOption func(*loaderConfig)

type loaderConfig struct {
	configFile string
	envFile    string
	flags      *pflag.FlagSet
}

// WithConfigFile reads path as YAML. A missing file is an error.
func WithConfigFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile loads path into the environment. A missing file is an error.
func WithEnvFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// WithFlags lets the flags of flagSet that were set override every other
// source. Flags without a configuration key are ignored.
func WithFlags(flagSet *pflag.FlagSet) LoaderOption {
	return func(lc *loaderConfig) { lc.flags = flagSet }
}

// Load builds the configuration. Fields no source sets keep the values of
// graphs.DefaultConfig. The result is not validated; the graph constructors
// do that.
func Load(opts ...LoaderOption) (graphs.Config, error) {
	var lc loaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	if err := loadEnvFile(lc.envFile); err != nil {
		return graphs.Config{}, err
	}

	v := viper.New()
	setDefaults(v, graphs.DefaultConfig())

	if lc.configFile != "" {
		v.SetConfigFile(lc.configFile)
		if err := v.ReadInConfig(); err != nil {
			return graphs.Config{}, fmt.Errorf("read config file %s: %w", lc.configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if lc.flags != nil {
		for flagName, key := range flagKeys {
			flag := lc.flags.Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return graphs.Config{}, fmt.Errorf("bind flag --%s: %w", flagName, err)
			}
		}
	}

	var config graphs.Config
	if err := v.Unmarshal(&config); err != nil {
		return graphs.Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return config, nil
}

// loadEnvFile loads path, or DefaultEnvFile when it exists. Variables
// already in the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// setDefaults registers every key, so AutomaticEnv can find them during
// Unmarshal.
func setDefaults(v *viper.Viper, defaults graphs.Config) {
	v.SetDefault("llm.provider", defaults.LLM.Provider)
	v.SetDefault("llm.model", defaults.LLM.Model)
	v.SetDefault("llm.api_key", defaults.LLM.APIKey)
	v.SetDefault("llm.base_url", defaults.LLM.BaseURL)
	v.SetDefault("llm.temperature", defaults.LLM.Temperature)
	v.SetDefault("llm.max_tokens", defaults.LLM.MaxTokens)
	v.SetDefault("llm.requests_per_second", defaults.LLM.RequestsPerSecond)
	v.SetDefault("llm.burst", defaults.LLM.Burst)
	v.SetDefault("llm.max_retries", defaults.LLM.MaxRetries)
	v.SetDefault("llm.request_timeout", defaults.LLM.RequestTimeout)
	v.SetDefault("llm.pricing.input_cost_per_million", defaults.LLM.Pricing.InputCostPerMillion)
	v.SetDefault("llm.pricing.output_cost_per_million", defaults.LLM.Pricing.OutputCostPerMillion)
	v.SetDefault("llm.pricing.cached_input_cost_per_million", defaults.LLM.Pricing.CachedInputCostPerMillion)
	v.SetDefault("llm.pricing.currency", defaults.LLM.Pricing.Currency)

	v.SetDefault("fetch.timeout", defaults.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", defaults.Fetch.UserAgent)
	v.SetDefault("fetch.max_body_bytes", defaults.Fetch.MaxBodyBytes)
	v.SetDefault("fetch.convert_to_markdown", defaults.Fetch.ConvertToMarkdown)

	v.SetDefault("library", defaults.Library)
	v.SetDefault("chunk_size", defaults.ChunkSize)
	v.SetDefault("max_concurrency", defaults.MaxConcurrency)
	v.SetDefault("failure_policy", string(defaults.FailurePolicy))
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("verbose", defaults.Verbose)
}
