package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	// envPrefix marks a config value that must be replaced with the named
	// environment variable; startup fails when the variable is unset.
	envPrefix = "env:"
	// envOptionalPrefix marks a value that silently becomes empty when the
	// named environment variable is unset.
	envOptionalPrefix = "envOptional:"
)

// AllowlistRule restricts which state keys are persisted for the contracts
// whose code ID resolves from one of the rule's code-key names.
type AllowlistRule struct {
	CodeIDsKeys []string `mapstructure:"code_ids_keys"`
	StateKeys   []string `mapstructure:"state_keys"`
}

// Config holds the indexer's runtime options.
type Config struct {
	// Bech32Prefix renders contract addresses. Required.
	Bech32Prefix string `mapstructure:"bech32_prefix"`
	// ChainID is optional; when empty it is discovered from RPC or from the
	// stored indexer state.
	ChainID string `mapstructure:"chain_id"`
	// RPCEndpoint is the node RPC used by the code-ID resolver. Required.
	RPCEndpoint string `mapstructure:"rpc_endpoint"`
	// DatabaseURL is the Postgres DSN. Required.
	DatabaseURL string `mapstructure:"database_url"`
	// SendWebhooks enables the webhook enqueue boundary.
	SendWebhooks bool `mapstructure:"send_webhooks"`
	// ResolverTimeout bounds a single code-ID RPC call.
	ResolverTimeout time.Duration `mapstructure:"resolver_timeout"`
	// StateEventAllowlist maps chain IDs to allowlist rules.
	StateEventAllowlist map[string][]AllowlistRule `mapstructure:"state_event_allowlist"`
}

// DefaultResolverTimeout bounds one contract-info RPC call.
const DefaultResolverTimeout = 10 * time.Second

// Load reads the config file at path, applies environment-variable
// expansion and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	settings, err := expandEnv(v.AllSettings())
	if err != nil {
		return nil, err
	}

	tree, err := cast.ToStringMapE(settings)
	if err != nil {
		return nil, fmt.Errorf("expanded config is not a map: %w", err)
	}

	expanded := viper.New()
	if err := expanded.MergeConfigMap(tree); err != nil {
		return nil, fmt.Errorf("merge expanded config: %w", err)
	}

	cfg := &Config{ResolverTimeout: DefaultResolverTimeout}
	if err := expanded.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Bech32Prefix == "" {
		return fmt.Errorf("bech32_prefix must be set")
	}
	if c.RPCEndpoint == "" {
		return fmt.Errorf("rpc_endpoint must be set")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url must be set")
	}
	if c.ResolverTimeout <= 0 {
		return fmt.Errorf("resolver_timeout must be positive")
	}
	return nil
}

// AllowlistForChain returns the allowlist rules configured for chainID, or
// nil when the chain has none (all state events pass).
func (c *Config) AllowlistForChain(chainID string) []AllowlistRule {
	if c.StateEventAllowlist == nil {
		return nil
	}
	return c.StateEventAllowlist[chainID]
}

// expandEnv walks a decoded config tree replacing env:NAME and
// envOptional:NAME string leaves with environment variable values.
func expandEnv(node any) (any, error) {
	switch val := node.(type) {
	case map[string]any:
		for k, child := range val {
			expanded, err := expandEnv(child)
			if err != nil {
				return nil, err
			}
			val[k] = expanded
		}
		return val, nil
	case []any:
		for i, child := range val {
			expanded, err := expandEnv(child)
			if err != nil {
				return nil, err
			}
			val[i] = expanded
		}
		return val, nil
	case string:
		return expandEnvString(val)
	default:
		return node, nil
	}
}

func expandEnvString(s string) (string, error) {
	switch {
	case strings.HasPrefix(s, envPrefix):
		name := strings.TrimPrefix(s, envPrefix)
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("environment variable %s is not set", name)
		}
		return v, nil
	case strings.HasPrefix(s, envOptionalPrefix):
		return os.Getenv(strings.TrimPrefix(s, envOptionalPrefix)), nil
	default:
		return s, nil
	}
}
