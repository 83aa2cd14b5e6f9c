package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	homedir "github.com/mitchellh/go-homedir"
)

const envPrefix = "STREAMSCOUT_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if STREAMSCOUT_CONFIG is set
//  3. env (prefix STREAMSCOUT_)
//
// TWITCH_APP_ID and TWITCH_APP_SECRET fill the credentials when the
// prefixed keys are absent.
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
		if err := k.Load(file.Provider(expanded), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// STREAMSCOUT_REFRESH_INTERVAL -> refresh_interval (flat keys)
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if cfg.TwitchClientID == "" {
		cfg.TwitchClientID = os.Getenv("TWITCH_APP_ID")
	}
	if cfg.TwitchClientSecret == "" {
		cfg.TwitchClientSecret = os.Getenv("TWITCH_APP_SECRET")
	}

	for _, p := range []*string{&cfg.CatalogPath, &cfg.StateDir} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
