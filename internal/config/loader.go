package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment conventions.
const (
	EnvPrefix     = "TFT_"
	EnvConfigPath = "TFT_CONFIG"
	DefaultPath   = "config.yaml"
	dotEnvFile    = ".env"
)

// Load builds a Config by layering defaults, a YAML file, .env and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. YAML file: path, else $TFT_CONFIG, else ./config.yaml when present
//  3. .env in the working directory, if any (never overrides the real environment)
//  4. env (prefix TFT_, "__" separates sections: TFT_RIOT__TOKEN -> riot.token)
func Load(ctx context.Context, path string) (*Config, error) {
	_ = ctx
	base := New()

	k := koanf.New(".")

	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, dotEnvFile, err)
	}

	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(key, EnvPrefix)
		key = strings.ReplaceAll(strings.ToLower(key), "__", ".")
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// listKeys are comma-separated when they come from the environment.
var listKeys = map[string]struct{}{
	"scrape.leagues": {},
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// resolvePath picks the YAML file to read. An explicit or env path must
// exist; the implicit default is optional.
func resolvePath(path string) (string, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
		return path, nil
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath, nil
	}
	return "", nil
}
