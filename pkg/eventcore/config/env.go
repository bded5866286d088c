package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultEnvPrefix is the prefix eventcore settings use in the environment.
const DefaultEnvPrefix = "EVENTCORE_"

// LoadDotEnv loads the given .env files into the process environment.
// Variables already set are not overridden. With no paths, ".env" in the
// working directory is used. A missing default file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(".env"); os.IsNotExist(err) {
			return nil
		}
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

// FromEnv builds a Config from environment variables carrying prefix.
// The prefix is stripped and the remainder lower-cased, so with prefix
// "EVENTCORE_" the variable EVENTCORE_CLEANUP_THRESHOLD becomes key
// "cleanup_threshold". All values are strings.
func FromEnv(prefix string) Config {
	return fromPairs(prefix, os.Environ())
}

// FromDotEnv reads a .env file without touching the process environment
// and maps its variables the same way FromEnv does.
func FromDotEnv(path, prefix string) (Config, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return Config{}, fmt.Errorf("read dotenv: %w", err)
	}
	pairs := make([]string, 0, len(vars))
	for k, v := range vars {
		pairs = append(pairs, k+"="+v)
	}
	return fromPairs(prefix, pairs), nil
}

func fromPairs(prefix string, pairs []string) Config {
	data := make(map[string]any)
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, prefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(k, prefix))
		if key == "" {
			continue
		}
		data[key] = v
	}
	return New(data)
}
