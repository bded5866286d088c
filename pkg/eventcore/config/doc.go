/*
Package config provides type-safe configuration extraction from map[string]any.

# Overview

config wraps a map[string]any and provides typed accessor methods that handle
missing keys and type mismatches gracefully by returning default values.
eventcore uses it to build bus settings from YAML/JSON files, the process
environment, and .env files without verbose type assertions.

# Basic Usage

	cfg := config.New(map[string]any{
	    "cleanup_threshold": 25,
	    "error_history":     "20",
	})

	threshold := cfg.Int("cleanup_threshold", 10) // 25
	history := cfg.Int("error_history", 10)       // 20, parsed from string
	missing := cfg.String("missing", "default")   // "default"

# Sources

	cfg, err := config.FromFile("eventcore.yaml") // .yaml, .yml, .json, .env
	env := config.FromEnv(config.DefaultEnvPrefix) // EVENTCORE_* variables
	cfg = cfg.Merge(env)                           // environment wins

Load combines the two. LoadDotEnv pushes .env files into the process
environment using github.com/joho/godotenv without overriding variables
that are already set.

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation; Merge always returns a fresh map.
*/
package config
