// Package config loads verity's YAML configuration.
//
// Loading starts from Defaults, decodes the file on top (unknown keys are
// rejected), fills remaining zero values with ApplyDefaults, applies VERITY_*
// environment overrides and validates the result:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("verity.yaml")
//
// Environment variables are named VERITY_SECTION_FIELD, for example
// VERITY_RULES_PATH, VERITY_ENGINE_FAIL_SAFE_MODE or VERITY_LOG_LEVEL.
//
// Validate collects every invalid field into one ValidationError. The
// conversion methods (EngineConfig, SQLiteConfig, RetentionConfig, ...) build
// the component configurations from a validated Config.
package config
