// Package config provides the application configuration store.
//
// A [Config] is a concurrency-safe map of settings. By convention only
// upper-case keys are settings; the loaders skip everything else. Values are
// always read from the live map, so a change made before the first request is
// visible to every later lookup.
//
// Loaders layer settings from several sources:
//
//	cfg := config.New(defaults)
//	_ = config.LoadDotEnv(".env")
//	_, _ = cfg.FromFile("config.yaml", config.YAML(), true)
//	_ = cfg.FromPrefixedEnv("FLAGON")
//
// File loading and environment parsing go through koanf; [Config.Bind]
// decodes settings into a struct and validates it with validator/v10.
package config
