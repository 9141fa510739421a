package config

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds application settings.
type Config struct {
	values map[string]any
	mu     sync.RWMutex
}

// New creates a config seeded with a copy of defaults.
func New(defaults map[string]any) *Config {
	c := &Config{values: make(map[string]any, len(defaults))}
	for k, v := range defaults {
		c.values[k] = v
	}
	return c
}

// Get returns the raw value of key.
func (c *Config) Get(key string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return v, nil
}

// Lookup returns the value of key and whether it exists.
func (c *Config) Lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key exists, even if its value is nil.
func (c *Config) Has(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

// Set stores value under key.
func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

// SetDefault stores value only when key is missing and returns the
// value now held by key.
func (c *Config) SetDefault(key string, value any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.values[key]; ok {
		return v
	}
	c.values[key] = value
	return value
}

// Delete removes key.
func (c *Config) Delete(key string) {
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
}

// Keys returns all keys in sorted order.
func (c *Config) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.values))
}

// Snapshot returns a shallow copy of all settings.
func (c *Config) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.values)
}

// FromMapping updates the config from m, ignoring keys that are not upper case.
func (c *Config) FromMapping(m map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range m {
		if isSetting(k) {
			c.values[k] = v
		}
	}
}

// GetNamespace returns the settings whose keys start with namespace.
// When trimNamespace is set the prefix is removed from the returned keys;
// when lowercase is set the returned keys are lower-cased.
//
//	cfg.Set("IMAGE_STORE_TYPE", "fs")
//	cfg.GetNamespace("IMAGE_STORE_", true, true) // {"type": "fs"}
func (c *Config) GetNamespace(namespace string, lowercase, trimNamespace bool) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]any)
	for k, v := range c.values {
		if !strings.HasPrefix(k, namespace) {
			continue
		}
		key := k
		if trimNamespace {
			key = k[len(namespace):]
		}
		if lowercase {
			key = strings.ToLower(key)
		}
		out[key] = v
	}
	return out
}

// Value returns key typed as T.
func Value[T any](c *Config, key string) (T, error) {
	var zero T
	raw, err := c.Get(key)
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrTypeMismatch, key, raw)
	}
	return v, nil
}

// String returns key as a string.
func (c *Config) String(key string) (string, error) {
	return Value[string](c, key)
}

// Bool returns key as a bool. String values such as "true" or "0" are parsed.
func (c *Config) Bool(key string) (bool, error) {
	raw, err := c.Get(key)
	if err != nil {
		return false, err
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			return false, fmt.Errorf("%w: %s: %w", ErrTypeMismatch, key, perr)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: %s is %T", ErrTypeMismatch, key, raw)
	}
}

// Int returns key as an int. JSON-decoded numbers (float64) are accepted
// when they have no fractional part.
func (c *Config) Int(key string) (int, error) {
	raw, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	case string:
		n, perr := strconv.Atoi(v)
		if perr == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: %s is %T", ErrTypeMismatch, key, raw)
}

// Duration returns key as a time.Duration. Numbers are seconds; strings
// use time.ParseDuration syntax.
func (c *Config) Duration(key string) (time.Duration, error) {
	raw, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	switch v := raw.(type) {
	case time.Duration:
		return v, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		d, perr := time.ParseDuration(v)
		if perr != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrTypeMismatch, key, perr)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("%w: %s is %T", ErrTypeMismatch, key, raw)
	}
}

// isSetting reports whether key is an upper-case setting name.
func isSetting(key string) bool {
	return key != "" && key == strings.ToUpper(key)
}

// mergeInto merges src into dst. Nested maps are merged key by key so a
// partial update does not drop sibling values.
func mergeInto(dst map[string]any, src map[string]any) {
	for k, v := range src {
		sub, isMap := v.(map[string]any)
		if !isMap {
			dst[k] = v
			continue
		}
		cur, ok := dst[k].(map[string]any)
		if !ok {
			cur = make(map[string]any, len(sub))
			dst[k] = cur
		}
		mergeInto(cur, sub)
	}
}
