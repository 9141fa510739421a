package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the prefix FromPrefixedEnv uses when given "".
const DefaultEnvPrefix = "FLAGON"

// structTag is the struct tag read by FromStruct and Bind.
const structTag = "config"

// Parser decodes a configuration file.
type Parser = koanf.Parser

// YAML returns the YAML file parser.
func YAML() Parser {
	return yaml.Parser()
}

// JSON returns the JSON file parser.
func JSON() Parser {
	return kjson.Parser()
}

// parserFor picks a parser from the file extension.
func parserFor(path string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML(), nil
	case ".json":
		return JSON(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// FromFile loads settings from the file at path. A nil parser is chosen
// from the extension. With silent set, a missing file is not an error and
// FromFile reports false.
func (c *Config) FromFile(path string, parser Parser, silent bool) (bool, error) {
	if parser == nil {
		p, err := parserFor(path)
		if err != nil {
			return false, err
		}
		parser = p
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		if silent && errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("config: load file %s: %w", path, err)
	}

	c.FromMapping(k.Raw())
	return true, nil
}

// FromEnvVar loads the file named by the environment variable name.
func (c *Config) FromEnvVar(name string, silent bool) (bool, error) {
	path := os.Getenv(name)
	if path == "" {
		if silent {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s", ErrEnvVarNotSet, name)
	}
	return c.FromFile(path, nil, silent)
}

// FromPrefixedEnv loads every environment variable starting with prefix
// followed by an underscore. The prefix is removed from the key and values
// are decoded as JSON when possible, falling back to the raw string.
// A double underscore in the key sets a nested value:
//
//	FLAGON_SECRET_KEY=abc       -> SECRET_KEY = "abc"
//	FLAGON_DEBUG=true           -> DEBUG = true
//	FLAGON_DB__POOL_SIZE=10     -> DB = {"POOL_SIZE": 10}
func (c *Config) FromPrefixedEnv(prefix string) error {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	prefix += "_"

	k := koanf.New(".")
	provider := env.ProviderWithValue(prefix, "__", func(key, value string) (string, any) {
		key = strings.TrimPrefix(key, prefix)
		if key == "" {
			return "", nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err != nil {
			return key, value
		}
		return key, decoded
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("config: load env %s*: %w", prefix, err)
	}

	c.mu.Lock()
	mergeInto(c.values, k.Raw())
	c.mu.Unlock()
	return nil
}

// FromStruct loads the exported fields of v tagged with `config:"NAME"`.
// Fields without an upper-case name are ignored.
func (c *Config) FromStruct(v any) error {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(v, structTag), nil); err != nil {
		return fmt.Errorf("config: load struct %T: %w", v, err)
	}
	c.FromMapping(k.Raw())
	return nil
}

// LoadDotEnv sets environment variables from .env files. Variables that are
// already set win, and missing files are skipped. With no paths ".env" and
// ".flagonenv" are tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env", ".flagonenv"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

var validate = validator.New()

// Bind decodes the settings into out (a pointer to a struct using
// `config:"NAME"` tags) and validates it with `validate` tags.
func (c *Config) Bind(out any) error {
	k := koanf.New(".")
	for key, val := range c.Snapshot() {
		if strings.Contains(key, ".") {
			continue
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	if err := k.UnmarshalWithConf("", out, koanf.UnmarshalConf{Tag: structTag}); err != nil {
		return fmt.Errorf("config: decode: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
