package internal

import (
	"strings"
	"time"
)

// DefaultConfig returns the settings every application starts with.
// A nil value means "not set"; some settings derive a default from
// DEBUG or TESTING in that case.
func DefaultConfig() map[string]any {
	return map[string]any{
		"DEBUG":                        false,
		"TESTING":                      false,
		"PROPAGATE_EXCEPTIONS":         nil,
		"SECRET_KEY":                   nil,
		"SECRET_KEY_FALLBACKS":         nil,
		"PERMANENT_SESSION_LIFETIME":   31 * 24 * time.Hour,
		"USE_X_SENDFILE":               false,
		"TRUSTED_HOSTS":                nil,
		"SERVER_NAME":                  nil,
		"APPLICATION_ROOT":             "/",
		"SESSION_COOKIE_NAME":          "session",
		"SESSION_COOKIE_DOMAIN":        nil,
		"SESSION_COOKIE_PATH":          nil,
		"SESSION_COOKIE_HTTPONLY":      true,
		"SESSION_COOKIE_SECURE":        false,
		"SESSION_COOKIE_SAMESITE":      nil,
		"SESSION_REFRESH_EACH_REQUEST": true,
		"MAX_CONTENT_LENGTH":           nil,
		"MAX_FORM_MEMORY_SIZE":         500_000,
		"TRAP_BAD_REQUEST_ERRORS":      nil,
		"TRAP_HTTP_EXCEPTIONS":         false,
		"EXPLAIN_TEMPLATE_LOADING":     false,
		"PREFERRED_URL_SCHEME":         "http",
		"TEMPLATES_AUTO_RELOAD":        nil,
		"MAX_COOKIE_SIZE":              4093,
		"PROVIDE_AUTOMATIC_OPTIONS":    true,
	}
}

// Setting accessors. They read the config on every call so late changes
// are honoured; unset (nil) and malformed values read as the zero value.

func (a *App) boolSetting(key string) bool {
	b, _ := a.optionalBool(key)
	return b
}

// optionalBool returns the value of key and whether it is set.
func (a *App) optionalBool(key string) (bool, bool) {
	v, ok := a.config.Lookup(key)
	if !ok || v == nil {
		return false, false
	}
	b, err := a.config.Bool(key)
	if err != nil {
		return false, false
	}
	return b, true
}

func (a *App) stringSetting(key string) string {
	v, ok := a.config.Lookup(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := a.config.String(key)
	return s
}

func (a *App) intSetting(key string) (int, bool) {
	v, ok := a.config.Lookup(key)
	if !ok || v == nil {
		return 0, false
	}
	n, err := a.config.Int(key)
	return n, err == nil
}

func (a *App) durationSetting(key string) time.Duration {
	v, ok := a.config.Lookup(key)
	if !ok || v == nil {
		return 0
	}
	d, _ := a.config.Duration(key)
	return d
}

// stringsSetting reads a list setting. A string value is split on commas.
func (a *App) stringsSetting(key string) []string {
	v, ok := a.config.Lookup(key)
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for part := range strings.SplitSeq(list, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

func (a *App) maxFormMemory() int64 {
	if n, ok := a.intSetting("MAX_FORM_MEMORY_SIZE"); ok && n > 0 {
		return int64(n)
	}
	return 500_000
}

// Debug reports whether debug mode is on.
func (a *App) Debug() bool {
	return a.boolSetting("DEBUG")
}

// Testing reports whether testing mode is on.
func (a *App) Testing() bool {
	return a.boolSetting("TESTING")
}

// propagateExceptions reports whether unhandled errors are returned to
// the caller instead of becoming 500 responses.
func (a *App) propagateExceptions() bool {
	if v, set := a.optionalBool("PROPAGATE_EXCEPTIONS"); set {
		return v
	}
	return a.Testing() || a.Debug()
}

// templatesAutoReload reports whether templates are re-read on each render.
func (a *App) templatesAutoReload() bool {
	if v, set := a.optionalBool("TEMPLATES_AUTO_RELOAD"); set {
		return v
	}
	return a.Debug()
}
