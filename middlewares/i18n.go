package middlewares

import (
	"context"

	"golang.org/x/text/language"

	"github.com/dmitrymomot/flagon/internal"
)

// LocaleKey is the name of the resolved locale in g and in templates.
const LocaleKey = "locale"

// LocaleConfig configures the Locale extension.
type LocaleConfig struct {
	Extractor    internal.Extractor
	Available    []string
	extractorSet bool
}

// LocaleOption configures LocaleConfig.
type LocaleOption func(*LocaleConfig)

// WithLocaleExtractor sets a custom language extractor chain.
func WithLocaleExtractor(ext internal.Extractor) LocaleOption {
	return func(cfg *LocaleConfig) {
		cfg.Extractor = ext
		cfg.extractorSet = true
	}
}

// FromAcceptLanguage returns an ExtractorSource that matches the
// Accept-Language header against the available languages.
func FromAcceptLanguage(available []string) internal.ExtractorSource {
	return func(c internal.Context) (string, bool) {
		if c.Header("Accept-Language") == "" {
			return "", false
		}
		return c.Request().BestLanguage(available...), true
	}
}

// Locale returns an extension that resolves the language of each request.
// The first available language is the default. Without a custom extractor
// the "lang" query parameter, then the "lang" cookie, then
// Accept-Language are consulted. Values that match no available language
// are ignored.
func Locale(available []string, opts ...LocaleOption) internal.Extension {
	cfg := &LocaleConfig{Available: available}
	for _, opt := range opts {
		opt(cfg)
	}
	if !cfg.extractorSet {
		cfg.Extractor = internal.NewExtractor(
			internal.FromQuery("lang"),
			internal.FromCookie("lang"),
			FromAcceptLanguage(available),
		)
	}
	m := newLocaleMatcher(available)

	return internal.ExtensionFunc(func(app *internal.App) error {
		app.BeforeRequest(func(c internal.Context) (any, error) {
			lang := m.fallback()
			if v, ok := cfg.Extractor.Extract(c); ok {
				if matched, ok := m.match(v); ok {
					lang = matched
				}
			}
			c.G().Set(LocaleKey, lang)
			return nil, nil
		})
		app.ContextProcessor(func(ctx context.Context) map[string]any {
			return map[string]any{LocaleKey: GetLocale(ctx)}
		})
		return nil
	})
}

// GetLocale returns the locale resolved for the active request, or "".
func GetLocale(ctx context.Context) string {
	g, err := internal.G(ctx)
	if err != nil {
		return ""
	}
	v, _ := g.Lookup(LocaleKey)
	lang, _ := v.(string)
	return lang
}

type localeMatcher struct {
	available []string
	matcher   language.Matcher
}

func newLocaleMatcher(available []string) *localeMatcher {
	tags := make([]language.Tag, 0, len(available))
	for _, a := range available {
		tags = append(tags, language.Make(a))
	}
	return &localeMatcher{available: available, matcher: language.NewMatcher(tags)}
}

func (m *localeMatcher) fallback() string {
	if len(m.available) == 0 {
		return ""
	}
	return m.available[0]
}

// match maps v to an available language; "de-AT" matches "de".
func (m *localeMatcher) match(v string) (string, bool) {
	if len(m.available) == 0 {
		return "", false
	}
	tag, err := language.Parse(v)
	if err != nil {
		return "", false
	}
	_, idx, conf := m.matcher.Match(tag)
	if conf == language.No {
		return "", false
	}
	return m.available[idx], true
}
