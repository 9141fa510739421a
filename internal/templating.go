package internal

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"sync"

	"github.com/dmitrymomot/flagon/pkg/textfilter"
)

// TemplateLoader provides the template set views render from.
//
// funcs holds every function name templates may call; the values are
// replaced per render, so a loader only needs them to parse. When reload
// is set the loader must not serve a cached set.
type TemplateLoader interface {
	Load(funcs template.FuncMap, reload bool) (*template.Template, error)
}

// FSLoader parses html/template files from a file system.
type FSLoader struct {
	fsys     fs.FS
	patterns []string

	mu     sync.Mutex
	cached *template.Template
}

// NewFSLoader creates a loader for the files of fsys matching patterns.
// Templates are named by their base file name.
func NewFSLoader(fsys fs.FS, patterns ...string) *FSLoader {
	if len(patterns) == 0 {
		patterns = []string{"*.html"}
	}
	return &FSLoader{fsys: fsys, patterns: patterns}
}

// Load parses the templates once, or on every call when reload is set.
func (l *FSLoader) Load(funcs template.FuncMap, reload bool) (*template.Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached != nil && !reload {
		return l.cached, nil
	}

	set, err := template.New("").Funcs(funcs).ParseFS(l.fsys, l.patterns...)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	l.cached = set
	return set, nil
}

// RenderTemplate renders the named template. data is merged over the
// template context (see UpdateTemplateContext). BeforeRenderTemplate and
// TemplateRendered are sent around the rendering.
//
// Inside a request the template can call url_for and
// get_flashed_messages and read request, session and g; with only an
// application context g and config are available.
func (a *App) RenderTemplate(ctx context.Context, name string, data map[string]any) (string, error) {
	if a.templates == nil {
		return "", ErrNoTemplates
	}
	set, err := a.templates.Load(a.templateFuncs(ctx), a.templatesAutoReload())
	if err != nil {
		return "", err
	}
	if set.Lookup(name) == nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	set, err = set.Clone()
	if err != nil {
		return "", fmt.Errorf("clone templates: %w", err)
	}
	return a.render(ctx, set.Funcs(a.templateFuncs(ctx)).Lookup(name), data)
}

// RenderTemplateString renders source as a template.
func (a *App) RenderTemplateString(ctx context.Context, source string, data map[string]any) (string, error) {
	t, err := template.New("string").Funcs(a.templateFuncs(ctx)).Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	return a.render(ctx, t, data)
}

func (a *App) render(ctx context.Context, t *template.Template, data map[string]any) (string, error) {
	tctx, err := a.UpdateTemplateContext(ctx, data)
	if err != nil {
		return "", err
	}

	ev := TemplateEvent{Name: t.Name(), Data: tctx}
	a.signals.BeforeRenderTemplate.Send(ctx, a, ev)

	var buf bytes.Buffer
	if err := t.Execute(&buf, tctx); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}

	a.signals.TemplateRendered.Send(ctx, a, ev)
	return buf.String(), nil
}

// UpdateTemplateContext builds the values a template sees: the template
// globals, config and g, request and session inside a request, then the
// context processors global first and blueprints outer to inner. Without a
// request only the app-wide processors run. Values in data override all of
// them.
func (a *App) UpdateTemplateContext(ctx context.Context, data map[string]any) (map[string]any, error) {
	out := maps.Clone(a.templateGlobals)
	if out == nil {
		out = make(map[string]any)
	}
	out["config"] = a.config.Snapshot()

	if g, err := G(ctx); err == nil {
		out["g"] = g.Snapshot()
	}

	scopes := []string{""}
	if rc, err := requestContextOf(ctx); err == nil && rc.app == a {
		out["request"] = rc.request
		out["session"] = rc.Session().Values()
		out["g"] = rc.G().Snapshot()
		scopes = rc.scopes()
		ctx = rc
	}
	for _, scope := range scopes {
		for _, fn := range a.contextProcessors[scope] {
			maps.Copy(out, fn(ctx))
		}
	}

	maps.Copy(out, data)
	return out, nil
}

// templateFuncs returns the functions templates can call for ctx.
func (a *App) templateFuncs(ctx context.Context) template.FuncMap {
	funcs := textfilter.Funcs()
	funcs["url_for"] = func(endpoint string, pairs ...any) (string, error) {
		values, err := pairsToMap(pairs)
		if err != nil {
			return "", err
		}
		return a.URLFor(ctx, endpoint, values)
	}
	funcs["get_flashed_messages"] = func(categories ...string) ([]FlashMessage, error) {
		return FlashedMessages(ctx, categories...)
	}
	funcs["tojson"] = func(v any) (template.JS, error) {
		return htmlSafeJSON(a.jsonProvider, v)
	}
	maps.Copy(funcs, a.templateFilters)
	return funcs
}

func pairsToMap(pairs []any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("url_for: odd number of key/value arguments")
	}
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("url_for: key %v is a %T, not a string", pairs[i], pairs[i])
		}
		out[key] = pairs[i+1]
	}
	return out, nil
}
