package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
)

// JSONProvider encodes and decodes JSON for an application.
type JSONProvider interface {
	// Dumps encodes v.
	Dumps(v any) ([]byte, error)

	// Loads decodes data into v.
	Loads(data []byte, v any) error

	// Response encodes v into a JSON response.
	Response(ctx context.Context, v any) (*Response, error)
}

// DefaultJSONProvider encodes with encoding/json. Map keys are sorted by
// the encoder.
type DefaultJSONProvider struct {
	app *App

	// Compact disables indentation of responses. When nil, responses are
	// indented in debug mode only.
	Compact *bool

	// Mimetype of responses, "application/json" when empty.
	Mimetype string

	// EscapeHTML escapes <, > and & in strings.
	EscapeHTML bool
}

// NewDefaultJSONProvider returns the provider used when none is configured.
func NewDefaultJSONProvider(app *App) *DefaultJSONProvider {
	return &DefaultJSONProvider{app: app, EscapeHTML: true}
}

// Dumps encodes v without a trailing newline.
func (p *DefaultJSONProvider) Dumps(v any) ([]byte, error) {
	return p.encode(v, false)
}

// Loads decodes data into v.
func (p *DefaultJSONProvider) Loads(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json: decode: %w", err)
	}
	return nil
}

// Response encodes v followed by a newline.
func (p *DefaultJSONProvider) Response(_ context.Context, v any) (*Response, error) {
	indent := false
	if p.Compact != nil {
		indent = !*p.Compact
	} else if p.app != nil {
		indent = p.app.Debug()
	}

	body, err := p.encode(v, indent)
	if err != nil {
		return nil, err
	}
	mimetype := p.Mimetype
	if mimetype == "" {
		mimetype = "application/json"
	}
	return NewResponse(append(body, '\n'), 0, mimetype), nil
}

func (p *DefaultJSONProvider) encode(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(p.EscapeHTML)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("json: encode %T: %w", v, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// htmlSafeJSON encodes v for embedding in a <script> block.
func htmlSafeJSON(p JSONProvider, v any) (template.JS, error) {
	b, err := p.Dumps(v)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	json.HTMLEscape(&buf, b)
	return template.JS(buf.String()), nil
}
