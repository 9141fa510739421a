package routing

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// Rule binds a URL pattern to an endpoint.
type Rule struct {
	// Defaults are values passed to the view when the pattern does not
	// capture them. They also select the rule when building URLs.
	Defaults map[string]string

	// Pattern is a chi pattern such as "/users/{id:[0-9]+}".
	Pattern string

	// Endpoint names the view the rule dispatches to.
	Endpoint string

	// Subdomain restricts the rule to a subdomain of the server name.
	Subdomain string

	// Methods are the upper-cased HTTP methods the rule accepts.
	// HEAD is added when GET is present.
	Methods []string

	// ProvideAutomaticOptions marks rules whose OPTIONS requests are
	// answered by the framework instead of the view.
	ProvideAutomaticOptions bool

	segments []segment
}

// segment is one piece of a parsed pattern: literal text or a parameter.
type segment struct {
	re       *regexp.Regexp
	literal  string
	name     string
	isParam  bool
	wildcard bool
}

// Params returns the names of the parameters the pattern captures.
func (r *Rule) Params() []string {
	var names []string
	for _, s := range r.segments {
		if s.isParam {
			names = append(names, s.name)
		}
	}
	return names
}

// Allows reports whether the rule accepts method.
func (r *Rule) Allows(method string) bool {
	return slices.Contains(r.Methods, strings.ToUpper(method))
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s %s -> %s", strings.Join(r.Methods, ","), r.Pattern, r.Endpoint)
}

// normalize validates the rule and fills derived fields.
func (r *Rule) normalize() error {
	if !strings.HasPrefix(r.Pattern, "/") {
		return fmt.Errorf("%w: pattern %q must start with '/'", ErrInvalidRule, r.Pattern)
	}
	if r.Endpoint == "" {
		return fmt.Errorf("%w: pattern %q has no endpoint", ErrInvalidRule, r.Pattern)
	}

	methods := make([]string, 0, len(r.Methods)+1)
	for _, m := range r.Methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m != "" && !slices.Contains(methods, m) {
			methods = append(methods, m)
		}
	}
	if len(methods) == 0 {
		methods = append(methods, http.MethodGet)
	}
	if slices.Contains(methods, http.MethodGet) && !slices.Contains(methods, http.MethodHead) {
		methods = append(methods, http.MethodHead)
	}
	r.Methods = methods

	segs, err := parsePattern(r.Pattern)
	if err != nil {
		return err
	}
	r.segments = segs
	return nil
}

// parsePattern splits a chi pattern into literal and parameter segments.
// Braces may nest inside a regexp, as in "{code:[0-9]{3}}".
func parsePattern(pattern string) ([]segment, error) {
	var segs []segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(pattern); i++ {
		switch ch := pattern[i]; ch {
		case '*':
			flush()
			segs = append(segs, segment{name: "*", isParam: true, wildcard: true})
		case '{':
			depth, end := 0, -1
			for j := i; j < len(pattern); j++ {
				if pattern[j] == '{' {
					depth++
				} else if pattern[j] == '}' {
					depth--
					if depth == 0 {
						end = j
						break
					}
				}
			}
			if end == -1 {
				return nil, fmt.Errorf("%w: unclosed parameter in %q", ErrInvalidRule, pattern)
			}
			flush()

			name, expr, hasExpr := strings.Cut(pattern[i+1:end], ":")
			if name == "" {
				return nil, fmt.Errorf("%w: empty parameter name in %q", ErrInvalidRule, pattern)
			}
			seg := segment{name: name, isParam: true}
			if hasExpr {
				re, err := regexp.Compile("^(?:" + expr + ")$")
				if err != nil {
					return nil, fmt.Errorf("%w: parameter %q: %w", ErrInvalidRule, name, err)
				}
				seg.re = re
			}
			segs = append(segs, seg)
			i = end
		default:
			lit.WriteByte(ch)
		}
	}
	flush()
	return segs, nil
}

// build renders the rule's path from values. It reports the value names it
// consumed, and false when a parameter is missing or does not match its
// expression, or when a default conflicts with a supplied value.
func (r *Rule) build(values map[string]any) (string, map[string]bool, bool) {
	used := make(map[string]bool, len(r.segments))

	for name, def := range r.Defaults {
		if v, ok := values[name]; ok && v != nil && stringify(v) != def {
			if !slices.Contains(r.Params(), name) {
				return "", nil, false
			}
		}
		used[name] = true
	}

	var b strings.Builder
	for _, s := range r.segments {
		if !s.isParam {
			b.WriteString(s.literal)
			continue
		}

		var raw string
		if v, ok := values[s.name]; ok && v != nil {
			raw = stringify(v)
		} else if def, ok := r.Defaults[s.name]; ok {
			raw = def
		} else {
			return "", nil, false
		}
		if s.re != nil && !s.re.MatchString(raw) {
			return "", nil, false
		}

		if s.wildcard {
			parts := strings.Split(raw, "/")
			for i, p := range parts {
				parts[i] = url.PathEscape(p)
			}
			b.WriteString(strings.Join(parts, "/"))
		} else {
			b.WriteString(url.PathEscape(raw))
		}
		used[s.name] = true
	}
	return b.String(), used, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
