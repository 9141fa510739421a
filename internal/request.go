package internal

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"github.com/dmitrymomot/flagon/pkg/routing"
)

// Request is the incoming request plus the routing result.
type Request struct {
	*http.Request

	// Rule is the matched URL rule, nil when matching failed.
	Rule *routing.Rule

	// ViewArgs are the values captured by the rule merged with its
	// defaults. URL value preprocessors may modify them.
	ViewArgs map[string]string

	// RoutingError holds the matching failure, raised when the request is
	// dispatched: *routing.NotFound, *routing.MethodNotAllowed,
	// *routing.RequestRedirect or a 400 for untrusted hosts.
	RoutingError error

	maxFormMemory int64
	formParsed    bool
}

// Endpoint returns the endpoint of the matched rule.
func (r *Request) Endpoint() string {
	if r.Rule == nil {
		return ""
	}
	return r.Rule.Endpoint
}

// Blueprint returns the dotted name of the blueprint owning the matched
// endpoint, or "".
func (r *Request) Blueprint() string {
	endpoint := r.Endpoint()
	if i := strings.LastIndexByte(endpoint, '.'); i >= 0 {
		return endpoint[:i]
	}
	return ""
}

// Blueprints returns the blueprint of the endpoint followed by its
// parents, innermost first:
//
//	"admin.users.list" -> ["admin.users", "admin"]
func (r *Request) Blueprints() []string {
	return blueprintChain(r.Blueprint())
}

func blueprintChain(name string) []string {
	if name == "" {
		return nil
	}
	out := []string{name}
	for {
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			return out
		}
		name = name[:i]
		out = append(out, name)
	}
}

// BestLanguage returns the supported language tag that best matches the
// Accept-Language header. The first supported tag is the fallback.
func (r *Request) BestLanguage(supported ...string) string {
	if len(supported) == 0 {
		return ""
	}
	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		tags = append(tags, language.Make(s))
	}
	accepted, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(accepted) == 0 {
		return supported[0]
	}
	_, idx, conf := language.NewMatcher(tags).Match(accepted...)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}

// ParseForm parses the body once. A body larger than MAX_CONTENT_LENGTH
// fails with a 413 HTTPError, malformed input with a 400.
func (r *Request) ParseForm() error {
	if r.formParsed {
		return nil
	}
	r.formParsed = true

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.Request.ParseMultipartForm(r.maxFormMemory)
	} else {
		err = r.Request.ParseForm()
	}
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return ErrRequestEntityTooLarge("", WithError(err))
	}
	return ErrBadRequest("The browser (or proxy) sent a request that this server could not understand.", WithError(err))
}

// FormValue returns the first value of a form field. Parse errors yield
// an empty string; use ParseForm to inspect them.
func (r *Request) FormValue(key string) string {
	if err := r.ParseForm(); err != nil {
		return ""
	}
	return r.Request.Form.Get(key)
}

// RequireForm returns the form field key or a 400 error when it is
// missing.
func (r *Request) RequireForm(key string) (string, error) {
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	vs, ok := r.Request.Form[key]
	if !ok || len(vs) == 0 {
		return "", ErrBadRequest(
			fmt.Sprintf("The browser (or proxy) sent a request that this server could not understand. KeyError: %q", key),
			WithError(fmt.Errorf("%w: %q", ErrMissingKey, key)),
		)
	}
	return vs[0], nil
}

// IsSecure reports whether the request came over TLS.
func (r *Request) IsSecure() bool {
	return r.TLS != nil
}

// WantsJSON reports whether the client prefers JSON over HTML.
func (r *Request) WantsJSON() bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
	}
	jsonAt := strings.Index(accept, "application/json")
	if jsonAt < 0 {
		return false
	}
	htmlAt := strings.Index(accept, "text/html")
	return htmlAt < 0 || jsonAt < htmlAt
}
