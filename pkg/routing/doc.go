// Package routing maps request paths to endpoints and builds URLs back
// from endpoints.
//
// A [Map] collects [Rule] values. Matching is delegated to one chi mux per
// subdomain; the map keeps the rule metadata chi does not know about
// (endpoint names, defaults, methods) and turns chi's answers into routing
// signals:
//
//   - [*RequestRedirect] when only the slash-terminated form of the path
//     exists (strict slashes),
//   - [*MethodNotAllowed] when the path exists for other methods,
//   - [*NotFound] otherwise.
//
// All three implement StatusCode() so callers can treat them as HTTP errors.
//
// Patterns use chi syntax: "/users/{id}", "/files/{name:[a-z]+}", "/static/*".
//
//	m := routing.NewMap()
//	_ = m.Add(&routing.Rule{Pattern: "/users/{id}", Endpoint: "user", Methods: []string{"GET"}})
//
//	a := m.Bind(r, routing.BindOptions{})
//	rule, args, err := a.Match()
//	url, err := a.Build("user", map[string]any{"id": 7}, routing.BuildOptions{})
package routing
