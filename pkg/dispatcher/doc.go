// Package dispatcher combines several http.Handlers behind one server.
//
// Handlers are selected by Host header (exact "api.example.com" or wildcard
// "*.example.com") or by URL path prefix. A handler mounted under a prefix
// sees the request path with the prefix removed; the removed part is
// available through [ScriptName] so the mounted application can build
// absolute URLs:
//
//	d := dispatcher.New(frontend,
//		dispatcher.Host("api.example.com", api),
//		dispatcher.Mount("/admin", admin),
//	)
//	http.ListenAndServe(":8080", d)
//
// Host routes are checked before mounts. Requests that match nothing go to
// the fallback handler, or receive 404 when it is nil.
package dispatcher
