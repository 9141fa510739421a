// Package middlewares provides request hooks for flagon applications,
// packaged as extensions.
//
// Each constructor returns a flagon.Extension that registers before- and
// after-request functions (and, for Timeout, HTTP middleware) on the
// application it is installed on.
//
// # Request ID
//
// RequestID stores a request id in g under "request_id" and echoes it in
// the response. Upstream ids from X-Request-ID and friends are kept.
//
//	app := flagon.New(
//	    flagon.WithLogger("api", middlewares.RequestIDExtractor()),
//	    flagon.WithExtensions(middlewares.RequestID()),
//	)
//
// # CORS
//
// CORS answers preflight requests and adds the Access-Control headers to
// responses for allowed origins.
//
//	flagon.WithExtensions(middlewares.CORS(
//	    middlewares.WithAllowOrigins("https://app.example.com"),
//	    middlewares.WithAllowCredentials(),
//	))
//
// # Timeout
//
// Timeout puts a deadline on the request context. Views that give up with
// the context error get a 503 response.
//
//	flagon.WithExtensions(middlewares.Timeout(10 * time.Second))
//
// # Locale
//
// Locale picks the language of the request from a cookie, a query
// parameter or Accept-Language, stores it in g under "locale" and makes
// it available to templates.
//
//	flagon.WithExtensions(middlewares.Locale([]string{"en", "de", "pl"}))
package middlewares
