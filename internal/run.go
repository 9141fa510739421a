package internal

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/flagon/pkg/dispatcher"
)

// ErrNoApps is returned by Run when nothing would serve requests.
var ErrNoApps = errors.New("flagon.Run: no domains, mounts or fallback configured")

// Run serves several applications from one server and blocks until
// shutdown. Requests are routed by host pattern first, then by path
// prefix, then to the fallback.
//
// Example:
//
//	api := flagon.New(flagon.WithHandlers(handlers.NewAPI()))
//	admin := flagon.New(flagon.WithHandlers(handlers.NewAdmin()))
//	site := flagon.New(flagon.WithHandlers(handlers.NewLanding()))
//
//	err := flagon.Run(
//	    flagon.Domain("api.acme.com", api),
//	    flagon.Mount("/admin", admin),
//	    flagon.Fallback(site),
//	    flagon.Address(":8080"),
//	)
func Run(opts ...RunOption) error {
	cfg := newServerConfig(opts...)

	handler, err := cfg.handler()
	if err != nil {
		return err
	}

	return cfg.serve(handler)
}

// Run serves the application alone and blocks until shutdown.
//
// Example:
//
//	if err := app.Run(flagon.Address(":8080")); err != nil {
//	    log.Fatal(err)
//	}
func (a *App) Run(opts ...RunOption) error {
	return Run(append([]RunOption{Fallback(a), Logger(a.logger)}, opts...)...)
}

// handler composes the configured applications.
func (c *serverConfig) handler() (http.Handler, error) {
	if len(c.domains) == 0 && len(c.mounts) == 0 {
		if c.fallback == nil {
			return nil, ErrNoApps
		}
		return c.fallback, nil
	}

	var opts []dispatcher.Option
	for _, d := range c.domains {
		opts = append(opts, dispatcher.Host(d.pattern, d.app))
	}
	for _, m := range c.mounts {
		opts = append(opts, dispatcher.Mount(m.pattern, m.app))
	}

	var fallback http.Handler = http.NotFoundHandler()
	if c.fallback != nil {
		fallback = c.fallback
	}
	return dispatcher.New(fallback, opts...), nil
}
