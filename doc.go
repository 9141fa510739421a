// Package flagon is a small web framework built around explicit contexts,
// a fixed dispatch pipeline and blueprints.
//
// # Quick Start
//
// Create an application with flagon.New, declare routes and call Run:
//
//	app := flagon.New(
//	    flagon.WithName("shop"),
//	    flagon.WithSecretKey(os.Getenv("SECRET_KEY")),
//	    flagon.WithHandlers(handlers.NewPages(repo)),
//	)
//
//	if err := app.Run(flagon.Address(":8080")); err != nil {
//	    log.Fatal(err)
//	}
//
// # Views
//
// A view receives a [Context] and returns any value [App] can turn into a
// response: a string, []byte, a map or slice (encoded as JSON), a
// [*Response], an [http.Handler], a templ [Component], an error, or a
// [Tuple] adding a status and headers:
//
//	app.GET("/users/{id}", func(c flagon.Context) (any, error) {
//	    user, err := repo.User(c, flagon.Param[int64](c, "id"))
//	    if err != nil {
//	        return nil, flagon.ErrNotFound("no such user")
//	    }
//	    return flagon.WithStatus(user, http.StatusOK), nil
//	}, flagon.EndpointName("user"))
//
// # Contexts
//
// Every request runs inside a request context, which in turn sits on an
// application context. Code outside a request, such as a CLI command or a
// background job, pushes an application context itself:
//
//	err := app.AppContext().Run(ctx, func(ctx context.Context) error {
//	    g, _ := flagon.G(ctx)
//	    g.Set("job", "nightly")
//	    u, err := app.URLFor(ctx, "user", map[string]any{"id": 1})
//	    ...
//	})
//
// # Hooks
//
// Before-request functions run in order and may short-circuit the view by
// returning a value. After-request functions run in reverse order and may
// replace the response. Teardown functions always run, even after errors.
//
//	app.BeforeRequest(func(c flagon.Context) (any, error) {
//	    if c.Session().Len() == 0 {
//	        return flagon.Redirect("/login"), nil
//	    }
//	    return nil, nil
//	})
//
// # Blueprints
//
// A [Blueprint] records routes and hooks and replays them when it is
// registered. Endpoints are prefixed with the blueprint name:
//
//	admin := flagon.NewBlueprint("admin", flagon.URLPrefix("/admin"))
//	admin.GET("/", dashboard, flagon.EndpointName("index"))
//	app.RegisterBlueprint(admin)
//
//	c.URLFor("admin.index", nil) // "/admin/"
//
// # Error handling
//
// Error handlers are keyed by status code, by error type or by a sentinel
// error. Blueprint handlers win over application handlers:
//
//	app.ErrorHandler(http.StatusNotFound, notFoundPage)
//	app.ErrorHandler(flagon.ErrorType[*ValidationError](), showForm)
//	app.ErrorHandler(sql.ErrNoRows, notFoundPage)
//
// # Several applications
//
// [Run] serves several applications from one server by host or by path
// prefix:
//
//	flagon.Run(
//	    flagon.Domain("api.acme.com", api),
//	    flagon.Mount("/admin", admin),
//	    flagon.Fallback(site),
//	)
//
// # Testing
//
// [App.TestClient] sends requests without a network and keeps cookies
// between them:
//
//	client := app.TestClient()
//	rec, err := client.Get("/users/1")
package flagon
