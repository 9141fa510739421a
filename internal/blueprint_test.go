package internal_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/internal"
)

func listItems(c internal.Context) (any, error) {
	return c.Endpoint(), nil
}

func TestBlueprint_SameFunctionTwoBlueprints(t *testing.T) {
	t.Parallel()

	bp1 := internal.NewBlueprint("bp1", internal.URLPrefix("/one"))
	bp1.GET("/items", listItems)
	bp2 := internal.NewBlueprint("bp2", internal.URLPrefix("/two"))
	bp2.GET("/items", listItems)

	app := internal.New()
	app.RegisterBlueprint(bp1)
	app.RegisterBlueprint(bp2)

	assert.True(t, app.URLMap().HasEndpoint("bp1.listItems"))
	assert.True(t, app.URLMap().HasEndpoint("bp2.listItems"))

	assert.Equal(t, "bp1.listItems", serve(t, app, http.MethodGet, "/one/items").Body.String())
	assert.Equal(t, "bp2.listItems", serve(t, app, http.MethodGet, "/two/items").Body.String())
}

func TestBlueprint_HookScopes(t *testing.T) {
	t.Parallel()

	var calls recorder
	before := func(name string) internal.BeforeRequestFunc {
		return func(internal.Context) (any, error) {
			calls.add(name)
			return nil, nil
		}
	}

	parent := internal.NewBlueprint("parent", internal.URLPrefix("/parent"))
	parent.BeforeRequest(before("parent"))
	child := internal.NewBlueprint("child", internal.URLPrefix("/child"))
	child.BeforeRequest(before("child"))
	child.GET("/", listItems)
	parent.RegisterBlueprint(child)

	other := internal.NewBlueprint("other")
	other.BeforeRequest(before("other"))
	other.AppBeforeRequest(before("app-wide"))

	app := internal.New()
	app.BeforeRequest(before("app"))
	app.RegisterBlueprint(parent)
	app.RegisterBlueprint(other)

	rec := serve(t, app, http.MethodGet, "/parent/child/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "parent.child.listItems", rec.Body.String())
	assert.Equal(t, []string{"app", "app-wide", "parent", "child"}, calls.list())
}

func TestBlueprint_ErrorHandlerPrecedence(t *testing.T) {
	t.Parallel()

	errThing := errors.New("thing")
	handler := func(label string) internal.ErrorHandlerFunc {
		return func(internal.Context, error) (any, error) { return label, nil }
	}
	fail := func(internal.Context) (any, error) { return nil, errThing }

	bp := internal.NewBlueprint("api", internal.URLPrefix("/api"))
	bp.ErrorHandler(errThing, handler("blueprint"))
	bp.GET("/fail", fail, internal.EndpointName("fail"))

	app := internal.New()
	app.ErrorHandler(errThing, handler("app"))
	app.GET("/fail", fail, internal.EndpointName("fail"))
	app.RegisterBlueprint(bp)

	assert.Equal(t, "blueprint", serve(t, app, http.MethodGet, "/api/fail").Body.String())
	assert.Equal(t, "app", serve(t, app, http.MethodGet, "/fail").Body.String())
}

func TestBlueprint_RegisterTwiceUnderNewName(t *testing.T) {
	t.Parallel()

	bp := internal.NewBlueprint("pages")
	bp.GET("/", listItems)

	app := internal.New()
	app.RegisterBlueprint(bp, internal.URLPrefix("/a"))
	app.RegisterBlueprint(bp, internal.URLPrefix("/b"), internal.BlueprintName("pages_b"))

	assert.Equal(t, "pages.listItems", serve(t, app, http.MethodGet, "/a/").Body.String())
	assert.Equal(t, "pages_b.listItems", serve(t, app, http.MethodGet, "/b/").Body.String())
	assert.Len(t, app.Blueprints(), 2)
}

func TestBlueprint_NameConflict(t *testing.T) {
	t.Parallel()

	app := internal.New()
	app.RegisterBlueprint(internal.NewBlueprint("shop"))

	defer func() {
		err, ok := recover().(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, internal.ErrBlueprintName)
		assert.Contains(t, err.Error(), `"shop" is already registered`)
	}()
	app.RegisterBlueprint(internal.NewBlueprint("shop"))
}

func TestBlueprint_InvalidNames(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { internal.NewBlueprint("") })
	assert.Panics(t, func() { internal.NewBlueprint("a.b") })

	bp := internal.NewBlueprint("ok")
	assert.Panics(t, func() { bp.AddURLRule("/", "with.dot", listItems) })
	assert.Panics(t, func() { bp.RegisterBlueprint(bp) })
}

func TestBlueprint_SetupAfterRegistration(t *testing.T) {
	t.Parallel()

	bp := internal.NewBlueprint("late")
	app := internal.New()
	app.RegisterBlueprint(bp)

	defer func() {
		rec := recover()
		err, ok := rec.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, internal.ErrBlueprintRegistered)
	}()
	bp.BeforeRequest(func(internal.Context) (any, error) { return nil, nil })
}

func TestBlueprint_SubdomainAndDefaults(t *testing.T) {
	t.Parallel()

	bp := internal.NewBlueprint("tenant",
		internal.Subdomain("acme"),
		internal.URLDefaultValues(map[string]string{"page": "1"}),
	)
	bp.GET("/", func(c internal.Context) (any, error) {
		return c.Request().Host + ":" + c.Param("page"), nil
	}, internal.EndpointName("home"))

	app := internal.New(
		internal.WithConfig(map[string]any{"SERVER_NAME": "example.com"}),
		internal.WithSubdomainMatching(true),
	)
	app.RegisterBlueprint(bp)

	rec := serve(t, app, http.MethodGet, "http://acme.example.com/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme.example.com:1", rec.Body.String())

	rec = serve(t, app, http.MethodGet, "http://other.example.com/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBlueprint_RecordOnce(t *testing.T) {
	t.Parallel()

	var runs int
	bp := internal.NewBlueprint("once")
	bp.RecordOnce(func(*internal.SetupState) { runs++ })
	bp.Record(func(s *internal.SetupState) {
		assert.NotNil(t, s.App)
	})

	app := internal.New()
	app.RegisterBlueprint(bp)
	app.RegisterBlueprint(bp, internal.BlueprintName("again"))
	assert.Equal(t, 1, runs)
}
