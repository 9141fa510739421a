package flagon_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon"
)

var errOutOfStock = errors.New("out of stock")

type catalog struct {
	stock map[string]int
}

func (h *catalog) Routes(r flagon.Router) {
	r.GET("/items/{sku}", h.show, flagon.EndpointName("item"))
	r.POST("/items/{sku}/buy", h.buy, flagon.EndpointName("buy"))
}

func (h *catalog) show(c flagon.Context) (any, error) {
	sku := c.Param("sku")
	n, ok := h.stock[sku]
	if !ok {
		return nil, flagon.ErrNotFound("no such item")
	}
	return map[string]any{"sku": sku, "stock": n}, nil
}

func (h *catalog) buy(c flagon.Context) (any, error) {
	sku := c.Param("sku")
	if h.stock[sku] == 0 {
		return nil, errOutOfStock
	}
	h.stock[sku]--
	if err := c.Flash("bought " + sku); err != nil {
		return nil, err
	}
	u, err := c.URLFor("item", map[string]any{"sku": sku})
	if err != nil {
		return nil, err
	}
	return flagon.Redirect(u, http.StatusSeeOther), nil
}

func newShop(opts ...flagon.Option) *flagon.App {
	opts = append([]flagon.Option{
		flagon.WithName("shop"),
		flagon.WithTesting(true),
		flagon.WithSecretKey("s3cret"),
		flagon.WithHandlers(&catalog{stock: map[string]int{"tea": 1}}),
	}, opts...)
	app := flagon.New(opts...)
	app.ErrorHandler(errOutOfStock, func(c flagon.Context, err error) (any, error) {
		return flagon.WithStatus(err.Error(), http.StatusConflict), nil
	})

	account := flagon.NewBlueprint("account", flagon.URLPrefix("/account"))
	account.GET("/messages", func(c flagon.Context) (any, error) {
		msgs, err := c.FlashedMessages()
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, m.Message)
		}
		return out, nil
	}, flagon.EndpointName("messages"))
	app.RegisterBlueprint(account)
	return app
}

func TestApp_EndToEnd(t *testing.T) {
	t.Parallel()

	client := newShop().TestClient()

	rec, err := client.Get("/items/tea")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var item map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, "tea", item["sku"])
	assert.EqualValues(t, 1, item["stock"])

	rec, err = client.PostForm("/items/tea/buy", url.Values{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/items/tea", rec.Header().Get("Location"))

	rec, err = client.Get("/account/messages")
	require.NoError(t, err)
	assert.JSONEq(t, `["bought tea"]`, rec.Body.String())

	rec, err = client.PostForm("/items/tea/buy", url.Values{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "out of stock", rec.Body.String())

	rec, err = client.Get("/items/coffee")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApp_AppContextOutsideRequest(t *testing.T) {
	t.Parallel()

	app := newShop(flagon.WithConfig(map[string]any{"SERVER_NAME": "shop.example.com"}))

	_, err := flagon.G(context.Background())
	require.ErrorIs(t, err, flagon.ErrOutsideAppContext)

	err = app.AppContext().Run(context.Background(), func(ctx context.Context) error {
		assert.True(t, flagon.HasAppContext(ctx))
		assert.False(t, flagon.HasRequestContext(ctx))

		current, err := flagon.CurrentApp(ctx)
		require.NoError(t, err)
		assert.Same(t, app, current)

		g, err := flagon.G(ctx)
		require.NoError(t, err)
		g.Set("job", "reindex")
		job, err := flagon.GlobalValue[string](g, "job")
		require.NoError(t, err)
		assert.Equal(t, "reindex", job)

		u, err := app.URLFor(ctx, "account.messages", nil)
		require.NoError(t, err)
		assert.Equal(t, "http://shop.example.com/account/messages", u)
		return nil
	})
	require.NoError(t, err)
}

func TestApp_SetupAfterFirstRequestPanics(t *testing.T) {
	t.Parallel()

	app := newShop()
	_, err := app.TestClient().Get("/items/tea")
	require.NoError(t, err)

	defer func() {
		r := recover()
		err, ok := r.(error)
		require.True(t, ok, "expected an error panic, got %v", r)
		var se *flagon.SetupError
		require.ErrorAs(t, err, &se)
		assert.ErrorIs(t, se, flagon.ErrSetupFinished)
	}()
	app.GET("/late", func(flagon.Context) (any, error) { return "late", nil })
}
