package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordNotification(t *testing.T) {
	okBefore := testutil.ToFloat64(notifications.WithLabelValues("test_kind", "ok"))
	errBefore := testutil.ToFloat64(notifications.WithLabelValues("test_kind", "error"))

	RecordNotification("test_kind", nil)
	RecordNotification("test_kind", errors.New("boom"))
	RecordNotification("test_kind", errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(notifications.WithLabelValues("test_kind", "ok")))
	assert.Equal(t, errBefore+2, testutil.ToFloat64(notifications.WithLabelValues("test_kind", "error")))
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/items/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/fail", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "nope") })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/items/:id", "200"))

	resp, err := app.Test(httptest.NewRequest("GET", "/items/42", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/items/:id", "200")))

	_, err = app.Test(httptest.NewRequest("GET", "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/fail", "418")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordOrderCreated()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "storefront_orders_created_total"))
}
