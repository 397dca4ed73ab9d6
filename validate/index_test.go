package validate

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nightlife_order/model"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBody(t *testing.T) {
	app := fiber.New()
	app.Post("/", Body[model.CreateOrderItemInput](), func(c *fiber.Ctx) error {
		in := c.Locals("input").(model.CreateOrderItemInput)
		return c.JSON(in)
	})

	cases := []struct {
		body string
		want int
	}{
		{`{"menuItemId":3,"quantity":2}`, http.StatusOK},
		{`{"menuItemId":3,"quantity":0}`, http.StatusBadRequest},
		{`{"menuItemId":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, tc.body)
	}
}

func TestGetById(t *testing.T) {
	app := fiber.New()
	app.Get("/orders/:orderId", GetById("orderId"), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/orders/12", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/orders/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuery(t *testing.T) {
	app := fiber.New()
	app.Get("/", Query[model.FilterOrder](), func(c *fiber.Ctx) error {
		f := c.Locals("filter").(model.FilterOrder)
		assert.Equal(t, uint(4), f.EventId)
		assert.Equal(t, model.OrderStatusReady, f.Status)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/?eventId=4&status=ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
