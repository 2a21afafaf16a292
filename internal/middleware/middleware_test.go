package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/utils"
)

const testToken = "123456:TEST"

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var ae *apperr.Error
			var fe *fiber.Error
			switch {
			case errors.As(err, &ae):
				code = ae.Kind.HTTPStatus()
			case errors.As(err, &fe):
				code = fe.Code
			}
			return c.Status(code).SendString(err.Error())
		},
	})
	handlers = append(handlers, func(c *fiber.Ctx) error {
		if user, ok := GetCurrentUser(c); ok {
			return c.SendString(user.IDString())
		}
		return c.SendString("anonymous")
	})
	app.Post("/", handlers...)
	return app
}

func signed(userID int64, authDate time.Time) string {
	return signedUser(`{"id":`+strconv.FormatInt(userID, 10)+`,"first_name":"Ann"}`, authDate)
}

func signedUser(user string, authDate time.Time) string {
	pairs := utils.InitData{
		{Key: "auth_date", Value: strconv.FormatInt(authDate.Unix(), 10)},
		{Key: "user", Value: user},
	}
	return pairs.Encode() + "&hash=" + utils.SignInitData(pairs, testToken)
}

func call(t *testing.T, app *fiber.App, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestInitDataMiddleware(t *testing.T) {
	app := newApp(InitDataMiddleware(utils.NewInitDataValidator(testToken, time.Hour)))

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "valid", headers: map[string]string{InitDataHeader: signed(7, time.Now())}, want: http.StatusOK},
		{name: "legacy header", headers: map[string]string{LegacyInitDataHeader: signed(7, time.Now())}, want: http.StatusOK},
		{name: "expired", headers: map[string]string{InitDataHeader: signed(7, time.Now().Add(-2*time.Hour))}, want: http.StatusUnauthorized},
		{name: "forged", headers: map[string]string{InitDataHeader: signed(7, time.Now()) + "0"}, want: http.StatusUnauthorized},
		{name: "user without id", headers: map[string]string{InitDataHeader: signedUser(`{"first_name":"NoID"}`, time.Now())}, want: http.StatusUnauthorized},
		{name: "malformed user", headers: map[string]string{InitDataHeader: signedUser(`not-json`, time.Now())}, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, app, tt.headers)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestInitDataMiddleware_WithoutToken(t *testing.T) {
	app := newApp(InitDataMiddleware(utils.NewInitDataValidator("", 0)))

	resp := call(t, app, map[string]string{InitDataHeader: signed(7, time.Now())})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRequireAdmin(t *testing.T) {
	app := newApp(InitDataMiddleware(utils.NewInitDataValidator(testToken, 0)), RequireAdmin("100"))

	resp := call(t, app, map[string]string{InitDataHeader: signed(100, time.Now())})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, app, map[string]string{InitDataHeader: signed(7, time.Now())})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	closed := newApp(InitDataMiddleware(utils.NewInitDataValidator(testToken, 0)), RequireAdmin(""))
	resp = call(t, closed, map[string]string{InitDataHeader: signed(100, time.Now())})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebhookSecret(t *testing.T) {
	app := newApp(WebhookSecret("s3cret"))

	assert.Equal(t, http.StatusForbidden, call(t, app, nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, call(t, app, map[string]string{WebhookSecretHeader: "nope"}).StatusCode)
	assert.Equal(t, http.StatusOK, call(t, app, map[string]string{WebhookSecretHeader: "s3cret"}).StatusCode)

	open := newApp(WebhookSecret(""))
	assert.Equal(t, http.StatusOK, call(t, open, nil).StatusCode)
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1700000000, 0)
	limiter := NewRateLimiter(1, 2)
	limiter.now = func() time.Time { return now }
	app := newApp(limiter.Handler())

	assert.Equal(t, http.StatusOK, call(t, app, nil).StatusCode)
	assert.Equal(t, http.StatusOK, call(t, app, nil).StatusCode)

	resp := call(t, app, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get(fiber.HeaderRetryAfter))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, call(t, app, nil).StatusCode)

	now = now.Add(limiterIdleTTL + time.Second)
	limiter.allow("ip:other")
	limiter.mu.Lock()
	visitors := len(limiter.visitors)
	limiter.mu.Unlock()
	assert.Equal(t, 1, visitors, "idle visitors are pruned")
}

func TestRateLimiter_Disabled(t *testing.T) {
	app := newApp(NewRateLimiter(0, 0).Handler())
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, call(t, app, nil).StatusCode)
	}
}
