package serverutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-salesops-be/pkg/crm"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=lead opportunity"`
	Limit int    `json:"limit" validate:"min=0,max=200"`
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ValidateRequest(sampleRequest{}), 400},
		{fmt.Errorf("lookup: %w", crm.ErrRecordNotFound), 404},
		{fmt.Errorf("%w: widgets", crm.ErrUnknownKind), 400},
		{fmt.Errorf("session x: %w", ErrNotFound), 404},
		{fiber.ErrUnauthorized, 401},
		{errors.New("boom"), 500},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestValidationMessageUsesJSONNames(t *testing.T) {
	err := ValidateRequest(sampleRequest{Kind: "account", Limit: 500})
	require.Error(t, err)

	msg := describeValidation(err)
	assert.Contains(t, msg, "kind must be one of [lead opportunity]")
	assert.Contains(t, msg, "limit must be at most 200")
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/missing", func(c *fiber.Ctx) error { return crm.ErrRecordNotFound })
	app.Get("/ok", func(c *fiber.Ctx) error { return c.JSON(SuccessResponse("fine", 1)) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	var body Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, crm.ErrRecordNotFound.Error(), body.Message)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestJwtMiddleware(t *testing.T) {
	const secret = "test-secret"
	app := fiber.New()
	app.Get("/guarded", JwtMiddleware(secret), func(c *fiber.Ctx) error {
		return c.SendString(fmt.Sprint(c.Locals("user_id")))
	})

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "rep-42",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/guarded?token="+signed, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestJwtMiddlewareDisabledWithoutSecret(t *testing.T) {
	app := fiber.New()
	app.Get("/open", JwtMiddleware(""), func(c *fiber.Ctx) error { return c.SendStatus(204) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}
