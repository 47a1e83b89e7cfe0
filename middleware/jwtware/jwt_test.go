package jwtware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-users/middleware/jwtware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClaims struct {
	subject string
	role    string
	atLeast bool
}

func (s stubClaims) Subject() string   { return s.subject }
func (s stubClaims) AccountID() string { return s.subject }
func (s stubClaims) Role() string      { return s.role }

func (s stubClaims) HasRole(role string) bool { return s.role == role }

func (s stubClaims) IsAtLeast(minRole string) bool { return s.atLeast }

type stubValidator struct {
	claims jwtware.AuthClaims
	err    error
}

func (s stubValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	return s.claims, s.err
}

func newApp(cfg jwtware.Config) *fiber.App {
	app := fiber.New()
	app.Use(jwtware.New(cfg))
	app.Get("/protected", func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(jwtware.AuthClaims)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"subject": claims.Subject()})
	})
	return app
}

func bearerRequest(token string) *http.Request {
	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	app := newApp(jwtware.Config{
		SigningKey:     jwtware.SigningKey{JWTAlg: "HS256", Key: []byte("secret")},
		TokenValidator: stubValidator{claims: stubClaims{subject: "user-1", role: "ADMIN"}},
	})

	resp, err := app.Test(bearerRequest("some-token"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	app := newApp(jwtware.Config{
		SigningKey:     jwtware.SigningKey{JWTAlg: "HS256", Key: []byte("secret")},
		TokenValidator: stubValidator{claims: stubClaims{subject: "user-1"}},
	})

	resp, err := app.Test(bearerRequest(""))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareRejectsInvalidToken(t *testing.T) {
	app := newApp(jwtware.Config{
		SigningKey:     jwtware.SigningKey{JWTAlg: "HS256", Key: []byte("secret")},
		TokenValidator: stubValidator{err: errors.New("token is malformed")},
	})

	resp, err := app.Test(bearerRequest("garbage"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareFilterSkipsAuth(t *testing.T) {
	app := fiber.New()
	app.Use(jwtware.New(jwtware.Config{
		Filter:         func(c *fiber.Ctx) bool { return true },
		SigningKey:     jwtware.SigningKey{JWTAlg: "HS256", Key: []byte("secret")},
		TokenValidator: stubValidator{err: errors.New("should not be called")},
	}))
	app.Get("/open", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/open", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMiddlewareEnforcesRequiredRole(t *testing.T) {
	app := newApp(jwtware.Config{
		SigningKey:     jwtware.SigningKey{JWTAlg: "HS256", Key: []byte("secret")},
		TokenValidator: stubValidator{claims: stubClaims{subject: "user-1", role: "AUTHENTICATED"}},
		RequiredRole:   "ADMIN",
	})

	resp, err := app.Test(bearerRequest("some-token"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareEnforcesMinimumRole(t *testing.T) {
	app := newApp(jwtware.Config{
		SigningKey:     jwtware.SigningKey{JWTAlg: "HS256", Key: []byte("secret")},
		TokenValidator: stubValidator{claims: stubClaims{subject: "user-1", role: "AUTHENTICATED", atLeast: false}},
		MinimumRole:    "MANAGER",
	})

	resp, err := app.Test(bearerRequest("some-token"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareReadsTokenFromQuery(t *testing.T) {
	app := newApp(jwtware.Config{
		SigningKey:     jwtware.SigningKey{JWTAlg: "HS256", Key: []byte("secret")},
		TokenValidator: stubValidator{claims: stubClaims{subject: "user-1", role: "ADMIN"}},
		TokenLookup:    "query:auth_token",
	})

	req := httptest.NewRequest(fiber.MethodGet, "/protected?auth_token=some-token", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMiddlewareContextEnricher(t *testing.T) {
	type ctxKey struct{}

	app := fiber.New()
	app.Use(jwtware.New(jwtware.Config{
		SigningKey:     jwtware.SigningKey{JWTAlg: "HS256", Key: []byte("secret")},
		TokenValidator: stubValidator{claims: stubClaims{subject: "user-1", role: "ADMIN"}},
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
			return context.WithValue(ctx, ctxKey{}, claims.Subject())
		},
	}))
	app.Get("/protected", func(c *fiber.Ctx) error {
		subject, _ := c.UserContext().Value(ctxKey{}).(string)
		return c.JSON(fiber.Map{"subject": subject})
	})

	resp, err := app.Test(bearerRequest("some-token"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMiddlewareValidationListenerCanReject(t *testing.T) {
	app := newApp(jwtware.Config{
		SigningKey:     jwtware.SigningKey{JWTAlg: "HS256", Key: []byte("secret")},
		TokenValidator: stubValidator{claims: stubClaims{subject: "user-1", role: "ADMIN"}},
		ValidationListeners: []jwtware.ValidationListener{
			func(c *fiber.Ctx, claims jwtware.AuthClaims) error {
				return errors.New("session revoked")
			},
		},
	})

	resp, err := app.Test(bearerRequest("some-token"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewarePanicsWithoutValidator(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.New(jwtware.Config{
			SigningKey: jwtware.SigningKey{JWTAlg: "HS256", Key: []byte("secret")},
		})
	})
}

func TestMiddlewarePanicsWithoutKeySource(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.New(jwtware.Config{
			TokenValidator: stubValidator{claims: stubClaims{subject: "user-1"}},
		})
	})
}
