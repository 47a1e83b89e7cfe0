package users_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenService(key string) *users.TokenServiceImpl {
	return users.NewTokenService([]byte(key), 24, "test-issuer", jwt.ClaimStrings{"test-audience"}, nil)
}

func TestTokenServiceGenerateAndValidate(t *testing.T) {
	service := newTokenService("test-signing-key")

	identity := &MockIdentity{}
	identity.On("ID").Return("user-123")
	identity.On("Role").Return(users.RoleManager)

	token, err := service.Generate(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.AccountID())
	assert.Equal(t, "user-123", claims.Subject())
	assert.Equal(t, users.RoleManager, claims.Role())
	assert.True(t, claims.Expires().After(time.Now()))
}

func TestTokenServiceGenerateNilIdentity(t *testing.T) {
	service := newTokenService("test-signing-key")

	_, err := service.Generate(nil)
	require.Error(t, err)
}

func TestTokenServiceValidateExpired(t *testing.T) {
	service := newTokenService("test-signing-key")

	past := time.Now().Add(-48 * time.Hour)
	service.WithClock(func() time.Time { return past })

	identity := &MockIdentity{}
	identity.On("ID").Return("user-123")
	identity.On("Role").Return(users.RoleAuthenticated)

	token, err := service.Generate(identity)
	require.NoError(t, err)

	// restore the real clock so validation sees an expired token
	service.WithClock(time.Now)

	_, err = service.Validate(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, users.ErrTokenExpired)
	assert.True(t, users.IsTokenExpiredError(err))
}

func TestTokenServiceValidateWrongKey(t *testing.T) {
	issuer := newTokenService("key-one")
	verifier := newTokenService("key-two")

	identity := &MockIdentity{}
	identity.On("ID").Return("user-123")
	identity.On("Role").Return(users.RoleAuthenticated)

	token, err := issuer.Generate(identity)
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	require.Error(t, err)
	assert.True(t, users.IsMalformedError(err))
}

func TestTokenServiceValidateGarbage(t *testing.T) {
	service := newTokenService("test-signing-key")

	_, err := service.Validate("not.a.jwt")
	require.Error(t, err)
	assert.True(t, users.IsMalformedError(err))
}

func TestTokenServiceSignClaims(t *testing.T) {
	service := newTokenService("test-signing-key")

	claims := buildClaims("user-123", users.RoleAdmin)
	claims.Issuer = "test-issuer"
	claims.Audience = jwt.ClaimStrings{"test-audience"}

	token, err := service.SignClaims(claims)
	require.NoError(t, err)

	parsed, err := service.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, parsed.Role())

	_, err = service.SignClaims(nil)
	require.Error(t, err)
}

func TestMultiTokenValidatorFallsThrough(t *testing.T) {
	primary := newTokenService("key-one")
	secondary := newTokenService("key-two")

	identity := &MockIdentity{}
	identity.On("ID").Return("user-123")
	identity.On("Role").Return(users.RoleAuthenticated)

	token, err := secondary.Generate(identity)
	require.NoError(t, err)

	multi := users.NewMultiTokenValidator(primary, secondary)

	claims, err := multi.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.AccountID())
}

func TestMultiTokenValidatorAllFail(t *testing.T) {
	multi := users.NewMultiTokenValidator(newTokenService("key-one"), newTokenService("key-two"))

	_, err := multi.Validate("garbage")
	require.Error(t, err)
	assert.True(t, users.IsMalformedError(err))
}

func TestMultiTokenValidatorEmpty(t *testing.T) {
	multi := users.NewMultiTokenValidator()

	_, err := multi.Validate("anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, users.ErrTokenMalformed)
}
