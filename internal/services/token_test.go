package services_test

import (
	"testing"
	"time"

	"social-backend/internal/clock"
	"social-backend/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer(t *testing.T) {
	clk := clock.NewStub()
	issuer := services.NewTokenIssuer("secret", 15*24*time.Hour, clk)

	token, expiresAt, err := issuer.Mint("user-1")
	require.NoError(t, err)
	require.Equal(t, clk.Now().Add(15*24*time.Hour), expiresAt)

	userID, err := issuer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)

	other := services.NewTokenIssuer("other-secret", time.Hour, clk)
	_, err = other.Verify(token)
	require.Error(t, err)

	clk.Advance(16 * 24 * time.Hour)
	_, err = issuer.Verify(token)
	require.Error(t, err)
}

func TestTokenIssuerRejectsOtherAlgorithms(t *testing.T) {
	clk := clock.NewStub()
	issuer := services.NewTokenIssuer("secret", time.Hour, clk)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     clk.Now().Add(time.Hour).Unix(),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.Error(t, err)
}

func TestTokenIssuerRequiresUserID(t *testing.T) {
	clk := clock.NewStub()
	issuer := services.NewTokenIssuer("secret", time.Hour, clk)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": clk.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.Error(t, err)
}
