package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndExtract(t *testing.T) {
	token, err := CreateToken("editor-7", "secret")
	require.NoError(t, err)

	userID, err := ExtractUserIDFromToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "editor-7", userID)
}

func TestExtractRejectsBadTokens(t *testing.T) {
	token, err := CreateToken("editor-7", "secret")
	require.NoError(t, err)

	_, err = ExtractUserIDFromToken(token, "other-secret")
	assert.Error(t, err)

	expired, err := CreateTokenWithTTL("editor-7", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ExtractUserIDFromToken(expired, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = ExtractUserIDFromToken("not-a-token", "secret")
	assert.Error(t, err)

	_, err = CreateToken("", "secret")
	assert.Error(t, err)
}

func TestExtractFallsBackToSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "editor-9",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	userID, err := ExtractUserIDFromToken(signed, "secret")
	require.NoError(t, err)
	assert.Equal(t, "editor-9", userID)
}
