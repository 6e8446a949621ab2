package policy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalRoundTripsThroughContext(t *testing.T) {
	assert.Equal(t, Anonymous, FromContext(context.Background()))

	ctx := WithPrincipal(context.Background(), Principal{UserID: "u1"})
	assert.Equal(t, "u1", FromContext(ctx).UserID)
	assert.True(t, FromContext(ctx).Authenticated())
	assert.False(t, Anonymous.Authenticated())
}

func TestIssueAndParseToken(t *testing.T) {
	tok, err := IssueToken("s3cret", "user-1", time.Hour)
	require.NoError(t, err)

	p, err := ParseToken("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "user-1"}, p)

	_, err = ParseToken("other", tok)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tok, err := IssueToken("s3cret", "user-1", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("s3cret", tok)
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := TokenFromRequest(r)
	assert.ErrorIs(t, err, ErrNoToken)

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
	tok, err := TokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "from-cookie", tok)

	r.Header.Set("Authorization", "Bearer from-header")
	tok, err = TokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "from-header", tok)

	r.Header.Set("Authorization", "Basic abc")
	_, err = TokenFromRequest(r)
	assert.Error(t, err)
}
