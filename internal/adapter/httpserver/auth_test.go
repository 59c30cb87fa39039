package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algoprep/algoprep-api/internal/domain"
)

func TestArgon2Hasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h := Argon2Hasher{}
	encoded, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.Contains(t, encoded, "argon2id$")

	ok, err := h.Verify("correct horse battery staple", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong password", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2Hasher_UniqueSalts(t *testing.T) {
	t.Parallel()

	h := Argon2Hasher{}
	a, err := h.Hash("same password")
	require.NoError(t, err)
	b, err := h.Hash("same password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestArgon2Hasher_VerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	h := Argon2Hasher{}
	for _, encoded := range []string{"", "bcrypt$whatever", "argon2id$a$b$c$d$e"} {
		ok, err := h.Verify("pw", encoded)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()

	issuer := TokenIssuer{Secret: []byte("test-secret"), TTL: time.Hour}
	token, err := issuer.Issue(domain.User{ID: "u-42"})
	require.NoError(t, err)

	sub, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-42", sub)
}

func TestTokenIssuer_RejectsExpiredAndForeign(t *testing.T) {
	t.Parallel()

	issuer := TokenIssuer{Secret: []byte("test-secret"), TTL: -time.Minute}
	expired, err := issuer.Issue(domain.User{ID: "u-42"})
	require.NoError(t, err)
	_, err = TokenIssuer{Secret: []byte("test-secret"), TTL: time.Hour}.Parse(expired)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	other := TokenIssuer{Secret: []byte("other-secret"), TTL: time.Hour}
	token, err := other.Issue(domain.User{ID: "u-42"})
	require.NoError(t, err)
	_, err = TokenIssuer{Secret: []byte("test-secret"), TTL: time.Hour}.Parse(token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	issuer := TokenIssuer{Secret: []byte("test-secret"), TTL: time.Hour}
	var seenOwner string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenOwner = OwnerIDFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireAuth(issuer)(next)

	// No token.
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Valid token.
	token, err := issuer.Issue(domain.User{ID: "u-7"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "u-7", seenOwner)
}
