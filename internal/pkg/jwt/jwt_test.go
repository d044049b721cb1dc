package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestAccessTokenRoundTrip(t *testing.T) {
	key := newKey(t)
	gen := NewGenerator(key, "duka", "duka-api", "k1", time.Hour)
	ver := NewVerifier(&key.PublicKey, "duka", "duka-api")

	tok, jti, err := gen.GenerateAccessToken(7, RoleEmployee, 42)
	require.NoError(t, err)
	assert.Len(t, jti, 26)

	claims, err := ver.VerifyAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, RoleEmployee, claims.Role)
	assert.Equal(t, int64(42), claims.ShopID)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, jti, claims.ID)
}

func TestOwnerTokenCarriesNoShop(t *testing.T) {
	key := newKey(t)
	gen := NewGenerator(key, "duka", "duka-api", "", time.Hour)
	tok, _, err := gen.GenerateAccessToken(3, RoleOwner, 99)
	require.NoError(t, err)

	claims, err := NewVerifier(&key.PublicKey, "duka", "duka-api").VerifyAccessToken(tok)
	require.NoError(t, err)
	assert.Zero(t, claims.ShopID)
	assert.False(t, claims.IsSuperAdmin())
}

func TestVerifyRejects(t *testing.T) {
	key := newKey(t)
	other := newKey(t)
	gen := NewGenerator(key, "duka", "duka-api", "", time.Hour)
	tok, _, err := gen.GenerateAccessToken(1, RoleSuperAdmin, 0)
	require.NoError(t, err)

	cases := []struct {
		name string
		ver  *Verifier
		tok  string
	}{
		{"wrong key", NewVerifier(&other.PublicKey, "duka", "duka-api"), tok},
		{"wrong issuer", NewVerifier(&key.PublicKey, "someone-else", "duka-api"), tok},
		{"wrong audience", NewVerifier(&key.PublicKey, "duka", "admin"), tok},
		{"garbage", NewVerifier(&key.PublicKey, "duka", "duka-api"), "not.a.token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.ver.VerifyAccessToken(tc.tok)
			assert.Error(t, err)
		})
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	key := newKey(t)
	gen := NewGenerator(key, "duka", "duka-api", "", -time.Hour)
	tok, _, err := gen.GenerateAccessToken(1, RoleOwner, 0)
	require.NoError(t, err)

	_, err = NewVerifier(&key.PublicKey, "duka", "duka-api").VerifyAccessToken(tok)
	assert.Error(t, err)
}

func TestLoadAndBuild(t *testing.T) {
	key := newKey(t)
	dir := t.TempDir()

	privPath := filepath.Join(dir, "priv.pem")
	pubPath := filepath.Join(dir, "pub.pem")
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}), 0o600))
	pkix, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pkix}), 0o600))

	t.Run("verify only", func(t *testing.T) {
		m, err := LoadAndBuild(Config{PubPath: pubPath, Issuer: "duka", Audience: "duka-api"})
		require.NoError(t, err)
		assert.Nil(t, m.Generator)
		assert.NotNil(t, m.Verifier)
	})

	t.Run("full pair", func(t *testing.T) {
		m, err := LoadAndBuild(Config{PrivPath: privPath, PubPath: pubPath, Issuer: "duka", Audience: "duka-api", TTL: time.Hour})
		require.NoError(t, err)
		require.NotNil(t, m.Generator)

		tok, _, err := m.Generator.GenerateAccessToken(5, RoleOwner, 0)
		require.NoError(t, err)
		_, err = m.Verifier.VerifyAccessToken(tok)
		assert.NoError(t, err)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := LoadAndBuild(Config{PubPath: filepath.Join(dir, "nope.pem")})
		assert.Error(t, err)
	})
}

func TestParseKeyRejectsNonPEM(t *testing.T) {
	_, err := ParseRSAPublicKeyPEM([]byte("hello"))
	assert.Error(t, err)
	_, err = ParseRSAPrivateKeyPEM([]byte("hello"))
	assert.Error(t, err)
}
