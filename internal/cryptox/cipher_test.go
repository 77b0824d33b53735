package cryptox

import (
	"encoding/base64"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "secdash/internal/errors"
)

var testParams = KDFParams{Memory: 1024, Iterations: 1, Parallelism: 1}

func TestCipher_RoundTrip(t *testing.T) {
	c := New(testParams)

	tests := []struct {
		name      string
		plaintext string
		password  string
	}{
		{name: "ascii", plaintext: "hello", password: "pw"},
		{name: "empty plaintext", plaintext: "", password: "pw"},
		{name: "empty password", plaintext: "hello", password: ""},
		{name: "unicode", plaintext: "héllo wörld ✓ 日本", password: "pässwörd"},
		{name: "long", plaintext: strings.Repeat("abc", 10000), password: "pw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := c.Encrypt(tt.plaintext, tt.password)
			require.NoError(t, err)

			raw, err := base64.StdEncoding.DecodeString(token)
			require.NoError(t, err)
			assert.Equal(t, SaltSize+NonceSize+len(tt.plaintext)+TagSize, len(raw))

			got, err := c.Decrypt(token, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, got)
		})
	}
}

func TestCipher_FreshSaltAndNonce(t *testing.T) {
	c := New(testParams)

	a, err := c.Encrypt("same", "pw")
	require.NoError(t, err)
	b, err := c.Encrypt("same", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	rawA, _ := base64.StdEncoding.DecodeString(a)
	rawB, _ := base64.StdEncoding.DecodeString(b)
	assert.NotEqual(t, rawA[:SaltSize], rawB[:SaltSize])
	assert.NotEqual(t, rawA[SaltSize:SaltSize+NonceSize], rawB[SaltSize:SaltSize+NonceSize])
}

func TestCipher_WrongPassword(t *testing.T) {
	c := New(testParams)
	token, err := c.Encrypt("hello", "pw")
	require.NoError(t, err)

	_, err = c.Decrypt(token, "PW")
	assert.ErrorIs(t, err, apperrors.ErrAuthenticationFailed)
}

func TestCipher_Tampered(t *testing.T) {
	c := New(testParams)
	token, err := c.Encrypt("hello", "pw")
	require.NoError(t, err)

	raw, _ := base64.StdEncoding.DecodeString(token)
	for _, idx := range []int{0, SaltSize, SaltSize + NonceSize, len(raw) - 1} {
		flipped := append([]byte(nil), raw...)
		flipped[idx] ^= 0x01
		_, err := c.Decrypt(base64.StdEncoding.EncodeToString(flipped), "pw")
		assert.ErrorIs(t, err, apperrors.ErrAuthenticationFailed, "byte %d", idx)
	}
}

func TestCipher_Malformed(t *testing.T) {
	c := New(testParams)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "not base64", token: "%%%not-base64%%%"},
		{name: "shorter than nonce", token: base64.StdEncoding.EncodeToString(make([]byte, 8))},
		{name: "header only", token: base64.StdEncoding.EncodeToString(make([]byte, SaltSize+NonceSize))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decrypt(tt.token, "pw")
			assert.ErrorIs(t, err, apperrors.ErrMalformedToken)
		})
	}
}

func TestCipher_NonUTF8Plaintext(t *testing.T) {
	c := New(testParams)
	salt := make([]byte, SaltSize)
	token, err := c.seal([]byte{0xff, 0xfe, 0xfd}, "pw", salt)
	require.NoError(t, err)

	_, err = c.Decrypt(token, "pw")
	assert.ErrorIs(t, err, apperrors.ErrNonUTF8Plaintext)
}

func TestCipher_InvalidParams(t *testing.T) {
	c := New(KDFParams{})

	_, err := c.Encrypt("hello", "pw")
	assert.ErrorIs(t, err, apperrors.ErrKeyDerivationFailed)
}

func TestCipher_Concurrent(t *testing.T) {
	c := New(testParams)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := c.Encrypt("parallel", "pw")
			if !assert.NoError(t, err) {
				return
			}
			got, err := c.Decrypt(token, "pw")
			assert.NoError(t, err)
			assert.Equal(t, "parallel", got)
		}()
	}
	wg.Wait()
}
