package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersAt_Deterministic(t *testing.T) {
	creds := &APICreds{
		Key:        "key-1",
		Secret:     base64.StdEncoding.EncodeToString([]byte("secret")),
		Passphrase: "pass",
	}

	h1 := creds.HeadersAt("0xabc", "POST", "/order", `{"x":1}`, 1700000000)
	h2 := creds.HeadersAt("0xabc", "POST", "/order", `{"x":1}`, 1700000000)
	assert.Equal(t, h1, h2)

	require.Equal(t, "0xabc", h1["POLY_ADDRESS"])
	require.Equal(t, "key-1", h1["POLY_API_KEY"])
	require.Equal(t, "1700000000", h1["POLY_TIMESTAMP"])
	require.Equal(t, "pass", h1["POLY_PASSPHRASE"])
	assert.NotEmpty(t, h1["POLY_SIGNATURE"])

	// Any component change alters the signature.
	h3 := creds.HeadersAt("0xabc", "POST", "/order", `{"x":2}`, 1700000000)
	assert.NotEqual(t, h1["POLY_SIGNATURE"], h3["POLY_SIGNATURE"])
}

func TestAPICreds_StringRedacts(t *testing.T) {
	creds := &APICreds{Key: "verylongkey", Secret: "verylongsecret"}
	s := creds.String()
	assert.NotContains(t, s, "verylongkey")
	assert.Contains(t, s, "very****")
}

func TestEncryptDecryptKey_RoundTrip(t *testing.T) {
	blob, err := EncryptKey("0x"+testKey, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKey, got)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestLoadKey_RawTakesPrecedence(t *testing.T) {
	got, err := LoadKey(KeySource{RawHex: "0x" + testKey, KeyfilePath: "/nonexistent"})
	require.NoError(t, err)
	assert.Equal(t, testKey, got)
}

func TestLoadKey_NoSource(t *testing.T) {
	_, err := LoadKey(KeySource{})
	assert.Error(t, err)
}
