package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	ciphertext, err := Encrypt("a-todoist-token-value", "passphrase")
	require.NoError(t, err)
	assert.NotEqual(t, "a-todoist-token-value", ciphertext)

	plaintext, err := Decrypt(ciphertext, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "a-todoist-token-value", plaintext)
}

func TestEncryptProducesDistinctCiphertexts(t *testing.T) {
	first, err := Encrypt("same-input", "passphrase")
	require.NoError(t, err)
	second, err := Encrypt("same-input", "passphrase")
	require.NoError(t, err)

	// Fresh salt and nonce per call.
	assert.NotEqual(t, first, second)
}

func TestDecryptWrongPassphrase(t *testing.T) {
	ciphertext, err := Encrypt("secret", "right")
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, "wrong")
	assert.Error(t, err)
}

func TestDecryptGarbage(t *testing.T) {
	_, err := Decrypt("not-base64!!!", "passphrase")
	assert.Error(t, err)

	_, err = Decrypt("dG9vc2hvcnQ=", "passphrase")
	assert.Error(t, err)
}
