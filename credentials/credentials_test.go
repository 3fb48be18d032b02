package credentials_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/people-analytics/credentials"
	"golang.org/x/oauth2"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const clientSecretJSON = `{
	"installed": {
		"client_id": "test-client.apps.googleusercontent.com",
		"client_secret": "test-secret",
		"auth_uri": "https://accounts.google.com/o/oauth2/auth",
		"token_uri": "https://oauth2.googleapis.com/token",
		"redirect_uris": ["http://localhost"]
	}
}`

func writeFixtures(t *testing.T, token *oauth2.Token) (secretPath, tokenPath string) {
	t.Helper()
	dir := t.TempDir()
	secretPath = filepath.Join(dir, "client_secret.json")
	tokenPath = filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(secretPath, []byte(clientSecretJSON), 0o600))
	if token != nil {
		data, err := json.Marshal(token)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(tokenPath, data, 0o600))
	}
	return secretPath, tokenPath
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoad_MissingClientSecret(t *testing.T) {
	_, err := credentials.Load("/does/not/exist.json", "/tmp/token.json")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "client secret")
}

func TestLoad_MalformedClientSecret(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "client_secret.json")
	require.NoError(t, os.WriteFile(secretPath, []byte("not json"), 0o600))

	_, err := credentials.Load(secretPath, filepath.Join(dir, "token.json"))

	require.Error(t, err)
}

// =============================================================================
// TOKEN SOURCE TESTS
// =============================================================================

func TestTokenSource_ServesStoredValidToken(t *testing.T) {
	// GIVEN: A stored token that is still valid
	// WHEN: Asking for a token
	// THEN: It is served as-is, no network round-trip involved

	stored := &oauth2.Token{
		AccessToken: "stored-access",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}
	secretPath, tokenPath := writeFixtures(t, stored)

	auth, err := credentials.Load(secretPath, tokenPath)
	require.NoError(t, err)

	source, err := auth.TokenSource(context.Background())
	require.NoError(t, err)

	token, err := source.Token()
	require.NoError(t, err)
	assert.Equal(t, "stored-access", token.AccessToken)
}

func TestTokenSource_MissingTokenFileTellsOperator(t *testing.T) {
	secretPath, tokenPath := writeFixtures(t, nil)

	auth, err := credentials.Load(secretPath, tokenPath)
	require.NoError(t, err)

	_, err = auth.TokenSource(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run authorize first")
	assert.Contains(t, err.Error(), tokenPath)
}

func TestAuthorize_ValidTokenShortCircuits(t *testing.T) {
	// A valid stored token means no consent flow and no listener.
	stored := &oauth2.Token{
		AccessToken: "still-good",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}
	secretPath, tokenPath := writeFixtures(t, stored)

	auth, err := credentials.Load(secretPath, tokenPath)
	require.NoError(t, err)

	require.NoError(t, auth.Authorize(context.Background()))
}
