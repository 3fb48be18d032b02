/*
Package credentials manages the Google OAuth token the sheets client uses.

PURPOSE:
  The pipeline reads and writes Google Sheets as an installed application
  acting for one analyst account. This package owns the two artifacts that
  flow requires: the client secret JSON from the Google Cloud console and
  the stored user token, refreshed transparently once granted.

FLOW:
  - Load points at both files plus the scopes; nothing global, nothing
    read from the environment.
  - TokenSource serves requests from the stored token, refreshing through
    the oauth2 machinery and persisting rotated tokens back to disk.
  - Authorize runs the one-time installed-app consent: local callback
    listener on a random port, browser URL printed, code exchanged, token
    written with owner-only permissions.

SEE ALSO:
  - sheets: consumes the TokenSource
*/
package credentials

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultScopes grants spreadsheet access only.
var DefaultScopes = []string{"https://www.googleapis.com/auth/spreadsheets"}

// =============================================================================
// AUTHORIZER
// =============================================================================

// Authorizer binds a client secret to a token file path.
type Authorizer struct {
	config    *oauth2.Config
	tokenPath string
}

// Load reads the client secret JSON and prepares an authorizer for the
// given token path. No scopes means DefaultScopes.
func Load(clientSecretPath, tokenPath string, scopes ...string) (*Authorizer, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	secret, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("read client secret: %w", err)
	}
	config, err := google.ConfigFromJSON(secret, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secret: %w", err)
	}
	return &Authorizer{config: config, tokenPath: tokenPath}, nil
}

// TokenSource returns a refreshing token source backed by the stored
// token. Rotated tokens are persisted so the next run skips the consent
// flow, same as the stored-token file the consent flow writes.
func (a *Authorizer) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	token, err := a.readToken()
	if err != nil {
		return nil, fmt.Errorf("no stored token at %s, run authorize first: %w", a.tokenPath, err)
	}
	return &savingSource{
		path: a.tokenPath,
		src:  a.config.TokenSource(ctx, token),
		last: token.AccessToken,
	}, nil
}

// =============================================================================
// CONSENT FLOW
// =============================================================================

// Authorize ensures a usable token exists at the token path. A valid or
// refreshable stored token is reused; otherwise the installed-app flow
// runs: a callback listener starts on a random localhost port, the
// consent URL is printed, and the returned code is exchanged and saved.
func (a *Authorizer) Authorize(ctx context.Context) error {
	if token, err := a.readToken(); err == nil {
		if token.Valid() {
			log.Printf("[Credentials] valid token present at %s", a.tokenPath)
			return nil
		}
		if token.RefreshToken != "" {
			refreshed, err := a.config.TokenSource(ctx, token).Token()
			if err == nil {
				if err := writeToken(a.tokenPath, refreshed); err != nil {
					return err
				}
				log.Printf("[Credentials] token refreshed at %s", a.tokenPath)
				return nil
			}
			log.Printf("[Credentials] refresh failed, running consent flow: %v", err)
		}
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("start callback listener: %w", err)
	}
	defer listener.Close()

	config := *a.config
	config.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr().String())

	state, err := randomState()
	if err != nil {
		return err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	server := &http.Server{Handler: callbackHandler(state, codeCh, errCh)}
	go server.Serve(listener)
	defer server.Shutdown(context.Background())

	fmt.Printf("Open this URL in your browser to authorize access:\n\n  %s\n\n",
		config.AuthCodeURL(state, oauth2.AccessTypeOffline))

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := writeToken(a.tokenPath, token); err != nil {
		return err
	}
	log.Printf("[Credentials] token saved to %s", a.tokenPath)
	return nil
}

func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if msg := query.Get("error"); msg != "" {
			http.Error(w, "authorization failed", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", msg)
			return
		}
		if query.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization state mismatch")
			return
		}
		code := query.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- fmt.Errorf("callback carried no authorization code")
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this window.")
		codeCh <- code
	})
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// =============================================================================
// TOKEN FILE
// =============================================================================

func (a *Authorizer) readToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.tokenPath)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &token, nil
}

func writeToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// savingSource persists rotated tokens. A failed save is logged, not
// fatal: the current run still holds a working token.
type savingSource struct {
	mu   sync.Mutex
	path string
	src  oauth2.TokenSource
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	token, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		if err := writeToken(s.path, token); err != nil {
			log.Printf("[Credentials] could not persist refreshed token: %v", err)
		} else {
			s.last = token.AccessToken
		}
	}
	return token, nil
}
