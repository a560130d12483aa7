package ics

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/richard-uk1/plannr/internal/config"
	appLog "github.com/richard-uk1/plannr/internal/log"
)

// ErrNoToken is returned by OAuthClient when the source has never been
// authorized.
var ErrNoToken = errors.New("no oauth token stored; run `plannr login`")

const (
	defaultRedirectURL = "http://127.0.0.1:8085/callback"
	loginTimeout       = 5 * time.Minute
)

// TokenStore is an interface for saving and loading OAuth tokens.
type TokenStore interface {
	SaveToken(token *oauth2.Token) error
	// LoadToken returns nil, nil when no token has been saved yet.
	LoadToken() (*oauth2.Token, error)
}

// FileTokenStore keeps a token as JSON in a single file.
type FileTokenStore struct {
	Path string
}

func (s FileTokenStore) LoadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("token %s: %w", s.Path, err)
	}
	return &tok, nil
}

// SaveToken writes the token atomically with 0600 permissions.
func (s FileTokenStore) SaveToken(token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".plannr-token-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, s.Path)
}

// autoSaveTokenSource wraps an oauth2.TokenSource and saves refreshed tokens.
type autoSaveTokenSource struct {
	source     oauth2.TokenSource
	tokenStore TokenStore

	mu        sync.Mutex
	lastToken *oauth2.Token
}

// Token implements oauth2.TokenSource.
func (a *autoSaveTokenSource) Token() (*oauth2.Token, error) {
	token, err := a.source.Token()
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastToken == nil || a.lastToken.AccessToken != token.AccessToken {
		if err := a.tokenStore.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
		appLog.Debug("oauth token refreshed", "expiry", token.Expiry.Format(time.RFC3339))
		a.lastToken = token
	}
	return token, nil
}

// OAuth2Config converts a source's OAuth settings.
func OAuth2Config(c config.OAuthConfig) *oauth2.Config {
	redirect := c.RedirectURL
	if redirect == "" {
		redirect = defaultRedirectURL
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthURL,
			TokenURL: c.TokenURL,
		},
		RedirectURL: redirect,
		Scopes:      c.Scopes,
	}
}

// OAuthClient returns an HTTP client authorized with the stored token.
// Refreshed tokens are written back to the store. ctx must outlive the
// client since token refreshes run under it.
func OAuthClient(ctx context.Context, c config.OAuthConfig, store TokenStore) (*http.Client, error) {
	token, err := store.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if token == nil {
		return nil, ErrNoToken
	}

	oc := OAuth2Config(c)
	src := &autoSaveTokenSource{
		source:     oauth2.ReuseTokenSource(token, oc.TokenSource(ctx, token)),
		tokenStore: store,
		lastToken:  token,
	}
	return oauth2.NewClient(ctx, src), nil
}

// Login runs the authorization-code flow with PKCE. It listens on the
// loopback redirect URL, hands the consent URL to prompt, and saves the
// exchanged token. A redirect port of 0 picks a free port.
func Login(ctx context.Context, c config.OAuthConfig, store TokenStore, prompt func(authURL string)) (*oauth2.Token, error) {
	oc := OAuth2Config(c)

	redirect, err := url.Parse(oc.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("redirect_url: %w", err)
	}
	if ip := net.ParseIP(redirect.Hostname()); redirect.Hostname() != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return nil, fmt.Errorf("redirect_url %s is not a loopback address", oc.RedirectURL)
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to start local server: %w", err)
	}
	redirect.Host = listener.Addr().String()
	oc.RedirectURL = redirect.String()

	state, err := randomState()
	if err != nil {
		listener.Close()
		return nil, err
	}

	codeChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	path := redirect.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "authorization failed: "+q.Get("error"), http.StatusBadRequest)
			sendErr(errorChan, fmt.Errorf("authorization error: %s", q.Get("error")))
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			sendErr(errorChan, errors.New("authorization state mismatch"))
		case q.Get("code") == "":
			http.Error(w, "no authorization code received", http.StatusBadRequest)
			sendErr(errorChan, errors.New("no authorization code received"))
		default:
			fmt.Fprint(w, "Authorization successful. You can close this window.")
			select {
			case codeChan <- q.Get("code"):
			default:
			}
		}
	})
	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sendErr(errorChan, fmt.Errorf("server error: %w", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	verifier := oauth2.GenerateVerifier()
	prompt(oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)))
	appLog.Info("waiting for oauth authorization", "redirect", oc.RedirectURL)

	var code string
	select {
	case code = <-codeChan:
	case err := <-errorChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(loginTimeout):
		return nil, errors.New("authorization timeout: no response received within 5 minutes")
	}

	token, err := oc.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := store.SaveToken(token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	return token, nil
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

func randomState() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
