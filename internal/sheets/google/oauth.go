package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// OAuthClient holds the installed-app client used when the mirror runs with
// a user token instead of a service account.
type OAuthClient struct {
	ClientFile string
	ClientJSON string
}

func (c OAuthClient) empty() bool {
	return strings.TrimSpace(c.ClientFile) == "" && strings.TrimSpace(c.ClientJSON) == ""
}

// Config reads the client secret and returns the oauth2 config for the
// spreadsheets scope.
func (c OAuthClient) Config(redirectURL string) (*oauth2.Config, error) {
	var b []byte
	switch {
	case strings.TrimSpace(c.ClientJSON) != "":
		b = []byte(c.ClientJSON)
	case strings.TrimSpace(c.ClientFile) != "":
		raw, err := os.ReadFile(c.ClientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		b = raw
	default:
		return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}
	cfg, err := goauth.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	cfg.RedirectURL = redirectURL
	return cfg, nil
}

// LoadToken reads a token written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, errors.New("token file holds no token")
	}
	return &tok, nil
}

// SaveToken writes tok readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}

// Authorize runs the installed-app flow: it serves the redirect on ln,
// hands the consent URL to show, and exchanges the returned code.
// The client's redirect URL must point at ln's /callback. ln is closed on
// return.
func Authorize(ctx context.Context, cfg *oauth2.Config, ln net.Listener, show func(url string)) (*oauth2.Token, error) {
	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	send := func(r result) {
		select {
		case done <- r:
		default:
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		if msg := r.URL.Query().Get("error"); msg != "" {
			http.Error(w, "OAuth error: "+msg, http.StatusBadRequest)
			send(result{err: fmt.Errorf("authorization denied: %s", msg)})
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		send(result{code: r.URL.Query().Get("code")})
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	show(cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		if res.code == "" {
			return nil, errors.New("callback carried no code")
		}
		tok, err := cfg.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
