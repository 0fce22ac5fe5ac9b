package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"time"

	"github.com/google/subcommands"

	gsheet "housetrend/internal/sheets/google"
)

// sheetsAuthCmd obtains the user token the archive worker mirrors with when
// no service account is configured.
type sheetsAuthCmd struct {
	port    string
	out     string
	timeout time.Duration
}

func (*sheetsAuthCmd) Name() string     { return "sheets-auth" }
func (*sheetsAuthCmd) Synopsis() string { return "authorize the Google Sheets mirror with a user account" }
func (*sheetsAuthCmd) Usage() string {
	return `housectl sheets-auth [-port <port>] [-o <token file>]

  Reads the OAuth client from GOOGLE_OAUTH_CLIENT_JSON or
  GOOGLE_OAUTH_CLIENT_FILE, prints a consent URL and waits for the
  redirect on http://localhost:<port>/callback. The token is written to
  -o, GOOGLE_OAUTH_TOKEN_FILE or token.json.
`
}

func (c *sheetsAuthCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.port, "port", "", "callback port (default $OAUTH_REDIRECT_PORT or 8085)")
	f.StringVar(&c.out, "o", "", "token file")
	f.DurationVar(&c.timeout, "timeout", 5*time.Minute, "how long to wait for the consent")
}

func (c *sheetsAuthCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := loadEnv()
	if err != nil {
		fmt.Fprintf(stderrOf(e), "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	port := c.port
	if port == "" {
		port = e.cfg.OAuthRedirectPort
	}
	out := c.out
	if out == "" {
		out = e.cfg.GoogleOAuthTokenFile
	}
	if out == "" {
		out = "token.json"
	}

	client := gsheet.OAuthClient{ClientFile: e.cfg.GoogleOAuthClientFile, ClientJSON: e.cfg.GoogleOAuthClientJSON}
	oc, err := client.Config("http://localhost:" + port + "/callback")
	if err != nil {
		e.errorf("%v", err)
		return subcommands.ExitUsageError
	}
	ln, err := net.Listen("tcp", "localhost:"+port)
	if err != nil {
		e.errorf("listen for callback: %v", err)
		return subcommands.ExitFailure
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	tok, err := gsheet.Authorize(ctx, oc, ln, func(url string) {
		fmt.Fprintf(e.stdout, "Open this URL to authorize:\n%s\n", url)
	})
	if err != nil {
		e.errorf("%v", err)
		return subcommands.ExitFailure
	}
	if err := gsheet.SaveToken(out, tok); err != nil {
		e.errorf("%v", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(e.stdout, "Saved token to %s\n", out)
	return subcommands.ExitSuccess
}
