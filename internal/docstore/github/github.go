// Package github stores the document as a file in a GitHub repository via the
// REST contents API, using the blob sha as the version token.
package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v74/github"

	"housetrend/internal/core"
	"housetrend/internal/docstore"
	applog "housetrend/internal/log"
	"housetrend/internal/remoteconf"
)

// CommitMessage is used for every document update.
const CommitMessage = "Update data.json"

// Ensure interface conformance
var _ docstore.Versioned = (*Client)(nil)

type Client struct {
	cfg    remoteconf.Config
	api    *gh.Client
	logger *applog.Logger
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Code    int
	Message string
	kind    error
	cause   error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github api status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() []error {
	var errs []error
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

type Option func(*Client)

func WithLogger(l *applog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the repository file described by cfg. A nil
// httpClient gets a pooled client with timeouts.
func New(cfg remoteconf.Config, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = newHTTPClient()
	}
	authed := *httpClient
	authed.Transport = &tokenTransport{token: cfg.AccessToken, base: httpClient.Transport}

	api := gh.NewClient(&authed)
	if base, err := url.Parse(cfg.API() + "/"); err == nil {
		api.BaseURL = base
	}
	c := &Client{cfg: cfg, api: api, logger: applog.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 20 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		Timeout: 30 * time.Second,
	}
}

// tokenTransport sends the access token with the "token" scheme.
type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "token "+t.token)
	return base.RoundTrip(r)
}

func (c *Client) owner() string { return strings.TrimSpace(c.cfg.Username) }
func (c *Client) repo() string  { return strings.TrimSpace(c.cfg.Repository) }

// Fetch downloads and decodes the document with its sha.
func (c *Client) Fetch(ctx context.Context) (core.Document, string, error) {
	file, err := c.fetchContent(ctx)
	if err != nil {
		return core.Document{}, "", err
	}
	// the API wraps base64 at 60 columns and may omit the encoding field
	var content string
	if file.Content != nil {
		content = *file.Content
	}
	raw, err := base64.StdEncoding.DecodeString(stripWhitespace(content))
	if err != nil {
		return core.Document{}, "", fmt.Errorf("%w: decode base64: %v", docstore.ErrMalformed, err)
	}
	doc, err := core.DecodeDocument(raw)
	if err != nil {
		return core.Document{}, "", fmt.Errorf("%w: parse json: %v", docstore.ErrMalformed, err)
	}
	return doc, file.GetSHA(), nil
}

// Version returns the current sha of the file without decoding it.
func (c *Client) Version(ctx context.Context) (string, error) {
	file, err := c.fetchContent(ctx)
	if err != nil {
		return "", err
	}
	return file.GetSHA(), nil
}

func (c *Client) fetchContent(ctx context.Context) (*gh.RepositoryContent, error) {
	opts := &gh.RepositoryContentGetOptions{Ref: c.cfg.Branch}
	file, dir, resp, err := c.api.Repositories.GetContents(ctx, c.owner(), c.repo(), c.cfg.FilePath(), opts)
	if err != nil {
		return nil, c.classify("get", resp, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%w: %s is a directory of %d entries", docstore.ErrMalformed, c.cfg.FilePath(), len(dir))
	}
	return file, nil
}

// Put writes doc if version is still the current sha. An empty version
// creates the file.
func (c *Client) Put(ctx context.Context, doc core.Document, version string) (string, error) {
	raw, err := doc.Encode()
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(CommitMessage),
		Content: raw,
	}
	if c.cfg.Branch != "" {
		opts.Branch = gh.Ptr(c.cfg.Branch)
	}

	var out *gh.RepositoryContentResponse
	var resp *gh.Response
	if version == "" {
		out, resp, err = c.api.Repositories.CreateFile(ctx, c.owner(), c.repo(), c.cfg.FilePath(), opts)
	} else {
		opts.SHA = gh.Ptr(version)
		out, resp, err = c.api.Repositories.UpdateFile(ctx, c.owner(), c.repo(), c.cfg.FilePath(), opts)
	}
	if err != nil {
		if succeeded(resp) {
			// the write went through; only the new sha is unknown
			c.logger.DebugContext(ctx, "Unreadable contents PUT response",
				applog.FieldError, err, applog.FieldPath, c.cfg.FilePath())
			return "", nil
		}
		return "", c.classify("put", resp, err)
	}
	if out == nil || out.Content == nil {
		return "", nil
	}
	return out.Content.GetSHA(), nil
}

func succeeded(resp *gh.Response) bool {
	return resp != nil && resp.StatusCode >= 200 && resp.StatusCode < 300
}

// classify maps API failures onto the docstore sentinels: 404 is
// ErrNotFound, 409 and a 422 about the sha are ErrVersionConflict.
func (c *Client) classify(op string, resp *gh.Response, err error) error {
	var apiErr *gh.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		e := &StatusError{Code: apiErr.Response.StatusCode, Message: apiErr.Message, cause: err}
		switch {
		case e.Code == http.StatusNotFound:
			e.kind = docstore.ErrNotFound
		case e.Code == http.StatusConflict:
			e.kind = docstore.ErrVersionConflict
		case e.Code == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(apiErr.Message), "sha"):
			e.kind = docstore.ErrVersionConflict
		}
		return e
	}
	if succeeded(resp) {
		return fmt.Errorf("%w: %s %s: %v", docstore.ErrMalformed, op, c.cfg.FilePath(), err)
	}
	return fmt.Errorf("%s %s: %w", op, c.cfg.FilePath(), err)
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
}

// IsConflict reports whether err is a stale version token.
func IsConflict(err error) bool {
	return errors.Is(err, docstore.ErrVersionConflict)
}
