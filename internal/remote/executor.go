package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dghubble/oauth1"
)

const (
	defaultTimeout = 30 * time.Second

	// maxErrorBodyBytes caps how much of an unexpected response body is
	// carried in the error for logging.
	maxErrorBodyBytes = 512
)

// ResponseHandler parses a successful response body into a caller-owned
// result.
type ResponseHandler func(body io.Reader) error

// CredentialSource supplies the cached OAuth1.0a access token pair for
// request signing and is told when the remote service rejects it.
type CredentialSource interface {
	AccessToken() (token, secret string, err error)
	Invalidate() error
}

// Executor sends requests to the remote service: it signs them when asked,
// throttles every call through the shared request slot and classifies the
// HTTP status into the package's typed errors.
type Executor struct {
	httpClient *http.Client
	config     *oauth1.Config
	creds      CredentialSource
	throttle   *Throttle
}

// NewExecutor creates an executor for the given OAuth consumer pair.
func NewExecutor(consumerKey, consumerSecret string, creds CredentialSource, throttle *Throttle) *Executor {
	return &Executor{
		httpClient: &http.Client{Timeout: defaultTimeout},
		config:     oauth1.NewConfig(consumerKey, consumerSecret),
		creds:      creds,
		throttle:   throttle,
	}
}

// Execute sends the request and feeds a 200/201 body to handler. A nil
// handler discards the body. Handler failures surface as *ParseError.
func (e *Executor) Execute(ctx context.Context, req *http.Request, handler ResponseHandler, signed bool) error {
	resp, err := e.do(ctx, req, signed)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		if handler == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := handler(resp.Body); err != nil {
			return &ParseError{Err: err}
		}
		return nil
	}

	return e.classify(resp)
}

// ExecuteRaw sends the request and returns a 200/201 body as text. Used for
// the endpoints that answer with a bare value instead of XML.
func (e *Executor) ExecuteRaw(ctx context.Context, req *http.Request, signed bool) (string, error) {
	resp, err := e.do(ctx, req, signed)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", &NetworkError{Err: err}
		}
		return string(body), nil
	}

	return "", e.classify(resp)
}

func (e *Executor) do(ctx context.Context, req *http.Request, signed bool) (*http.Response, error) {
	if err := e.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	client := e.httpClient
	if signed {
		token, secret, err := e.creds.AccessToken()
		if err != nil {
			return nil, fmt.Errorf("load access token: %w", err)
		}
		if token == "" {
			return nil, ErrNotAuthorized
		}
		client = e.config.Client(ctx, oauth1.NewToken(token, secret))
		client.Timeout = e.httpClient.Timeout
	}

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Err: err}
	}
	return resp, nil
}

func (e *Executor) classify(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		_ = e.creds.Invalidate()
		return ErrNotAuthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &UnexpectedStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}
