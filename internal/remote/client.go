package remote

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dghubble/oauth1"
)

// AuthState tracks where the client is in the OAuth1.0a authorization
// handshake.
type AuthState string

const (
	StateUnauthorized  AuthState = "unauthorized"
	StateRequestToken  AuthState = "request_token_obtained"
	StateAwaitingGrant AuthState = "awaiting_user_grant"
	StateAccessToken   AuthState = "access_token_obtained"
	StateValidated     AuthState = "validated"
)

// Config holds the remote service connection settings.
type Config struct {
	BaseURL         string
	ConsumerKey     string
	ConsumerSecret  string
	CallbackURL     string
	RequestInterval time.Duration
}

// CredentialStore persists the OAuth token state between runs. Implemented
// by the credstore package.
type CredentialStore interface {
	CredentialSource

	SaveAccessToken(token, secret string) error
	RequestToken() (token, secret string, err error)
	SaveRequestToken(token, secret string) error
	ClearRequestToken() error

	Validated() (bool, error)
	MarkValidated(userID int64, userName string) error
	CachedUser() (id int64, name string, err error)
}

// Client is the remote catalogue service facade: it owns the OAuth state
// machine, the credential cache and the endpoint handlers.
type Client struct {
	cfg      Config
	store    CredentialStore
	oauth    *oauth1.Config
	throttle *Throttle

	mu    sync.Mutex
	state AuthState

	authUser    *authUserHandler
	listReviews *listReviewsHandler
	showBook    *showBookHandler
	search      *searchHandler
	shelfAdd    *shelfAddHandler
	isbnToID    *isbnToIDHandler
	shelfList   *shelfListHandler
	shelfCreate *shelfCreateHandler
}

// NewClient creates a client. All outbound requests share one throttle so
// the service's one-request-per-second ceiling holds process-wide.
func NewClient(cfg Config, store CredentialStore) *Client {
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = DefaultRequestInterval
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	throttle := NewThrottle(cfg.RequestInterval)
	exec := NewExecutor(cfg.ConsumerKey, cfg.ConsumerSecret, store, throttle)

	c := &Client{
		cfg:      cfg,
		store:    store,
		throttle: throttle,
		oauth: &oauth1.Config{
			ConsumerKey:    cfg.ConsumerKey,
			ConsumerSecret: cfg.ConsumerSecret,
			CallbackURL:    cfg.CallbackURL,
			Endpoint: oauth1.Endpoint{
				RequestTokenURL: baseURL + "/oauth/request_token",
				AuthorizeURL:    baseURL + "/oauth/authorize",
				AccessTokenURL:  baseURL + "/oauth/access_token",
			},
		},
		authUser:    newAuthUserHandler(exec, baseURL),
		listReviews: newListReviewsHandler(exec, baseURL),
		showBook:    newShowBookHandler(exec, baseURL),
		search:      newSearchHandler(exec, baseURL),
		shelfAdd:    newShelfAddHandler(exec, baseURL),
		isbnToID:    newIsbnToIDHandler(exec, baseURL),
		shelfList:   newShelfListHandler(exec, baseURL),
		shelfCreate: newShelfCreateHandler(exec, baseURL),
	}
	c.state = c.restoreState()
	return c
}

// restoreState derives the handshake state from what survived in the store.
func (c *Client) restoreState() AuthState {
	if token, _, err := c.store.AccessToken(); err == nil && token != "" {
		if ok, err := c.store.Validated(); err == nil && ok {
			return StateValidated
		}
		return StateAccessToken
	}
	if token, _, err := c.store.RequestToken(); err == nil && token != "" {
		return StateAwaitingGrant
	}
	return StateUnauthorized
}

// State returns the current authorization state.
func (c *Client) State() AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RequestAuthorization obtains and persists a request token, then returns
// the URL the user must visit to grant access. The token endpoints share
// the API throttle since they count against the same rate ceiling.
func (c *Client) RequestAuthorization(ctx context.Context) (string, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return "", err
	}
	requestToken, requestSecret, err := c.oauth.RequestToken()
	if err != nil {
		return "", &NetworkError{Err: fmt.Errorf("obtain request token: %w", err)}
	}

	if err := c.store.SaveRequestToken(requestToken, requestSecret); err != nil {
		return "", fmt.Errorf("persist request token: %w", err)
	}

	c.mu.Lock()
	c.state = StateAwaitingGrant
	c.mu.Unlock()

	authURL, err := c.oauth.AuthorizationURL(requestToken)
	if err != nil {
		return "", fmt.Errorf("build authorization URL: %w", err)
	}
	return authURL.String(), nil
}

// HandleAuthentication exchanges the persisted request token plus the
// callback verifier for an access token and persists it.
func (c *Client) HandleAuthentication(ctx context.Context, verifier string) error {
	requestToken, requestSecret, err := c.store.RequestToken()
	if err != nil {
		return fmt.Errorf("load request token: %w", err)
	}
	if requestToken == "" {
		return fmt.Errorf("no pending authorization: %w", ErrNotAuthorized)
	}

	if err := c.throttle.Wait(ctx); err != nil {
		return err
	}
	accessToken, accessSecret, err := c.oauth.AccessToken(requestToken, requestSecret, verifier)
	if err != nil {
		return &NetworkError{Err: fmt.Errorf("exchange access token: %w", err)}
	}

	if err := c.store.SaveAccessToken(accessToken, accessSecret); err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}
	if err := c.store.ClearRequestToken(); err != nil {
		log.Printf("Remote auth: warning - failed to clear request token: %v", err)
	}

	c.mu.Lock()
	c.state = StateAccessToken
	c.mu.Unlock()
	return nil
}

// HasValidCredentials reports whether the cached access token is usable.
// Validation is memoized: once validated it is trusted without re-checking,
// and any 401 anywhere clears the memo so the next call re-validates via
// the auth_user endpoint, refreshing the cached user id and name.
func (c *Client) HasValidCredentials(ctx context.Context) bool {
	if ok, err := c.store.Validated(); err == nil && ok {
		return true
	}

	token, _, err := c.store.AccessToken()
	if err != nil || token == "" {
		return false
	}

	user, err := c.authUser.Call(ctx)
	if err != nil {
		log.Printf("Remote auth: credential validation failed: %v", err)
		return false
	}

	if err := c.store.MarkValidated(user.ID, user.Name); err != nil {
		log.Printf("Remote auth: warning - failed to persist validation: %v", err)
	}

	c.mu.Lock()
	c.state = StateValidated
	c.mu.Unlock()
	return true
}

// UserID returns the cached remote account id, validating credentials first
// if needed.
func (c *Client) UserID(ctx context.Context) (int64, error) {
	if !c.HasValidCredentials(ctx) {
		return 0, ErrNotAuthorized
	}
	id, _, err := c.store.CachedUser()
	if err != nil {
		return 0, fmt.Errorf("load cached user: %w", err)
	}
	return id, nil
}

// AuthUser validates credentials against the remote service and returns the
// account they belong to.
func (c *Client) AuthUser(ctx context.Context) (*UserInfo, error) {
	return c.authUser.Call(ctx)
}

// ListReviews fetches one page of the user's shelved books, newest updates
// first.
func (c *Client) ListReviews(ctx context.Context, page, perPage int) (*ReviewPage, error) {
	userID, err := c.UserID(ctx)
	if err != nil {
		return nil, err
	}
	return c.listReviews.Call(ctx, userID, page, perPage)
}

// ShowBookByID fetches full book details by remote id.
func (c *Client) ShowBookByID(ctx context.Context, bookID int64) (*Book, error) {
	return c.showBook.CallByID(ctx, bookID)
}

// ShowBookByISBN fetches full book details by ISBN.
func (c *Client) ShowBookByISBN(ctx context.Context, isbn string) (*Book, error) {
	return c.showBook.CallByISBN(ctx, isbn)
}

// Search runs a free-text query against the remote catalogue.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	return c.search.Call(ctx, query)
}

// AddBookToShelf puts the remote book on the named shelf.
func (c *Client) AddBookToShelf(ctx context.Context, bookID int64, shelfName string) error {
	return c.shelfAdd.Call(ctx, bookID, shelfName)
}

// ISBNToID resolves an ISBN to the remote numeric book id.
func (c *Client) ISBNToID(ctx context.Context, isbn string) (int64, error) {
	return c.isbnToID.Call(ctx, isbn)
}

// CreateShelf creates a new bookshelf on the remote service.
func (c *Client) CreateShelf(ctx context.Context, name string, exclusive bool) (*ShelfInfo, error) {
	return c.shelfCreate.Call(ctx, name, exclusive)
}

// ListShelves fetches one page of the user's bookshelves.
func (c *Client) ListShelves(ctx context.Context, page int) (*ShelfPage, error) {
	userID, err := c.UserID(ctx)
	if err != nil {
		return nil, err
	}
	return c.shelfList.Call(ctx, userID, page)
}
