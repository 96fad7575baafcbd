package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory CredentialStore for tests.
type fakeStore struct {
	mu            sync.Mutex
	token, secret string
	reqToken      string
	reqSecret     string
	validated     bool
	userID        int64
	userName      string
	invalidations int
}

func (s *fakeStore) AccessToken() (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.secret, nil
}

func (s *fakeStore) Invalidate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validated = false
	s.invalidations++
	return nil
}

func (s *fakeStore) SaveAccessToken(token, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.secret = token, secret
	return nil
}

func (s *fakeStore) RequestToken() (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reqToken, s.reqSecret, nil
}

func (s *fakeStore) SaveRequestToken(token, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqToken, s.reqSecret = token, secret
	return nil
}

func (s *fakeStore) ClearRequestToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqToken, s.reqSecret = "", ""
	return nil
}

func (s *fakeStore) Validated() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validated, nil
}

func (s *fakeStore) MarkValidated(userID int64, userName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validated = true
	s.userID = userID
	s.userName = userName
	return nil
}

func (s *fakeStore) CachedUser() (int64, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.userName, nil
}

func newTestExecutor(creds CredentialSource) *Executor {
	return NewExecutor("consumer-key", "consumer-secret", creds, NewThrottle(time.Millisecond))
}

func TestExecutor_StatusClassification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{name: "ok", statusCode: http.StatusOK},
		{name: "created", statusCode: http.StatusCreated},
		{name: "unauthorized", statusCode: http.StatusUnauthorized, wantErr: ErrNotAuthorized},
		{name: "not found", statusCode: http.StatusNotFound, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			store := &fakeStore{token: "tok", secret: "sec", validated: true}
			exec := newTestExecutor(store)

			req, err := http.NewRequest(http.MethodGet, server.URL, nil)
			require.NoError(t, err)

			err = exec.Execute(context.Background(), req, nil, false)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestExecutor_UnexpectedStatusIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream broke"))
	}))
	defer server.Close()

	exec := newTestExecutor(&fakeStore{})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	err := exec.Execute(context.Background(), req, nil, false)

	var statusErr *UnexpectedStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "upstream broke")
	assert.False(t, IsRetryable(err))
}

func TestExecutor_TransportFailureIsNetworkError(t *testing.T) {
	exec := newTestExecutor(&fakeStore{})
	// Nothing listens here.
	req, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:1", nil)

	err := exec.Execute(context.Background(), req, nil, false)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, IsRetryable(err))
}

func TestExecutor_401InvalidatesCredentialCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := &fakeStore{token: "tok", secret: "sec", validated: true}
	exec := newTestExecutor(store)
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	err := exec.Execute(context.Background(), req, nil, true)

	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.False(t, store.validated)
	assert.Equal(t, 1, store.invalidations)
}

func TestExecutor_SignedWithoutTokenFailsFast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the network without a token")
	}))
	defer server.Close()

	exec := newTestExecutor(&fakeStore{})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	err := exec.Execute(context.Background(), req, nil, true)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestExecutor_SignedRequestCarriesOAuthHeader(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	}))
	defer server.Close()

	store := &fakeStore{token: "tok", secret: "sec"}
	exec := newTestExecutor(store)
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	require.NoError(t, exec.Execute(context.Background(), req, nil, true))
	assert.Contains(t, auth, "OAuth")
	assert.Contains(t, auth, `oauth_token="tok"`)
}

func TestExecutor_HandlerFailureIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<broken"))
	}))
	defer server.Close()

	exec := newTestExecutor(&fakeStore{})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	err := exec.Execute(context.Background(), req, func(body io.Reader) error {
		return errors.New("malformed")
	}, false)

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestExecutor_ExecuteRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("50"))
	}))
	defer server.Close()

	exec := newTestExecutor(&fakeStore{})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	body, err := exec.ExecuteRaw(context.Background(), req, false)
	require.NoError(t, err)
	assert.Equal(t, "50", body)
}
