package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// MockTokenServer provides a configurable mock PDND token endpoint.
type MockTokenServer struct {
	Server      *httptest.Server
	AccessToken string // access_token to return; when empty one is generated with Expiry
	Expiry      time.Time
	StatusCode  int    // HTTP status code to return (200 if not set)
	Body        string // raw body to return instead of a token response

	mu           sync.Mutex
	requestCount int
	lastForm     url.Values
}

// SetupMockTokenServer creates a mock token endpoint at /token.oauth2 that
// answers with an access token valid for an hour.
func SetupMockTokenServer(t *testing.T) *MockTokenServer {
	t.Helper()

	mock := &MockTokenServer{
		Expiry:     time.Now().Add(1 * time.Hour),
		StatusCode: http.StatusOK,
	}

	router := http.NewServeMux()

	router.HandleFunc("POST /token.oauth2", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()

		mock.mu.Lock()
		mock.requestCount++
		mock.lastForm = r.PostForm
		mock.mu.Unlock()

		if mock.Body != "" {
			w.WriteHeader(mock.StatusCode)
			_, _ = w.Write([]byte(mock.Body))
			return
		}

		if mock.StatusCode != http.StatusOK {
			w.WriteHeader(mock.StatusCode)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}

		accessToken := mock.AccessToken
		if accessToken == "" {
			accessToken = UnsignedJWT(t, map[string]any{
				"sub": "test-client",
				"exp": mock.Expiry.Unix(),
			})
		}

		WriteJSON(w, map[string]any{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"expires_in":   int(time.Until(mock.Expiry).Seconds()),
		})
	})

	mock.Server = httptest.NewServer(router)
	t.Cleanup(mock.Server.Close)

	return mock
}

// URL is the token endpoint address.
func (m *MockTokenServer) URL() string {
	return m.Server.URL + "/token.oauth2"
}

// RequestCount is the number of token requests received.
func (m *MockTokenServer) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// LastForm is the form body of the last token request.
func (m *MockTokenServer) LastForm() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastForm
}

// MockAPIServer provides a configurable downstream API that records the
// requests it receives.
type MockAPIServer struct {
	Server     *httptest.Server
	StatusCode int    // HTTP status code to return (200 if not set)
	Body       string // body to return

	mu              sync.Mutex
	requestCount    int
	lastAuthHeader  string
	lastAccept      string
	lastRequestURI  string
	lastRequestMeth string
}

// SetupMockAPIServer creates a mock API answering every path with the
// configured status and body.
func SetupMockAPIServer(t *testing.T) *MockAPIServer {
	t.Helper()

	mock := &MockAPIServer{
		StatusCode: http.StatusOK,
		Body:       `{"status":"OK"}`,
	}

	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.lastAuthHeader = r.Header.Get("Authorization")
		mock.lastAccept = r.Header.Get("Accept")
		mock.lastRequestURI = r.URL.RequestURI()
		mock.lastRequestMeth = r.Method
		status, body := mock.StatusCode, mock.Body
		mock.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(mock.Server.Close)

	return mock
}

// RequestCount is the number of requests received.
func (m *MockAPIServer) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// LastAuthHeader is the Authorization header of the last request.
func (m *MockAPIServer) LastAuthHeader() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAuthHeader
}

// LastAccept is the Accept header of the last request.
func (m *MockAPIServer) LastAccept() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAccept
}

// LastRequestURI is the path and query of the last request.
func (m *MockAPIServer) LastRequestURI() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequestURI
}

// LastMethod is the HTTP method of the last request.
func (m *MockAPIServer) LastMethod() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequestMeth
}

// WriteJSON is a helper function that writes a JSON response.
// It sets the Content-Type header and marshals the payload to JSON.
func WriteJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(payload)
	if err != nil {
		// In test context, this should never happen with valid test data
		http.Error(w, fmt.Sprintf("failed to marshal JSON: %v", err), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(data)
}
