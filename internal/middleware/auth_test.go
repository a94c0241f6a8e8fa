package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-core/internal/identity"
	"chat-core/internal/mocks"
)

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", mw, func(c *gin.Context) {
		c.String(http.StatusOK, CredentialsFrom(c).Username)
	})
	return r
}

func TestExtractCredentials(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-Username", "alice")
	req.Header.Set("Authorization", "Bearer secret")
	creds, ok := ExtractCredentials(req)
	assert.True(t, ok)
	assert.Equal(t, "alice", creds.Username)
	assert.Equal(t, "secret", creds.Token)

	req = httptest.NewRequest(http.MethodGet, "/me?username=bob&token=t", nil)
	creds, ok = ExtractCredentials(req)
	assert.True(t, ok)
	assert.Equal(t, "bob", creds.Username)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-Username", "alice")
	req.Header.Set("Authorization", "Basic abc")
	_, ok = ExtractCredentials(req)
	assert.False(t, ok)
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	status, _ := body["status"].(string)
	return status
}

func TestCredentialsMissing(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(Credentials()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_INVALID", decodeStatus(t, w))
}

func TestRequireAuthMissingCredentials(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(RequireAuth(new(mocks.GateMock))).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_INVALID", decodeStatus(t, w))
}

func TestRequireAuth(t *testing.T) {
	gate := new(mocks.GateMock)
	gate.On("Authenticate", mock.Anything, "alice", "good").Return(identity.StatusOK, nil)
	gate.On("Authenticate", mock.Anything, "alice", "bad").Return(identity.StatusTokenInvalid, nil)
	gate.On("Authenticate", mock.Anything, "alice", "down").Return(identity.Status(""), errors.New("unavailable"))
	router := newRouter(RequireAuth(gate))

	cases := []struct {
		token  string
		code   int
		status string
	}{
		{"good", http.StatusOK, ""},
		{"bad", http.StatusUnauthorized, "AUTH_INVALID"},
		{"down", http.StatusBadGateway, "IDENTITY_UNAVAILABLE"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("X-Username", "alice")
		req.Header.Set("Authorization", "Bearer "+tc.token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, tc.code, w.Code, tc.token)
		if tc.code == http.StatusOK {
			assert.Equal(t, "alice", w.Body.String())
			continue
		}
		assert.Equal(t, tc.status, decodeStatus(t, w), tc.token)
	}
}
