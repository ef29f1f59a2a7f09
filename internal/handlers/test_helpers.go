package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// MockLoginGuard implements LoginGuardInterface for testing
type MockLoginGuard struct {
	LoginFunc     func(ctx context.Context, address, username, password string) (*models.Session, error)
	BanStatusFunc func(ctx context.Context, address string) models.BanStatus
}

func (m *MockLoginGuard) Login(ctx context.Context, address, username, password string) (*models.Session, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, address, username, password)
	}
	return nil, models.ErrInternalServer
}

func (m *MockLoginGuard) BanStatus(ctx context.Context, address string) models.BanStatus {
	if m.BanStatusFunc != nil {
		return m.BanStatusFunc(ctx, address)
	}
	return models.BanStatus{}
}
