package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lostfound_backend/internal/claim"
	"lostfound_backend/internal/common"
	"lostfound_backend/internal/config"
	"lostfound_backend/internal/item"
	"lostfound_backend/internal/message"
	"lostfound_backend/internal/notification"
	"lostfound_backend/internal/realtime"
	"lostfound_backend/internal/user"

	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticVerifier struct{}

func (staticVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if idToken != "good" {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: "uid-1"}, nil
}

type staticProvisioner struct {
	account *user.User
}

func (p staticProvisioner) GetOrCreateUserFromFirebaseClaims(context.Context, *auth.Token) (*user.User, error) {
	return p.account, nil
}

func newTestServer(t *testing.T, account *user.User) *Server {
	t.Helper()
	logger := zap.NewNop()
	cfg := &config.Config{GinMode: "test", ServerPort: "0"}
	// Routes only; requests in these tests never reach a service.
	handlers := Handlers{
		User:         user.NewHandler(nil, logger),
		Item:         item.NewHandler(nil, logger),
		Message:      message.NewHandler(nil, logger),
		Claim:        claim.NewHandler(nil, logger),
		Notification: notification.NewHandler(nil, logger),
		Realtime:     realtime.NewHandler(realtime.NewHub(logger), nil, logger),
	}
	srv, err := NewServer(cfg, logger, handlers, staticVerifier{}, staticProvisioner{account: account}, nil, nil)
	require.NoError(t, err)
	return srv
}

func serve(srv *Server, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) common.ErrorResponse {
	t.Helper()
	var body common.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	w := serve(srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "UP")
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	srv := newTestServer(t, nil)
	w := serve(srv, http.MethodGet, "/api/v1/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeError(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, "NOT_FOUND", body.Code)
}

func TestWrongMethod(t *testing.T) {
	srv := newTestServer(t, nil)
	w := serve(srv, http.MethodPut, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/api/v1/messages", "/api/v1/items", "/api/v1/notifications"} {
		w := serve(srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := serve(srv, http.MethodGet, "/api/v1/messages", "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRejectRegularUsers(t *testing.T) {
	account := &user.User{Role: common.RoleUser, IsActive: true}
	account.ID = uuid.New()
	srv := newTestServer(t, account)

	for _, path := range []string{"/api/v1/admin/messages/reported", "/api/v1/admin/items/stats"} {
		w := serve(srv, http.MethodGet, path, "good")
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		assert.Equal(t, "FORBIDDEN", decodeError(t, w).Code)
	}
}

func TestDeactivatedAccountIsRejected(t *testing.T) {
	account := &user.User{Role: common.RoleAdmin, IsActive: false}
	account.ID = uuid.New()
	srv := newTestServer(t, account)

	w := serve(srv, http.MethodGet, "/api/v1/admin/messages/reported", "good")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Account deactivated", decodeError(t, w).Error)
}
