package message

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lostfound_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Send(ctx context.Context, actor common.Actor, req SendRequest, image *multipart.FileHeader) (*Message, error) {
	args := m.Called(ctx, actor, req, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Message), args.Error(1)
}

func (m *MockService) Conversation(ctx context.Context, actor common.Actor, otherID uuid.UUID) ([]View, error) {
	args := m.Called(ctx, actor, otherID)
	return args.Get(0).([]View), args.Error(1)
}

func (m *MockService) Inbox(ctx context.Context, actor common.Actor) ([]InboxEntry, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]InboxEntry), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockService) Report(ctx context.Context, actor common.Actor, id uuid.UUID, reason string) error {
	return m.Called(ctx, actor, id, reason).Error(0)
}

func (m *MockService) DeleteAll(ctx context.Context, actor common.Actor) (*PurgeResult, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(*PurgeResult), args.Error(1)
}

func (m *MockService) ListReported(ctx context.Context, page, pageSize int) ([]Message, int64, error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).([]Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockService) AdminDelete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockService) ReapAbandoned(ctx context.Context, grace time.Duration) (int64, error) {
	args := m.Called(ctx, grace)
	return args.Get(0).(int64), args.Error(1)
}

func newTestRouter(svc Service, actor common.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := func(c *gin.Context) {
		c.Set(common.UserIDKey, actor.ID)
		c.Set(common.UserRoleKey, actor.Role)
		c.Next()
	}
	admin := func(c *gin.Context) {
		if !actor.IsAdmin() {
			common.RespondWithError(c, common.ErrForbidden)
			return
		}
		c.Next()
	}
	r := gin.New()
	NewHandler(svc, zap.NewNop()).RegisterRoutes(r.Group("/api/v1"), auth, admin)
	return r
}

func TestHandler_SendJSON(t *testing.T) {
	actor := common.Actor{ID: uuid.New(), Role: common.RoleUser}
	receiver := uuid.New()
	svc := new(MockService)
	svc.On("Send", mock.Anything, actor, SendRequest{ReceiverID: receiver.String(), Content: "hello"}, (*multipart.FileHeader)(nil)).
		Return(&Message{SenderID: actor.ID, ReceiverID: receiver, Content: "hello"}, nil)
	r := newTestRouter(svc, actor)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/send",
		strings.NewReader(`{"receiver_id":"`+receiver.String()+`","message":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		Success bool    `json:"success"`
		Data    Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, receiver, body.Data.ReceiverID)
	svc.AssertExpectations(t)
}

func TestHandler_SendRequiresReceiver(t *testing.T) {
	svc := new(MockService)
	r := newTestRouter(svc, common.Actor{ID: uuid.New(), Role: common.RoleUser})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", strings.NewReader(`{"message":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	svc.AssertNotCalled(t, "Send")
}

func TestHandler_ReportAcceptsEmptyBody(t *testing.T) {
	actor := common.Actor{ID: uuid.New(), Role: common.RoleUser}
	id := uuid.New()
	svc := new(MockService)
	svc.On("Report", mock.Anything, actor, id, "").Return(nil)
	r := newTestRouter(svc, actor)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/messages/"+id.String()+"/report", nil))

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestHandler_DeleteMapsServiceErrors(t *testing.T) {
	actor := common.Actor{ID: uuid.New(), Role: common.RoleUser}
	id := uuid.New()
	svc := new(MockService)
	svc.On("Delete", mock.Anything, actor, id).Return(common.ErrForbidden.WithMessage("Not allowed to delete this message"))
	r := newTestRouter(svc, actor)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/messages/"+id.String(), nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Not allowed to delete this message")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/messages/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid message id format.")
}

func TestHandler_AdminRoutesRequireAdmin(t *testing.T) {
	svc := new(MockService)
	r := newTestRouter(svc, common.Actor{ID: uuid.New(), Role: common.RoleUser})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/messages/reported", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := common.Actor{ID: uuid.New(), Role: common.RoleAdmin}
	svc.On("ListReported", mock.Anything, 1, 20).Return([]Message{}, int64(0), nil)
	r = newTestRouter(svc, admin)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/messages/reported", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pagination"`)
}
