package filestorage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockCloudinaryAPI struct {
	mock.Mock
}

func (m *MockCloudinaryAPI) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	args := m.Called(ctx, file, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*uploader.UploadResult), args.Error(1)
}

func (m *MockCloudinaryAPI) Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*uploader.DestroyResult), args.Error(1)
}

func TestCloudinaryStore_Put_Success(t *testing.T) {
	api := new(MockCloudinaryAPI)
	store := newCloudinaryStore(api, "lostfound", zap.NewNop())

	api.On("Upload", mock.Anything, mock.Anything, mock.MatchedBy(func(p uploader.UploadParams) bool {
		return p.Folder == "lostfound/items" && p.PublicID != ""
	})).Return(&uploader.UploadResult{PublicID: "lostfound/items/abc", SecureURL: "https://res.cloudinary.com/demo/abc.jpg"}, nil).Once()

	saved, err := store.Put(context.Background(), strings.NewReader("img"), "items", ".jpg")
	require.NoError(t, err)
	assert.Equal(t, "lostfound/items/abc", saved.Key)
	assert.Equal(t, "https://res.cloudinary.com/demo/abc.jpg", saved.URL)
	api.AssertExpectations(t)
}

func TestCloudinaryStore_Put_Error(t *testing.T) {
	api := new(MockCloudinaryAPI)
	store := newCloudinaryStore(api, "lostfound", zap.NewNop())
	api.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("network down")).Once()

	_, err := store.Put(context.Background(), strings.NewReader("img"), "items", ".jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
}

func TestCloudinaryStore_Delete(t *testing.T) {
	api := new(MockCloudinaryAPI)
	store := newCloudinaryStore(api, "lostfound", zap.NewNop())

	api.On("Destroy", mock.Anything, uploader.DestroyParams{PublicID: "lostfound/items/abc"}).
		Return(&uploader.DestroyResult{Result: "ok"}, nil).Once()
	api.On("Destroy", mock.Anything, uploader.DestroyParams{PublicID: "lostfound/items/locked"}).
		Return(&uploader.DestroyResult{Result: "error"}, nil).Once()

	assert.NoError(t, store.Delete(context.Background(), "lostfound/items/abc"))
	assert.Error(t, store.Delete(context.Background(), "lostfound/items/locked"))
	assert.Error(t, store.Delete(context.Background(), ""))
	api.AssertExpectations(t)
}
