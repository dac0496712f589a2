package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"weddingsite/internal/config"
	apperrors "weddingsite/internal/errors"
)

// MockLister is a mock implementation of Lister.
type MockLister struct {
	mock.Mock
}

func (m *MockLister) List(ctx context.Context, folderID, pageToken string, pageSize int) (*Page, error) {
	args := m.Called(ctx, folderID, pageToken, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Page), args.Error(1)
}

var testFolders = config.DriveFolders{Main: "main-id", Photos: "photos-id"}

func TestService_List(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		pageSize  int
		setupMock func(*MockLister)
		wantErr   error
		wantItems int
	}{
		{
			name:     "default page size",
			key:      FolderPhotos,
			pageSize: 0,
			setupMock: func(m *MockLister) {
				m.On("List", mock.Anything, "photos-id", "", DefaultPageSize).
					Return(&Page{Files: []File{{ID: "a", MimeType: "image/jpeg"}}, NextPageToken: "next"}, nil)
			},
			wantItems: 1,
		},
		{
			name:     "page size capped",
			key:      FolderMain,
			pageSize: 500,
			setupMock: func(m *MockLister) {
				m.On("List", mock.Anything, "main-id", "", MaxPageSize).Return(&Page{}, nil)
			},
		},
		{
			name:      "unset folder",
			key:       FolderVideos,
			setupMock: func(m *MockLister) {},
			wantErr:   apperrors.ErrFolderNotConfigured,
		},
		{
			name:      "unknown folder",
			key:       "secret",
			setupMock: func(m *MockLister) {},
			wantErr:   apperrors.ErrFolderNotConfigured,
		},
		{
			name: "drive failure",
			key:  FolderMain,
			setupMock: func(m *MockLister) {
				m.On("List", mock.Anything, "main-id", "", DefaultPageSize).Return(nil, errors.New("quota"))
			},
			wantErr: errors.New("quota"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := new(MockLister)
			tt.setupMock(lister)
			svc := NewService(lister, testFolders, PickerConfig{}, zerolog.Nop())

			album, err := svc.List(context.Background(), tt.key, "", tt.pageSize)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr.Error(), err.Error())
				assert.Nil(t, album)
			} else {
				require.NoError(t, err)
				assert.Len(t, album.Items, tt.wantItems)
				assert.Equal(t, tt.key, album.Folder)
			}
			lister.AssertExpectations(t)
		})
	}
}

func TestService_ListWithoutDrive(t *testing.T) {
	svc := NewService(nil, testFolders, PickerConfig{}, zerolog.Nop())

	_, err := svc.List(context.Background(), FolderMain, "", 0)
	assert.ErrorIs(t, err, apperrors.ErrFeatureDisabled)
}

func TestToItem(t *testing.T) {
	tests := []struct {
		name string
		file File
		want Item
	}{
		{
			name: "image with owner",
			file: File{ID: "img", Name: "photo.jpg", MimeType: "image/png", Owner: "Jane", WebViewLink: "https://view/img"},
			want: Item{
				ID: "img", Name: "photo.jpg", MimeType: "image/png", MediaType: TypeImage, Uploader: "Jane",
				PreviewURL: "https://drive.google.com/uc?export=view&id=img", ViewLink: "https://view/img",
			},
		},
		{
			name: "video attributed by file name",
			file: File{ID: "vid", Name: "Jane_Doe_first-dance.mp4", MimeType: "video/mp4", WebViewLink: "https://view/vid"},
			want: Item{
				ID: "vid", Name: "Jane_Doe_first-dance.mp4", MimeType: "video/mp4", MediaType: TypeVideo, Uploader: "Jane",
				PreviewURL: "https://view/vid", ViewLink: "https://view/vid",
			},
		},
		{
			name: "other file without prefix",
			file: File{ID: "doc", Name: "menu.pdf", MimeType: "application/pdf"},
			want: Item{ID: "doc", Name: "menu.pdf", MimeType: "application/pdf", MediaType: TypeFile, Uploader: DefaultUploader},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToItem(tt.file))
		})
	}
}

func TestUploadFilename(t *testing.T) {
	assert.Equal(t, "Jane_Doe_my_photo_1_.jpg", BuildUploadFilename("Jane Doe", "my photo (1).jpg"))
	assert.Equal(t, "Guest_clip.mov", BuildUploadFilename("  ", "clip.mov"))

	assert.Equal(t, "Jane", ParseUploader("Jane_Doe_my_photo.jpg"))
	assert.Equal(t, DefaultUploader, ParseUploader("_hidden.jpg"))
	assert.Equal(t, DefaultUploader, ParseUploader("plain.jpg"))
}

func TestNewPickerConfig(t *testing.T) {
	assert.True(t, NewPickerConfig("key", "client", "folder").Enabled)
	assert.False(t, NewPickerConfig("key", "", "folder").Enabled)
	assert.False(t, NewPickerConfig("", "client", "folder").Enabled)
}

func TestDriveLister_List(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"nextPageToken": "p2",
			"files": [
				{"id": "1", "name": "Jane_cake.jpg", "mimeType": "image/jpeg", "createdTime": "2026-06-01T10:00:00Z",
				 "owners": [{"displayName": "Wedding Bot"}], "thumbnailLink": "https://thumb/1", "webViewLink": "https://view/1"},
				{"id": "2", "name": "speech.mp4", "mimeType": "video/mp4"}
			]
		}`))
	}))
	defer srv.Close()

	drv, err := drive.NewService(context.Background(), option.WithoutAuthentication(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	lister := NewDriveListerWithService(drv)

	page, err := lister.List(context.Background(), "folder-1", "p1", 10)
	require.NoError(t, err)

	assert.Equal(t, "'folder-1' in parents and trashed = false", query["q"][0])
	assert.Equal(t, "createdTime desc", query["orderBy"][0])
	assert.Equal(t, "10", query["pageSize"][0])
	assert.Equal(t, "p1", query["pageToken"][0])
	assert.Equal(t, "true", query["supportsAllDrives"][0])

	assert.Equal(t, "p2", page.NextPageToken)
	require.Len(t, page.Files, 2)
	assert.Equal(t, "Wedding Bot", page.Files[0].Owner)
	assert.Equal(t, "https://thumb/1", page.Files[0].ThumbnailLink)
	assert.Empty(t, page.Files[1].Owner)
}
