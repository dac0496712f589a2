// Package media serves the wedding album from Drive folders.
package media

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"weddingsite/internal/config"
	apperrors "weddingsite/internal/errors"
)

const (
	// DefaultPageSize is used when the caller asks for none.
	DefaultPageSize = 48
	// MaxPageSize caps a single listing.
	MaxPageSize = 100
)

// Album section keys.
const (
	FolderMain        = "main"
	FolderPhotos      = "photos"
	FolderVideos      = "videos"
	FolderMessageWall = "message_wall"
)

// Media types.
const (
	TypeImage = "image"
	TypeVideo = "video"
	TypeFile  = "file"
)

// Item is one album entry as shown to guests.
type Item struct {
	ID         string `json:"id"`
	Name       string `json:"drive_name"`
	MimeType   string `json:"mime_type"`
	MediaType  string `json:"media_type"`
	CreatedAt  string `json:"created_at"`
	Uploader   string `json:"uploader_name"`
	PreviewURL string `json:"preview_url"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	ViewLink   string `json:"web_view_link,omitempty"`
}

// Album is one page of a folder.
type Album struct {
	Folder        string `json:"folder"`
	Items         []Item `json:"files"`
	NextPageToken string `json:"next_page_token"`
}

// PickerConfig is what the browser needs to open the upload picker.
type PickerConfig struct {
	APIKey   string `json:"api_key,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	FolderID string `json:"folder_id,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// NewPickerConfig enables the picker only when every value is present.
func NewPickerConfig(apiKey, clientID, folderID string) PickerConfig {
	return PickerConfig{
		APIKey:   apiKey,
		ClientID: clientID,
		FolderID: folderID,
		Enabled:  apiKey != "" && clientID != "" && folderID != "",
	}
}

// Service maps album sections to folders and lists them.
type Service struct {
	lister  Lister
	folders map[string]string
	picker  PickerConfig
	log     zerolog.Logger
}

// NewService creates a media service. lister may be nil when Drive is not
// configured; listings then fail with ErrFeatureDisabled.
func NewService(lister Lister, folders config.DriveFolders, picker PickerConfig, log zerolog.Logger) *Service {
	return &Service{
		lister: lister,
		folders: map[string]string{
			FolderMain:        folders.Main,
			FolderPhotos:      folders.Photos,
			FolderVideos:      folders.Videos,
			FolderMessageWall: folders.MessageWall,
		},
		picker: picker,
		log:    log,
	}
}

// Picker returns the upload picker configuration.
func (s *Service) Picker() PickerConfig {
	return s.picker
}

// List returns one page of the folder behind key.
func (s *Service) List(ctx context.Context, key, pageToken string, pageSize int) (*Album, error) {
	folderID := s.folders[key]
	if folderID == "" {
		return nil, apperrors.ErrFolderNotConfigured
	}
	if s.lister == nil {
		return nil, apperrors.ErrFeatureDisabled
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	page, err := s.lister.List(ctx, folderID, pageToken, pageSize)
	if err != nil {
		s.log.Error().Err(err).Str("folder", key).Msg("album listing failed")
		return nil, err
	}

	album := &Album{Folder: key, Items: make([]Item, 0, len(page.Files)), NextPageToken: page.NextPageToken}
	for _, f := range page.Files {
		album.Items = append(album.Items, ToItem(f))
	}
	return album, nil
}

// ToItem maps a listed file to an album entry.
func ToItem(f File) Item {
	item := Item{
		ID:         f.ID,
		Name:       f.Name,
		MimeType:   f.MimeType,
		MediaType:  MediaType(f.MimeType),
		CreatedAt:  f.CreatedTime,
		Uploader:   f.Owner,
		PreviewURL: f.WebViewLink,
		Thumbnail:  f.ThumbnailLink,
		ViewLink:   f.WebViewLink,
	}
	if item.Uploader == "" {
		item.Uploader = ParseUploader(f.Name)
	}
	if item.MediaType == TypeImage {
		item.PreviewURL = PreviewURL(f.ID)
	}
	return item
}

// MediaType classifies a mime type as image, video or file.
func MediaType(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return TypeImage
	case strings.HasPrefix(mime, "video/"):
		return TypeVideo
	default:
		return TypeFile
	}
}

// PreviewURL is the direct view link of a Drive image.
func PreviewURL(fileID string) string {
	return "https://drive.google.com/uc?export=view&id=" + fileID
}
