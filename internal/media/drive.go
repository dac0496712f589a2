package media

import (
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const listFields = "nextPageToken, files(id,name,mimeType,createdTime,owners(displayName),thumbnailLink,webViewLink)"

// File is one entry of a folder listing.
type File struct {
	ID            string
	Name          string
	MimeType      string
	CreatedTime   string
	Owner         string
	ThumbnailLink string
	WebViewLink   string
}

// Page is one page of a folder listing.
type Page struct {
	Files         []File
	NextPageToken string
}

// Lister lists the files of a remote folder, newest first.
type Lister interface {
	List(ctx context.Context, folderID, pageToken string, pageSize int) (*Page, error)
}

// DriveLister lists Google Drive folders with a service account.
type DriveLister struct {
	files *drive.FilesService
}

var _ Lister = (*DriveLister)(nil)

// NewDriveLister authenticates with the service-account credentials file.
func NewDriveLister(ctx context.Context, credentialsFile string) (*DriveLister, error) {
	srv, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return NewDriveListerWithService(srv), nil
}

// NewDriveListerWithService wraps an existing client.
func NewDriveListerWithService(srv *drive.Service) *DriveLister {
	return &DriveLister{files: srv.Files}
}

func (d *DriveLister) List(ctx context.Context, folderID, pageToken string, pageSize int) (*Page, error) {
	call := d.files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
		PageSize(int64(pageSize)).
		OrderBy("createdTime desc").
		Fields(googleapi.Field(listFields)).
		IncludeItemsFromAllDrives(true).
		SupportsAllDrives(true).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	res, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list drive folder: %w", err)
	}

	page := &Page{Files: make([]File, 0, len(res.Files)), NextPageToken: res.NextPageToken}
	for _, f := range res.Files {
		file := File{
			ID:            f.Id,
			Name:          f.Name,
			MimeType:      f.MimeType,
			CreatedTime:   f.CreatedTime,
			ThumbnailLink: f.ThumbnailLink,
			WebViewLink:   f.WebViewLink,
		}
		if len(f.Owners) > 0 && f.Owners[0] != nil {
			file.Owner = f.Owners[0].DisplayName
		}
		page.Files = append(page.Files, file)
	}
	return page, nil
}
