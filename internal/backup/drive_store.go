package backup

import (
	"bytes"
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

type File struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// DriveStore keeps backup files in Google Drive.
type DriveStore struct {
	service   *drive.Service
	shareWith string
}

// NewDriveStore creates a store authenticated with the given service account
// credentials. Every created file is shared read-only with shareWith, if set.
func NewDriveStore(ctx context.Context, credentialsJSON []byte, shareWith string) (*DriveStore, error) {
	driveService, err := drive.NewService(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve drive client: %w", err)
	}
	return &DriveStore{
		service:   driveService,
		shareWith: shareWith,
	}, nil
}

// FindFolder returns the id of the folder with the given name, or an empty string.
func (s *DriveStore) FindFolder(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("mimeType = '%s' and trashed = false and name = '%s'", folderMimeType, name)
	folders, err := s.service.Files.List().
		Q(query).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve files: %w", err)
	}

	switch len(folders.Files) {
	case 0:
		return "", nil
	case 1:
		return folders.Files[0].Id, nil
	default:
		log.Warnf("found %d backup folders named %s, taking the first one: %s", len(folders.Files), name, folders.Files[0].Id)
		return folders.Files[0].Id, nil
	}
}

func (s *DriveStore) CreateFolder(ctx context.Context, name string) (string, error) {
	folder, err := s.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}

	if err := s.share(ctx, folder.Id); err != nil {
		return folder.Id, fmt.Errorf("share backup folder: %w", err)
	}
	return folder.Id, nil
}

func (s *DriveStore) Delete(ctx context.Context, id string) error {
	return s.service.Files.Delete(id).Context(ctx).Do()
}

// ListFiles lists the non-folder files in the given folder.
func (s *DriveStore) ListFiles(ctx context.Context, folderID string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType != '%s' and trashed = false", folderID, folderMimeType)

	var files []File
	err := s.service.Files.List().
		Q(query).
		Fields("nextPageToken, files(id, name, createdTime)").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				createdAt, err := time.Parse(time.RFC3339, f.CreatedTime)
				if err != nil {
					log.Warnf("parse created time of backup file %s: %s", f.Name, err)
					continue
				}
				files = append(files, File{ID: f.Id, Name: f.Name, CreatedAt: createdAt})
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func (s *DriveStore) Upload(ctx context.Context, folderID, name string, content []byte) (string, error) {
	created, err := s.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: "application/json",
		Parents:  []string{folderID},
	}).
		Fields("id, parents").
		Media(bytes.NewReader(content)).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}

	if err := s.share(ctx, created.Id); err != nil {
		return created.Id, fmt.Errorf("share backup file: %w", err)
	}
	return created.Id, nil
}

func (s *DriveStore) share(ctx context.Context, fileID string) error {
	if s.shareWith == "" {
		return nil
	}

	permission, err := s.service.Permissions.Create(fileID, &drive.Permission{
		EmailAddress: s.shareWith,
		Type:         "user",
		Role:         "reader",
	}).
		Context(ctx).
		Do()
	if err != nil {
		return err
	}

	log.Debugf("permission %s created for %s", permission.Id, fileID)
	return nil
}
