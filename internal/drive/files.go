package drive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// listAllLimit caps concurrent listings in ListAll.
const listAllLimit = 4

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// listQuery selects the caller's own, non-trashed files directly in folderID.
func listQuery(folderID string) string {
	return fmt.Sprintf("'me' in owners and '%s' in parents and trashed = false", queryEscaper.Replace(folderID))
}

// List returns the files directly under folderID ("root" when empty). A
// folder with no files yields an empty slice.
func (s *Service) List(ctx context.Context, accountID, folderID string) ([]File, error) {
	if folderID == "" {
		folderID = RootFolder
	}
	svc, _, err := s.open(ctx, accountID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := svc.Files.List().
		Q(listQuery(folderID)).
		PageSize(int64(s.opts.PageSize)).
		Fields("files(id, name, mimeType, size, modifiedTime)").
		Context(ctx).
		Do()
	s.observe(ctx, "list", accountID, start, err)
	if err != nil {
		return nil, translate("list", "Error getting files from Google Drive", err)
	}

	files := make([]File, 0, len(res.Files))
	for _, f := range res.Files {
		files = append(files, toFile(f))
	}
	return files, nil
}

// ListAll lists the root folder of every account linked to userID,
// concurrently, in link order. The first failure cancels the rest.
func (s *Service) ListAll(ctx context.Context, userID string) ([]AccountFiles, error) {
	accounts, err := s.accounts.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]AccountFiles, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listAllLimit)
	for i, acc := range accounts {
		g.Go(func() error {
			files, err := s.List(gctx, acc.ID, RootFolder)
			if err != nil {
				return err
			}
			results[i] = AccountFiles{AccountID: acc.ID, Email: acc.Email, Files: files}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Upload streams content into a new file named name under parentID ("root"
// when empty) and returns the new file ID. Content is sent in resumable
// chunks, so a stalled connection stops reads from content instead of
// buffering it. The caller owns and closes content.
func (s *Service) Upload(ctx context.Context, accountID, name string, content io.Reader, parentID string) (string, error) {
	if parentID == "" {
		parentID = RootFolder
	}
	svc, _, err := s.open(ctx, accountID)
	if err != nil {
		return "", err
	}

	start := time.Now()
	created, err := svc.Files.Create(&drivev3.File{Name: name, Parents: []string{parentID}}).
		Media(content, googleapi.ChunkSize(s.opts.ChunkSize)).
		Fields("id").
		Context(ctx).
		Do()
	s.observe(ctx, "upload", accountID, start, err)
	if err != nil {
		return "", translate("upload", "Unable to upload file to Google Drive", err)
	}
	return created.Id, nil
}

// CreateFolder creates a folder under parentID ("root" when empty).
func (s *Service) CreateFolder(ctx context.Context, accountID, name, parentID string) (File, error) {
	if parentID == "" {
		parentID = RootFolder
	}
	svc, _, err := s.open(ctx, accountID)
	if err != nil {
		return File{}, err
	}

	start := time.Now()
	created, err := svc.Files.Create(&drivev3.File{
		Name:     name,
		MimeType: FolderMimeType,
		Parents:  []string{parentID},
	}).
		Fields("id, name, mimeType, modifiedTime").
		Context(ctx).
		Do()
	s.observe(ctx, "create", accountID, start, err)
	if err != nil {
		return File{}, translate("create", "Error creating folder in Google Drive", err)
	}
	return toFile(created), nil
}

// Delete permanently removes a file or folder.
func (s *Service) Delete(ctx context.Context, accountID, fileID string) error {
	svc, _, err := s.open(ctx, accountID)
	if err != nil {
		return err
	}

	start := time.Now()
	err = svc.Files.Delete(fileID).Context(ctx).Do()
	s.observe(ctx, "delete", accountID, start, err)
	return translate("delete", "Error deleting file from Google Drive", err)
}

// GetProperties describes a file. Folders report FolderLabel as their type.
func (s *Service) GetProperties(ctx context.Context, accountID, fileID string) (Properties, error) {
	svc, _, err := s.open(ctx, accountID)
	if err != nil {
		return Properties{}, err
	}

	start := time.Now()
	f, err := svc.Files.Get(fileID).
		Fields("name, createdTime, modifiedTime, size, webViewLink, mimeType").
		Context(ctx).
		Do()
	s.observe(ctx, "get", accountID, start, err)
	if err != nil {
		return Properties{}, translate("get", "Error getting file properties from Google Drive", err)
	}

	mimeType := f.MimeType
	if mimeType == FolderMimeType {
		mimeType = FolderLabel
	}
	return Properties{
		Name:         f.Name,
		CreationDate: f.CreatedTime,
		ModifiedDate: f.ModifiedTime,
		Size:         f.Size,
		Link:         f.WebViewLink,
		MimeType:     mimeType,
	}, nil
}

func toFile(f *drivev3.File) File {
	return File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Size:         f.Size,
		ModifiedTime: f.ModifiedTime,
	}
}
