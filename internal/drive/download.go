package drive

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// DownloadURL checks that fileID exists and returns a direct media URL with
// the account's current access token embedded. The URL stops working once
// that token expires, so it must not be cached past Credential expiry.
func (s *Service) DownloadURL(ctx context.Context, accountID, fileID string) (string, error) {
	svc, cred, err := s.open(ctx, accountID)
	if err != nil {
		return "", err
	}

	start := time.Now()
	_, err = svc.Files.Get(fileID).Fields("id").Context(ctx).Do()
	s.observe(ctx, "download", accountID, start, err)
	if err != nil {
		return "", translate("download", "Error getting download url from Google Drive", err)
	}

	return strings.TrimSuffix(s.opts.Endpoint, "/") + "/files/" + url.PathEscape(fileID) +
		"?alt=media&access_token=" + url.QueryEscape(cred.AccessToken), nil
}

// DownloadStream opens the content of fileID. The caller must close the
// returned Body on every path.
func (s *Service) DownloadStream(ctx context.Context, accountID, fileID string) (*Download, error) {
	svc, _, err := s.open(ctx, accountID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := svc.Files.Get(fileID).Context(ctx).Download()
	s.observe(ctx, "download", accountID, start, err)
	if err != nil {
		return nil, translate("download", "Error downloading file from Google Drive", err)
	}

	return &Download{
		Body:        res.Body,
		ContentType: res.Header.Get("Content-Type"),
		Size:        res.ContentLength,
	}, nil
}
