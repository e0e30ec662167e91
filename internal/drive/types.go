package drive

import "io"

const (
	// RootFolder is Drive's alias for the top of My Drive.
	RootFolder = "root"

	FolderMimeType = "application/vnd.google-apps.folder"
	// FolderLabel replaces FolderMimeType in Properties.
	FolderLabel = "Google Drive Folder"
)

// File is one entry of a folder listing.
type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modifiedTime"`
}

// Properties describes a single file.
type Properties struct {
	Name         string `json:"name"`
	CreationDate string `json:"creationDate"`
	ModifiedDate string `json:"modifiedDate"`
	Size         int64  `json:"size"`
	Link         string `json:"link"`
	MimeType     string `json:"mimeType"`
}

// StorageInfo is the account quota in bytes. Accounts without a limit
// report Unlimited and leave Total and Available at zero.
type StorageInfo struct {
	Total     int64 `json:"total"`
	Used      int64 `json:"used"`
	Available int64 `json:"available"`
	Unlimited bool  `json:"unlimited,omitempty"`
}

// Download is an open content stream. The caller must close Body.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// AccountFiles is the root listing of one linked account.
type AccountFiles struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
	Files     []File `json:"files"`
}
