package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/drive-nexus/internal/apperr"
	"github.com/pysugar/drive-nexus/internal/drive"
	"github.com/pysugar/drive-nexus/internal/logging"
	"github.com/pysugar/drive-nexus/internal/web/middleware"
	"github.com/pysugar/drive-nexus/internal/web/respond"
)

// uploadField is the multipart field carrying the file.
const uploadField = "file"

var errNoFilePart = errors.New("multipart body has no \"file\" part")

// ListFiles lists a folder of one account (?folder=, default root).
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	files, err := h.drive.List(r.Context(), acc.ID, r.URL.Query().Get("folder"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

// ListAllFiles lists the root folder of every linked account.
func (h *Handlers) ListAllFiles(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		respond.Error(w, r, apperr.ErrUnauthenticated)
		return
	}

	all, err := h.drive.ListAll(r.Context(), user.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"accounts": all})
}

// UploadFile streams the "file" part of a multipart body into Drive
// without buffering the whole body. ?parent= picks the folder.
func (h *Handlers) UploadFile(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "invalid_request", "Expected a multipart/form-data body")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			err = errNoFilePart
		}
		if err != nil {
			respond.Message(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if part.FormName() != uploadField {
			part.Close()
			continue
		}

		name := part.FileName()
		if name == "" {
			name = r.URL.Query().Get("name")
		}
		if name == "" {
			part.Close()
			respond.Message(w, http.StatusBadRequest, "invalid_request", "Missing file name")
			return
		}

		id, err := h.drive.Upload(r.Context(), acc.ID, name, part, r.URL.Query().Get("parent"))
		part.Close()
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		logging.FromContext(r.Context()).Info().
			Str("account_id", acc.ID).
			Str("file_id", id).
			Str("name", name).
			Msg("📤 Uploaded file")
		respond.JSON(w, http.StatusCreated, map[string]string{"id": id, "name": name})
		return
	}
}

type createFolderRequest struct {
	Name   string `json:"name"`
	Parent string `json:"parent"`
}

// CreateFolder creates a folder from {"name", "parent"}.
func (h *Handlers) CreateFolder(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respond.Message(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	folder, err := h.drive.CreateFolder(r.Context(), acc.ID, req.Name, req.Parent)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, folder)
}

// GetFile returns the properties of one file.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	props, err := h.drive.GetProperties(r.Context(), acc.ID, chi.URLParam(r, "fileID"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, props)
}

// DownloadURL returns a direct link that works until the embedded token
// expires.
func (h *Handlers) DownloadURL(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	link, err := h.drive.DownloadURL(r.Context(), acc.ID, chi.URLParam(r, "fileID"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"url": link})
}

// DownloadContent proxies the file bytes to the client.
func (h *Handlers) DownloadContent(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	dl, err := h.drive.DownloadStream(r.Context(), acc.ID, chi.URLParam(r, "fileID"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	defer dl.Body.Close()

	contentType := dl.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if dl.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	// Headers are sent; a copy error can only be logged.
	if n, err := io.Copy(w, dl.Body); err != nil {
		logging.FromContext(r.Context()).Warn().Err(err).Int64("bytes", n).Msg("⚠️ Download stream interrupted")
	}
}

// DeleteFile removes a file or folder.
func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	if err := h.drive.Delete(r.Context(), acc.ID, chi.URLParam(r, "fileID")); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Storage returns the account's quota.
func (h *Handlers) Storage(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	info, err := h.drive.GetStorageInfo(r.Context(), acc.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, info)
}

var _ DriveService = (*drive.Service)(nil)
