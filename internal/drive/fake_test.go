package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/pysugar/drive-nexus/internal/auth/token"
	"github.com/pysugar/drive-nexus/internal/db/models"
	"github.com/stretchr/testify/assert"
)

// fakeFile is a file held by fakeDrive.
type fakeFile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mimeType"`
	Size         string   `json:"size,omitempty"`
	ModifiedTime string   `json:"modifiedTime,omitempty"`
	CreatedTime  string   `json:"createdTime,omitempty"`
	WebViewLink  string   `json:"webViewLink,omitempty"`
	Parents      []string `json:"parents,omitempty"`
	content      []byte
}

// fakeDrive is a minimal Drive v3 server covering the calls Service makes.
type fakeDrive struct {
	t   *testing.T
	srv *httptest.Server

	mu         sync.Mutex
	files      map[string]*fakeFile
	listed     []*fakeFile
	quota      string
	email      string
	auth       []string
	queries    []string
	pageSizes  []string
	failStatus int
	nextID     int

	// resumable uploads in progress, keyed by upload_id
	sessions map[string]*fakeSession
	chunks   []int
	// onChunk runs under the lock after each resumable chunk is stored,
	// with the bytes received so far in that session.
	onChunk func(received int)
}

type fakeSession struct {
	meta    fakeFile
	content []byte
}

func newFakeDrive(t *testing.T) *fakeDrive {
	t.Helper()
	f := &fakeDrive{
		t:     t,
		files:    make(map[string]*fakeFile),
		sessions: make(map[string]*fakeSession),
		quota: `{"limit":"1000","usage":"250"}`,
		email: "alice@example.com",
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

// endpoint is the Drive base URL to configure Service with.
func (f *fakeDrive) endpoint() string {
	return f.srv.URL + "/drive/v3/"
}

func (f *fakeDrive) add(file *fakeFile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[file.ID] = file
}

// locked runs fn under the server lock, for tests that read or change state.
func (f *fakeDrive) locked(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}

func (f *fakeDrive) stored(id string) *fakeFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[id]
}

func (f *fakeDrive) authHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...)
}

func (f *fakeDrive) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))

	if f.failStatus != 0 {
		writeAPIError(w, f.failStatus, "backend error")
		return
	}

	switch {
	case r.URL.Path == "/upload/drive/v3/files" && r.Method == http.MethodPost:
		f.upload(w, r)
	case r.URL.Path == "/drive/v3/files" && r.Method == http.MethodGet:
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		f.pageSizes = append(f.pageSizes, r.URL.Query().Get("pageSize"))
		files := f.listed
		if files == nil {
			files = []*fakeFile{}
		}
		writeJSON(w, map[string]interface{}{"files": files})
	case r.URL.Path == "/drive/v3/files" && r.Method == http.MethodPost:
		var meta fakeFile
		if !assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&meta)) {
			writeAPIError(w, http.StatusBadRequest, "bad metadata")
			return
		}
		meta.ID = f.newID()
		meta.ModifiedTime = "2026-03-01T12:00:00.000Z"
		f.files[meta.ID] = &meta
		writeJSON(w, meta)
	case strings.HasPrefix(r.URL.Path, "/drive/v3/files/"):
		f.file(w, r, strings.TrimPrefix(r.URL.Path, "/drive/v3/files/"))
	case r.URL.Path == "/drive/v3/about":
		if strings.Contains(r.URL.Query().Get("fields"), "user") {
			writeJSON(w, map[string]interface{}{"user": map[string]string{"emailAddress": f.email}})
			return
		}
		fmt.Fprintf(w, `{"storageQuota":%s}`, f.quota)
	default:
		writeAPIError(w, http.StatusNotFound, "unknown path "+r.URL.Path)
	}
}

func (f *fakeDrive) file(w http.ResponseWriter, r *http.Request, id string) {
	file, ok := f.files[id]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}

	switch {
	case r.Method == http.MethodDelete:
		delete(f.files, id)
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Query().Get("alt") == "media":
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", fmt.Sprint(len(file.content)))
		w.Write(file.content)
	default:
		writeJSON(w, file)
	}
}

// upload accepts a single multipart/related request or the resumable
// protocol: an initiating POST with the metadata, then one POST per chunk.
func (f *fakeDrive) upload(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("uploadType") {
	case "multipart":
		f.uploadMultipart(w, r)
	case "resumable":
		if id := r.URL.Query().Get("upload_id"); id != "" {
			f.uploadChunk(w, r, id)
			return
		}
		f.startSession(w, r)
	default:
		assert.Fail(f.t, "unexpected uploadType", r.URL.RawQuery)
		writeAPIError(w, http.StatusBadRequest, "bad uploadType")
	}
}

func (f *fakeDrive) startSession(w http.ResponseWriter, r *http.Request) {
	var meta fakeFile
	if !assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&meta)) {
		writeAPIError(w, http.StatusBadRequest, "bad metadata")
		return
	}
	id := fmt.Sprint(len(f.sessions) + 1)
	f.sessions[id] = &fakeSession{meta: meta}
	w.Header().Set("Location", f.srv.URL+"/upload/drive/v3/files?uploadType=resumable&upload_id="+id)
	w.WriteHeader(http.StatusOK)
}

// uploadChunk stores one chunk. Non-final chunks get the "resume
// incomplete" answer the client asks for with X-GUploader-No-308.
func (f *fakeDrive) uploadChunk(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := f.sessions[id]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "unknown upload "+id)
		return
	}
	chunk, err := io.ReadAll(r.Body)
	if !assert.NoError(f.t, err) {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(chunk) > 0 {
		f.chunks = append(f.chunks, len(chunk))
	}
	sess.content = append(sess.content, chunk...)
	if f.onChunk != nil {
		f.onChunk(len(sess.content))
	}

	// "bytes a-b/*" is an intermediate chunk; a known total ends the upload.
	if strings.HasSuffix(r.Header.Get("Content-Range"), "/*") {
		w.Header().Set("X-HTTP-Status-Code-Override", "308")
		w.Header().Set("Range", fmt.Sprintf("bytes=0-%d", len(sess.content)-1))
		w.WriteHeader(http.StatusOK)
		return
	}

	delete(f.sessions, id)
	meta := sess.meta
	meta.ID = f.newID()
	meta.content = sess.content
	meta.Size = fmt.Sprint(len(sess.content))
	f.files[meta.ID] = &meta
	writeJSON(w, map[string]string{"id": meta.ID})
}

func (f *fakeDrive) uploadMultipart(w http.ResponseWriter, r *http.Request) {
	meta, content, err := readRelated(r)
	if !assert.NoError(f.t, err) {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta.ID = f.newID()
	meta.content = content
	meta.Size = fmt.Sprint(len(content))
	f.files[meta.ID] = &meta
	writeJSON(w, map[string]string{"id": meta.ID})
}

func readRelated(r *http.Request) (fakeFile, []byte, error) {
	var meta fakeFile
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return meta, nil, err
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	metaPart, err := mr.NextPart()
	if err != nil {
		return meta, nil, err
	}
	if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
		return meta, nil, err
	}

	mediaPart, err := mr.NextPart()
	if err != nil {
		return meta, nil, err
	}
	content, err := io.ReadAll(mediaPart)
	return meta, content, err
}

func (f *fakeDrive) newID() string {
	f.nextID++
	return fmt.Sprintf("file-%d", f.nextID)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":%q,"errors":[{"message":%q,"reason":"notFound"}]}}`,
		status, message, message)
}

// staticCreds serves fixed credentials per account.
type staticCreds struct {
	creds map[string]token.Credential
	err   error
	calls int
	mu    sync.Mutex
}

func (s *staticCreds) Credential(_ context.Context, accountID string) (token.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return token.Credential{}, s.err
	}
	return s.creds[accountID], nil
}

type staticAccounts []models.Account

func (a staticAccounts) ListAccounts(context.Context, string) ([]models.Account, error) {
	return a, nil
}
