package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pysugar/drive-nexus/internal/apperr"
	"github.com/pysugar/drive-nexus/internal/auth/google"
	"github.com/pysugar/drive-nexus/internal/auth/token"
	"github.com/pysugar/drive-nexus/internal/config"
	"github.com/pysugar/drive-nexus/internal/db"
	"github.com/pysugar/drive-nexus/internal/db/models"
	"github.com/pysugar/drive-nexus/internal/drive"
	"github.com/pysugar/drive-nexus/internal/metrics"
	"github.com/pysugar/drive-nexus/internal/web/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDrive records which account each call was made for.
type fakeDrive struct {
	mu       sync.Mutex
	calls    []string
	uploaded map[string]string
	err      error
}

func (f *fakeDrive) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeDrive) List(_ context.Context, accountID, folderID string) ([]drive.File, error) {
	if err := f.record("list:" + accountID + ":" + folderID); err != nil {
		return nil, err
	}
	return []drive.File{}, nil
}

func (f *fakeDrive) ListAll(_ context.Context, userID string) ([]drive.AccountFiles, error) {
	if err := f.record("listall:" + userID); err != nil {
		return nil, err
	}
	return []drive.AccountFiles{{AccountID: "a", Files: []drive.File{{ID: "f1"}}}}, nil
}

func (f *fakeDrive) Upload(_ context.Context, accountID, name string, content io.Reader, parentID string) (string, error) {
	if err := f.record("upload:" + accountID + ":" + parentID); err != nil {
		return "", err
	}
	body, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploaded == nil {
		f.uploaded = make(map[string]string)
	}
	f.uploaded[name] = string(body)
	return "new-file", nil
}

func (f *fakeDrive) CreateFolder(_ context.Context, accountID, name, parentID string) (drive.File, error) {
	if err := f.record("create:" + accountID + ":" + name + ":" + parentID); err != nil {
		return drive.File{}, err
	}
	return drive.File{ID: "folder-1", Name: name, MimeType: drive.FolderMimeType}, nil
}

func (f *fakeDrive) Delete(_ context.Context, accountID, fileID string) error {
	return f.record("delete:" + accountID + ":" + fileID)
}

func (f *fakeDrive) GetProperties(_ context.Context, accountID, fileID string) (drive.Properties, error) {
	if err := f.record("get:" + accountID + ":" + fileID); err != nil {
		return drive.Properties{}, err
	}
	return drive.Properties{Name: "a.txt", Size: 3, MimeType: "text/plain"}, nil
}

func (f *fakeDrive) DownloadURL(_ context.Context, accountID, fileID string) (string, error) {
	if err := f.record("url:" + accountID + ":" + fileID); err != nil {
		return "", err
	}
	return "https://drive.example/files/" + fileID + "?alt=media&access_token=t", nil
}

func (f *fakeDrive) DownloadStream(_ context.Context, accountID, fileID string) (*drive.Download, error) {
	if err := f.record("stream:" + accountID + ":" + fileID); err != nil {
		return nil, err
	}
	return &drive.Download{Body: io.NopCloser(strings.NewReader("abc")), ContentType: "text/plain", Size: 3}, nil
}

func (f *fakeDrive) GetStorageInfo(_ context.Context, accountID string) (drive.StorageInfo, error) {
	if err := f.record("storage:" + accountID); err != nil {
		return drive.StorageInfo{}, err
	}
	return drive.StorageInfo{Total: 100, Used: 40, Available: 60}, nil
}

func (f *fakeDrive) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeRefresher struct {
	err error
}

func (f fakeRefresher) ForceRefresh(context.Context, string) (token.Credential, error) {
	return token.Credential{AccessToken: "A2", Expiry: time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)}, f.err
}

type testServer struct {
	handler http.Handler
	repo    *db.Repo
	drive   *fakeDrive
	alice   *models.User
	bob     *models.User
	account *models.Account
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb, err := db.OpenInMemory()
	require.NoError(t, err)
	repo := db.NewRepo(gdb)

	ctx := context.Background()
	alice, err := repo.CreateUser(ctx, "alice")
	require.NoError(t, err)
	bob, err := repo.CreateUser(ctx, "bob")
	require.NoError(t, err)
	acc, err := repo.UpsertAccount(ctx, alice.ID, &models.Account{
		Email:        "alice@example.com",
		AccessToken:  "A1",
		RefreshToken: "R1",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	fd := &fakeDrive{}
	consent := google.NewConsent(
		google.NewOAuthConfig(config.GoogleConfig{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/drive/callback"}),
		google.NewStateSigner("secret"), nil, repo, nil)

	return &testServer{
		handler: NewRouter(Deps{
			Users:    repo,
			Consent:  consent,
			Handlers: handlers.New(repo, fd, fakeRefresher{}),
			Metrics:  metrics.New("test"),
		}),
		repo:    repo,
		drive:   fd,
		alice:   alice,
		bob:     bob,
		account: acc,
	}
}

func (s *testServer) do(t *testing.T, method, path, apiKey string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Type
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(t, http.MethodGet, "/metrics", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_RequiresAPIKey(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/accounts", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated_request", errorType(t, rec))

	rec = s.do(t, http.MethodGet, "/api/accounts", "dn-wrong", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set("x-auth", s.alice.APIKey)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_ListAccounts(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/accounts", s.alice.APIKey, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")
	assert.NotContains(t, rec.Body.String(), "R1")

	rec = s.do(t, http.MethodGet, "/api/accounts", s.bob.APIKey, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "alice@example.com")
}

func TestAPI_InvalidAccountID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/accounts/not-an-id/files", s.alice.APIKey, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "invalid_account_id", errorType(t, rec))
	assert.Empty(t, s.drive.callList())
}

func TestAPI_OtherUsersAccountIsNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/accounts/"+s.account.ID+"/files", s.bob.APIKey, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorType(t, rec))
	assert.Empty(t, s.drive.callList())
}

func TestAPI_FileRoutes(t *testing.T) {
	s := newTestServer(t)
	id := s.account.ID
	base := "/api/accounts/" + id

	tests := []struct {
		method string
		path   string
		status int
		call   string
	}{
		{http.MethodGet, base + "/files", http.StatusOK, "list:" + id + ":"},
		{http.MethodGet, base + "/files?folder=f9", http.StatusOK, "list:" + id + ":f9"},
		{http.MethodGet, base + "/files/f1", http.StatusOK, "get:" + id + ":f1"},
		{http.MethodGet, base + "/files/f1/download-url", http.StatusOK, "url:" + id + ":f1"},
		{http.MethodDelete, base + "/files/f1", http.StatusNoContent, "delete:" + id + ":f1"},
		{http.MethodGet, base + "/storage", http.StatusOK, "storage:" + id},
		{http.MethodGet, "/api/files", http.StatusOK, "listall:" + s.alice.ID},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			s.drive.mu.Lock()
			s.drive.calls = nil
			s.drive.mu.Unlock()

			rec := s.do(t, tt.method, tt.path, s.alice.APIKey, nil, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, []string{tt.call}, s.drive.callList())
		})
	}
}

func TestAPI_DownloadContent(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/accounts/"+s.account.ID+"/files/f1/content", s.alice.APIKey, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "3", rec.Header().Get("Content-Length"))
}

func TestAPI_Upload(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "ignored"))
	fw, err := mw.CreateFormFile("file", "hello.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("hello, drive"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := s.do(t, http.MethodPost, "/api/accounts/"+s.account.ID+"/files?parent=folder-1",
		s.alice.APIKey, &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":"new-file","name":"hello.txt"}`, rec.Body.String())
	assert.Equal(t, []string{"upload:" + s.account.ID + ":folder-1"}, s.drive.callList())
	assert.Equal(t, "hello, drive", s.drive.uploaded["hello.txt"])
}

func TestAPI_UploadRejectsBadBodies(t *testing.T) {
	s := newTestServer(t)
	path := "/api/accounts/" + s.account.ID + "/files"

	rec := s.do(t, http.MethodPost, path, s.alice.APIKey, strings.NewReader("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())
	rec = s.do(t, http.MethodPost, path, s.alice.APIKey, &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.drive.callList())
}

func TestAPI_CreateFolder(t *testing.T) {
	s := newTestServer(t)
	path := "/api/accounts/" + s.account.ID + "/folders"

	rec := s.do(t, http.MethodPost, path, s.alice.APIKey, strings.NewReader(`{"name":"Reports"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"folder-1"`)
	assert.Equal(t, []string{"create:" + s.account.ID + ":Reports:"}, s.drive.callList())

	rec = s.do(t, http.MethodPost, path, s.alice.APIKey, strings.NewReader(`{"name":"  "}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ProviderErrorsUseTaxonomy(t *testing.T) {
	tests := []struct {
		err    error
		status int
		typ    string
	}{
		{apperr.New(apperr.ErrProviderRequestFailed, "list", "Error getting files from Google Drive"), http.StatusBadGateway, "provider_request_failed"},
		{apperr.New(apperr.ErrTokenRefreshFailed, "refresh", "Error refreshing token"), http.StatusUnauthorized, "token_refresh_failed"},
		{apperr.New(apperr.ErrTokenPersistFailed, "persist", "Error putting new token into db"), http.StatusInternalServerError, "token_persist_failed"},
		{apperr.New(apperr.ErrNotFound, "list", "File not found"), http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			s := newTestServer(t)
			s.drive.err = tt.err

			rec := s.do(t, http.MethodGet, "/api/accounts/"+s.account.ID+"/files", s.alice.APIKey, nil, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.typ, errorType(t, rec))
		})
	}
}

func TestAPI_RefreshAndDeleteAccount(t *testing.T) {
	s := newTestServer(t)
	base := "/api/accounts/" + s.account.ID

	rec := s.do(t, http.MethodPost, base+"/refresh", s.alice.APIKey, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = s.do(t, http.MethodDelete, base, s.bob.APIKey, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, base, s.alice.APIKey, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	accounts, err := s.repo.ListAccounts(context.Background(), s.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestDriveAuthorize(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/drive/authorize", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/drive/authorize", s.alice.APIKey, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "access_type=offline")

	rec = s.do(t, http.MethodGet, "/drive/callback?code=x&state=forged", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
