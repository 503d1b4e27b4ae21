package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/video2podcast/internal/types"
)

func TestSaveArtifacts(t *testing.T) {
	dir := t.TempDir()
	ls := NewLocalStorage(dir)
	ls.now = func() time.Time { return time.Date(2025, 1, 23, 14, 30, 22, 0, time.UTC) }

	result := &types.PipelineResult{JobID: "job-1", Language: "spanish", WordCount: 3}
	err := ls.SaveArtifacts("Leadership: Talk?", map[string]string{
		types.ArtifactTranscript: "hello there world",
		types.ArtifactDialogue:   "Alex (curious): hi",
		types.ArtifactTranslated: "   ",
	}, result)
	require.NoError(t, err)

	dateDir := filepath.Join(dir, "2025", "01", "23")
	assert.Equal(t, filepath.Join(dateDir, "20250123_143022_Leadership__Talk__transcript.txt"), result.Artifacts[types.ArtifactTranscript])
	assert.Equal(t, filepath.Join(dateDir, "20250123_143022_Leadership__Talk__dialogue.txt"), result.Artifacts[types.ArtifactDialogue])
	assert.NotContains(t, result.Artifacts, types.ArtifactTranslated)

	b, err := os.ReadFile(result.Artifacts[types.ArtifactDialogue])
	require.NoError(t, err)
	assert.Equal(t, "Alex (curious): hi", string(b))

	var meta map[string]any
	b, err = os.ReadFile(result.Artifacts[types.ArtifactMeta])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &meta))
	assert.Equal(t, "job-1", meta["job_id"])
	assert.Equal(t, "spanish", meta["language"])
}

func TestUpdateMeta(t *testing.T) {
	ls := NewLocalStorage(t.TempDir())
	result := &types.PipelineResult{JobID: "job-2"}
	require.NoError(t, ls.SaveArtifacts("talk", map[string]string{types.ArtifactTranscript: "words"}, result))

	result.GDriveURL = "https://drive.google.com/drive/folders/abc"
	result.Warnings = append(result.Warnings, "late warning")
	require.NoError(t, ls.UpdateMeta("talk", result))

	var meta map[string]any
	b, err := os.ReadFile(result.Artifacts[types.ArtifactMeta])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &meta))
	assert.Equal(t, "https://drive.google.com/drive/folders/abc", meta["gdrive_url"])
	assert.Equal(t, []any{"late warning"}, meta["warnings"])
	assert.NotContains(t, meta["artifacts"], types.ArtifactMeta)

	assert.Error(t, ls.UpdateMeta("talk", &types.PipelineResult{JobID: "never-saved"}))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitizeFilename("a/b\\c"))
	assert.Equal(t, "my_episode", sanitizeFilename(" my episode "))
	assert.Equal(t, "episode", sanitizeFilename(""))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("é", 150))), 100)
}

func TestReadWriteText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.txt")
	require.NoError(t, WriteText(path, "line1\nline2"))
	got, err := ReadText(path)
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", got)

	_, err = ReadText(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func openTestDB(t *testing.T, path string) *MetadataDB {
	t.Helper()
	db, err := NewMetadataDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMetadataDB_SaveAndGet(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "db", "jobs.db"))

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := types.JobRecord{
		ID: "j1", RequestName: "talk", SourceType: types.SourceYouTube,
		Source: "https://youtu.be/SA7bKo4HRTg", TargetLang: "german", Backend: "gemini",
		Status: types.StatusQueued, CreatedAt: created,
	}
	require.NoError(t, db.SaveJob(rec))

	rec.Status = types.StatusCompleted
	rec.Result = &types.PipelineResult{JobID: "j1", WordCount: 42, Artifacts: map[string]string{"dialogue": "/tmp/d.txt"}}
	require.NoError(t, db.SaveJob(rec))

	got, err := db.GetJob("j1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, "german", got.TargetLang)
	assert.True(t, created.Equal(got.CreatedAt))
	require.NotNil(t, got.Result)
	assert.Equal(t, 42, got.Result.WordCount)
	assert.Equal(t, "/tmp/d.txt", got.Result.Artifacts["dialogue"])

	_, err = db.GetJob("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMetadataDB_ListAndInterrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	db := openTestDB(t, path)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	statuses := []string{types.StatusCompleted, types.StatusProcessing, types.StatusQueued, types.StatusFailed}
	for i, st := range statuses {
		require.NoError(t, db.SaveJob(types.JobRecord{
			ID: fmt.Sprintf("j%d", i), RequestName: "r", SourceType: types.SourceUpload,
			Status: st, CreatedAt: base.Add(time.Duration(i) * time.Millisecond * 1500),
		}))
	}

	jobs, err := db.ListJobs(3)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "j3", jobs[0].ID)
	assert.Equal(t, "j1", jobs[2].ID)

	n, err := db.MarkInterrupted()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := db.GetJob("j1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, got.Status)
	assert.Equal(t, InterruptedMessage, got.Error)

	// reopening applies no migrations and keeps the data
	require.NoError(t, db.Close())
	db2 := openTestDB(t, path)
	jobs, err = db2.ListJobs(0)
	require.NoError(t, err)
	assert.Len(t, jobs, 4)
}

// fakeDrive serves the subset of the Drive v3 API the client touches.
type fakeDrive struct {
	mu       sync.Mutex
	folders  []string
	uploaded []string
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/drive/v3/files":
		fmt.Fprint(w, `{"files":[]}`)
	case r.Method == http.MethodPost && r.URL.Path == "/drive/v3/files":
		var file drive.File
		if err := json.NewDecoder(r.Body).Decode(&file); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.folders = append(f.folders, file.Name)
		fmt.Fprintf(w, `{"id":"folder-%d"}`, len(f.folders))
	case r.Method == http.MethodPost && r.URL.Path == "/upload/drive/v3/files":
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		part, err := multipart.NewReader(r.Body, params["boundary"]).NextPart()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var file drive.File
		if err := json.NewDecoder(part).Decode(&file); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.uploaded = append(f.uploaded, file.Name)
		fmt.Fprintf(w, `{"id":"file-%d"}`, len(f.uploaded))
	default:
		http.NotFound(w, r)
	}
}

func TestDriveClient_UploadArtifacts(t *testing.T) {
	fake := &fakeDrive{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/drive/v3/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	dc, err := newDriveClient(context.Background(), svc, "Podcasts")
	require.NoError(t, err)
	assert.Equal(t, "folder-1", dc.folderID)

	dir := t.TempDir()
	ls := NewLocalStorage(dir)
	result := &types.PipelineResult{JobID: "j"}
	require.NoError(t, ls.SaveArtifacts("ep", map[string]string{
		types.ArtifactTranscript: "t",
		types.ArtifactDialogue:   "d",
	}, result))

	link, err := dc.UploadArtifacts(context.Background(), "ep", result)
	require.NoError(t, err)

	// root + year/month/day
	assert.Len(t, fake.folders, 4)
	assert.Len(t, fake.uploaded, 3)
	// kinds are uploaded in sorted order: dialogue, meta, transcript
	assert.Equal(t, "https://drive.google.com/file/d/file-1/view", link)
}

func TestNewDriveClient_MissingToken(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(creds, []byte(`{"installed":{"client_id":"id","client_secret":"s","redirect_uris":["urn:ietf:wg:oauth:2.0:oob"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`), 0o600))

	_, err := NewDriveClient(context.Background(), creds, filepath.Join(dir, "token.json"), "Podcasts")
	assert.ErrorIs(t, err, ErrNoDriveToken)
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `it\'s`, escapeQuery("it's"))
}
