package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"groovebox/config"
	"groovebox/core/ingest"
	"groovebox/model"
	"groovebox/repository"
	"groovebox/server"
)

// fakeProcessor implements audio.Processor without shelling out to ffprobe.
type fakeProcessor struct {
	duration float32
}

func (p *fakeProcessor) GetAudioDuration(inputFile string) (float32, error) {
	if _, err := os.Stat(inputFile); err != nil {
		return 0, err
	}
	return p.duration, nil
}

type testEnv struct {
	router *mux.Router
	cfg    *config.Config
	repo   repository.SongRepository
}

// newTestEnv builds an APIHandler over a temp directory tree with the routes
// the server registers. seedCatalog is written as songs.json when non-empty.
func newTestEnv(t *testing.T, seedCatalog string) *testEnv {
	t.Helper()
	root := t.TempDir()

	cfg := &config.Config{
		DataDir:        root,
		CatalogPath:    filepath.Join(root, "songs.json"),
		AudioUploadDir: filepath.Join(root, "audio"),
		CoverUploadDir: filepath.Join(root, "covers"),
		StagingDir:     filepath.Join(root, "tmp"),
	}
	for _, dir := range []string{cfg.AudioUploadDir, cfg.CoverUploadDir, cfg.StagingDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("creating %s: %s", dir, err)
		}
	}
	if seedCatalog != "" {
		if err := os.WriteFile(cfg.CatalogPath, []byte(seedCatalog), 0644); err != nil {
			t.Fatalf("seeding catalog: %s", err)
		}
	}

	repo := repository.NewJSONSongRepository(cfg.CatalogPath, nil)
	ingestor := ingest.NewIngestor(repo, &fakeProcessor{duration: 215}, cfg.AudioUploadDir, cfg.CoverUploadDir, cfg.StagingDir)
	handler := server.NewAPIHandler(repo, ingestor, cfg)

	router := mux.NewRouter()
	router.HandleFunc("/api/health", handler.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs", handler.GetSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/upload", handler.UploadSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/youtube", handler.ImportYouTubeHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/{id}", handler.GetSongHandler).Methods(http.MethodGet)

	return &testEnv{router: router, cfg: cfg, repo: repo}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

// multipartBody builds a multipart form with string fields and file parts.
func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("writing field %s: %s", name, err)
		}
	}
	for name, contents := range files {
		part, err := writer.CreateFormFile(name, name+".bin")
		if err != nil {
			t.Fatalf("creating file part %s: %s", name, err)
		}
		if _, err := io.Copy(part, strings.NewReader(contents)); err != nil {
			t.Fatalf("writing file part %s: %s", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %s", err)
	}
	return body, writer.FormDataContentType()
}

const seededCatalog = `[
  {"id":1,"title":"One","artist":"A","length":10,"file":"A - One.mp3","cover":"A - One.jpg"},
  {"id":2,"title":"Two","artist":"B","length":20,"file":"B - Two.mp3","cover":"B - Two.jpg"}
]`

func TestGetSongsHandler(t *testing.T) {
	env := newTestEnv(t, seededCatalog)

	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/songs", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.Code)
	}

	var songs []model.Song
	if err := json.Unmarshal(resp.Body.Bytes(), &songs); err != nil {
		t.Fatalf("decoding body: %s", err)
	}
	if len(songs) != 2 || songs[0].Title != "One" || songs[1].Title != "Two" {
		t.Errorf("unexpected catalog %+v", songs)
	}
}

func TestGetSongsHandlerStoreFailure(t *testing.T) {
	env := newTestEnv(t, "") // no catalog document on disk

	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/songs", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "error") {
		t.Errorf("expected a JSON error body, got %q", resp.Body.String())
	}
}

func TestGetSongHandler(t *testing.T) {
	env := newTestEnv(t, seededCatalog)

	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/songs/2", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.Code)
	}

	var song model.Song
	if err := json.Unmarshal(resp.Body.Bytes(), &song); err != nil {
		t.Fatalf("decoding body: %s", err)
	}
	if song.ID != 2 || song.Title != "Two" {
		t.Errorf("unexpected song %+v", song)
	}
}

func TestGetSongHandlerNotFound(t *testing.T) {
	env := newTestEnv(t, seededCatalog)

	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/songs/99", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.Code)
	}
	if strings.Contains(resp.Body.String(), `"title"`) {
		t.Errorf("404 body leaked record data: %q", resp.Body.String())
	}
}

func TestGetSongHandlerBadID(t *testing.T) {
	env := newTestEnv(t, seededCatalog)

	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/songs/abc", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.Code)
	}
}

func TestUploadHandlerMissingArtist(t *testing.T) {
	env := newTestEnv(t, "[]")

	body, contentType := multipartBody(t, map[string]string{"title": "Only Title"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/songs/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp := env.do(t, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.Code)
	}

	songs, err := env.repo.GetAllSongs()
	if err != nil {
		t.Fatalf("reading catalog: %s", err)
	}
	if len(songs) != 0 {
		t.Errorf("catalog holds %d records after rejected upload, want 0", len(songs))
	}
}

func TestUploadHandlerRoundTrip(t *testing.T) {
	env := newTestEnv(t, "[]")

	body, contentType := multipartBody(t,
		map[string]string{"title": "Låt", "artist": "Ä/rtist!"},
		map[string]string{"file": "mp3-bytes"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/songs/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp := env.do(t, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d, want 200; body: %s", resp.Code, resp.Body.String())
	}

	var uploaded model.UploadResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decoding body: %s", err)
	}
	if !uploaded.Success || uploaded.Song == nil {
		t.Fatalf("unexpected upload response %+v", uploaded)
	}
	if uploaded.Song.File != "Ärtist - Låt.mp3" {
		t.Errorf("audio asset name %q, want sanitized base name", uploaded.Song.File)
	}

	// The created record must come back identical from both read endpoints.
	listResp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/songs", nil))
	var songs []model.Song
	if err := json.Unmarshal(listResp.Body.Bytes(), &songs); err != nil {
		t.Fatalf("decoding list body: %s", err)
	}
	if len(songs) != 1 || songs[0] != *uploaded.Song {
		t.Errorf("list returned %+v, want exactly %+v", songs, *uploaded.Song)
	}

	getResp := env.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/songs/%d", uploaded.Song.ID), nil))
	var got model.Song
	if err := json.Unmarshal(getResp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding get body: %s", err)
	}
	if got != *uploaded.Song {
		t.Errorf("get returned %+v, want %+v", got, *uploaded.Song)
	}
}

func TestImportYouTubeHandlerAlways501(t *testing.T) {
	env := newTestEnv(t, "[]")

	bodies := []string{
		`{"youtubeUrl":"https://youtube.example/watch?v=abc"}`,
		`not json at all`,
		``,
	}
	for _, b := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/api/songs/youtube", strings.NewReader(b))
		req.Header.Set("Content-Type", "application/json")

		resp := env.do(t, req)
		if resp.Code != http.StatusNotImplemented {
			t.Fatalf("body %q: status %d, want 501", b, resp.Code)
		}

		var payload map[string]string
		if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
			t.Fatalf("body %q: decoding response: %s", b, err)
		}
		if payload["error"] == "" || payload["message"] == "" {
			t.Errorf("body %q: response %+v missing error/message", b, payload)
		}
	}

	songs, err := env.repo.GetAllSongs()
	if err != nil {
		t.Fatalf("reading catalog: %s", err)
	}
	if len(songs) != 0 {
		t.Errorf("catalog holds %d records, want 0", len(songs))
	}
	for _, dir := range []string{env.cfg.AudioUploadDir, env.cfg.CoverUploadDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("reading %s: %s", dir, err)
		}
		if len(entries) != 0 {
			t.Errorf("%s holds %d files, want none", dir, len(entries))
		}
	}
}

func TestHealthHandler(t *testing.T) {
	t.Run("catalog present and valid", func(t *testing.T) {
		env := newTestEnv(t, "[]")

		resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("status %d, want 200", resp.Code)
		}
		var health model.HealthResponse
		if err := json.Unmarshal(resp.Body.Bytes(), &health); err != nil {
			t.Fatalf("decoding body: %s", err)
		}
		if health.Status != "OK" || health.Database != "connected" {
			t.Errorf("unexpected health %+v", health)
		}
		if health.Timestamp == "" {
			t.Error("health response missing timestamp")
		}
	})

	t.Run("catalog missing", func(t *testing.T) {
		env := newTestEnv(t, "")

		resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		if resp.Code != http.StatusServiceUnavailable {
			t.Fatalf("status %d, want 503", resp.Code)
		}
		var health model.HealthResponse
		if err := json.Unmarshal(resp.Body.Bytes(), &health); err != nil {
			t.Fatalf("decoding body: %s", err)
		}
		if health.Database != "disconnected" {
			t.Errorf("database %q, want disconnected", health.Database)
		}
	})

	t.Run("catalog unparseable", func(t *testing.T) {
		env := newTestEnv(t, "{broken")

		resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		if resp.Code != http.StatusServiceUnavailable {
			t.Fatalf("status %d, want 503", resp.Code)
		}
		var health model.HealthResponse
		if err := json.Unmarshal(resp.Body.Bytes(), &health); err != nil {
			t.Fatalf("decoding body: %s", err)
		}
		if health.Database != "error" {
			t.Errorf("database %q, want error", health.Database)
		}
		if health.Message == "" {
			t.Error("health failure carries no message")
		}
	})
}
