package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"groovebox/config"
	"groovebox/core/ingest"
	"groovebox/logger"
	"groovebox/model"
	"groovebox/repository"

	"github.com/gorilla/mux"
)

// maxUploadSize bounds the multipart form memory for one upload request.
const maxUploadSize = 100 << 20 // 100 MB

// APIHandler handles all API requests.
type APIHandler struct {
	songRepo repository.SongRepository
	ingestor *ingest.Ingestor
	cfg      *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(songRepo repository.SongRepository, ingestor *ingest.Ingestor, cfg *config.Config) *APIHandler {
	return &APIHandler{
		songRepo: songRepo,
		ingestor: ingestor,
		cfg:      cfg,
	}
}

// writeJSON writes v as a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode JSON response", logger.ErrorField(err))
	}
}

// writeJSONError writes a JSON error body with the given status.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// GetSongsHandler returns the full catalog as a JSON array.
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songRepo.GetAllSongs()
	if err != nil {
		logger.Error("Failed to load catalog", logger.ErrorField(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to read song catalog")
		return
	}
	if songs == nil {
		songs = []model.Song{}
	}
	writeJSON(w, http.StatusOK, songs)
}

// GetSongHandler returns one song by its id.
func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Song id must be an integer")
		return
	}

	song, err := h.songRepo.GetSongByID(id)
	if err != nil {
		logger.Error("Failed to load catalog", logger.Int64("songId", id), logger.ErrorField(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to read song catalog")
		return
	}
	if song == nil {
		writeJSONError(w, http.StatusNotFound, "Song not found")
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// UploadSongHandler handles a multipart upload and creates a catalog record.
// Expected multipart form fields:
// - title: song title (required)
// - artist: song artist (required)
// - thumbnail_url: remote cover image URL (optional)
// - file: the audio file (optional)
// - cover: cover art image (optional)
func (h *APIHandler) UploadSongHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		logger.Warn("Failed to parse upload form", logger.ErrorField(err))
		writeJSONError(w, http.StatusBadRequest, "Failed to parse upload form")
		return
	}

	up := ingest.Upload{
		Title:        r.FormValue("title"),
		Artist:       r.FormValue("artist"),
		ThumbnailURL: r.FormValue("thumbnail_url"),
	}

	audioFile, _, err := r.FormFile("file")
	if err == nil {
		defer audioFile.Close()
		up.Audio = audioFile
	} else if err != http.ErrMissingFile {
		writeJSONError(w, http.StatusBadRequest, "Failed to process uploaded audio file")
		return
	}

	coverFile, _, err := r.FormFile("cover")
	if err == nil {
		defer coverFile.Close()
		up.Cover = coverFile
	} else if err != http.ErrMissingFile {
		writeJSONError(w, http.StatusBadRequest, "Failed to process uploaded cover file")
		return
	}

	song, err := h.ingestor.Ingest(up)
	if err != nil {
		h.writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.UploadResponse{Success: true, Song: song})
}

// writeIngestError maps a pipeline failure to its status code and message.
func (h *APIHandler) writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrMissingFields):
		logger.Warn("Rejected upload with missing fields", logger.ErrorField(err))
		writeJSONError(w, http.StatusBadRequest, "Missing 'title' or 'artist' in form")
	case errors.Is(err, ingest.ErrRemoteFetch):
		logger.Error("Thumbnail fetch failed", logger.ErrorField(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch thumbnail from URL")
	case errors.Is(err, ingest.ErrMetadataExtraction):
		logger.Error("Duration extraction failed", logger.ErrorField(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to read audio duration")
	default:
		logger.Error("Upload failed", logger.ErrorField(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to save song")
	}
}

// ImportYouTubeHandler is the permanently disabled YouTube import endpoint.
// It accepts any body and always answers 501.
func (h *APIHandler) ImportYouTubeHandler(w http.ResponseWriter, r *http.Request) {
	var req model.YouTubeImportRequest
	// The body is decoded only for the log line; the outcome never depends on it.
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err == nil && req.YouTubeURL != "" {
		logger.Info("Rejected YouTube import request", logger.String("youtubeUrl", req.YouTubeURL))
	}

	_, err := h.ingestor.ImportFromYouTube(req.YouTubeURL)
	writeJSON(w, http.StatusNotImplemented, map[string]string{
		"error":   "Not implemented",
		"message": err.Error() + "; upload an audio file via /api/songs/upload instead",
	})
}
