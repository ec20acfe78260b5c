package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"groovebox/logger"
	"groovebox/model"
)

// SongRepository defines the interface for catalog data operations.
type SongRepository interface {
	GetAllSongs() ([]model.Song, error)
	GetSongByID(id int64) (*model.Song, error)
	NextSongID(songs []model.Song) int64
	CreateSong(song *model.Song) error
}

// jsonSongRepository implements SongRepository on top of a single JSON
// document holding the full ordered song list. Every read loads the whole
// document and every append rewrites it; fine at catalog sizes of a few
// thousand records.
//
// The read-modify-write in CreateSong is serialized with a mutex, so
// concurrent uploads within one process cannot lose records. The document is
// NOT safe against concurrent writers from other processes; run a single
// server instance per catalog file.
type jsonSongRepository struct {
	path    string
	mu      sync.Mutex
	watcher *CatalogWatcher
}

// NewJSONSongRepository creates a SongRepository backed by the JSON catalog
// document at path. The file is not created if missing; reads report the
// failure instead, which the health endpoint surfaces as "disconnected".
// The watcher may be nil; when set, the repository's own writes are excluded
// from its foreign-modification warnings.
func NewJSONSongRepository(path string, watcher *CatalogWatcher) SongRepository {
	return &jsonSongRepository{path: path, watcher: watcher}
}

// readCatalog loads and decodes the whole catalog document.
func (r *jsonSongRepository) readCatalog() ([]model.Song, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog document %s: %w", r.path, err)
	}

	var songs []model.Song
	if err := json.Unmarshal(data, &songs); err != nil {
		return nil, fmt.Errorf("failed to parse catalog document %s: %w", r.path, err)
	}
	return songs, nil
}

// writeCatalog encodes and rewrites the whole catalog document.
func (r *jsonSongRepository) writeCatalog(songs []model.Song) error {
	data, err := json.MarshalIndent(songs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog document: %w", err)
	}
	if r.watcher != nil {
		r.watcher.MarkSelfWrite()
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog document %s: %w", r.path, err)
	}
	return nil
}

// GetAllSongs returns the full song list in catalog order.
func (r *jsonSongRepository) GetAllSongs() ([]model.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readCatalog()
}

// GetSongByID returns the song with the given id, or (nil, nil) when no
// record has that id.
func (r *jsonSongRepository) GetSongByID(id int64) (*model.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	songs, err := r.readCatalog()
	if err != nil {
		return nil, err
	}
	for i := range songs {
		if songs[i].ID == id {
			return &songs[i], nil
		}
	}
	return nil, nil // Song not found
}

// NextSongID computes the id a new record should get: 1 for an empty catalog,
// otherwise one above the highest id present.
func (r *jsonSongRepository) NextSongID(songs []model.Song) int64 {
	var max int64
	for _, s := range songs {
		if s.ID > max {
			max = s.ID
		}
	}
	return max + 1
}

// CreateSong appends a new record to the catalog document. When the record's
// ID is zero it is assigned here, inside the same critical section as the
// read and the write-back.
func (r *jsonSongRepository) CreateSong(song *model.Song) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	songs, err := r.readCatalog()
	if err != nil {
		return err
	}

	if song.ID == 0 {
		song.ID = r.NextSongID(songs)
	}

	songs = append(songs, *song)
	if err := r.writeCatalog(songs); err != nil {
		return err
	}

	logger.Info("Song appended to catalog",
		logger.Int64("songId", song.ID),
		logger.String("title", song.Title),
		logger.String("artist", song.Artist))
	return nil
}
