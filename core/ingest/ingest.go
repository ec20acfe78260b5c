package ingest

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"groovebox/core/artwork"
	"groovebox/core/audio"
	"groovebox/logger"
	"groovebox/model"
	"groovebox/repository"

	"github.com/google/uuid"
)

// Sentinel errors for the failure kinds a caller must tell apart.
var (
	// ErrMissingFields is returned when title or artist is absent.
	ErrMissingFields = errors.New("title and artist are required")
	// ErrRemoteFetch is returned when a thumbnail URL could not be retrieved.
	ErrRemoteFetch = errors.New("failed to fetch remote thumbnail")
	// ErrMetadataExtraction is returned when the audio duration could not be read.
	ErrMetadataExtraction = errors.New("failed to extract audio duration")
	// ErrYouTubeImportDisabled is the fixed outcome of the disabled YouTube import.
	ErrYouTubeImportDisabled = errors.New("YouTube import is not available")
)

// Upload carries the parsed contents of one upload request.
type Upload struct {
	Title        string
	Artist       string
	ThumbnailURL string    // optional remote cover image URL
	Audio        io.Reader // optional audio payload; nil when absent
	Cover        io.Reader // optional cover payload; nil when absent
}

// Ingestor turns an Upload into one durable audio file, one durable cover
// image and one new catalog record.
//
// Asset filenames are derived from artist and title, so two uploads with the
// same pair overwrite each other's files while both records stay in the
// catalog, pointing at the shared names. That matches how the catalog has
// always behaved and the player depends on the human-readable names; it is
// documented here rather than changed.
type Ingestor struct {
	repo       repository.SongRepository
	processor  audio.Processor
	audioDir   string
	coverDir   string
	stagingDir string
	client     *http.Client
}

// NewIngestor creates an Ingestor writing assets below audioDir and coverDir,
// staging in-flight payloads in stagingDir.
func NewIngestor(repo repository.SongRepository, processor audio.Processor, audioDir, coverDir, stagingDir string) *Ingestor {
	return &Ingestor{
		repo:       repo,
		processor:  processor,
		audioDir:   audioDir,
		coverDir:   coverDir,
		stagingDir: stagingDir,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

var (
	// Keeps ASCII letters and digits, common accented vowels (incl. the
	// Scandinavian set), space, underscore and hyphen. Everything else is
	// dropped.
	disallowedChars = regexp.MustCompile(`[^A-Za-z0-9 _\-àáäâèéëêìíïîòóöôùúüûåæøÀÁÄÂÈÉËÊÌÍÏÎÒÓÖÔÙÚÜÛÅÆØ]+`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// sanitizeName strips characters unsafe for filenames, collapses whitespace
// runs to single spaces and trims the result.
func sanitizeName(s string) string {
	s = disallowedChars.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// BaseName computes the shared asset base name "<artist> - <title>" from the
// sanitized artist and title.
func BaseName(artist, title string) string {
	return sanitizeName(artist) + " - " + sanitizeName(title)
}

// Ingest runs the upload pipeline and returns the created catalog record.
//
// Asset files written by earlier steps are not removed when a later step
// fails; a failed request can leave an audio or cover file behind with no
// catalog record pointing at it.
func (i *Ingestor) Ingest(up Upload) (*model.Song, error) {
	if strings.TrimSpace(up.Title) == "" || strings.TrimSpace(up.Artist) == "" {
		return nil, ErrMissingFields
	}

	base := BaseName(up.Artist, up.Title)
	audioName := base + ".mp3"
	coverName := base + ".jpg"
	audioPath := filepath.Join(i.audioDir, audioName)
	coverPath := filepath.Join(i.coverDir, coverName)

	logger.Info("Ingesting upload",
		logger.String("title", up.Title),
		logger.String("artist", up.Artist),
		logger.String("baseName", base),
		logger.Bool("hasAudio", up.Audio != nil),
		logger.Bool("hasCover", up.Cover != nil),
		logger.String("thumbnailUrl", up.ThumbnailURL))

	// A remote thumbnail always wins over an uploaded cover file.
	if up.ThumbnailURL != "" {
		if err := i.fetchThumbnail(up.ThumbnailURL, coverPath); err != nil {
			return nil, err
		}
		if up.Cover != nil {
			logger.Warn("Both thumbnail URL and cover file supplied; ignoring the uploaded cover",
				logger.String("baseName", base))
		}
	}

	if up.Audio != nil {
		if err := i.materialize(up.Audio, audioPath); err != nil {
			return nil, fmt.Errorf("failed to store audio file: %w", err)
		}
	}

	if up.Cover != nil && up.ThumbnailURL == "" {
		if err := i.materialize(up.Cover, coverPath); err != nil {
			return nil, fmt.Errorf("failed to store cover file: %w", err)
		}
	}

	// No cover from anywhere yet: try the picture embedded in the audio
	// file's own tags. Best-effort, a miss leaves no cover file.
	if up.ThumbnailURL == "" && up.Cover == nil && up.Audio != nil {
		written, err := artwork.ExtractEmbedded(audioPath, coverPath)
		if err != nil {
			logger.Debug("No embedded artwork extracted", logger.ErrorField(err))
		} else if written {
			logger.Info("Extracted embedded artwork", logger.String("cover", coverName))
		}
	}

	// Duration is read from the materialized path even when no audio payload
	// arrived: an earlier upload may have left a file under the same name,
	// and when none did the extraction fails and so does the request.
	seconds, err := i.processor.GetAudioDuration(audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataExtraction, err)
	}
	length := int(math.Round(float64(seconds)))
	if length < 0 {
		length = 0
	}

	song := &model.Song{
		Title:  up.Title,
		Artist: up.Artist,
		Length: length,
		File:   audioName,
		Cover:  coverName,
	}
	// The repository assigns the next id inside the same critical section as
	// the append, so concurrent uploads cannot claim the same id.
	if err := i.repo.CreateSong(song); err != nil {
		return nil, fmt.Errorf("failed to append song to catalog: %w", err)
	}

	return song, nil
}

// fetchThumbnail downloads the image at rawURL and writes it to dest,
// overwriting any existing file.
func (i *Ingestor) fetchThumbnail(rawURL, dest string) error {
	resp, err := i.client.Get(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status %s from %s", ErrRemoteFetch, resp.Status, rawURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response body: %v", ErrRemoteFetch, err)
	}

	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("failed to write thumbnail to %s: %w", dest, err)
	}

	logger.Info("Fetched remote thumbnail",
		logger.String("url", rawURL),
		logger.String("dest", dest),
		logger.Int("bytes", len(data)))
	return nil
}

// materialize stages the payload to a uniquely named temp file and renames it
// into place, overwriting any existing file at dest.
func (i *Ingestor) materialize(payload io.Reader, dest string) error {
	staged := filepath.Join(i.stagingDir, uuid.New().String()+".part")

	f, err := os.Create(staged)
	if err != nil {
		return fmt.Errorf("failed to create staging file %s: %w", staged, err)
	}
	if _, err := io.Copy(f, payload); err != nil {
		f.Close()
		os.Remove(staged)
		return fmt.Errorf("failed to write staging file %s: %w", staged, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(staged)
		return fmt.Errorf("failed to close staging file %s: %w", staged, err)
	}

	if err := os.Rename(staged, dest); err != nil {
		os.Remove(staged)
		return fmt.Errorf("failed to move staged file into place at %s: %w", dest, err)
	}
	return nil
}

// ImportFromYouTube is the permanently disabled remote video import. It does
// no processing and always reports ErrYouTubeImportDisabled.
func (i *Ingestor) ImportFromYouTube(youtubeURL string) (*model.Song, error) {
	return nil, ErrYouTubeImportDisabled
}
