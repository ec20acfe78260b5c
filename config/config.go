package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Most values have simple defaults suitable for running from the repo root.
type Config struct {
	ServerAddr     string
	FFmpegPath     string
	DataDir        string // Base directory for the catalog document
	CatalogPath    string // Path to the songs.json catalog document: DataDir/songs.json
	UploadDir      string // Base directory for all uploaded assets
	AudioUploadDir string // Subdirectory for audio files: UploadDir/audio
	CoverUploadDir string // Subdirectory for cover art: UploadDir/covers
	StagingDir     string // Subdirectory for in-flight uploads: UploadDir/tmp
	WebAppDir      string // Path to the web player's UI files
	// Logging
	LogLevel   string
	LogPath    string
	LogMaxSize int // megabytes before rotation
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	dataDir := getEnv("DATA_DIR", "data")
	uploadBase := getEnv("UPLOAD_DIR", "uploads")

	return &Config{
		ServerAddr:     getEnv("SERVER_ADDR", ":3001"),
		FFmpegPath:     getEnv("FFMPEG_PATH", "ffmpeg"),
		DataDir:        dataDir,
		CatalogPath:    filepath.Join(dataDir, "songs.json"),
		UploadDir:      uploadBase,
		AudioUploadDir: filepath.Join(uploadBase, "audio"),
		CoverUploadDir: filepath.Join(uploadBase, "covers"),
		StagingDir:     filepath.Join(uploadBase, "tmp"),
		WebAppDir:      getEnv("WEB_APP_DIR", filepath.Join("web", "ui")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPath:        getEnv("LOG_PATH", ""),
		LogMaxSize:     getEnvInt("LOG_MAX_SIZE", 100),
	}
}
