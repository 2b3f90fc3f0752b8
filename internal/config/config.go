// Package config loads service settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults applied when an environment variable is unset
const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 8000
	DefaultStorageDir       = "./storage"
	DefaultMaxFileSize      = 1048576 // 1 MiB
	DefaultChunkSize        = 1000
	DefaultChunkOverlap     = 200
	DefaultTopKResults      = 5
	DefaultMaxContextLength = 4000
	DefaultCacheCapacity    = 100
	DefaultHistoryWindow    = 5
	DefaultGeminiModel      = "gemini-1.5-flash"
)

// Settings holds the resolved service configuration
type Settings struct {
	// HTTP server
	Host string
	Port int

	// Index storage
	StorageDir  string
	MaxFileSize int64

	// Retrieval tuning
	ChunkSize        int
	ChunkOverlap     int
	TopKResults      int
	MaxContextLength int

	// Query core
	CacheCapacity int
	HistoryWindow int

	// Generator selection. Empty means auto-detect from the
	// provider-specific variables below.
	Generator      string
	LlamaServerURL string
	GeminiAPIKey   string
	GeminiModel    string

	// GithubToken is injected into clone URLs for private repositories
	GithubToken string
}

// Load reads settings from the environment. When envFile is non-empty it is
// loaded first; otherwise a .env in the working directory is tried. A missing
// file is not an error.
func Load(envFile string) *Settings {
	var err error
	if envFile != "" {
		err = godotenv.Load(envFile)
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Settings{
		Host:             getEnv("REPOQA_HOST", DefaultHost),
		Port:             getEnvInt("REPOQA_PORT", DefaultPort),
		StorageDir:       getEnv("REPOQA_STORAGE_DIR", DefaultStorageDir),
		MaxFileSize:      getEnvInt64("REPOQA_MAX_FILE_SIZE", DefaultMaxFileSize),
		ChunkSize:        getEnvInt("REPOQA_CHUNK_SIZE", DefaultChunkSize),
		ChunkOverlap:     getEnvInt("REPOQA_CHUNK_OVERLAP", DefaultChunkOverlap),
		TopKResults:      getEnvInt("REPOQA_TOP_K", DefaultTopKResults),
		MaxContextLength: getEnvInt("REPOQA_MAX_CONTEXT_LENGTH", DefaultMaxContextLength),
		CacheCapacity:    getEnvInt("REPOQA_CACHE_CAPACITY", DefaultCacheCapacity),
		HistoryWindow:    getEnvInt("REPOQA_HISTORY_WINDOW", DefaultHistoryWindow),
		Generator:        getEnv("REPOQA_GENERATOR", ""),
		LlamaServerURL:   getEnv("LLAMA_SERVER_URL", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", DefaultGeminiModel),
		GithubToken:      getEnv("GITHUB_TOKEN", ""),
	}
}

// Addr returns the host:port pair the HTTP server binds to
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, fallback)
		return fallback
	}
	return n
}
