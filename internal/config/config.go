package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/Oxyrus/photoshelf/internal/files"
	"github.com/Oxyrus/photoshelf/internal/logging"
	"github.com/Oxyrus/photoshelf/internal/storage"
)

const (
	DefaultDataDir           = "data"
	DefaultDBFileName        = "photoshelf.db"
	DefaultResourcesDirName  = "resources"
	DefaultConfigFileName    = "photoshelf.toml"
	DefaultSlideshowInterval = 3 * time.Second
)

// Config holds the runtime settings for photoshelf.
type Config struct {
	DataDir           string
	DBPath            string
	ResourcesDir      string
	DownloadDir       string
	LogLevel          slog.Level
	SlideshowInterval time.Duration
	DeletePolicy      storage.DeletePolicy
	DownloadCollision files.Collision
	DefaultCategories []string
	// ConfigFile is the TOML file that was read, empty when none existed.
	ConfigFile string
}

type fileConfig struct {
	DataDir           string   `toml:"data_dir"`
	DBPath            string   `toml:"db_path"`
	ResourcesDir      string   `toml:"resources_dir"`
	DownloadDir       string   `toml:"download_dir"`
	LogLevel          string   `toml:"log_level"`
	SlideshowInterval string   `toml:"slideshow_interval"`
	DeletePolicy      string   `toml:"delete_policy"`
	DownloadCollision string   `toml:"download_collision"`
	DefaultCategories []string `toml:"default_categories"`
}

// Load reads .env, the optional TOML config file and PHOTOSHELF_* environment
// variables, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var fc fileConfig
	dataDir := getString("PHOTOSHELF_DATA_DIR", DefaultDataDir)
	path := getString("PHOTOSHELF_CONFIG", filepath.Join(dataDir, DefaultConfigFileName))
	found, err := loadFileIfExists(path, &fc)
	if err != nil {
		return nil, err
	}

	if fc.DataDir != "" && strings.TrimSpace(os.Getenv("PHOTOSHELF_DATA_DIR")) == "" {
		dataDir = fc.DataDir
	}

	cfg := &Config{
		DataDir:           dataDir,
		DBPath:            getString("PHOTOSHELF_DB_PATH", orDefault(fc.DBPath, filepath.Join(dataDir, DefaultDBFileName))),
		ResourcesDir:      getString("PHOTOSHELF_RESOURCES_DIR", orDefault(fc.ResourcesDir, filepath.Join(dataDir, DefaultResourcesDirName))),
		DownloadDir:       getString("PHOTOSHELF_DOWNLOAD_DIR", orDefault(fc.DownloadDir, defaultDownloadDir(dataDir))),
		DefaultCategories: storage.DefaultCategories,
	}
	if found {
		cfg.ConfigFile = path
	}
	if len(fc.DefaultCategories) > 0 {
		cfg.DefaultCategories = fc.DefaultCategories
	}

	if cfg.LogLevel, err = logging.ParseLevel(getString("PHOTOSHELF_LOG_LEVEL", fc.LogLevel)); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	interval := getString("PHOTOSHELF_SLIDESHOW_INTERVAL", fc.SlideshowInterval)
	cfg.SlideshowInterval = DefaultSlideshowInterval
	if interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("config: invalid slideshow interval %q", interval)
		}
		cfg.SlideshowInterval = d
	}

	if cfg.DeletePolicy, err = storage.ParseDeletePolicy(getString("PHOTOSHELF_DELETE_POLICY", fc.DeletePolicy)); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.DownloadCollision, err = files.ParseCollision(getString("PHOTOSHELF_DOWNLOAD_COLLISION", fc.DownloadCollision)); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func loadFileIfExists(path string, fc *fileConfig) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, fc); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func defaultDownloadDir(dataDir string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(dataDir, "downloads")
	}
	return filepath.Join(home, "Downloads")
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
